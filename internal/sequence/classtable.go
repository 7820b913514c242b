package sequence

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ClassTable assigns ids 1, 2, 3, ... to entity kind names in the order the
// names are first requested. The file has one "<name> <id>" line per kind.
type ClassTable struct {
	path  string
	ids   map[string]int32
	names []string // names[id-1]
}

// LoadClassTable reads the table at path. A missing file is an empty table.
func LoadClassTable(path string) (*ClassTable, error) {
	ct := &ClassTable{
		path: path,
		ids:  make(map[string]int32),
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ct, nil
		}
		return nil, fmt.Errorf("failed to read class table: %w", err)
	}

	byID := make(map[int32]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("%s: invalid class line %q", path, line)
		}
		id, err := strconv.ParseInt(parts[1], 10, 32)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%s: invalid class id in %q", path, line)
		}
		if _, dup := ct.ids[parts[0]]; dup {
			return nil, fmt.Errorf("%s: duplicate class %q", path, parts[0])
		}
		if _, dup := byID[int32(id)]; dup {
			return nil, fmt.Errorf("%s: duplicate class id %d", path, id)
		}
		ct.ids[parts[0]] = int32(id)
		byID[int32(id)] = parts[0]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read class table: %w", err)
	}

	// ids are dense because they are only ever assigned as len+1
	ct.names = make([]string, len(byID))
	for id, name := range byID {
		if int(id) > len(byID) {
			return nil, fmt.Errorf("%s: class ids are not contiguous", path)
		}
		ct.names[id-1] = name
	}
	return ct, nil
}

// ID returns the id of name, assigning and persisting the next id if name
// hasn't been seen before.
func (ct *ClassTable) ID(name string) (int32, error) {
	if name == "" || strings.ContainsAny(name, " \t\r\n") {
		return 0, fmt.Errorf("invalid class name %q", name)
	}
	if id, ok := ct.ids[name]; ok {
		return id, nil
	}

	id := int32(len(ct.names) + 1)
	names := append(ct.names[:len(ct.names):len(ct.names)], name)
	if err := writeFileAtomic(ct.path, formatClassTable(names)); err != nil {
		return 0, fmt.Errorf("failed to write class table: %w", err)
	}
	ct.names = names
	ct.ids[name] = id
	return id, nil
}

// Name returns the kind name registered under id.
func (ct *ClassTable) Name(id int32) (string, bool) {
	if id < 1 || int(id) > len(ct.names) {
		return "", false
	}
	return ct.names[id-1], true
}

// Len returns the number of registered kinds.
func (ct *ClassTable) Len() int {
	return len(ct.names)
}

func formatClassTable(names []string) []byte {
	var buf bytes.Buffer
	for i, name := range names {
		buf.WriteString(name)
		buf.WriteByte(' ')
		buf.WriteString(strconv.Itoa(i + 1))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
