// Package engine ties the persistence pieces together: the shared id
// allocator and class table, one reference-counted Table (data file + key
// index) per entity kind, and generic repositories on top of the tables.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/MikhailWahib/diarydb/internal/config"
	"github.com/MikhailWahib/diarydb/internal/diskmanager"
	"github.com/MikhailWahib/diarydb/internal/index"
	"github.com/MikhailWahib/diarydb/internal/record"
	"github.com/MikhailWahib/diarydb/internal/sequence"
	"github.com/MikhailWahib/diarydb/internal/store"
)

// File name suffixes
const (
	DataSuffix      = ".dat"
	IndexSuffix     = ".ids"
	BoltIndexSuffix = ".ids.bolt"
)

// ErrClosed is returned by an Engine after Close.
var ErrClosed = errors.New("engine is closed")

// Engine owns everything shared by the repositories of one persistence folder.
type Engine struct {
	config  *config.Config
	logger  *slog.Logger
	dm      diskmanager.DiskManager
	dataDir string

	allocator *sequence.Allocator
	classes   *sequence.ClassTable

	mu     sync.Mutex
	tables map[string]*Table
	closed bool
}

// NewEngine creates an engine. OpenDB must be called before use.
func NewEngine(cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cfg.FillDefaults()
	return &Engine{
		config: cfg,
		logger: cfg.Logger,
		dm:     diskmanager.NewDiskManager(),
		tables: make(map[string]*Table),
	}
}

// SetDiskManager replaces the disk manager used for data files. It must be
// called before the first Acquire.
func (e *Engine) SetDiskManager(dm diskmanager.DiskManager) {
	e.dm = dm
}

// OpenDB prepares the persistence folder and loads the class table.
func (e *Engine) OpenDB(dataDir string) error {
	if err := e.config.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	classes, err := sequence.LoadClassTable(filepath.Join(dataDir, e.config.ClassIDFile))
	if err != nil {
		return err
	}
	e.dataDir = dataDir
	e.classes = classes
	e.allocator = sequence.NewAllocator(filepath.Join(dataDir, e.config.ObjectIDFile))
	e.removeCompactLeftovers()
	return nil
}

// removeCompactLeftovers deletes output of compactions that never finished.
// The data files they were copied from are still intact.
func (e *Engine) removeCompactLeftovers() {
	names, err := e.dm.List(e.dataDir, DataSuffix+CompactSuffix)
	if err != nil {
		e.logger.Warn("engine: failed to list data directory", slog.Any("err", err))
		return
	}
	for _, name := range names {
		e.logger.Warn("engine: removing unfinished compaction", slog.String("file", name))
		_ = e.dm.Delete(filepath.Join(e.dataDir, name))
	}
}

// Config returns the engine's configuration
func (e *Engine) Config() *config.Config {
	return e.config
}

// Logger returns the engine's logger
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// DataDir returns the persistence folder
func (e *Engine) DataDir() string {
	return e.dataDir
}

// NextID allocates a new object id.
func (e *Engine) NextID() (record.ObjectID, error) {
	return e.allocator.NextID()
}

// ClassID returns the class id of an entity kind name.
func (e *Engine) ClassID(name string) (int32, error) {
	return e.classes.ID(name)
}

// ClassName returns the kind name registered under id.
func (e *Engine) ClassName(id int32) (string, bool) {
	return e.classes.Name(id)
}

// Acquire returns the shared table for name, opening it on first use. Each
// Acquire must be paired with a Table.Release.
func (e *Engine) Acquire(name string) (*Table, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}
	if t, ok := e.tables[name]; ok {
		t.refs++
		return t, nil
	}

	t, err := e.openTable(name)
	if err != nil {
		return nil, err
	}
	t.refs = 1
	e.tables[name] = t
	e.logger.Debug("engine: opened table", slog.String("table", name))
	return t, nil
}

func (e *Engine) openTable(name string) (*Table, error) {
	if e.dataDir == "" {
		return nil, fmt.Errorf("engine: OpenDB was not called")
	}
	if name == "" || filepath.Base(name) != name {
		return nil, fmt.Errorf("invalid table name %q", name)
	}

	dataPath := filepath.Join(e.dataDir, name+DataSuffix)
	st, err := store.Open(e.dm, dataPath, e.storeOptions())
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", name, err)
	}

	var idx index.Index
	switch e.config.IndexBackend {
	case config.IndexBolt:
		idx, err = index.OpenBolt(filepath.Join(e.dataDir, name+BoltIndexSuffix))
	default:
		idx, err = index.LoadText(filepath.Join(e.dataDir, name+IndexSuffix))
	}
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("table %s: %w", name, err)
	}

	return &Table{
		name:   name,
		engine: e,
		store:  st,
		index:  idx,
	}, nil
}

func (e *Engine) storeOptions() store.Options {
	return store.Options{Sync: e.config.Sync(), Logger: e.logger}
}

// release is called by Table.Release.
func (e *Engine) release(t *Table) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t.refs == 0 {
		return nil
	}
	t.refs--
	if t.refs > 0 {
		return nil
	}
	delete(e.tables, t.name)
	e.logger.Debug("engine: closed table", slog.String("table", t.name))
	return t.close()
}

// OpenTables returns the names of the tables currently acquired.
func (e *Engine) OpenTables() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.tables))
	for name := range e.tables {
		names = append(names, name)
	}
	return names
}

// Close closes every table still acquired, whatever its reference count.
// Unsaved repository state is not written. It can be called multiple times.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	var errs []error
	for name, t := range e.tables {
		if t.refs > 0 {
			e.logger.Warn("engine: closing table still in use",
				slog.String("table", name), slog.Int("refs", t.refs))
		}
		t.refs = 0
		errs = append(errs, t.close())
	}
	clear(e.tables)
	return errors.Join(errs...)
}
