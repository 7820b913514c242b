package sequence_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MikhailWahib/diarydb/internal/record"
	"github.com/MikhailWahib/diarydb/internal/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocator_FreshCounterStartsAtOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "objectid.txt")
	a := sequence.NewAllocator(path)

	cur, err := a.Current()
	require.NoError(t, err)
	assert.Zero(t, cur)

	id, err := a.NextID()
	require.NoError(t, err)
	assert.Equal(t, record.ObjectID(1), id)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1\n", string(data), "counter is persisted on every allocation")
}

func TestAllocator_MonotonicAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "objectid.txt")

	var got []record.ObjectID
	for restart := 0; restart < 5; restart++ {
		a := sequence.NewAllocator(path) // simulated process restart
		for range restart + 3 {
			id, err := a.NextID()
			require.NoError(t, err)
			got = append(got, id)
		}
	}

	for i := 1; i < len(got); i++ {
		require.Greater(t, got[i], got[i-1], "ids must strictly increase")
	}
	assert.Equal(t, record.ObjectID(len(got)), got[len(got)-1], "no gaps without burned ids")
}

func TestAllocator_SharedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "objectid.txt")
	a := sequence.NewAllocator(path)
	b := sequence.NewAllocator(path)

	id1, err := a.NextID()
	require.NoError(t, err)
	id2, err := b.NextID()
	require.NoError(t, err)
	id3, err := a.NextID()
	require.NoError(t, err)
	assert.Equal(t, []record.ObjectID{1, 2, 3}, []record.ObjectID{id1, id2, id3})
}

func TestAllocator_Errors(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.txt")
	require.NoError(t, os.WriteFile(garbage, []byte("seven\n"), 0644))
	_, err := sequence.NewAllocator(garbage).NextID()
	assert.Error(t, err)

	// the directory holding the counter doesn't exist
	_, err = sequence.NewAllocator(filepath.Join(dir, "missing", "objectid.txt")).NextID()
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	id, err := sequence.NewAllocator(empty).NextID()
	require.NoError(t, err)
	assert.Equal(t, record.ObjectID(1), id)
}

func TestClassTable_AssignsInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classid.txt")
	ct, err := sequence.LoadClassTable(path)
	require.NoError(t, err)

	for i, name := range []string{"Appointment", "Reminder", "Contact"} {
		id, err := ct.ID(name)
		require.NoError(t, err)
		assert.Equal(t, int32(i+1), id)
	}

	// seen names keep their id
	id, err := ct.ID("Reminder")
	require.NoError(t, err)
	assert.Equal(t, int32(2), id)
	assert.Equal(t, 3, ct.Len())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Appointment 1\nReminder 2\nContact 3\n", string(data))
}

func TestClassTable_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classid.txt")
	ct, err := sequence.LoadClassTable(path)
	require.NoError(t, err)
	_, err = ct.ID("Appointment")
	require.NoError(t, err)
	_, err = ct.ID("PeriodicAppointment")
	require.NoError(t, err)

	ct, err = sequence.LoadClassTable(path)
	require.NoError(t, err)
	name, ok := ct.Name(2)
	require.True(t, ok)
	assert.Equal(t, "PeriodicAppointment", name)
	_, ok = ct.Name(3)
	assert.False(t, ok)

	id, err := ct.ID("Contact")
	require.NoError(t, err)
	assert.Equal(t, int32(3), id)
}

func TestClassTable_Errors(t *testing.T) {
	dir := t.TempDir()
	ct, err := sequence.LoadClassTable(filepath.Join(dir, "classid.txt"))
	require.NoError(t, err)
	_, err = ct.ID("")
	assert.Error(t, err)
	_, err = ct.ID("Two Words")
	assert.Error(t, err)

	for _, content := range []string{
		"Appointment\n",
		"Appointment x\n",
		"Appointment 1\nAppointment 2\n",
		"Appointment 1\nReminder 1\n",
		"Appointment 1\nReminder 3\n",
	} {
		path := filepath.Join(dir, "bad.txt")
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		_, err := sequence.LoadClassTable(path)
		assert.Error(t, err, "%q", content)
	}
}
