package diskmanager_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MikhailWahib/diarydb/internal/diskmanager"
	"github.com/stretchr/testify/require"
)

func TestDiskManager_Open(t *testing.T) {
	dm := diskmanager.NewDiskManager()
	filePath := filepath.Join(t.TempDir(), "testfile1.dat")

	// Test creating a new file
	handle, err := dm.Open(filePath, os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err, "Expected no error on file creation")
	require.NotNil(t, handle, "Expected valid file handle, got nil")

	err = dm.Close(filePath)
	require.NoError(t, err, "Expected no error on close")

	handle, err = dm.Open(filePath, os.O_RDONLY, 0644)
	require.NoError(t, err, "Expected no error opening file in read-only mode")
	require.NotNil(t, handle, "Expected valid file handle on read-only opening")
	require.NoError(t, dm.Close(filePath))

	// Test opening non-existent file without create flag
	nonExistentPath := filepath.Join(t.TempDir(), "nonexistent.dat")
	_, err = dm.Open(nonExistentPath, os.O_RDWR, 0644)
	require.Error(t, err, "Expected error opening non-existent file without create flag")
	require.True(t, os.IsNotExist(err), "Expected 'file not exist' error")
}

func TestDiskManager_SharedHandle(t *testing.T) {
	dm := diskmanager.NewDiskManager()
	filePath := filepath.Join(t.TempDir(), "shared.dat")

	first, err := dm.Open(filePath, os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)
	second, err := dm.Open(filePath, os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)
	require.Same(t, first, second, "Expected the same handle for the same path")
	require.Equal(t, 2, dm.Refs(filePath))

	// First owner lets go, the second still has a working handle
	require.NoError(t, dm.Close(filePath))
	require.Equal(t, 1, dm.Refs(filePath))
	_, err = second.WriteAt([]byte("still open"), 0)
	require.NoError(t, err, "Handle must stay usable while referenced")

	require.NoError(t, dm.Close(filePath))
	require.Equal(t, 0, dm.Refs(filePath))

	// Extra closes are no-ops
	require.NoError(t, dm.Close(filePath))
}

func TestFileHandle_ReadWriteOperations(t *testing.T) {
	dm := diskmanager.NewDiskManager()
	filePath := filepath.Join(t.TempDir(), "testfile2.dat")
	defer func() { _ = dm.Close(filePath) }()

	handle, err := dm.Open(filePath, os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err, "Expected no error, got %v", err)

	data := []byte("Hello, world!")
	n, err := handle.WriteAt(data, 0)
	require.NoError(t, err, "Expected no error on WriteAt")
	require.Equal(t, len(data), n, "Expected to write %d bytes, wrote %d", len(data), n)

	err = handle.Sync()
	require.NoError(t, err, "Expected no error on Sync")

	readData := make([]byte, len(data))
	n, err = handle.ReadAt(readData, 0)
	require.NoError(t, err, "Expected no error on ReadAt")
	require.Equal(t, len(data), n, "Expected to read %d bytes, read %d", len(data), n)
	require.Equal(t, string(data), string(readData))

	// Test appending data
	offset := int64(len(data))
	newData := []byte("\nHiii!")
	_, err = handle.WriteAt(newData, offset)
	require.NoError(t, err, "Expected no error on WriteAt")

	readData = make([]byte, len(data)+len(newData))
	_, err = handle.ReadAt(readData, 0)
	require.NoError(t, err, "Expected no error on ReadAt")
	require.Equal(t, "Hello, world!\nHiii!", string(readData))

	st, err := handle.Stat()
	require.NoError(t, err)
	require.EqualValues(t, len(readData), st.Size())
}

func TestDiskManager_Rename(t *testing.T) {
	dm := diskmanager.NewDiskManager()
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "a.dat")
	newPath := filepath.Join(dir, "b.dat")

	handle, err := dm.Open(oldPath, os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)
	_, err = handle.WriteAt([]byte("payload"), 0)
	require.NoError(t, err)

	err = dm.Rename(oldPath, newPath)
	require.Error(t, err, "Expected error renaming an open file")

	require.NoError(t, dm.Close(oldPath))
	require.NoError(t, dm.Rename(oldPath, newPath))

	data, err := os.ReadFile(newPath)
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))
	_, err = os.Stat(oldPath)
	require.True(t, os.IsNotExist(err))
}

func TestDiskManager_Delete(t *testing.T) {
	dm := diskmanager.NewDiskManager()
	filePath := filepath.Join(t.TempDir(), "testfile3.dat")

	handle, err := dm.Open(filePath, os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err, "Expected no error on Open")
	_, err = handle.WriteAt([]byte("Test data"), 0)
	require.NoError(t, err, "Expected no error on WriteAt")

	// Delete closes the open handle
	err = dm.Delete(filePath)
	require.NoError(t, err, "Expected no error on Delete")
	require.Equal(t, 0, dm.Refs(filePath))

	_, err = os.Stat(filePath)
	require.True(t, os.IsNotExist(err), "Expected file %s to be deleted, but it exists", filePath)

	err = dm.Delete(filePath)
	require.Error(t, err, "Expected error when deleting non-existent file")
	require.True(t, os.IsNotExist(err), "Expected 'file not exist' error")
}

func TestDiskManager_List(t *testing.T) {
	dm := diskmanager.NewDiskManager()
	testDir := t.TempDir()

	testFiles := []string{
		"appointments.dat",
		"appointments.ids",
		"reminders.dat",
	}

	for _, f := range testFiles {
		path := filepath.Join(testDir, f)
		_, err := dm.Open(path, os.O_CREATE|os.O_RDWR, 0644)
		require.NoError(t, err, "Failed to create test file %s", f)
		require.NoError(t, dm.Close(path))
	}

	files, err := dm.List(testDir, "")
	require.NoError(t, err, "Expected no error listing files")
	require.Len(t, files, len(testFiles))

	datFiles, err := dm.List(testDir, ".dat")
	require.NoError(t, err, "Expected no error listing .dat files")
	require.Len(t, datFiles, 2, "Expected 2 .dat files, got %d", len(datFiles))

	_, err = dm.List(filepath.Join(testDir, "nonexistent_dir"), "")
	require.Error(t, err, "Expected error listing non-existent directory")
}

func TestFileHandle_EdgeCases(t *testing.T) {
	dm := diskmanager.NewDiskManager()
	filePath := filepath.Join(t.TempDir(), "testfile5.dat")
	defer func() { _ = dm.Close(filePath) }()

	handle, err := dm.Open(filePath, os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err, "Expected no error, got %v", err)

	// Test writing empty data
	n, err := handle.WriteAt([]byte{}, 0)
	require.NoError(t, err, "Expected no error writing empty data")
	require.Zero(t, n, "Expected to write 0 bytes, wrote %d", n)

	_, err = handle.WriteAt([]byte("Hello"), 10)
	require.NoError(t, err, "Expected no error writing at offset")

	// Test reading across sparse regions
	fullData := make([]byte, 15) // 10 bytes of zeros + 5 bytes of "Hello"
	_, err = handle.ReadAt(fullData, 0)
	require.NoError(t, err, "Expected no error reading full data")

	for i := 0; i < 10; i++ {
		require.Zero(t, fullData[i], "Expected byte %d to be 0", i)
	}
	require.Equal(t, "Hello", string(fullData[10:15]), "Expected 'Hello' at offset 10")
}
