package bench

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MikhailWahib/diarydb"
)

func benchConfig(backend string) *diarydb.Config {
	cfg := diarydb.DefaultConfig()
	sync := false
	cfg.SyncWrites = &sync
	cfg.IndexBackend = backend
	return cfg
}

func setupBenchDB(b *testing.B, cfg *diarydb.Config) (*diarydb.DB, string, func()) {
	tmpDir := filepath.Join(os.TempDir(), fmt.Sprintf("diarydb_bench_%d", rand.Int63()))
	db, err := diarydb.Open(tmpDir, cfg)
	if err != nil {
		b.Fatalf("Failed to open diary: %v", err)
	}

	cleanup := func() {
		_ = db.Close()
		_ = os.RemoveAll(tmpDir)
	}

	return db, tmpDir, cleanup
}

var benchStart = time.Date(2017, time.February, 1, 6, 30, 0, 0, time.Local)

func populate(b *testing.B, db *diarydb.DB, n int) []diarydb.ObjectID {
	ids := make([]diarydb.ObjectID, 0, n)
	for i := 0; i < n; i++ {
		a, err := db.NewAppointment(fmt.Sprintf("appointment %d", i), benchStart.Add(time.Duration(i)*time.Hour), time.Hour, "details")
		if err != nil {
			b.Fatalf("Pre-populate failed: %v", err)
		}
		ids = append(ids, a.ID())
	}
	if err := db.Save(); err != nil {
		b.Fatalf("Pre-populate save failed: %v", err)
	}
	return ids
}

func BenchmarkNewAppointment(b *testing.B) {
	db, _, cleanup := setupBenchDB(b, benchConfig(diarydb.IndexText))
	defer cleanup()

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, err := db.NewAppointment("Yoga", benchStart, 45*time.Minute, "Downward Dog")
		if err != nil {
			b.Fatalf("NewAppointment failed: %v", err)
		}
	}
}

func benchmarkSave(b *testing.B, backend string) {
	db, _, cleanup := setupBenchDB(b, benchConfig(backend))
	defer cleanup()

	populate(b, db, 1000)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := db.Save(); err != nil {
			b.Fatalf("Save failed: %v", err)
		}
	}
}

func BenchmarkSave(b *testing.B) { benchmarkSave(b, diarydb.IndexText) }
func BenchmarkSaveBolt(b *testing.B) { benchmarkSave(b, diarydb.IndexBolt) }

func BenchmarkRandomRead(b *testing.B) {
	db, _, cleanup := setupBenchDB(b, benchConfig(diarydb.IndexText))
	defer cleanup()

	ids := populate(b, db, 10000)
	table := db.Appointments().Table()

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, found, err := table.Read(ids[rand.Intn(len(ids))])
		if err != nil || !found {
			b.Fatalf("record not found: %v", err)
		}
	}
}

func BenchmarkColdOpen(b *testing.B) {
	cfg := benchConfig(diarydb.IndexText)
	db, dir, cleanup := setupBenchDB(b, cfg)
	defer cleanup()

	ids := populate(b, db, 10000)
	if err := db.Close(); err != nil {
		b.Fatalf("Close failed: %v", err)
	}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		db, err := diarydb.Open(dir, cfg)
		if err != nil {
			b.Fatalf("Open failed: %v", err)
		}
		if _, ok := db.Appointment(ids[rand.Intn(len(ids))]); !ok {
			b.Fatalf("appointment not found")
		}
		_ = db.Close()
	}
}

func BenchmarkConcurrentRead(b *testing.B) {
	db, _, cleanup := setupBenchDB(b, benchConfig(diarydb.IndexText))
	defer cleanup()

	ids := populate(b, db, 10000)

	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, ok := db.Appointment(ids[rand.Intn(len(ids))]); !ok {
				b.Fatalf("appointment not found")
			}
		}
	})
}
