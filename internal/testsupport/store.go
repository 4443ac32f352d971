package testsupport

import (
	"context"
	"testing"
	"time"

	"github.com/mwidera/plenum/internal/config"
	"github.com/mwidera/plenum/internal/progress"
)

// MustLoadStore opens the progress store for tests, failing fast on corrupt
// fixtures.
func MustLoadStore(t testing.TB, cfg *config.Config) *progress.Store {
	t.Helper()

	store := progress.NewStore(cfg.Paths.ProgressFile)
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("progress.Load: %v", err)
	}
	return store
}

// SeedCompleted inserts a completed record for the identifier.
func SeedCompleted(t testing.TB, store *progress.Store, identifier, artifactPath string) {
	t.Helper()

	rec := progress.NewRecord(identifier)
	rec.MarkCompleted(artifactPath, time.Now())
	if err := store.Upsert(context.Background(), rec); err != nil {
		t.Fatalf("seed completed %s: %v", identifier, err)
	}
}

// SeedFailed inserts a failed record with the given attempt count.
func SeedFailed(t testing.TB, store *progress.Store, identifier string, attempts int) {
	t.Helper()

	rec := progress.NewRecord(identifier)
	for i := 0; i < attempts; i++ {
		rec.MarkFailed("network_error", "seeded failure", time.Now())
	}
	if err := store.Upsert(context.Background(), rec); err != nil {
		t.Fatalf("seed failed %s: %v", identifier, err)
	}
}
