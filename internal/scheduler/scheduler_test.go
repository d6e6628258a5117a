package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/crucial707/blog/internal/upload"
)

type staticImages []string

func (s staticImages) ImageNames(ctx context.Context) ([]string, error) { return s, nil }

type failingImages struct{}

func (failingImages) ImageNames(ctx context.Context) ([]string, error) {
	return nil, errors.New("db down")
}

func writeAged(t *testing.T, dir, name string, age time.Duration) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	at := time.Now().Add(-age)
	if err := os.Chtimes(path, at, at); err != nil {
		t.Fatal(err)
	}
}

func TestSweepOnce(t *testing.T) {
	dir := t.TempDir()
	store := upload.NewStore(dir, []string{"png"}, 1024)

	writeAged(t, dir, "kept.png", 2*time.Hour)
	writeAged(t, dir, "orphan.png", 2*time.Hour)
	writeAged(t, dir, "fresh.png", time.Minute)

	removed, err := SweepOnce(context.Background(), staticImages{"kept.png"}, store, time.Now())
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed: got %d, want 1", removed)
	}
	for name, want := range map[string]bool{"kept.png": true, "orphan.png": false, "fresh.png": true} {
		_, err := os.Stat(filepath.Join(dir, name))
		if exists := err == nil; exists != want {
			t.Errorf("%s exists=%v, want %v", name, exists, want)
		}
	}
}

func TestSweepOnce_ListFailureRemovesNothing(t *testing.T) {
	dir := t.TempDir()
	store := upload.NewStore(dir, []string{"png"}, 1024)
	writeAged(t, dir, "orphan.png", 2*time.Hour)

	if _, err := SweepOnce(context.Background(), failingImages{}, store, time.Now()); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(filepath.Join(dir, "orphan.png")); err != nil {
		t.Errorf("file removed despite list failure: %v", err)
	}
}

func TestRun_InvalidSchedule(t *testing.T) {
	store := upload.NewStore(t.TempDir(), []string{"png"}, 1024)
	if _, err := Run("not a cron", staticImages{}, store); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestRun_Starts(t *testing.T) {
	store := upload.NewStore(t.TempDir(), []string{"png"}, 1024)
	c, err := Run("@hourly", staticImages{}, store)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer c.Stop()
	if len(c.Entries()) != 1 {
		t.Errorf("entries: got %d, want 1", len(c.Entries()))
	}
}
