package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// MinOrphanAge is how old an unreferenced upload must be before it is swept.
// Younger files may belong to a post whose transaction has not committed yet.
const MinOrphanAge = time.Hour

// ImageLister lists the image filenames referenced by posts.
type ImageLister interface {
	ImageNames(ctx context.Context) ([]string, error)
}

// Sweeper removes unreferenced files from the upload directory.
type Sweeper interface {
	Sweep(referenced map[string]bool, cutoff time.Time) (int, error)
}

// SweepOnce removes every upload that no post references and that is older
// than MinOrphanAge. It returns the number of files removed.
func SweepOnce(ctx context.Context, images ImageLister, store Sweeper, now time.Time) (int, error) {
	names, err := images.ImageNames(ctx)
	if err != nil {
		return 0, fmt.Errorf("list referenced images: %w", err)
	}
	referenced := make(map[string]bool, len(names))
	for _, n := range names {
		referenced[n] = true
	}
	return store.Sweep(referenced, now.Add(-MinOrphanAge))
}

// Run starts a cron scheduler that sweeps orphaned uploads at spec (standard
// 5-field cron syntax or descriptors like "@hourly"). The returned cron is
// already started; call Stop on shutdown.
func Run(spec string, images ImageLister, store Sweeper) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		removed, err := SweepOnce(ctx, images, store, time.Now())
		if err != nil {
			slog.Error("upload sweep failed", "error", err)
			return
		}
		if removed > 0 {
			slog.Info("upload sweep", "removed", removed)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_SWEEP_CRON %q: %w", spec, err)
	}

	c.Start()
	slog.Info("upload sweeper started", "cron", spec)
	return c, nil
}
