package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"strata.dev/internal/config"
	"strata.dev/internal/persistence/indexdb"
	"strata.dev/internal/persistence/snapshot"
)

const snapshotExt = ".scan.zst"

func snapshotDir(cfg config.Config) string {
	return filepath.Join(cfg.Output.DataDir, "snapshots")
}

// previousSnapshot finds the newest snapshot of the configured volume, asking the index first.
func previousSnapshot(ctx context.Context, cfg config.Config, idx *indexdb.SQLiteIndex) string {
	if idx != nil {
		rec, ok, err := idx.LatestScan(ctx)
		if err == nil && ok && rec.Volume == cfg.Bounds {
			if _, err := os.Stat(rec.SnapshotPath); err == nil {
				return rec.SnapshotPath
			}
		}
	}
	return latestSnapshot(snapshotDir(cfg), cfg)
}

func latestSnapshot(dir string, cfg config.Config) string {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var (
		best   string
		bestAt time.Time
	)
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), snapshotExt) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		h, err := snapshot.ReadHeader(path)
		if err != nil || h.Volume != cfg.Bounds {
			continue
		}
		at, err := time.Parse(time.RFC3339Nano, h.CreatedAt)
		if err != nil {
			continue
		}
		if best == "" || at.After(bestAt) {
			best, bestAt = path, at
		}
	}
	return best
}
