package indexdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"strata.dev/internal/coords"
	"strata.dev/internal/voxel"
	"strata.dev/internal/voxelmap"
)

func TestSQLiteIndex_RecordScanAndLatest(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer idx.Close()

	if _, ok, err := idx.LatestScan(ctx); err != nil || ok {
		t.Fatalf("empty index: ok=%v err=%v", ok, err)
	}

	vol := coords.Volume{XMin: 180, XMax: 340, ZMin: 323, ZMax: 474, YMin: 108, YMax: 152}
	t0 := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	older := ScanRecord{ID: "a", SnapshotPath: "/data/a.zst", RegionDir: "/w/region", Volume: vol, Voxels: 10, CreatedAt: t0}
	newer := older
	newer.ID, newer.SnapshotPath, newer.CreatedAt = "b", "/data/b.zst", t0.Add(time.Hour)

	tally := []voxelmap.Count{{Type: "stone", Count: 7}, {Type: "dirt", Count: 3}}
	if err := idx.RecordScan(ctx, newer, tally); err != nil {
		t.Fatalf("RecordScan b: %v", err)
	}
	if err := idx.RecordScan(ctx, older, nil); err != nil {
		t.Fatalf("RecordScan a: %v", err)
	}

	got, ok, err := idx.LatestScan(ctx)
	if err != nil || !ok {
		t.Fatalf("LatestScan: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(newer, got); diff != "" {
		t.Fatalf("LatestScan mismatch (-want +got):\n%s", diff)
	}
	rows, err := idx.Tally(ctx, "b")
	if err != nil {
		t.Fatalf("Tally: %v", err)
	}
	if diff := cmp.Diff(tally, rows); diff != "" {
		t.Fatalf("Tally mismatch (-want +got):\n%s", diff)
	}

	// re-recording replaces the tally
	if err := idx.RecordScan(ctx, newer, tally[:1]); err != nil {
		t.Fatalf("RecordScan again: %v", err)
	}
	if rows, _ := idx.Tally(ctx, "b"); len(rows) != 1 {
		t.Fatalf("Tally after replace: %v", rows)
	}
}

func TestSQLiteIndex_RecordLayer(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}

	rec := ScanRecord{ID: "s1", SnapshotPath: "/d/s1.zst", RegionDir: "/w/region", Voxels: 9}
	if err := idx.RecordScan(ctx, rec, nil); err != nil {
		t.Fatalf("RecordScan: %v", err)
	}
	layer := LayerRecord{
		Y: 108, Offset: 0, Hollow: true, ImagePath: "/d/layer_108.png",
		Enumerations: []voxelmap.Count{{Type: "stone", Count: 4}, {Type: "dirt", Count: 2}},
		Missing:      []voxel.Type{"air", "cobweb"},
	}
	if err := idx.RecordLayer(ctx, "s1", layer); err != nil {
		t.Fatalf("RecordLayer: %v", err)
	}
	if err := idx.RecordLayer(ctx, "s1", layer); err != nil {
		t.Fatalf("RecordLayer replace: %v", err)
	}
	if err := idx.RecordLayer(ctx, "nope", layer); err == nil {
		t.Fatalf("expected foreign key error for unknown scan")
	}

	got, err := idx.LayerCounts(ctx, "s1", 108, true)
	if err != nil {
		t.Fatalf("LayerCounts: %v", err)
	}
	if diff := cmp.Diff(layer.Enumerations, got); diff != "" {
		t.Fatalf("LayerCounts mismatch (-want +got):\n%s", diff)
	}
	if got, _ := idx.LayerCounts(ctx, "s1", 108, false); len(got) != 0 {
		t.Fatalf("solid render was never recorded: %v", got)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	var missing string
	if err := db.QueryRow(`SELECT missing FROM layers WHERE scan_id='s1' AND y=108`).Scan(&missing); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if missing != "air,cobweb" {
		t.Fatalf("missing: got %q", missing)
	}
}
