package region_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"strata.dev/internal/coords"
	"strata.dev/internal/region"
	"strata.dev/internal/region/regiontest"
	"strata.dev/internal/voxel"
)

func TestResolveDir_AcceptsSaveOrRegionDir(t *testing.T) {
	dir := regiontest.Dir(t, "mca", coords.RegionPos{})

	got, err := region.ResolveDir(dir, "mca")
	if err != nil {
		t.Fatalf("ResolveDir(region dir): %v", err)
	}
	if got != dir {
		t.Fatalf("ResolveDir: got %q want %q", got, dir)
	}

	got, err = region.ResolveDir(filepath.Dir(dir), "mca")
	if err != nil {
		t.Fatalf("ResolveDir(save dir): %v", err)
	}
	if got != dir {
		t.Fatalf("ResolveDir(save dir): got %q want %q", got, dir)
	}
}

func TestResolveDir_RejectsDirWithoutRegionFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), region.DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := region.ResolveDir(dir, "mca")
	if !errors.Is(err, region.ErrInvalidRegionDirectory) {
		t.Fatalf("expected ErrInvalidRegionDirectory, got %v", err)
	}
	if !strings.Contains(err.Error(), dir) {
		t.Fatalf("error should name the directory: %v", err)
	}

	if _, err := region.ResolveDir(filepath.Join(t.TempDir(), "missing"), "mca"); !errors.Is(err, region.ErrInvalidRegionDirectory) {
		t.Fatalf("expected ErrInvalidRegionDirectory for missing dir, got %v", err)
	}
}

func TestLoad_OpensEachRegionOnceAcrossOrigin(t *testing.T) {
	vol := coords.Volume{XMin: -20, XMax: 20, ZMin: -3, ZMax: 3, YMin: 0, YMax: 1}
	dir := regiontest.DirFor(t, vol)
	w := regiontest.NewWorld("stone")

	c, err := region.Load(dir, "mca", vol, w, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer c.Close()

	if c.NumRegions() != 4 {
		t.Fatalf("NumRegions: got %d want 4", c.NumRegions())
	}
	for name, n := range w.Opened {
		if n != 1 {
			t.Fatalf("%s opened %d times", name, n)
		}
	}
	// chunks -2..1 on x, -1..0 on z
	if c.NumChunks() != 8 {
		t.Fatalf("NumChunks: got %d want 8", c.NumChunks())
	}
	if _, ok := c.Chunk(coords.ChunkPos{X: -2, Z: -1}); !ok {
		t.Fatalf("missing chunk(-2,-1)")
	}
	if _, ok := c.Chunk(coords.ChunkPos{X: 2, Z: 0}); ok {
		t.Fatalf("chunk(2,0) is outside the volume")
	}
}

func TestLoad_ChunkHandleUsesRegionLocalOffsets(t *testing.T) {
	vol := coords.Volume{XMin: -17, XMax: -17, ZMin: 530, ZMax: 530, YMin: 64, YMax: 64}
	w := regiontest.NewWorld(voxel.Air)
	w.Set(-17, 530, 64, "gold_block")

	c, err := region.Load(regiontest.DirFor(t, vol), "", vol, w, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ch, ok := c.Chunk(coords.ChunkPosOf(-17, 530))
	if !ok {
		t.Fatalf("chunk not loaded")
	}
	if got := ch.VoxelAt(coords.LocalInChunk(-17), 64, coords.LocalInChunk(530)); got != "gold_block" {
		t.Fatalf("VoxelAt: got %q", got)
	}
}

func TestLoad_MissingRegionFileIsFatal(t *testing.T) {
	vol := coords.Volume{XMin: 0, XMax: 600, ZMin: 0, ZMax: 0, YMin: 0, YMax: 0}
	dir := regiontest.Dir(t, "mca", coords.RegionPos{X: 0, Z: 0})

	_, err := region.Load(dir, "mca", vol, regiontest.NewWorld("stone"), nil)
	if !errors.Is(err, region.ErrMissingRegionFile) {
		t.Fatalf("expected ErrMissingRegionFile, got %v", err)
	}
	if !strings.Contains(err.Error(), "r.1.0.mca") {
		t.Fatalf("error should name the file: %v", err)
	}
}

func TestLoad_BrokenChunkIsFatal(t *testing.T) {
	vol := coords.Volume{XMin: 0, XMax: 40, ZMin: 0, ZMax: 0, YMin: 0, YMax: 0}
	w := regiontest.NewWorld("stone")
	w.Broken[coords.ChunkPos{X: 2, Z: 0}] = true

	_, err := region.Load(regiontest.DirFor(t, vol), "mca", vol, w, nil)
	if !errors.Is(err, region.ErrChunkLoad) {
		t.Fatalf("expected ErrChunkLoad, got %v", err)
	}
	if !strings.Contains(err.Error(), "chunk(2,0)") {
		t.Fatalf("error should name the chunk: %v", err)
	}
}
