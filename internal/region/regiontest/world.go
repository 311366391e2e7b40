// Package regiontest provides an in-memory region decoder and region directory fixtures.
package regiontest

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"strata.dev/internal/coords"
	"strata.dev/internal/region"
	"strata.dev/internal/voxel"
)

// World is a sparse voxel world served through region.Decoder. Unset positions read as Fill.
type World struct {
	Fill voxel.Type

	// Broken chunks fail to load.
	Broken map[coords.ChunkPos]bool
	// Opened counts OpenRegion calls per file base name.
	Opened map[string]int

	blocks map[[3]int]voxel.Type
}

func NewWorld(fill voxel.Type) *World {
	return &World{
		Fill:   fill,
		Broken: map[coords.ChunkPos]bool{},
		Opened: map[string]int{},
		blocks: map[[3]int]voxel.Type{},
	}
}

func (w *World) Set(x, z, y int, t voxel.Type) {
	w.blocks[[3]int{x, z, y}] = t
}

// SetPlane fills a width-wide plane at height y starting at (x0, z0), row-major z then x.
func (w *World) SetPlane(x0, z0, y, width int, types []voxel.Type) {
	for i, t := range types {
		w.Set(x0+i%width, z0+i/width, y, t)
	}
}

func (w *World) At(x, z, y int) voxel.Type {
	if t, ok := w.blocks[[3]int{x, z, y}]; ok {
		return t
	}
	return w.Fill
}

func (w *World) OpenRegion(path string) (region.RegionHandle, error) {
	base := filepath.Base(path)
	var rp coords.RegionPos
	if _, err := fmt.Sscanf(base, "r.%d.%d.", &rp.X, &rp.Z); err != nil {
		return nil, fmt.Errorf("regiontest: bad region file name %q: %w", base, err)
	}
	w.Opened[base]++
	return &regionHandle{w: w, pos: rp}, nil
}

type regionHandle struct {
	w   *World
	pos coords.RegionPos
}

func (r *regionHandle) LoadChunk(lx, lz int) (region.ChunkHandle, error) {
	cp := coords.ChunkPos{X: r.pos.X*coords.RegionChunks + lx, Z: r.pos.Z*coords.RegionChunks + lz}
	if r.w.Broken[cp] {
		return nil, fmt.Errorf("regiontest: %s is broken", cp)
	}
	return chunkHandle{w: r.w, min: cp}, nil
}

func (r *regionHandle) Close() error { return nil }

type chunkHandle struct {
	w   *World
	min coords.ChunkPos
}

func (c chunkHandle) VoxelAt(lx, y, lz int) voxel.Type {
	x, z := c.min.MinBlock()
	return c.w.At(x+lx, z+lz, y)
}

// Dir creates a region directory under t.TempDir() holding empty files for the given regions.
func Dir(t testing.TB, ext string, regions ...coords.RegionPos) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), region.DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	for _, rp := range regions {
		path := filepath.Join(dir, rp.FileName(ext))
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	return dir
}

// DirFor creates a region directory holding every region vol touches.
func DirFor(t testing.TB, vol coords.Volume) string {
	t.Helper()
	return Dir(t, region.DefaultExt, vol.Regions()...)
}
