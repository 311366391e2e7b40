package region

import (
	"errors"
	"fmt"
	"path/filepath"

	"strata.dev/internal/voxel"
)

const (
	// DirName is the base name of the directory holding region files inside a world save.
	DirName    = "region"
	DefaultExt = "mca"
)

var (
	ErrInvalidRegionDirectory = errors.New("invalid region directory")
	ErrMissingRegionFile      = errors.New("missing region file")
	ErrChunkLoad              = errors.New("chunk load failed")
)

// Decoder opens region files. Implementations must not write to them.
type Decoder interface {
	OpenRegion(path string) (RegionHandle, error)
}

type RegionHandle interface {
	// LoadChunk decodes the chunk at the given offset inside the region (0..31 on both axes).
	LoadChunk(lx, lz int) (ChunkHandle, error)
	Close() error
}

type ChunkHandle interface {
	// VoxelAt returns the voxel at a chunk-local position; lx and lz are 0..15, y is a world height.
	VoxelAt(lx, y, lz int) voxel.Type
}

// ResolveDir returns the region directory for path. path may name the region directory itself or the world
// save that contains it. The directory must hold at least one *.ext file.
func ResolveDir(path, ext string) (string, error) {
	if ext == "" {
		ext = DefaultExt
	}
	dir := filepath.Clean(path)
	if filepath.Base(dir) != DirName {
		dir = filepath.Join(dir, DirName)
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*."+ext))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidRegionDirectory, dir, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: no *.%s files in %s", ErrInvalidRegionDirectory, ext, dir)
	}
	return dir, nil
}
