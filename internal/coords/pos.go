package coords

import "fmt"

type ChunkPos struct {
	X int
	Z int
}

type RegionPos struct {
	X int
	Z int
}

// ChunkPosOf returns the chunk column holding world block (x, z).
func ChunkPosOf(x, z int) ChunkPos {
	return ChunkPos{X: ChunkOf(x), Z: ChunkOf(z)}
}

func (c ChunkPos) Region() RegionPos {
	return RegionPos{X: RegionOf(c.X), Z: RegionOf(c.Z)}
}

// Local returns the chunk's offset inside its region file.
func (c ChunkPos) Local() (lx, lz int) {
	return LocalInRegion(c.X), LocalInRegion(c.Z)
}

// MinBlock returns the world coordinate of the chunk's first block on each axis.
func (c ChunkPos) MinBlock() (x, z int) {
	return c.X * ChunkSize, c.Z * ChunkSize
}

func (c ChunkPos) String() string {
	return fmt.Sprintf("chunk(%d,%d)", c.X, c.Z)
}

// FileName returns the on-disk name of the region, e.g. "r.-1.0.mca".
func (r RegionPos) FileName(ext string) string {
	return fmt.Sprintf("r.%d.%d.%s", r.X, r.Z, ext)
}

func (r RegionPos) String() string {
	return fmt.Sprintf("region(%d,%d)", r.X, r.Z)
}
