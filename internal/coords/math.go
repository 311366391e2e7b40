package coords

const (
	// ChunkSize is the width and depth of a chunk column in blocks.
	ChunkSize = 16
	// RegionChunks is the width and depth of a region file in chunks.
	RegionChunks = 32
)

func FloorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func Mod(a, b int) int {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// ChunkOf returns the chunk coordinate holding world coordinate c.
func ChunkOf(c int) int { return FloorDiv(c, ChunkSize) }

// RegionOf returns the region coordinate holding chunk coordinate c.
func RegionOf(c int) int { return FloorDiv(c, RegionChunks) }

// LocalInChunk returns the block offset of world coordinate c inside its chunk (0..15).
func LocalInChunk(c int) int { return Mod(c, ChunkSize) }

// LocalInRegion returns the chunk offset of chunk coordinate c inside its region (0..31).
func LocalInRegion(c int) int { return Mod(c, RegionChunks) }
