package coords

import "testing"

func TestFolding_KnownCoordinates(t *testing.T) {
	cases := []struct {
		world      int
		chunk      int
		region     int
		localBlock int
		localChunk int
	}{
		{world: -1, chunk: -1, region: -1, localBlock: 15, localChunk: 31},
		{world: -16, chunk: -1, region: -1, localBlock: 0, localChunk: 31},
		{world: -17, chunk: -2, region: -1, localBlock: 15, localChunk: 30},
		{world: 0, chunk: 0, region: 0, localBlock: 0, localChunk: 0},
		{world: 15, chunk: 0, region: 0, localBlock: 15, localChunk: 0},
		{world: 16, chunk: 1, region: 0, localBlock: 0, localChunk: 1},
		{world: 511, chunk: 31, region: 0, localBlock: 15, localChunk: 31},
		{world: 512, chunk: 32, region: 1, localBlock: 0, localChunk: 0},
		{world: -512, chunk: -32, region: -1, localBlock: 0, localChunk: 0},
		{world: -513, chunk: -33, region: -2, localBlock: 15, localChunk: 31},
	}
	for _, tc := range cases {
		c := ChunkOf(tc.world)
		if c != tc.chunk {
			t.Fatalf("ChunkOf(%d): got %d want %d", tc.world, c, tc.chunk)
		}
		if r := RegionOf(c); r != tc.region {
			t.Fatalf("RegionOf(ChunkOf(%d)): got %d want %d", tc.world, r, tc.region)
		}
		if l := LocalInChunk(tc.world); l != tc.localBlock {
			t.Fatalf("LocalInChunk(%d): got %d want %d", tc.world, l, tc.localBlock)
		}
		if l := LocalInRegion(c); l != tc.localChunk {
			t.Fatalf("LocalInRegion(%d): got %d want %d", c, l, tc.localChunk)
		}
		// Recomposing the parts must give back the world coordinate.
		if got := c*ChunkSize + LocalInChunk(tc.world); got != tc.world {
			t.Fatalf("recompose %d: got %d", tc.world, got)
		}
	}
}

func TestFloorDivMod_AgreeForNegatives(t *testing.T) {
	for a := -100; a <= 100; a++ {
		q := FloorDiv(a, 16)
		m := Mod(a, 16)
		if m < 0 || m >= 16 {
			t.Fatalf("Mod(%d,16) out of range: %d", a, m)
		}
		if q*16+m != a {
			t.Fatalf("FloorDiv/Mod mismatch for %d: q=%d m=%d", a, q, m)
		}
	}
}

func TestChunkPos_RegionAndLocal(t *testing.T) {
	c := ChunkPosOf(-17, 530)
	if c != (ChunkPos{X: -2, Z: 33}) {
		t.Fatalf("ChunkPosOf: got %+v", c)
	}
	if r := c.Region(); r != (RegionPos{X: -1, Z: 1}) {
		t.Fatalf("Region: got %+v", r)
	}
	lx, lz := c.Local()
	if lx != 30 || lz != 1 {
		t.Fatalf("Local: got (%d,%d) want (30,1)", lx, lz)
	}
	if name := c.Region().FileName("mca"); name != "r.-1.1.mca" {
		t.Fatalf("FileName: got %q", name)
	}
}

func TestVolume_RegionsSpanOrigin(t *testing.T) {
	v := Volume{XMin: -5, XMax: 520, ZMin: 0, ZMax: 10, YMin: 60, YMax: 61}
	if err := v.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	got := v.Regions()
	want := []RegionPos{{X: -1, Z: 0}, {X: 0, Z: 0}, {X: 1, Z: 0}}
	if len(got) != len(want) {
		t.Fatalf("Regions: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Regions[%d]: got %v want %v", i, got[i], want[i])
		}
	}
	if n := v.NumVoxels(); n != int64(526*11*2) {
		t.Fatalf("NumVoxels: got %d", n)
	}
}

func TestVolume_ValidateRejectsInvertedBounds(t *testing.T) {
	for _, v := range []Volume{
		{XMin: 1, XMax: 0},
		{ZMin: 1, ZMax: 0},
		{YMin: 1, YMax: 0},
	} {
		if err := v.Validate(); err == nil {
			t.Fatalf("expected error for %v", v)
		}
	}
}
