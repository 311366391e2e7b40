package region

import (
	"fmt"

	"github.com/Tnze/go-mc/level"
	"github.com/Tnze/go-mc/save"
	mcregion "github.com/Tnze/go-mc/save/region"

	"strata.dev/internal/coords"
	"strata.dev/internal/voxel"
)

const sectionVolume = 16 * 16 * 16

// Anvil decodes Minecraft Anvil (.mca) region files.
type Anvil struct{}

func (Anvil) OpenRegion(path string) (RegionHandle, error) {
	r, err := mcregion.Open(path)
	if err != nil {
		return nil, err
	}
	return &anvilRegion{r: r}, nil
}

type anvilRegion struct {
	r *mcregion.Region
}

func (a *anvilRegion) LoadChunk(lx, lz int) (ChunkHandle, error) {
	if !a.r.ExistSector(lx, lz) {
		return nil, fmt.Errorf("chunk (%d,%d) not generated", lx, lz)
	}
	data, err := a.r.ReadSector(lx, lz)
	if err != nil {
		return nil, err
	}
	var c save.Chunk
	if err := c.Load(data); err != nil {
		return nil, fmt.Errorf("decode chunk (%d,%d): %w", lx, lz, err)
	}
	return decodeChunk(&c)
}

func (a *anvilRegion) Close() error { return a.r.Close() }

type anvilSection struct {
	palette []voxel.Type
	storage *level.BitStorage // nil when the section holds a single block type
}

// anvilChunk keeps each section packed and resolves single voxels on demand.
type anvilChunk struct {
	sections map[int]*anvilSection
}

func decodeChunk(c *save.Chunk) (h ChunkHandle, err error) {
	// NewBitStorage panics on inconsistent lengths.
	defer func() {
		if r := recover(); r != nil {
			h, err = nil, fmt.Errorf("malformed block states: %v", r)
		}
	}()

	ch := &anvilChunk{sections: make(map[int]*anvilSection, len(c.Sections))}
	for _, s := range c.Sections {
		states := s.BlockStates
		if len(states.Palette) == 0 {
			continue
		}
		sec := &anvilSection{palette: make([]voxel.Type, len(states.Palette))}
		for i, st := range states.Palette {
			sec.palette[i] = voxel.Parse(st.Name)
		}
		if len(sec.palette) > 1 && len(states.Data) > 0 {
			bits := bitsPerValue(sectionVolume, len(states.Data))
			if bits == 0 {
				return nil, fmt.Errorf("section %d: %d longs for %d palette entries", s.Y, len(states.Data), len(sec.palette))
			}
			sec.storage = level.NewBitStorage(bits, sectionVolume, states.Data)
		}
		ch.sections[int(s.Y)] = sec
	}
	return ch, nil
}

func bitsPerValue(length, longs int) int {
	valuesPerLong := (length + longs - 1) / longs
	return 64 / valuesPerLong
}

func (c *anvilChunk) VoxelAt(lx, y, lz int) voxel.Type {
	sec := c.sections[coords.FloorDiv(y, 16)]
	if sec == nil {
		return voxel.Air
	}
	if sec.storage == nil {
		return sec.palette[0]
	}
	i := sec.storage.Get(coords.Mod(y, 16)<<8 | lz<<4 | lx)
	if i < 0 || i >= len(sec.palette) {
		return voxel.Air
	}
	return sec.palette[i]
}
