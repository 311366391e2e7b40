package scan

import (
	"fmt"
	"log"

	"strata.dev/internal/coords"
	"strata.dev/internal/region"
	"strata.dev/internal/voxel"
	"strata.dev/internal/voxelmap"
)

// Source hands out decoded chunks. *region.Cache implements it.
type Source interface {
	Chunk(cp coords.ChunkPos) (region.ChunkHandle, bool)
}

type Scanner struct {
	// Empty is excluded from the tally. Defaults to air.
	Empty voxel.Type
	// Log, when set, receives one progress line per layer.
	Log *log.Logger
}

// Scan visits every point of vol, layer by layer, walking chunk rows and chunk-local offsets and skipping
// points the chunk grid covers outside the volume. Either the whole map is returned or an error.
func (s Scanner) Scan(vol coords.Volume, src Source) (*voxelmap.Map, error) {
	if err := vol.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("scan: nil source")
	}
	b := voxelmap.NewBuilder(s.Empty, int(min(vol.NumVoxels(), 1<<24)))
	lo, hi := vol.ChunkRange()

	for y := vol.YMin; y <= vol.YMax; y++ {
		for cz := lo.Z; cz <= hi.Z; cz++ {
			for lz := 0; lz < coords.ChunkSize; lz++ {
				z := cz*coords.ChunkSize + lz
				if z < vol.ZMin || z > vol.ZMax {
					continue
				}
				for cx := lo.X; cx <= hi.X; cx++ {
					cp := coords.ChunkPos{X: cx, Z: cz}
					ch, ok := src.Chunk(cp)
					if !ok {
						return nil, fmt.Errorf("scan: %s not loaded (region %s)", cp, cp.Region())
					}
					for lx := 0; lx < coords.ChunkSize; lx++ {
						x := cx*coords.ChunkSize + lx
						if x < vol.XMin || x > vol.XMax {
							continue
						}
						if err := b.Record(voxelmap.Key{X: x, Z: z, Y: y}, ch.VoxelAt(lx, y, lz)); err != nil {
							return nil, err
						}
					}
				}
			}
		}
		if s.Log != nil {
			s.Log.Printf("scanned layer y=%d (%d/%d)", y, y-vol.YMin+1, vol.Layers())
		}
	}
	return b.Finish(), nil
}
