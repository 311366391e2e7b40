package region

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"strata.dev/internal/coords"
)

// Cache holds every region and chunk a volume needs. It is filled once by Load and only read afterwards.
type Cache struct {
	dir string
	ext string

	order   []coords.RegionPos
	regions map[coords.RegionPos]RegionHandle
	chunks  map[coords.ChunkPos]ChunkHandle
}

// Load opens the minimal set of regions covering vol and decodes every chunk in its chunk range.
// Any missing region or undecodable chunk aborts the load.
func Load(dir, ext string, vol coords.Volume, dec Decoder, logger *log.Logger) (*Cache, error) {
	if err := vol.Validate(); err != nil {
		return nil, err
	}
	if dec == nil {
		return nil, errors.New("region: nil decoder")
	}
	if ext == "" {
		ext = DefaultExt
	}
	c := &Cache{
		dir:     dir,
		ext:     ext,
		regions: map[coords.RegionPos]RegionHandle{},
		chunks:  map[coords.ChunkPos]ChunkHandle{},
	}

	for _, rp := range vol.Regions() {
		path := c.Path(rp)
		if _, err := os.Stat(path); err != nil {
			_ = c.Close()
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s needed for %s", ErrMissingRegionFile, path, rp)
			}
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		h, err := dec.OpenRegion(path)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		c.regions[rp] = h
		c.order = append(c.order, rp)
	}

	lo, hi := vol.ChunkRange()
	for cz := lo.Z; cz <= hi.Z; cz++ {
		for cx := lo.X; cx <= hi.X; cx++ {
			cp := coords.ChunkPos{X: cx, Z: cz}
			rp := cp.Region()
			lx, lz := cp.Local()
			ch, err := c.regions[rp].LoadChunk(lx, lz)
			if err == nil && ch == nil {
				err = errors.New("decoder returned no chunk")
			}
			if err != nil {
				_ = c.Close()
				return nil, fmt.Errorf("%w: %s at (%d,%d) in %s: %w", ErrChunkLoad, cp, lx, lz, c.Path(rp), err)
			}
			c.chunks[cp] = ch
		}
	}

	if logger != nil {
		logger.Printf("loaded %d regions, %d chunks from %s for %s", len(c.order), len(c.chunks), dir, vol)
	}
	return c, nil
}

// Path returns the file a region is stored in.
func (c *Cache) Path(rp coords.RegionPos) string {
	return filepath.Join(c.dir, rp.FileName(c.ext))
}

func (c *Cache) Chunk(cp coords.ChunkPos) (ChunkHandle, bool) {
	h, ok := c.chunks[cp]
	return h, ok
}

func (c *Cache) Region(rp coords.RegionPos) (RegionHandle, bool) {
	h, ok := c.regions[rp]
	return h, ok
}

// Regions returns the loaded regions in load order.
func (c *Cache) Regions() []coords.RegionPos {
	return append([]coords.RegionPos(nil), c.order...)
}

func (c *Cache) NumRegions() int { return len(c.order) }
func (c *Cache) NumChunks() int  { return len(c.chunks) }

// Close releases every region handle. Decoded chunks stay readable.
func (c *Cache) Close() error {
	var errs []error
	for _, rp := range c.order {
		if h := c.regions[rp]; h != nil {
			if err := h.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", c.Path(rp), err))
			}
		}
	}
	c.order = nil
	clear(c.regions)
	return errors.Join(errs...)
}
