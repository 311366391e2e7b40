package textures

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/muhammadmuzzammil1998/jsonc"

	"strata.dev/internal/voxel"
)

const tileSize = 16

// Dir serves texture tiles from a directory of <name>.png files, e.g. the "textures/block" folder of a
// resource pack. The listing is read once.
type Dir struct {
	root    string
	names   map[string]bool
	aliases map[voxel.Type]string

	mu    sync.Mutex
	cache map[string]image.Image
}

// Open lists root. aliasesPath, when set, names a JSONC object mapping voxel types to tile names
// (for blocks whose texture is split per face, e.g. "grass_block": "grass_block_top").
func Open(root, aliasesPath string) (*Dir, error) {
	ents, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("texture dir: %w", err)
	}
	d := &Dir{
		root:    root,
		names:   map[string]bool{},
		aliases: map[voxel.Type]string{},
		cache:   map[string]image.Image{},
	}
	for _, e := range ents {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			continue
		}
		d.names[strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))] = true
	}
	if aliasesPath != "" {
		if err := d.loadAliases(aliasesPath); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Dir) loadAliases(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("texture aliases: %w", err)
	}
	var raw map[string]string
	if err := jsonc.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	for k, v := range raw {
		d.aliases[voxel.Parse(k)] = strings.TrimSuffix(strings.TrimSpace(v), ".png")
	}
	return nil
}

// Len is the number of tiles in the directory.
func (d *Dir) Len() int { return len(d.names) }

func (d *Dir) name(t voxel.Type) string {
	if a, ok := d.aliases[t]; ok {
		return a
	}
	return string(t)
}

func (d *Dir) Exists(t voxel.Type) bool {
	return d.names[d.name(t)]
}

// Load returns the tile for t as a 16x16 image. Animated strips are cut to their first frame; other sizes
// are scaled with nearest-neighbour sampling.
func (d *Dir) Load(t voxel.Type) (image.Image, error) {
	name := d.name(t)
	if !d.names[name] {
		return nil, fmt.Errorf("no texture %s.png in %s", name, d.root)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if img, ok := d.cache[name]; ok {
		return img, nil
	}
	img, err := imaging.Open(filepath.Join(d.root, name+".png"))
	if err != nil {
		return nil, err
	}
	img = normalize(img)
	d.cache[name] = img
	return img, nil
}

func normalize(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	switch {
	case w == tileSize && h == tileSize:
		return img
	case w > 0 && h > w && h%w == 0:
		img = imaging.Crop(img, image.Rect(b.Min.X, b.Min.Y, b.Min.X+w, b.Min.Y+w))
		if w == tileSize {
			return img
		}
	}
	return imaging.Resize(img, tileSize, tileSize, imaging.NearestNeighbor)
}
