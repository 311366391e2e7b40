package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"

	"github.com/disintegration/imaging"

	"strata.dev/internal/coords"
	"strata.dev/internal/voxel"
	"strata.dev/internal/voxelmap"
)

// TileSize is the edge length of a texture tile in pixels.
const TileSize = 16

// Tiles looks up texture tiles by voxel type.
type Tiles interface {
	Exists(t voxel.Type) bool
	Load(t voxel.Type) (image.Image, error)
}

type Options struct {
	Palette    voxel.Palette
	Background color.Color
	GridColor  color.Color

	// Grid steps are canvas width / divisions; a step of 0 leaves that grid out.
	CoarseDivisions int
	FineDivisions   int
	CoarseWidth     int
	FineWidth       int

	// NormalizePasteCounts starts per-layer counts at 1. Otherwise the first paste of a type reports 2,
	// matching enumeration files written by earlier versions.
	NormalizePasteCounts bool
}

func DefaultOptions() Options {
	return Options{
		Palette:         voxel.DefaultPalette(),
		Background:      color.White,
		GridColor:       color.Gray{Y: 128},
		CoarseDivisions: 32,
		FineDivisions:   160,
		CoarseWidth:     5,
		FineWidth:       1,
	}
}

// Layer is one rendered horizontal plane.
type Layer struct {
	Image  *image.NRGBA
	Y      int
	Offset int

	// Enumerations are per-layer paste counts, descending, ties in first-paste order.
	Enumerations []voxelmap.Count
	// MissingTextures lists the types that had no tile, in first-seen order.
	MissingTextures []voxel.Type
}

type Renderer struct {
	Tiles Tiles
	Opts  Options
	Log   *log.Logger
}

// Render draws the plane at vol.YMin+offset. m is only read.
func (r *Renderer) Render(m *voxelmap.Map, vol coords.Volume, offset int, hollow bool) (*Layer, error) {
	if m == nil {
		return nil, fmt.Errorf("render: nil map")
	}
	if err := vol.Validate(); err != nil {
		return nil, err
	}
	y := vol.YMin + offset
	if offset < 0 || y > vol.YMax {
		return nil, &LayerOutOfRangeError{Offset: offset, Y: y, YMin: vol.YMin, YMax: vol.YMax}
	}

	w := (vol.XMax - vol.XMin) * TileSize
	h := (vol.ZMax - vol.ZMin) * TileSize
	canvas := image.NewNRGBA(image.Rect(0, 0, w, h))
	bg := r.Opts.Background
	if bg == nil {
		bg = color.White
	}
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	tiles := map[voxel.Type]image.Image{}
	missing := map[voxel.Type]bool{}
	var order []voxel.Type
	counts := map[voxel.Type]int64{}
	out := &Layer{Image: canvas, Y: y, Offset: offset}

	for z := vol.ZMin; z <= vol.ZMax; z++ {
		for x := vol.XMin; x <= vol.XMax; x++ {
			k := voxelmap.Key{X: x, Z: z, Y: y}
			t, ok := m.Get(k)
			if !ok {
				return nil, &MissingLayerDataError{Key: k}
			}
			if hollow {
				t = r.cull(m, k, t)
			}
			if r.Opts.Palette.IsEmpty(t) || missing[t] {
				continue
			}
			tile, ok := tiles[t]
			if !ok {
				if r.Tiles == nil || !r.Tiles.Exists(t) {
					missing[t] = true
					out.MissingTextures = append(out.MissingTextures, t)
					if r.Log != nil {
						r.Log.Printf("no texture found for %s", t)
					}
					continue
				}
				img, err := r.Tiles.Load(t)
				if err != nil {
					return nil, fmt.Errorf("load tile %s: %w", t, err)
				}
				tile = fitTile(img)
				tiles[t] = tile
				order = append(order, t)
				if !r.Opts.NormalizePasteCounts {
					counts[t] = 1
				}
			}
			px, pz := (x-vol.XMin)*TileSize, (z-vol.ZMin)*TileSize
			draw.Draw(canvas, image.Rect(px, pz, px+TileSize, pz+TileSize), tile, tile.Bounds().Min, draw.Over)
			counts[t]++
		}
	}

	r.drawGrid(canvas)

	rows := make([]voxelmap.Count, len(order))
	for i, t := range order {
		rows[i] = voxelmap.Count{Type: t, Count: counts[t]}
	}
	out.Enumerations = voxelmap.TallyOf(rows).Sorted()
	return out, nil
}

// cull hides a voxel whose six face neighbours are all recorded and none of them is exempt.
// A missing neighbour leaves the voxel alone.
func (r *Renderer) cull(m *voxelmap.Map, k voxelmap.Key, t voxel.Type) voxel.Type {
	for _, n := range k.Neighbors() {
		nt, ok := m.Get(n)
		if !ok || r.Opts.Palette.IsExempt(nt) {
			return t
		}
	}
	return r.Opts.Palette.Empty
}

func fitTile(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() == TileSize && b.Dy() == TileSize {
		return img
	}
	return imaging.Resize(img, TileSize, TileSize, imaging.NearestNeighbor)
}

func (r *Renderer) drawGrid(canvas *image.NRGBA) {
	c := r.Opts.GridColor
	if c == nil {
		c = color.Gray{Y: 128}
	}
	w := canvas.Bounds().Dx()
	r.drawLines(canvas, gridStep(w, r.Opts.CoarseDivisions), r.Opts.CoarseWidth, c)
	r.drawLines(canvas, gridStep(w, r.Opts.FineDivisions), r.Opts.FineWidth, c)
}

// gridStep derives the spacing from the canvas width on both axes.
func gridStep(width, divisions int) int {
	if divisions <= 0 {
		return 0
	}
	return width / divisions
}

func (r *Renderer) drawLines(canvas *image.NRGBA, step, width int, c color.Color) {
	if step <= 0 {
		return
	}
	if width < 1 {
		width = 1
	}
	b := canvas.Bounds()
	src := image.NewUniform(c)
	half := (width - 1) / 2
	for x := 0; x < b.Dx(); x += step {
		draw.Draw(canvas, image.Rect(x-half, 0, x-half+width, b.Dy()).Intersect(b), src, image.Point{}, draw.Src)
	}
	for y := 0; y < b.Dy(); y += step {
		draw.Draw(canvas, image.Rect(0, y-half, b.Dx(), y-half+width).Intersect(b), src, image.Point{}, draw.Src)
	}
}
