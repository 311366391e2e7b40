package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"log"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"strata.dev/internal/coords"
	"strata.dev/internal/region"
	"strata.dev/internal/region/regiontest"
	"strata.dev/internal/scan"
	"strata.dev/internal/voxel"
	"strata.dev/internal/voxelmap"
)

type solidTiles map[voxel.Type]color.NRGBA

func (s solidTiles) Exists(t voxel.Type) bool {
	_, ok := s[t]
	return ok
}

func (s solidTiles) Load(t voxel.Type) (image.Image, error) {
	img := image.NewNRGBA(image.Rect(0, 0, TileSize, TileSize))
	for i := 0; i < len(img.Pix); i += 4 {
		c := s[t]
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img, nil
}

var (
	red   = color.NRGBA{R: 255, A: 255}
	brown = color.NRGBA{R: 120, G: 80, B: 40, A: 255}
	tiles = solidTiles{"stone": red, "dirt": brown}
)

func noGrid() Options {
	o := DefaultOptions()
	o.CoarseDivisions = 0
	o.FineDivisions = 0
	return o
}

func scanWorld(t *testing.T, vol coords.Volume, w *regiontest.World) *voxelmap.Map {
	t.Helper()
	c, err := region.Load(regiontest.DirFor(t, vol), region.DefaultExt, vol, w, nil)
	if err != nil {
		t.Fatalf("region.Load: %v", err)
	}
	defer c.Close()
	m, err := scan.Scanner{}.Scan(vol, c)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return m
}

func cube() coords.Volume {
	return coords.Volume{XMin: 0, XMax: 2, ZMin: 0, ZMax: 2, YMin: 0, YMax: 2}
}

func TestCull_EnclosedVoxelBecomesEmpty(t *testing.T) {
	m := scanWorld(t, cube(), regiontest.NewWorld("stone"))
	r := &Renderer{Opts: DefaultOptions()}
	k := voxelmap.Key{X: 1, Z: 1, Y: 1}
	if got := r.cull(m, k, "stone"); got != voxel.Air {
		t.Fatalf("center: got %q want air", got)
	}
	// every other voxel touches the edge of the scanned cube
	for _, e := range m.Entries() {
		if e.Key == k {
			continue
		}
		if got := r.cull(m, e.Key, e.Type); got != "stone" {
			t.Fatalf("%s culled without a full neighbourhood", e.Key)
		}
	}
}

func TestCull_ExemptNeighbourKeepsVoxel(t *testing.T) {
	for _, exempt := range []voxel.Type{voxel.Air, voxel.Water, "short_grass"} {
		w := regiontest.NewWorld("stone")
		w.Set(1, 1, 2, exempt)
		m := scanWorld(t, cube(), w)
		r := &Renderer{Opts: DefaultOptions()}
		if got := r.cull(m, voxelmap.Key{X: 1, Z: 1, Y: 1}, "stone"); got != "stone" {
			t.Fatalf("neighbour %s: center culled", exempt)
		}
	}
}

func TestCull_ConfigurableExemptSet(t *testing.T) {
	w := regiontest.NewWorld("stone")
	w.Set(1, 1, 2, "glass")
	m := scanWorld(t, cube(), w)
	k := voxelmap.Key{X: 1, Z: 1, Y: 1}

	r := &Renderer{Opts: DefaultOptions()}
	if got := r.cull(m, k, "stone"); got != voxel.Air {
		t.Fatalf("glass is not exempt by default: got %q", got)
	}
	r.Opts.Palette = voxel.NewPalette(voxel.Air, []voxel.Type{"glass"})
	if got := r.cull(m, k, "stone"); got != "stone" {
		t.Fatalf("glass exempt: got %q", got)
	}
}

func TestRender_HollowLeavesBackgroundAtCulledVoxel(t *testing.T) {
	m := scanWorld(t, cube(), regiontest.NewWorld("stone"))
	opts := noGrid()
	opts.NormalizePasteCounts = true
	r := &Renderer{Tiles: tiles, Opts: opts}

	solid, err := r.Render(m, cube(), 1, false)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	hollow, err := r.Render(m, cube(), 1, true)
	if err != nil {
		t.Fatalf("Render hollow: %v", err)
	}
	if got := solid.Image.NRGBAAt(20, 20); got != red {
		t.Fatalf("solid center: got %v", got)
	}
	if got := hollow.Image.NRGBAAt(20, 20); got != (color.NRGBA{255, 255, 255, 255}) {
		t.Fatalf("hollow center: got %v want white", got)
	}
	if diff := cmp.Diff([]voxelmap.Count{{Type: "stone", Count: 8}}, hollow.Enumerations); diff != "" {
		t.Fatalf("hollow enumerations (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]voxelmap.Count{{Type: "stone", Count: 9}}, solid.Enumerations); diff != "" {
		t.Fatalf("solid enumerations (-want +got):\n%s", diff)
	}
}

func TestRender_OffsetBounds(t *testing.T) {
	vol := coords.Volume{XMin: 0, XMax: 1, ZMin: 0, ZMax: 1, YMin: 10, YMax: 13}
	m := scanWorld(t, vol, regiontest.NewWorld("stone"))
	r := &Renderer{Tiles: tiles, Opts: noGrid()}

	top := vol.YMax - vol.YMin
	l, err := r.Render(m, vol, top, false)
	if err != nil {
		t.Fatalf("top layer: %v", err)
	}
	if l.Y != vol.YMax || l.Offset != top {
		t.Fatalf("top layer: y=%d offset=%d", l.Y, l.Offset)
	}

	for _, off := range []int{top + 1, top + 50, -1} {
		_, err := r.Render(m, vol, off, false)
		if !errors.Is(err, ErrLayerOutOfRange) {
			t.Fatalf("offset %d: expected ErrLayerOutOfRange, got %v", off, err)
		}
		var le *LayerOutOfRangeError
		if !errors.As(err, &le) || le.Offset != off || le.YMax != vol.YMax {
			t.Fatalf("offset %d: bad error payload %#v", off, le)
		}
	}

	// the map is still usable after a rejected offset
	if _, err := r.Render(m, vol, 0, true); err != nil {
		t.Fatalf("render after rejection: %v", err)
	}
}

func TestRender_MissingLayerData(t *testing.T) {
	b := voxelmap.NewBuilder(voxel.Air, 0)
	for _, k := range []voxelmap.Key{{X: 0, Z: 0, Y: 0}, {X: 1, Z: 0, Y: 0}, {X: 0, Z: 1, Y: 0}} {
		if err := b.Record(k, "stone"); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	m := b.Finish()
	vol := coords.Volume{XMin: 0, XMax: 1, ZMin: 0, ZMax: 1, YMin: 0, YMax: 0}

	_, err := (&Renderer{Tiles: tiles, Opts: noGrid()}).Render(m, vol, 0, false)
	if !errors.Is(err, ErrMissingLayerData) {
		t.Fatalf("expected ErrMissingLayerData, got %v", err)
	}
	if !strings.Contains(err.Error(), "1, 1, 0") {
		t.Fatalf("error should name the coordinate: %v", err)
	}
}

func TestRender_EndToEndEnumerations(t *testing.T) {
	vol := coords.Volume{XMin: 0, XMax: 2, ZMin: 0, ZMax: 2, YMin: 0, YMax: 0}
	w := regiontest.NewWorld(voxel.Air)
	w.SetPlane(0, 0, 0, 3, []voxel.Type{
		"stone", "stone", "air",
		"dirt", "stone", "air",
		"air", "air", "air",
	})
	m := scanWorld(t, vol, w)

	want := []voxelmap.Count{{Type: "stone", Count: 3}, {Type: "dirt", Count: 1}}
	if diff := cmp.Diff(want, m.Tally().Sorted()); diff != "" {
		t.Fatalf("scan tally (-want +got):\n%s", diff)
	}

	var logs bytes.Buffer
	r := &Renderer{Tiles: tiles, Opts: DefaultOptions(), Log: log.New(&logs, "", 0)}
	l, err := r.Render(m, vol, 0, false)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want = []voxelmap.Count{{Type: "stone", Count: 4}, {Type: "dirt", Count: 2}}
	if diff := cmp.Diff(want, l.Enumerations); diff != "" {
		t.Fatalf("enumerations (-want +got):\n%s", diff)
	}
	if b := l.Image.Bounds(); b.Dx() != 32 || b.Dy() != 32 {
		t.Fatalf("canvas size: got %v want 32x32", b)
	}

	r.Opts.NormalizePasteCounts = true
	l, err = r.Render(m, vol, 0, false)
	if err != nil {
		t.Fatalf("Render normalized: %v", err)
	}
	want = []voxelmap.Count{{Type: "stone", Count: 3}, {Type: "dirt", Count: 1}}
	if diff := cmp.Diff(want, l.Enumerations); diff != "" {
		t.Fatalf("normalized enumerations (-want +got):\n%s", diff)
	}
}

func TestRender_MissingTextureReportedOnce(t *testing.T) {
	vol := coords.Volume{XMin: 0, XMax: 3, ZMin: 0, ZMax: 0, YMin: 0, YMax: 0}
	w := regiontest.NewWorld("obsidian")
	w.Set(2, 0, 0, "stone")
	m := scanWorld(t, vol, w)

	var logs bytes.Buffer
	r := &Renderer{Tiles: tiles, Opts: noGrid(), Log: log.New(&logs, "", 0)}
	l, err := r.Render(m, vol, 0, false)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if diff := cmp.Diff([]voxel.Type{"obsidian"}, l.MissingTextures); diff != "" {
		t.Fatalf("missing textures (-want +got):\n%s", diff)
	}
	if n := strings.Count(logs.String(), "no texture found for obsidian"); n != 1 {
		t.Fatalf("diagnostic emitted %d times:\n%s", n, logs.String())
	}
	if got := l.Image.NRGBAAt(0, 0); got != (color.NRGBA{255, 255, 255, 255}) {
		t.Fatalf("untextured voxel should leave background, got %v", got)
	}
}

func TestRender_GridDrawnOverTiles(t *testing.T) {
	vol := coords.Volume{XMin: 0, XMax: 10, ZMin: 0, ZMax: 10, YMin: 0, YMax: 0}
	m := scanWorld(t, vol, regiontest.NewWorld("stone"))
	opts := DefaultOptions()
	opts.GridColor = color.NRGBA{G: 255, A: 255}
	opts.CoarseDivisions = 4 // step 40
	opts.FineDivisions = 0
	opts.CoarseWidth = 3
	l, err := (&Renderer{Tiles: tiles, Opts: opts}).Render(m, vol, 0, false)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	green := color.NRGBA{G: 255, A: 255}
	for _, p := range []image.Point{{0, 7}, {40, 3}, {41, 90}, {39, 150}, {7, 80}, {120, 81}} {
		if got := l.Image.NRGBAAt(p.X, p.Y); got != green {
			t.Fatalf("grid pixel %v: got %v", p, got)
		}
	}
	if got := l.Image.NRGBAAt(20, 20); got != red {
		t.Fatalf("tile pixel: got %v", got)
	}
}

func TestGridStep(t *testing.T) {
	if s := gridStep(5120, 32); s != 160 {
		t.Fatalf("coarse: got %d", s)
	}
	if s := gridStep(5120, 160); s != 32 {
		t.Fatalf("fine: got %d", s)
	}
	if s := gridStep(100, 160); s != 0 {
		t.Fatalf("narrow canvas: got %d", s)
	}
}
