package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/fatih/color"

	"strata.dev/internal/persistence/indexdb"
	persistlog "strata.dev/internal/persistence/log"
	"strata.dev/internal/render"
	"strata.dev/internal/report"
	"strata.dev/internal/session"
)

// layerWriter saves rendered layers and their side outputs.
type layerWriter struct {
	dir     string
	text    bool
	chart   bool
	idx     *indexdb.SQLiteIndex
	journal *persistlog.LayerLogger
	log     *log.Logger
}

// renderLayers renders the given offsets, or every layer from offset 0 upwards when offsets is nil.
func (w *layerWriter) renderLayers(ctx context.Context, sess *session.Session, r *render.Renderer, offsets []int, hollow bool) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	if offsets != nil {
		for _, off := range offsets {
			if err := w.renderOne(ctx, sess, r, off, hollow); err != nil {
				return err
			}
		}
		return nil
	}
	for off := 0; ; off++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := w.renderOne(ctx, sess, r, off, hollow)
		if errors.Is(err, render.ErrLayerOutOfRange) {
			w.log.Printf("rendered %d layers", off)
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (w *layerWriter) renderOne(ctx context.Context, sess *session.Session, r *render.Renderer, offset int, hollow bool) error {
	l, err := sess.Render(r, offset, hollow)
	if err != nil {
		return err
	}
	base := layerBaseName(l.Y, hollow)
	img := filepath.Join(w.dir, base+".png")
	if err := imaging.Save(l.Image, img); err != nil {
		return fmt.Errorf("save %s: %w", img, err)
	}
	w.log.Printf("layer y=%d saved to %s", l.Y, img)

	if err := report.WriteTally(os.Stdout, fmt.Sprintf("Layer y=%d", l.Y), l.Enumerations, !color.NoColor); err != nil {
		return err
	}
	for _, t := range l.MissingTextures {
		warn("no texture for %s on layer y=%d", t, l.Y)
	}

	if w.text {
		path := filepath.Join(w.dir, base+".txt")
		if err := writeLayerText(path, sess, offset); err != nil {
			return err
		}
	}
	if w.chart && len(l.Enumerations) > 0 {
		path := filepath.Join(w.dir, base+"_materials.png")
		if err := report.MaterialsChart(path, fmt.Sprintf("Materials on layer y=%d", l.Y), l.Enumerations, 20); err != nil {
			return fmt.Errorf("chart %s: %w", path, err)
		}
	}

	if w.journal != nil {
		if err := w.journal.WriteLayer(persistlog.NewLayerEntry(sess.ID(), l, hollow, img)); err != nil {
			w.log.Printf("layer journal: %v", err)
		}
	}
	if w.idx != nil && sess.ID() != "" {
		rec := indexdb.LayerRecord{
			Y:            l.Y,
			Offset:       l.Offset,
			Hollow:       hollow,
			ImagePath:    img,
			Enumerations: l.Enumerations,
			Missing:      l.MissingTextures,
		}
		if err := w.idx.RecordLayer(ctx, sess.ID(), rec); err != nil {
			w.log.Printf("index layer y=%d: %v", l.Y, err)
		}
	}
	return nil
}

func writeLayerText(path string, sess *session.Session, offset int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteLayerText(f, sess.Map(), sess.Volume, offset); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func layerBaseName(y int, hollow bool) string {
	if hollow {
		return fmt.Sprintf("layer_%d_hollow", y)
	}
	return fmt.Sprintf("layer_%d", y)
}
