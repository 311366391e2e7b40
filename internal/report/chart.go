package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"strata.dev/internal/voxelmap"
)

// MaterialsChart saves a bar chart of the first limit rows (all when limit <= 0). The format follows the
// file extension (png, svg, pdf).
func MaterialsChart(path, title string, rows []voxelmap.Count, limit int) error {
	if len(rows) == 0 {
		return fmt.Errorf("materials chart: no rows")
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	values := make(plotter.Values, len(rows))
	names := make([]string, len(rows))
	for i, r := range rows {
		values[i] = float64(r.Count)
		names[i] = string(r.Type)
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Blocks"
	p.Y.Min = 0

	bars, err := plotter.NewBarChart(values, vg.Points(14))
	if err != nil {
		return fmt.Errorf("materials chart: %w", err)
	}
	bars.Color = color.NRGBA{R: 0x4e, G: 0x79, B: 0xa7, A: 255}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = 0.8

	width := vg.Length(len(rows))*22*vg.Millimeter/4 + 4*vg.Inch
	if err := p.Save(width, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("materials chart: %w", err)
	}
	return nil
}
