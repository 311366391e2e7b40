package report

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"strata.dev/internal/voxelmap"
)

// WriteTally prints rows as an aligned table with counts and share of the total.
func WriteTally(w io.Writer, title string, rows []voxelmap.Count, colored bool) error {
	head := color.New(color.Bold, color.FgHiWhite)
	name := color.New(color.FgCyan)
	num := color.New(color.FgYellow)
	if !colored {
		for _, c := range []*color.Color{head, name, num} {
			c.DisableColor()
		}
	}

	var total int64
	for _, r := range rows {
		total += r.Count
	}
	if _, err := head.Fprintf(w, "%s (%d types, %s blocks)\n", title, len(rows), humanize.Comma(total)); err != nil {
		return err
	}
	for _, r := range rows {
		share := 0.0
		if total > 0 {
			share = 100 * float64(r.Count) / float64(total)
		}
		if _, err := name.Fprintf(w, "  %-*s", cellWidth, r.Type); err != nil {
			return err
		}
		if _, err := num.Fprintf(w, " %12s", humanize.Comma(r.Count)); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, " %6.2f%%\n", share); err != nil {
			return err
		}
	}
	return nil
}
