package report

import (
	"fmt"
	"io"
	"strings"

	"strata.dev/internal/coords"
	"strata.dev/internal/render"
	"strata.dev/internal/voxelmap"
)

const cellWidth = 25

// LayerText dumps one plane as text: one line per z row, cells padded to 25 columns and joined by " | ".
func LayerText(m *voxelmap.Map, vol coords.Volume, offset int) (string, error) {
	y := vol.YMin + offset
	if offset < 0 || y > vol.YMax {
		return "", &render.LayerOutOfRangeError{Offset: offset, Y: y, YMin: vol.YMin, YMax: vol.YMax}
	}
	rows := make([]string, 0, vol.ZMax-vol.ZMin+1)
	cells := make([]string, 0, vol.XMax-vol.XMin+1)
	for z := vol.ZMin; z <= vol.ZMax; z++ {
		cells = cells[:0]
		for x := vol.XMin; x <= vol.XMax; x++ {
			k := voxelmap.Key{X: x, Z: z, Y: y}
			t, ok := m.Get(k)
			if !ok {
				return "", &render.MissingLayerDataError{Key: k}
			}
			cells = append(cells, fmt.Sprintf("%-*s", cellWidth, t))
		}
		rows = append(rows, strings.Join(cells, " | "))
	}
	return strings.Join(rows, "\n"), nil
}

func WriteLayerText(w io.Writer, m *voxelmap.Map, vol coords.Volume, offset int) error {
	s, err := LayerText(m, vol, offset)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, s)
	return err
}
