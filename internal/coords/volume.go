package coords

import "fmt"

// Volume is an inclusive box of world block coordinates.
type Volume struct {
	XMin int `json:"x_min" yaml:"x_min"`
	XMax int `json:"x_max" yaml:"x_max"`
	ZMin int `json:"z_min" yaml:"z_min"`
	ZMax int `json:"z_max" yaml:"z_max"`
	YMin int `json:"y_min" yaml:"y_min"`
	YMax int `json:"y_max" yaml:"y_max"`
}

func (v Volume) Validate() error {
	if v.XMin > v.XMax {
		return fmt.Errorf("x_min %d > x_max %d", v.XMin, v.XMax)
	}
	if v.ZMin > v.ZMax {
		return fmt.Errorf("z_min %d > z_max %d", v.ZMin, v.ZMax)
	}
	if v.YMin > v.YMax {
		return fmt.Errorf("y_min %d > y_max %d", v.YMin, v.YMax)
	}
	return nil
}

func (v Volume) Contains(x, z, y int) bool {
	return x >= v.XMin && x <= v.XMax &&
		z >= v.ZMin && z <= v.ZMax &&
		y >= v.YMin && y <= v.YMax
}

// Footprint returns the number of (x, z) columns in the volume.
func (v Volume) Footprint() int {
	return (v.XMax - v.XMin + 1) * (v.ZMax - v.ZMin + 1)
}

// Layers returns the number of horizontal planes in the volume.
func (v Volume) Layers() int {
	return v.YMax - v.YMin + 1
}

func (v Volume) NumVoxels() int64 {
	return int64(v.Footprint()) * int64(v.Layers())
}

// ChunkRange returns the inclusive chunk columns touched by the volume.
func (v Volume) ChunkRange() (lo, hi ChunkPos) {
	return ChunkPosOf(v.XMin, v.ZMin), ChunkPosOf(v.XMax, v.ZMax)
}

// Regions returns every region the volume touches, x-major then z.
func (v Volume) Regions() []RegionPos {
	lo, hi := v.ChunkRange()
	rlo, rhi := lo.Region(), hi.Region()
	out := make([]RegionPos, 0, (rhi.X-rlo.X+1)*(rhi.Z-rlo.Z+1))
	for x := rlo.X; x <= rhi.X; x++ {
		for z := rlo.Z; z <= rhi.Z; z++ {
			out = append(out, RegionPos{X: x, Z: z})
		}
	}
	return out
}

func (v Volume) String() string {
	return fmt.Sprintf("x[%d..%d] z[%d..%d] y[%d..%d]", v.XMin, v.XMax, v.ZMin, v.ZMax, v.YMin, v.YMax)
}
