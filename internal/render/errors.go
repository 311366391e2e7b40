package render

import (
	"errors"
	"fmt"

	"strata.dev/internal/voxelmap"
)

var (
	ErrLayerOutOfRange  = errors.New("layer out of range")
	ErrMissingLayerData = errors.New("missing layer data")
)

// LayerOutOfRangeError rejects an offset whose plane lies outside the scanned heights.
// Batch callers can stop or move on to another offset; nothing else is affected.
type LayerOutOfRangeError struct {
	Offset int
	Y      int
	YMin   int
	YMax   int
}

func (e *LayerOutOfRangeError) Error() string {
	return fmt.Sprintf("layer offset %d (y=%d) outside y[%d..%d]", e.Offset, e.Y, e.YMin, e.YMax)
}

func (e *LayerOutOfRangeError) Is(target error) bool { return target == ErrLayerOutOfRange }

// MissingLayerDataError means the map has no entry for a point of the requested plane.
type MissingLayerDataError struct {
	Key voxelmap.Key
}

func (e *MissingLayerDataError) Error() string {
	return fmt.Sprintf("no voxel recorded at (%s)", e.Key)
}

func (e *MissingLayerDataError) Is(target error) bool { return target == ErrMissingLayerData }
