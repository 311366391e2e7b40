package voxel

import "fmt"

// Index assigns dense uint16 ids to voxel types in first-seen order.
type Index struct {
	Palette []Type
	ids     map[Type]uint16
}

func NewIndex() *Index {
	return &Index{ids: map[Type]uint16{}}
}

// IndexFrom rebuilds an index from a stored palette.
func IndexFrom(palette []Type) (*Index, error) {
	idx := NewIndex()
	for _, t := range palette {
		if _, dup := idx.ids[t]; dup {
			return nil, fmt.Errorf("duplicate palette entry %q", t)
		}
		if _, err := idx.ID(t); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// ID returns the id for t, assigning the next free one on first sight.
func (x *Index) ID(t Type) (uint16, error) {
	if id, ok := x.ids[t]; ok {
		return id, nil
	}
	if len(x.Palette) > 0xFFFF {
		return 0, fmt.Errorf("palette overflow at %q", t)
	}
	id := uint16(len(x.Palette))
	x.ids[t] = id
	x.Palette = append(x.Palette, t)
	return id, nil
}

func (x *Index) Type(id uint16) (Type, error) {
	if int(id) >= len(x.Palette) {
		return "", fmt.Errorf("palette id %d out of range (%d entries)", id, len(x.Palette))
	}
	return x.Palette[id], nil
}
