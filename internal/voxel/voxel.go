package voxel

import (
	"sort"
	"strings"
)

// Type identifies a block kind, e.g. "stone" or "short_grass". The "minecraft:" namespace is
// dropped so identifiers read the same as texture file names.
type Type string

const (
	Air   Type = "air"
	Water Type = "water"

	namespace = "minecraft:"
)

// Parse normalises a raw block id such as "minecraft:stone".
func Parse(id string) Type {
	id = strings.TrimSpace(id)
	return Type(strings.TrimPrefix(id, namespace))
}

func (t Type) String() string { return string(t) }

// Palette carries the voxel types that have rendering meaning: the designated empty type and the
// set of "empty-like" types that never hide a neighbour (air, liquids, short vegetation).
type Palette struct {
	Empty  Type
	exempt map[Type]struct{}
}

func NewPalette(empty Type, exempt []Type) Palette {
	if empty == "" {
		empty = Air
	}
	p := Palette{Empty: empty, exempt: make(map[Type]struct{}, len(exempt)+1)}
	p.exempt[empty] = struct{}{}
	for _, t := range exempt {
		if t == "" {
			continue
		}
		p.exempt[t] = struct{}{}
	}
	return p
}

// DefaultPalette matches the classification existing blocks.json files were made with.
func DefaultPalette() Palette {
	return NewPalette(Air, []Type{Air, Water, "short_grass"})
}

func (p Palette) IsEmpty(t Type) bool {
	return t == p.Empty || (p.Empty == "" && t == Air)
}

// IsExempt reports whether t lets light through for occlusion purposes.
func (p Palette) IsExempt(t Type) bool {
	if p.IsEmpty(t) {
		return true
	}
	_, ok := p.exempt[t]
	return ok
}

// Exempt returns the exempt set in sorted order.
func (p Palette) Exempt() []Type {
	out := make([]Type, 0, len(p.exempt))
	for t := range p.exempt {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
