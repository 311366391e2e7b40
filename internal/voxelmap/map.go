package voxelmap

import (
	"fmt"
	"sort"

	"strata.dev/internal/voxel"
)

// Entry is one visited coordinate.
type Entry struct {
	Key  Key
	Type voxel.Type
}

// Map is the result of one scan: every visited coordinate with its voxel type, in visit order.
// A Map is read-only once built.
type Map struct {
	empty   voxel.Type
	entries []Entry
	index   map[Key]int
	tally   Tally
}

func (m *Map) Get(k Key) (voxel.Type, bool) {
	i, ok := m.index[k]
	if !ok {
		return "", false
	}
	return m.entries[i].Type, true
}

func (m *Map) Len() int { return len(m.entries) }

// Empty is the type excluded from the tally.
func (m *Map) Empty() voxel.Type { return m.empty }

// Entries returns the coordinates in visit order. The slice must not be modified.
func (m *Map) Entries() []Entry { return m.entries }

func (m *Map) Tally() Tally { return m.tally }

// Builder accumulates a Map. Records must arrive in visit order; each key may be recorded once.
type Builder struct {
	m    *Map
	done bool
}

func NewBuilder(empty voxel.Type, sizeHint int) *Builder {
	if empty == "" {
		empty = voxel.Air
	}
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &Builder{m: &Map{
		empty:   empty,
		entries: make([]Entry, 0, sizeHint),
		index:   make(map[Key]int, sizeHint),
		tally:   Tally{counts: map[voxel.Type]int64{}},
	}}
}

func (b *Builder) Record(k Key, t voxel.Type) error {
	if b.done {
		return fmt.Errorf("voxelmap: record after Finish")
	}
	if _, dup := b.m.index[k]; dup {
		return fmt.Errorf("voxelmap: duplicate key %s", k)
	}
	b.m.index[k] = len(b.m.entries)
	b.m.entries = append(b.m.entries, Entry{Key: k, Type: t})
	if t != b.m.empty {
		b.m.tally.add(t, 1)
	}
	return nil
}

// Finish returns the built map. The builder cannot be used afterwards.
func (b *Builder) Finish() *Map {
	b.done = true
	return b.m
}

// Count is one tally row.
type Count struct {
	Type  voxel.Type
	Count int64
}

// Tally counts voxel types in first-seen order.
type Tally struct {
	order  []voxel.Type
	counts map[voxel.Type]int64
}

func (t *Tally) add(ty voxel.Type, n int64) {
	if t.counts == nil {
		t.counts = map[voxel.Type]int64{}
	}
	if _, ok := t.counts[ty]; !ok {
		t.order = append(t.order, ty)
	}
	t.counts[ty] += n
}

func (t Tally) Count(ty voxel.Type) int64 { return t.counts[ty] }

func (t Tally) Len() int { return len(t.order) }

// Sorted returns the rows by descending count; ties keep first-seen order.
func (t Tally) Sorted() []Count {
	out := make([]Count, len(t.order))
	for i, ty := range t.order {
		out[i] = Count{Type: ty, Count: t.counts[ty]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// TallyOf builds a tally from rows, keeping their order as first-seen order.
func TallyOf(rows []Count) Tally {
	var t Tally
	for _, r := range rows {
		t.add(r.Type, r.Count)
	}
	return t
}
