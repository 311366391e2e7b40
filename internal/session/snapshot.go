package session

import (
	"fmt"
	"time"

	"strata.dev/internal/coords"
	"strata.dev/internal/encoding"
	"strata.dev/internal/persistence/snapshot"
	"strata.dev/internal/voxel"
	"strata.dev/internal/voxelmap"
)

// Export captures the current map for snapshot.WriteSnapshot.
func (s *Session) Export() (snapshot.ScanV1, error) {
	if s.m == nil {
		return snapshot.ScanV1{}, ErrNotPopulated
	}
	entries := s.m.Entries()
	idx := voxel.NewIndex()
	ids := make([]uint16, len(entries))
	for i, e := range entries {
		id, err := idx.ID(e.Type)
		if err != nil {
			return snapshot.ScanV1{}, err
		}
		ids[i] = id
	}

	snap := snapshot.ScanV1{
		Header: snapshot.Header{
			Version:   snapshot.Version,
			ScanID:    s.id,
			CreatedAt: s.createdAt.UTC().Format(time.RFC3339Nano),
			Volume:    s.Volume,
			Voxels:    len(entries),
		},
		RegionDir: s.RegionDir,
		Empty:     string(s.m.Empty()),
		Palette:   make([]string, len(idx.Palette)),
		Blocks:    encoding.EncodeRLE(ids),
	}
	for i, t := range idx.Palette {
		snap.Palette[i] = string(t)
	}
	if !naturalOrder(s.Volume, entries) {
		snap.Keys = make([]int32, 0, 3*len(entries))
		for _, e := range entries {
			snap.Keys = append(snap.Keys, int32(e.Key.X), int32(e.Key.Z), int32(e.Key.Y))
		}
	}
	for _, c := range s.m.Tally().Sorted() {
		snap.Tally = append(snap.Tally, snapshot.TallyV1{Type: string(c.Type), Count: c.Count})
	}
	return snap, nil
}

// Import rebuilds a session from a snapshot. The stored tally must agree with the rebuilt one.
func Import(snap snapshot.ScanV1, palette voxel.Palette) (*Session, error) {
	h := snap.Header
	s, err := New(h.Volume, palette)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", h.ScanID, err)
	}
	types := make([]voxel.Type, len(snap.Palette))
	for i, p := range snap.Palette {
		types[i] = voxel.Type(p)
	}
	idx, err := voxel.IndexFrom(types)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", h.ScanID, err)
	}
	ids, err := encoding.DecodeRLE(snap.Blocks, h.Voxels)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: blocks: %w", h.ScanID, err)
	}

	keys, err := snapshotKeys(snap)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", h.ScanID, err)
	}
	b := voxelmap.NewBuilder(voxel.Type(snap.Empty), len(ids))
	for i, id := range ids {
		t, err := idx.Type(id)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: voxel %d: %w", h.ScanID, i, err)
		}
		if err := b.Record(keys(i), t); err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", h.ScanID, err)
		}
	}
	m := b.Finish()

	if err := checkTally(snap.Tally, m.Tally().Sorted()); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", h.ScanID, err)
	}

	at, err := time.Parse(time.RFC3339Nano, h.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: created_at: %w", h.ScanID, err)
	}
	s.adopt(m, snap.RegionDir, h.ScanID, at)
	return s, nil
}

func snapshotKeys(snap snapshot.ScanV1) (func(i int) voxelmap.Key, error) {
	n := snap.Header.Voxels
	if len(snap.Keys) > 0 {
		if len(snap.Keys) != 3*n {
			return nil, fmt.Errorf("%d key components for %d voxels", len(snap.Keys), n)
		}
		return func(i int) voxelmap.Key {
			return voxelmap.Key{X: int(snap.Keys[3*i]), Z: int(snap.Keys[3*i+1]), Y: int(snap.Keys[3*i+2])}
		}, nil
	}
	vol := snap.Header.Volume
	if int64(n) != vol.NumVoxels() {
		return nil, fmt.Errorf("%d voxels for %s without explicit keys", n, vol)
	}
	return func(i int) voxelmap.Key { return naturalKey(vol, i) }, nil
}

// naturalKey is the i-th point of vol in scan order: y, then z, then x, all ascending.
func naturalKey(vol coords.Volume, i int) voxelmap.Key {
	w := vol.XMax - vol.XMin + 1
	d := vol.ZMax - vol.ZMin + 1
	return voxelmap.Key{
		X: vol.XMin + i%w,
		Z: vol.ZMin + (i/w)%d,
		Y: vol.YMin + i/(w*d),
	}
}

func naturalOrder(vol coords.Volume, entries []voxelmap.Entry) bool {
	if int64(len(entries)) != vol.NumVoxels() {
		return false
	}
	for i, e := range entries {
		if e.Key != naturalKey(vol, i) {
			return false
		}
	}
	return true
}

func checkTally(stored []snapshot.TallyV1, rebuilt []voxelmap.Count) error {
	if len(stored) != len(rebuilt) {
		return fmt.Errorf("stored tally has %d types, blocks have %d", len(stored), len(rebuilt))
	}
	for i, c := range stored {
		if voxel.Type(c.Type) != rebuilt[i].Type || c.Count != rebuilt[i].Count {
			return fmt.Errorf("stored tally row %d is %s=%d, blocks give %s=%d",
				i, c.Type, c.Count, rebuilt[i].Type, rebuilt[i].Count)
		}
	}
	return nil
}
