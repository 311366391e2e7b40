package session

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"strata.dev/internal/coords"
	"strata.dev/internal/region"
	"strata.dev/internal/render"
	"strata.dev/internal/scan"
	"strata.dev/internal/voxel"
	"strata.dev/internal/voxelmap"
)

var ErrNotPopulated = errors.New("session has no scan")

// Session owns the map produced by one scan of a volume. Renderers receive the map from here.
type Session struct {
	Volume    coords.Volume
	Palette   voxel.Palette
	RegionDir string

	id        string
	createdAt time.Time
	m         *voxelmap.Map
}

func New(vol coords.Volume, palette voxel.Palette) (*Session, error) {
	if err := vol.Validate(); err != nil {
		return nil, err
	}
	return &Session{Volume: vol, Palette: palette}, nil
}

// Populated reports whether a scan result is already held. Callers decide whether to scan again.
func (s *Session) Populated() bool { return s.m != nil }

func (s *Session) Map() *voxelmap.Map { return s.m }

// ID identifies the current scan; empty until populated.
func (s *Session) ID() string { return s.id }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Scan loads every region the volume needs from dir and scans it. On failure the previous map is kept.
func (s *Session) Scan(dir, ext string, dec region.Decoder, logger *log.Logger) error {
	resolved, err := region.ResolveDir(dir, ext)
	if err != nil {
		return err
	}
	cache, err := region.Load(resolved, ext, s.Volume, dec, logger)
	if err != nil {
		return err
	}
	defer cache.Close()

	m, err := scan.Scanner{Empty: s.Palette.Empty, Log: logger}.Scan(s.Volume, cache)
	if err != nil {
		return err
	}
	s.adopt(m, resolved, uuid.NewString(), time.Now().UTC())
	return nil
}

// Adopt installs a map built elsewhere, e.g. read from blocks.json. Every point of the volume must be present.
func (s *Session) Adopt(m *voxelmap.Map, regionDir string) error {
	if m == nil {
		return fmt.Errorf("adopt: nil map")
	}
	if int64(m.Len()) != s.Volume.NumVoxels() {
		return fmt.Errorf("adopt: map has %d voxels, %s needs %d", m.Len(), s.Volume, s.Volume.NumVoxels())
	}
	for _, e := range m.Entries() {
		if !s.Volume.Contains(e.Key.X, e.Key.Z, e.Key.Y) {
			return fmt.Errorf("adopt: (%s) outside %s", e.Key, s.Volume)
		}
	}
	s.adopt(m, regionDir, uuid.NewString(), time.Now().UTC())
	return nil
}

func (s *Session) adopt(m *voxelmap.Map, dir, id string, at time.Time) {
	s.m = m
	s.RegionDir = dir
	s.id = id
	s.createdAt = at
}

// Render draws one layer of the current map.
func (s *Session) Render(r *render.Renderer, offset int, hollow bool) (*render.Layer, error) {
	if s.m == nil {
		return nil, ErrNotPopulated
	}
	return r.Render(s.m, s.Volume, offset, hollow)
}

// MaxOffset is the largest offset Render accepts.
func (s *Session) MaxOffset() int { return s.Volume.YMax - s.Volume.YMin }
