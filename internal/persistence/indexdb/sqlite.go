package indexdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"strata.dev/internal/coords"
	"strata.dev/internal/voxel"
	"strata.dev/internal/voxelmap"
)

// SQLiteIndex records scans, their tallies and rendered layers so earlier results can be found and compared
// without reopening snapshots.
type SQLiteIndex struct {
	db *sql.DB
}

type ScanRecord struct {
	ID           string
	SnapshotPath string
	RegionDir    string
	Volume       coords.Volume
	Voxels       int
	CreatedAt    time.Time
}

type LayerRecord struct {
	Y            int
	Offset       int
	Hollow       bool
	ImagePath    string
	Enumerations []voxelmap.Count
	Missing      []voxel.Type
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteIndex{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS scans (
			id TEXT PRIMARY KEY,
			snapshot_path TEXT NOT NULL,
			region_dir TEXT NOT NULL,
			x_min INTEGER NOT NULL,
			x_max INTEGER NOT NULL,
			z_min INTEGER NOT NULL,
			z_max INTEGER NOT NULL,
			y_min INTEGER NOT NULL,
			y_max INTEGER NOT NULL,
			voxels INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_scans_created ON scans(created_at);`,
		`CREATE TABLE IF NOT EXISTS tallies (
			scan_id TEXT NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
			rank INTEGER NOT NULL,
			voxel TEXT NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (scan_id, rank)
		);`,
		`CREATE TABLE IF NOT EXISTS layers (
			scan_id TEXT NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
			y INTEGER NOT NULL,
			hollow INTEGER NOT NULL,
			layer_offset INTEGER NOT NULL,
			image_path TEXT NOT NULL,
			missing TEXT NOT NULL,
			rendered_at TEXT NOT NULL,
			PRIMARY KEY (scan_id, y, hollow)
		);`,
		`CREATE TABLE IF NOT EXISTS layer_counts (
			scan_id TEXT NOT NULL,
			y INTEGER NOT NULL,
			hollow INTEGER NOT NULL,
			rank INTEGER NOT NULL,
			voxel TEXT NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (scan_id, y, hollow, rank),
			FOREIGN KEY (scan_id, y, hollow) REFERENCES layers(scan_id, y, hollow) ON DELETE CASCADE
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// RecordScan stores a scan and its tally rows, replacing any earlier record with the same id.
func (s *SQLiteIndex) RecordScan(ctx context.Context, rec ScanRecord, tally []voxelmap.Count) error {
	if rec.ID == "" {
		return fmt.Errorf("scan record without id")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	v := rec.Volume
	if _, err := tx.ExecContext(ctx, `DELETE FROM scans WHERE id=?`, rec.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO scans(id,snapshot_path,region_dir,x_min,x_max,z_min,z_max,y_min,y_max,voxels,created_at) VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.SnapshotPath, rec.RegionDir, v.XMin, v.XMax, v.ZMin, v.ZMax, v.YMin, v.YMax, rec.Voxels,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO tallies(scan_id,rank,voxel,count) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, c := range tally {
		if _, err := stmt.ExecContext(ctx, rec.ID, i, string(c.Type), c.Count); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecordLayer stores a rendered layer of a recorded scan, replacing an earlier render of the same plane.
func (s *SQLiteIndex) RecordLayer(ctx context.Context, scanID string, l LayerRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	hollow := boolInt(l.Hollow)
	missing := make([]string, len(l.Missing))
	for i, t := range l.Missing {
		missing[i] = string(t)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM layers WHERE scan_id=? AND y=? AND hollow=?`, scanID, l.Y, hollow); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO layers(scan_id,y,hollow,layer_offset,image_path,missing,rendered_at) VALUES(?,?,?,?,?,?,?)`,
		scanID, l.Y, hollow, l.Offset, l.ImagePath, strings.Join(missing, ","),
		time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("record layer y=%d: %w", l.Y, err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO layer_counts(scan_id,y,hollow,rank,voxel,count) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, c := range l.Enumerations {
		if _, err := stmt.ExecContext(ctx, scanID, l.Y, hollow, i, string(c.Type), c.Count); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LatestScan returns the most recently recorded scan.
func (s *SQLiteIndex) LatestScan(ctx context.Context) (ScanRecord, bool, error) {
	var (
		rec     ScanRecord
		created string
		v       = &rec.Volume
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT id,snapshot_path,region_dir,x_min,x_max,z_min,z_max,y_min,y_max,voxels,created_at
		 FROM scans ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	err := row.Scan(&rec.ID, &rec.SnapshotPath, &rec.RegionDir, &v.XMin, &v.XMax, &v.ZMin, &v.ZMax, &v.YMin, &v.YMax, &rec.Voxels, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return ScanRecord{}, false, nil
	}
	if err != nil {
		return ScanRecord{}, false, err
	}
	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return ScanRecord{}, false, fmt.Errorf("scan %s: created_at: %w", rec.ID, err)
	}
	return rec, true, nil
}

// Tally returns a scan's tally rows in stored order.
func (s *SQLiteIndex) Tally(ctx context.Context, scanID string) ([]voxelmap.Count, error) {
	return s.counts(ctx, `SELECT voxel,count FROM tallies WHERE scan_id=? ORDER BY rank`, scanID)
}

// LayerCounts returns the paste counts recorded for one rendered plane.
func (s *SQLiteIndex) LayerCounts(ctx context.Context, scanID string, y int, hollow bool) ([]voxelmap.Count, error) {
	return s.counts(ctx, `SELECT voxel,count FROM layer_counts WHERE scan_id=? AND y=? AND hollow=? ORDER BY rank`,
		scanID, y, boolInt(hollow))
}

func (s *SQLiteIndex) counts(ctx context.Context, query string, args ...any) ([]voxelmap.Count, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []voxelmap.Count
	for rows.Next() {
		var (
			t string
			n int64
		)
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		out = append(out, voxelmap.Count{Type: voxel.Type(t), Count: n})
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
