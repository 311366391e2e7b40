package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"strata.dev/internal/config"
	"strata.dev/internal/persistence/indexdb"
	"strata.dev/internal/persistence/legacyjson"
	persistlog "strata.dev/internal/persistence/log"
	"strata.dev/internal/persistence/snapshot"
	"strata.dev/internal/region"
	"strata.dev/internal/render"
	"strata.dev/internal/render/textures"
	"strata.dev/internal/report"
	"strata.dev/internal/session"
	"strata.dev/internal/transport/ws"
)

func main() {
	var (
		configPath = flag.String("config", "strata.yaml", "config file path")
		rescan     = flag.Bool("rescan", false, "scan the region files without asking, even when a snapshot exists")
		snapPath   = flag.String("snapshot", "", "load this snapshot instead of scanning")
		legacyDir  = flag.String("import_legacy", "", "load blocks.json from this directory instead of scanning")

		layer  = flag.Int("layer", 0, "layer offset from the lowest y of the bounds")
		all    = flag.Bool("all", false, "render every layer from the bottom up")
		hollow = flag.Bool("hollow", false, "hide voxels enclosed on all six sides")
		outDir = flag.String("out", "", "output directory for rendered layers (default: <data_dir>/layers)")
		text   = flag.Bool("text", false, "also write a text dump of each rendered layer")
		chart  = flag.Bool("chart", false, "also write a materials bar chart of each rendered layer")

		serve = flag.String("serve", "", "serve the websocket viewer on this address (e.g. :8080)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[strata] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	logger, closeLog := newLogger(cfg.Log)
	defer closeLog()

	var idx *indexdb.SQLiteIndex
	if strings.TrimSpace(cfg.Output.IndexDB) != "" {
		idx, err = indexdb.OpenSQLite(cfg.Output.IndexDB)
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
	}

	ctx, cancel := signalContext()
	defer cancel()

	sess, err := loadSession(ctx, cfg, idx, sessionFlags{
		rescan:    *rescan,
		snapshot:  strings.TrimSpace(*snapPath),
		legacyDir: strings.TrimSpace(*legacyDir),
	}, logger)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	if err := report.WriteTally(os.Stdout, "Voxels in volume "+sess.Volume.String(), sess.Map().Tally().Sorted(), !color.NoColor); err != nil {
		logger.Printf("write tally: %v", err)
	}

	tiles, err := textures.Open(cfg.Textures.Dir, cfg.Textures.Aliases)
	if err != nil {
		logger.Fatalf("open textures: %v", err)
	}
	logger.Printf("%d textures in %s", tiles.Len(), cfg.Textures.Dir)
	renderer := &render.Renderer{Tiles: tiles, Opts: cfg.RenderOptions(), Log: logger}

	explicitLayer := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "layer" {
			explicitLayer = true
		}
	})
	if *serve == "" || *all || explicitLayer {
		dir := *outDir
		if dir == "" {
			dir = filepath.Join(cfg.Output.DataDir, "layers")
		}
		layerLog := persistlog.NewLayerLogger(cfg.Output.DataDir)
		defer layerLog.Close()
		out := &layerWriter{
			dir:     dir,
			text:    *text,
			chart:   *chart,
			idx:     idx,
			journal: layerLog,
			log:     logger,
		}
		offsets := []int{*layer}
		if *all {
			offsets = nil
		}
		if err := out.renderLayers(ctx, sess, renderer, offsets, *hollow); err != nil {
			logger.Fatalf("render: %v", err)
		}
	}

	if *serve == "" {
		return
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(sess, renderer, logger).Handler())

	srv := &http.Server{
		Addr:              *serve,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("viewer listening on %s", *serve)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

type sessionFlags struct {
	rescan    bool
	snapshot  string
	legacyDir string
}

// loadSession fills a session from an explicit snapshot, a legacy blocks.json, the latest snapshot of the same
// volume, or a fresh scan, in that order of preference.
func loadSession(ctx context.Context, cfg config.Config, idx *indexdb.SQLiteIndex, f sessionFlags, logger *log.Logger) (*session.Session, error) {
	if f.snapshot != "" {
		sess, err := importSnapshot(f.snapshot, cfg)
		if err != nil {
			return nil, err
		}
		if sess.Volume != cfg.Bounds {
			warn("snapshot covers %s, not the configured %s", sess.Volume, cfg.Bounds)
		}
		return sess, nil
	}

	sess, err := session.New(cfg.Bounds, cfg.Palette())
	if err != nil {
		return nil, fmt.Errorf("bounds: %w", err)
	}
	if f.legacyDir != "" {
		m, err := legacyjson.Load(f.legacyDir, sess.Palette.Empty)
		if err != nil {
			return nil, fmt.Errorf("import legacy: %w", err)
		}
		if err := sess.Adopt(m, ""); err != nil {
			return nil, fmt.Errorf("import legacy: %w", err)
		}
		logger.Printf("imported %s voxels from %s", humanize.Comma(int64(m.Len())), f.legacyDir)
		return sess, saveScan(ctx, cfg, idx, sess, logger)
	}

	if !f.rescan {
		prev := previousSnapshot(ctx, cfg, idx)
		if prev != "" {
			h, err := snapshot.ReadHeader(prev)
			if err == nil && !askRescan(h) {
				logger.Printf("reusing snapshot %s", prev)
				return importSnapshot(prev, cfg)
			}
		}
	}

	if err := sess.Scan(cfg.RegionDir, cfg.RegionExt, region.Anvil{}, logger); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return sess, saveScan(ctx, cfg, idx, sess, logger)
}

func importSnapshot(path string, cfg config.Config) (*session.Session, error) {
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	sess, err := session.Import(snap, cfg.Palette())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sess, nil
}

// saveScan writes the snapshot and, when enabled, the legacy JSON pair and the index rows.
func saveScan(ctx context.Context, cfg config.Config, idx *indexdb.SQLiteIndex, sess *session.Session, logger *log.Logger) error {
	snap, err := sess.Export()
	if err != nil {
		return err
	}
	path := filepath.Join(snapshotDir(cfg), sess.ID()+snapshotExt)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	logger.Printf("snapshot written to %s", path)

	if cfg.Output.LegacyJSON {
		if err := legacyjson.Save(cfg.Output.DataDir, sess.Map()); err != nil {
			return fmt.Errorf("write legacy json: %w", err)
		}
	}
	if idx != nil {
		rec := indexdb.ScanRecord{
			ID:           sess.ID(),
			SnapshotPath: path,
			RegionDir:    sess.RegionDir,
			Volume:       sess.Volume,
			Voxels:       sess.Map().Len(),
			CreatedAt:    sess.CreatedAt(),
		}
		if err := idx.RecordScan(ctx, rec, sess.Map().Tally().Sorted()); err != nil {
			logger.Printf("index scan: %v", err)
		}
	}
	return nil
}

func askRescan(h snapshot.Header) bool {
	if !stdinIsTerminal() {
		return false
	}
	when := "at " + h.CreatedAt
	if at, err := time.Parse(time.RFC3339Nano, h.CreatedAt); err == nil {
		when = humanize.Time(at)
	}
	q := fmt.Sprintf("A scan of %s with %s voxels was taken %s. Scan the region files again?",
		h.Volume, humanize.Comma(int64(h.Voxels)), when)
	return confirm(os.Stdin, os.Stdout, q)
}

func warn(format string, args ...any) {
	_, _ = color.New(color.FgYellow).Fprintf(os.Stderr, "warning: "+format+"\n", args...)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
