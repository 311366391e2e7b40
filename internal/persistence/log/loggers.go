package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"strata.dev/internal/render"
)

// JSONLZstdWriter appends JSON lines to a zstd file that rolls over once per UTC day.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu     sync.Mutex
	curDay string
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	day := w.now().UTC().Format("2006-01-02")
	if day != w.curDay {
		if err := w.rotateLocked(day); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

// Path is the file entries written now would go to.
func (w *JSONLZstdWriter) Path() string {
	return w.pathForDay(w.now().UTC().Format("2006-01-02"))
}

func (w *JSONLZstdWriter) rotateLocked(day string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathForDay(day)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 32*1024)
	w.curDay = day
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curDay = ""
	return err1
}

func (w *JSONLZstdWriter) pathForDay(day string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, day))
}

// ReadJSONL calls fn with every line of a file written by JSONLZstdWriter. Appended sessions are separate
// zstd frames and are read back to back.
func ReadJSONL(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	br := bufio.NewReader(dec)
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 1 {
			if ferr := fn(line[:len(line)-1]); ferr != nil {
				return ferr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// LayerEntry records one rendered layer.
type LayerEntry struct {
	At              time.Time `json:"at"`
	ScanID          string    `json:"scan_id"`
	Y               int       `json:"y"`
	Offset          int       `json:"offset"`
	Hollow          bool      `json:"hollow"`
	Image           string    `json:"image,omitempty"`
	Enumerations    []Count   `json:"enumerations"`
	MissingTextures []string  `json:"missing_textures,omitempty"`
}

type Count struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

func NewLayerEntry(scanID string, l *render.Layer, hollow bool, image string) LayerEntry {
	e := LayerEntry{
		At:           time.Now().UTC(),
		ScanID:       scanID,
		Y:            l.Y,
		Offset:       l.Offset,
		Hollow:       hollow,
		Image:        image,
		Enumerations: make([]Count, len(l.Enumerations)),
	}
	for i, c := range l.Enumerations {
		e.Enumerations[i] = Count{Type: string(c.Type), Count: c.Count}
	}
	for _, t := range l.MissingTextures {
		e.MissingTextures = append(e.MissingTextures, string(t))
	}
	return e
}

// LayerLogger writes one JSONL entry per rendered layer (compressed).
type LayerLogger struct{ w *JSONLZstdWriter }

func NewLayerLogger(dataDir string) *LayerLogger {
	return &LayerLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "journal"), "layers")}
}

func (l *LayerLogger) WriteLayer(e LayerEntry) error { return l.w.Write(e) }
func (l *LayerLogger) Path() string                 { return l.w.Path() }
func (l *LayerLogger) Close() error                 { return l.w.Close() }
