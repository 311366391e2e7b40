// Package legacyjson reads and writes the blocks.json / enumeration.json pair produced by the first version
// of the scanner. Key order is significant in both files and is preserved.
package legacyjson

import (
	"bufio"
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"strata.dev/internal/voxel"
	"strata.dev/internal/voxelmap"
)

const (
	BlocksFile      = "blocks.json"
	EnumerationFile = "enumeration.json"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	blocksSchema      = mustSchema("blocks.schema.json")
	enumerationSchema = mustSchema("enumeration.schema.json")
)

func mustSchema(name string) *jsonschema.Schema {
	b, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(err)
	}
	return jsonschema.MustCompileString(name, string(b))
}

// WriteBlocks writes "x, z, y": "type" pairs in visit order.
func WriteBlocks(w io.Writer, m *voxelmap.Map) error {
	entries := m.Entries()
	return writeObject(w, len(entries), func(i int) (string, any) {
		return entries[i].Key.String(), string(entries[i].Type)
	})
}

// WriteEnumeration writes the rows in the order given.
func WriteEnumeration(w io.Writer, rows []voxelmap.Count) error {
	return writeObject(w, len(rows), func(i int) (string, any) {
		return string(rows[i].Type), rows[i].Count
	})
}

// writeObject lays out a flat object with one-space indentation, one member per line.
func writeObject(w io.Writer, n int, member func(i int) (string, any)) error {
	bw := bufio.NewWriter(w)
	if n == 0 {
		bw.WriteString("{}")
		return bw.Flush()
	}
	bw.WriteString("{\n")
	for i := 0; i < n; i++ {
		k, v := member(i)
		kb, err := marshal(k)
		if err != nil {
			return err
		}
		vb, err := marshal(v)
		if err != nil {
			return err
		}
		bw.WriteByte(' ')
		bw.Write(kb)
		bw.WriteString(": ")
		bw.Write(vb)
		if i < n-1 {
			bw.WriteByte(',')
		}
		bw.WriteByte('\n')
	}
	bw.WriteByte('}')
	return bw.Flush()
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ReadBlocks validates a blocks.json document and rebuilds the map in file order. The tally is recomputed.
func ReadBlocks(r io.Reader, empty voxel.Type) (*voxelmap.Map, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := validate(blocksSchema, raw); err != nil {
		return nil, fmt.Errorf("%s: %w", BlocksFile, err)
	}

	b := voxelmap.NewBuilder(empty, 0)
	err = readObject(raw, func(dec *json.Decoder, key string) error {
		k, err := voxelmap.ParseKey(key)
		if err != nil {
			return err
		}
		var v string
		if err := dec.Decode(&v); err != nil {
			return err
		}
		return b.Record(k, voxel.Parse(v))
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", BlocksFile, err)
	}
	return b.Finish(), nil
}

func ReadEnumeration(r io.Reader) ([]voxelmap.Count, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := validate(enumerationSchema, raw); err != nil {
		return nil, fmt.Errorf("%s: %w", EnumerationFile, err)
	}
	var rows []voxelmap.Count
	err = readObject(raw, func(dec *json.Decoder, key string) error {
		var n int64
		if err := dec.Decode(&n); err != nil {
			return err
		}
		rows = append(rows, voxelmap.Count{Type: voxel.Type(key), Count: n})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", EnumerationFile, err)
	}
	return rows, nil
}

func validate(s *jsonschema.Schema, raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	return s.Validate(doc)
}

// readObject walks the members of a top-level object in document order.
func readObject(raw []byte, member func(dec *json.Decoder, key string) error) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected key, got %v", tok)
		}
		if err := member(dec, key); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}

// Save writes both files into dir.
func Save(dir string, m *voxelmap.Map) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, BlocksFile), func(w io.Writer) error { return WriteBlocks(w, m) }); err != nil {
		return err
	}
	rows := m.Tally().Sorted()
	return writeFile(filepath.Join(dir, EnumerationFile), func(w io.Writer) error { return WriteEnumeration(w, rows) })
}

// Load reads blocks.json from dir.
func Load(dir string, empty voxel.Type) (*voxelmap.Map, error) {
	f, err := os.Open(filepath.Join(dir, BlocksFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadBlocks(f, empty)
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
