package region

import (
	"bytes"
	"compress/gzip"
	"path/filepath"
	"testing"

	"github.com/Tnze/go-mc/nbt"
	mcregion "github.com/Tnze/go-mc/save/region"
)

func writeTestRegion(t *testing.T, path string, lx, lz int, chunk map[string]any) {
	t.Helper()
	r, err := mcregion.Create(path)
	if err != nil {
		t.Fatalf("region.Create: %v", err)
	}
	defer r.Close()

	var buf bytes.Buffer
	buf.WriteByte(1) // gzip
	zw := gzip.NewWriter(&buf)
	if err := nbt.NewEncoder(zw).Encode(chunk, ""); err != nil {
		t.Fatalf("nbt encode: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	if err := r.WriteSector(lx, lz, buf.Bytes()); err != nil {
		t.Fatalf("WriteSector: %v", err)
	}
}

func TestAnvil_ReadsPackedSection(t *testing.T) {
	// palette of two entries packs at the 4-bit minimum: 256 longs, 16 values each.
	data := make([]int64, 256)
	idx := 2<<8 | 3<<4 | 1 // y=2, z=3, x=1
	data[idx/16] = 1 << ((idx % 16) * 4)

	chunk := map[string]any{
		"DataVersion": int32(3465),
		"xPos":        int32(0),
		"zPos":        int32(0),
		"yPos":        int32(-4),
		"sections": []map[string]any{
			{
				"Y": int8(0),
				"block_states": map[string]any{
					"palette": []map[string]any{
						{"Name": "minecraft:stone"},
						{"Name": "minecraft:dirt"},
					},
					"data": data,
				},
			},
			{
				"Y": int8(-1),
				"block_states": map[string]any{
					"palette": []map[string]any{{"Name": "minecraft:deepslate"}},
				},
			},
		},
	}
	path := filepath.Join(t.TempDir(), "r.0.0.mca")
	writeTestRegion(t, path, 5, 7, chunk)

	rh, err := Anvil{}.OpenRegion(path)
	if err != nil {
		t.Fatalf("OpenRegion: %v", err)
	}
	defer rh.Close()

	ch, err := rh.LoadChunk(5, 7)
	if err != nil {
		t.Fatalf("LoadChunk: %v", err)
	}
	cases := []struct {
		lx, y, lz int
		want      string
	}{
		{1, 2, 3, "dirt"},
		{0, 2, 3, "stone"},
		{1, 3, 3, "stone"},
		{4, -7, 9, "deepslate"},
		{0, 40, 0, "air"},
	}
	for _, tc := range cases {
		if got := ch.VoxelAt(tc.lx, tc.y, tc.lz); string(got) != tc.want {
			t.Fatalf("VoxelAt(%d,%d,%d): got %q want %q", tc.lx, tc.y, tc.lz, got, tc.want)
		}
	}

	if _, err := rh.LoadChunk(0, 0); err == nil {
		t.Fatalf("expected error for ungenerated chunk")
	}
}

func TestBitsPerValue(t *testing.T) {
	for _, tc := range []struct{ longs, want int }{{256, 4}, {342, 5}, {1024, 16}} {
		if got := bitsPerValue(sectionVolume, tc.longs); got != tc.want {
			t.Fatalf("bitsPerValue(%d): got %d want %d", tc.longs, got, tc.want)
		}
	}
}
