package tracefile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func sampleBlocks(n int) []byte {
	out := make([]byte, n*BlockSize)
	for i := range out {
		out[i] = byte(i * 31)
	}
	return out
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	data := sampleBlocks(32)

	for _, name := range []string{"traces.bin", "traces.bin.gz", "traces.bin.zst"} {
		path := filepath.Join(dir, name)
		if err := Save(path, data); err != nil {
			t.Fatalf("Save(%s) failed: %v", name, err)
		}
		got, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s) failed: %v", name, err)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("%s: round-trip mismatch", name)
		}
	}
}

func TestCompressedSmallerOnDisk(t *testing.T) {
	dir := t.TempDir()
	// Highly repetitive data, as real trace sets tend to be.
	data := make([]byte, 4096*BlockSize)

	raw := filepath.Join(dir, "t.bin")
	zst := filepath.Join(dir, "t.bin.zst")
	if err := Save(raw, data); err != nil {
		t.Fatal(err)
	}
	if err := Save(zst, data); err != nil {
		t.Fatal(err)
	}
	rawInfo, _ := os.Stat(raw)
	zstInfo, _ := os.Stat(zst)
	if zstInfo.Size() >= rawInfo.Size() {
		t.Errorf("zstd file (%d bytes) not smaller than raw (%d bytes)", zstInfo.Size(), rawInfo.Size())
	}
}

func TestLoadRejectsMisaligned(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.bin")
	if err := os.WriteFile(path, make([]byte, 17), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrBlockAlign) {
		t.Errorf("got %v, want ErrBlockAlign", err)
	}
}

func TestLoadHex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.txt")
	content := `# RFC 4269 plaintexts
000102030405060708090a0b0c0d0e0f

83a2f8a2 88641fb9 a4e9a5cc 2f131c7d
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadHex(path)
	if err != nil {
		t.Fatalf("LoadHex failed: %v", err)
	}
	if len(got) != 2*BlockSize {
		t.Fatalf("got %d bytes, want %d", len(got), 2*BlockSize)
	}
	if got[16] != 0x83 || got[31] != 0x7d {
		t.Errorf("second block decoded wrong: %x", got[16:32])
	}
}

func TestLoadHexRejectsShortBlock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "short.txt")
	if err := os.WriteFile(path, []byte("0011223344\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadHex(path); err == nil {
		t.Error("LoadHex accepted a short block")
	}
}

func TestCheckKeyCount(t *testing.T) {
	blocks := sampleBlocks(4)
	if err := CheckKeyCount(blocks, sampleBlocks(1)); err != nil {
		t.Errorf("broadcast key rejected: %v", err)
	}
	if err := CheckKeyCount(blocks, sampleBlocks(4)); err != nil {
		t.Errorf("per-block keys rejected: %v", err)
	}
	if err := CheckKeyCount(blocks, sampleBlocks(2)); !errors.Is(err, ErrKeyCount) {
		t.Errorf("got %v, want ErrKeyCount", err)
	}
}
