// Package tracefile reads and writes trace-set files: flat
// concatenations of 16-byte blocks, the plaintext/ciphertext and key
// batches the analysis engine consumes. Files ending in .zst or .gz are
// compressed through the transform pipeline; anything else is raw.
package tracefile

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"seedtrace/pkg/buffers"
	"seedtrace/pkg/transform"

	"github.com/klauspost/compress/zstd"
)

// BlockSize is the size of one trace block in bytes.
const BlockSize = 16

var (
	// ErrBlockAlign reports a trace set whose byte length is not a
	// whole number of blocks.
	ErrBlockAlign = errors.New("tracefile: length not a multiple of the block size")
	// ErrKeyCount reports a key set that is neither a single key nor
	// one key per block.
	ErrKeyCount = errors.New("tracefile: key count must be 1 or match the block count")
)

// transformFor selects the reversible transform matching the file
// extension.
func transformFor(path string) (transform.Transform, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst":
		return transform.NewZstdTransform(zstd.SpeedDefault)
	case ".gz":
		return transform.NewGzipTransform(), nil
	default:
		return transform.NewNoOpTransform(), nil
	}
}

// Load reads a trace-set file into a flat byte buffer, decompressing by
// extension, and validates block alignment.
func Load(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tracefile: open %s: %w", path, err)
	}
	defer f.Close()

	var raw bytes.Buffer
	chunk := buffers.ChunkBufferPool.Get()
	_, err = io.CopyBuffer(&raw, f, chunk)
	buffers.ChunkBufferPool.Put(chunk)
	if err != nil {
		return nil, fmt.Errorf("tracefile: read %s: %w", path, err)
	}

	t, err := transformFor(path)
	if err != nil {
		return nil, err
	}
	data, err := t.Reverse(raw.Bytes())
	if err != nil {
		return nil, fmt.Errorf("tracefile: decode %s: %w", path, err)
	}
	if len(data)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: %s holds %d bytes", ErrBlockAlign, path, len(data))
	}
	return data, nil
}

// Save writes a flat block buffer to path, compressing by extension.
func Save(path string, data []byte) error {
	if len(data)%BlockSize != 0 {
		return fmt.Errorf("%w: %d bytes", ErrBlockAlign, len(data))
	}
	t, err := transformFor(path)
	if err != nil {
		return err
	}
	encoded, err := t.Apply(data)
	if err != nil {
		return fmt.Errorf("tracefile: encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, encoded, 0644); err != nil {
		return fmt.Errorf("tracefile: write %s: %w", path, err)
	}
	return nil
}

// LoadHex reads a hand-written vector file: one 32-hex-digit block per
// line, blank lines and '#' comments ignored.
func LoadHex(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tracefile: open %s: %w", path, err)
	}
	defer f.Close()

	var out []byte
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		block, err := ParseHexBlock(text)
		if err != nil {
			return nil, fmt.Errorf("tracefile: %s line %d: %w", path, line, err)
		}
		out = append(out, block...)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("tracefile: read %s: %w", path, err)
	}
	return out, nil
}

// ParseHexBlock decodes one 16-byte block written as hex, tolerating
// embedded spaces between groups.
func ParseHexBlock(s string) ([]byte, error) {
	s = strings.ReplaceAll(s, " ", "")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("bad hex block %q: %w", s, err)
	}
	if len(b) != BlockSize {
		return nil, fmt.Errorf("block is %d bytes, want %d", len(b), BlockSize)
	}
	return b, nil
}

// CheckKeyCount validates that a key buffer pairs with a block buffer:
// one broadcast key or one key per block.
func CheckKeyCount(vals, keys []byte) error {
	nv := len(vals) / BlockSize
	nk := len(keys) / BlockSize
	if nk != 1 && nk != nv {
		return fmt.Errorf("%w: %d keys, %d blocks", ErrKeyCount, nk, nv)
	}
	return nil
}
