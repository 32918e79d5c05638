package main

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"seedtrace/pkg/seed"
	"seedtrace/pkg/tracefile"
)

// captureBytes serializes a capture as big-endian raw values, the
// layout analysis scripts ingest.
func captureBytes(capture *seed.Capture) []byte {
	switch {
	case capture.U64 != nil:
		out := make([]byte, 8*len(capture.U64))
		for i, v := range capture.U64 {
			binary.BigEndian.PutUint64(out[i*8:], v)
		}
		return out
	case capture.U32 != nil:
		out := make([]byte, 4*len(capture.U32))
		for i, v := range capture.U32 {
			binary.BigEndian.PutUint32(out[i*4:], v)
		}
		return out
	default:
		return capture.Blocks
	}
}

// writeCapture dumps a capture to path. Block-shaped output goes
// through the trace-set writer (and its extension-based compression);
// narrower elements are written raw.
func writeCapture(path string, capture *seed.Capture) error {
	if capture.Step == seed.StepOutput {
		return tracefile.Save(path, capture.Blocks)
	}
	if err := os.WriteFile(path, captureBytes(capture), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// printCapture writes one element per line as fixed-width hex.
func printCapture(w io.Writer, capture *seed.Capture) {
	switch {
	case capture.U64 != nil:
		for _, v := range capture.U64 {
			fmt.Fprintf(w, "%016x\n", v)
		}
	case capture.U32 != nil:
		for _, v := range capture.U32 {
			fmt.Fprintf(w, "%08x\n", v)
		}
	default:
		for i := 0; i+tracefile.BlockSize <= len(capture.Blocks); i += tracefile.BlockSize {
			fmt.Fprintln(w, hex.EncodeToString(capture.Blocks[i:i+tracefile.BlockSize]))
		}
	}
}
