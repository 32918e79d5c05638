package seed

import "encoding/binary"

const (
	// BlockSize is the SEED block and key size in bytes.
	BlockSize = 16

	// maxRounds is the number of Feistel rounds.
	maxRounds = 16
)

// columns holds a batch of 128-bit values as four parallel arrays of
// 32-bit words. Value i occupies c1[i]..c4[i], one word per big-endian
// 4-byte group of the original bytes.
type columns struct {
	c1, c2, c3, c4 []uint32
}

// loadColumns splits buf, a concatenation of 16-byte values, into four
// word columns. len(buf) must already be validated as a multiple of
// BlockSize; loadColumns never reads outside buf.
func loadColumns(buf []byte) columns {
	n := len(buf) / BlockSize
	c := columns{
		c1: make([]uint32, n),
		c2: make([]uint32, n),
		c3: make([]uint32, n),
		c4: make([]uint32, n),
	}
	for i := 0; i < n; i++ {
		b := buf[i*BlockSize : (i+1)*BlockSize]
		c.c1[i] = binary.BigEndian.Uint32(b[0:4])
		c.c2[i] = binary.BigEndian.Uint32(b[4:8])
		c.c3[i] = binary.BigEndian.Uint32(b[8:12])
		c.c4[i] = binary.BigEndian.Uint32(b[12:16])
	}
	return c
}

func (c columns) len() int { return len(c.c1) }
