package msp

import (
	"bytes"
	"fmt"

	"github.com/icza/bitio"
)

// DecodeSigned interprets b as a little endian two's complement integer
// of len(b) bytes. Fields up to 8 bytes wide are supported; an empty
// field decodes to 0.
func DecodeSigned(b []byte) int64 {
	n := len(b)
	if n == 0 {
		return 0
	}
	if n > 8 {
		panic(fmt.Errorf("can't decode %d byte field into an int64", n))
	}
	be := make([]byte, n)
	for ii := range b {
		be[n-1-ii] = b[ii]
	}
	width := uint8(8 * n)
	// Reading from a byte slice of the exact width can't fail
	u, _ := bitio.NewReader(bytes.NewReader(be)).ReadBits(width)
	if u>>(width-1) == 0 {
		return int64(u)
	}
	mask := ^uint64(0) >> (64 - width)
	return -int64((^u + 1) & mask)
}

