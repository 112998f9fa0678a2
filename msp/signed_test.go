package msp

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeSigned16RoundTrip(t *testing.T) {
	buf := make([]byte, 2)
	for v := math.MinInt16; v <= math.MaxInt16; v++ {
		binary.LittleEndian.PutUint16(buf, uint16(int16(v)))
		if got := DecodeSigned(buf); got != int64(v) {
			t.Fatalf("DecodeSigned(% x) = %d, want %d", buf, got, v)
		}
	}
}

func TestDecodeSignedBoundaries(t *testing.T) {
	cases := []struct {
		data []byte
		want int64
	}{
		{[]byte{0xff, 0xff}, -1},
		{[]byte{0x00, 0x80}, -32768},
		{[]byte{0xff, 0x7f}, 32767},
		{[]byte{0x00, 0x00}, 0},
		{[]byte{0x80}, -128},
		{[]byte{0x7f}, 127},
		{[]byte{0xfe, 0xff, 0xff, 0xff}, -2},
		{[]byte{0x00, 0x00, 0x00, 0x80}, math.MinInt32},
		{[]byte{0xff, 0xff, 0xff, 0x7f}, math.MaxInt32},
		{[]byte{0x10, 0x27, 0x00, 0x00}, 10000},
		{[]byte{0, 0, 0, 0, 0, 0, 0, 0x80}, math.MinInt64},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f}, math.MaxInt64},
		{nil, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, DecodeSigned(c.data), "% x", c.data)
	}
}

func TestDecodeSigned32(t *testing.T) {
	buf := make([]byte, 4)
	for _, v := range []int32{-1234567, -100, 0, 1, 4242, math.MaxInt32 - 1} {
		binary.LittleEndian.PutUint32(buf, uint32(v))
		assert.Equal(t, int64(v), DecodeSigned(buf))
	}
}

func TestDecodeSignedTooWide(t *testing.T) {
	assert.Panics(t, func() { DecodeSigned(make([]byte, 9)) })
}
