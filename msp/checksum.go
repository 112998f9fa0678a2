package msp

import (
	"github.com/go-daq/crc8"
)

var (
	// MSPv2 uses CRC8 DVB-S2
	crc8DVBS2Table = crc8.MakeTable(0xD5)

	_ checksum = (*xorChecksum)(nil)
	_ checksum = (*crc8Checksum)(nil)
)

type checksum interface {
	WriteByte(b byte) error
	Sum8() uint8
}

type xorChecksum struct {
	sum uint8
}

func (c *xorChecksum) WriteByte(b byte) error {
	c.sum ^= b
	return nil
}

func (c *xorChecksum) Sum8() uint8 {
	return c.sum
}

type crc8Checksum struct {
	crc crc8.Hash8
}

func (c *crc8Checksum) WriteByte(b byte) error {
	_, err := c.crc.Write([]byte{b})
	return err
}

func (c *crc8Checksum) Sum8() uint8 {
	return c.crc.Sum8()
}

func newChecksum(v Version) checksum {
	if v == V2 {
		return &crc8Checksum{crc: crc8.New(crc8DVBS2Table)}
	}
	return &xorChecksum{}
}

func checksumWrite(cs checksum, data []byte) {
	for _, b := range data {
		cs.WriteByte(b)
	}
}

// Checksum returns the frame checksum for the given version over data,
// which must start at the first checksummed byte (the length for v1,
// the flag for v2).
func Checksum(v Version, data []byte) uint8 {
	cs := newChecksum(v)
	checksumWrite(cs, data)
	return cs.Sum8()
}
