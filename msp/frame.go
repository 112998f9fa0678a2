package msp

import "fmt"

// Version identifies the MSP framing.
type Version int

const (
	// V1 frames start with "$M" and carry an 8 bit length, an 8 bit
	// command and a XOR checksum.
	V1 Version = iota + 1
	// V2 frames start with "$X" and carry 16 bit length and command
	// fields protected by CRC8 DVB-S2.
	V2
)

func (v Version) String() string {
	switch v {
	case V1:
		return "MSPv1"
	case V2:
		return "MSPv2"
	}
	return fmt.Sprintf("unknown MSP version %d", int(v))
}

func (v Version) marker() byte {
	if v == V2 {
		return 'X'
	}
	return 'M'
}

// Direction is the third preamble byte of a frame.
type Direction byte

const (
	DirectionRequest  Direction = '<'
	DirectionResponse Direction = '>'
	DirectionError    Direction = '!'
)

func (d Direction) valid() bool {
	return d == DirectionRequest || d == DirectionResponse || d == DirectionError
}

// Frame is a decoded MSP message.
type Frame struct {
	Version   Version
	Direction Direction
	Cmd       Cmd
	Payload   []byte
	// ChecksumOK is false when the checksum byte was missing
	// or didn't match.
	ChecksumOK bool
}

func (f *Frame) String() string {
	return fmt.Sprintf("%s %c %s (%d bytes)", f.Version, f.Direction, f.Cmd, len(f.Payload))
}
