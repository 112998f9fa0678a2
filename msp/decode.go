package msp

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
)

type decoderState int

const (
	decoderStateNone decoderState = iota
	decoderStateSync

	decoderStateV1Direction
	decoderStateV1PayloadSize
	decoderStateV1Command
	decoderStateV1Payload

	decoderStateV2Direction
	decoderStateV2Flag
	decoderStateV2CommandLow
	decoderStateV2CommandHigh
	decoderStateV2PayloadSizeLow
	decoderStateV2PayloadSizeHigh
	decoderStateV2Payload

	decoderStateChecksum
)

// decoder is a byte at a time MSP frame parser. It resynchronizes on
// the next '$' after any unexpected byte.
type decoder struct {
	state       decoderState
	version     Version
	direction   Direction
	cmd         Cmd
	payloadSize int
	payload     bytes.Buffer
	cs          checksum
}

func (d *decoder) reset() {
	d.state = decoderStateNone
	d.version = 0
	d.direction = 0
	d.cmd = 0
	d.payloadSize = 0
	d.payload.Reset()
	d.cs = nil
}

func (d *decoder) resync(c byte) {
	d.reset()
	if c == '$' {
		d.state = decoderStateSync
	}
}

func (d *decoder) frame(checksumOK bool) *Frame {
	payload := make([]byte, d.payload.Len())
	copy(payload, d.payload.Bytes())
	return &Frame{
		Version:    d.version,
		Direction:  d.direction,
		Cmd:        d.cmd,
		Payload:    payload,
		ChecksumOK: checksumOK,
	}
}

// feed consumes c and returns a frame when c completes one.
func (d *decoder) feed(c byte) *Frame {
	switch d.state {
	case decoderStateNone:
		if c == '$' {
			d.state = decoderStateSync
		}
	case decoderStateSync:
		switch c {
		case 'M':
			d.version = V1
			d.cs = newChecksum(V1)
			d.state = decoderStateV1Direction
		case 'X':
			d.version = V2
			d.cs = newChecksum(V2)
			d.state = decoderStateV2Direction
		default:
			log.Debugf("unknown sync char %q", string([]byte{c}))
			d.resync(c)
		}

	case decoderStateV1Direction:
		if !Direction(c).valid() {
			log.Debugf("unknown MSPv1 direction char %q", string([]byte{c}))
			d.resync(c)
			break
		}
		d.direction = Direction(c)
		d.state = decoderStateV1PayloadSize
	case decoderStateV1PayloadSize:
		d.cs.WriteByte(c)
		d.payloadSize = int(c)
		d.state = decoderStateV1Command
	case decoderStateV1Command:
		d.cs.WriteByte(c)
		d.cmd = Cmd(c)
		if d.payloadSize > 0 {
			d.state = decoderStateV1Payload
		} else {
			d.state = decoderStateChecksum
		}
	case decoderStateV1Payload, decoderStateV2Payload:
		d.cs.WriteByte(c)
		d.payload.WriteByte(c)
		if d.payload.Len() == d.payloadSize {
			d.state = decoderStateChecksum
		}

	case decoderStateV2Direction:
		if !Direction(c).valid() {
			log.Debugf("unknown MSPv2 direction char %q", string([]byte{c}))
			d.resync(c)
			break
		}
		d.direction = Direction(c)
		d.state = decoderStateV2Flag
	case decoderStateV2Flag:
		d.cs.WriteByte(c)
		d.state = decoderStateV2CommandLow
	case decoderStateV2CommandLow:
		d.cs.WriteByte(c)
		d.cmd = Cmd(c)
		d.state = decoderStateV2CommandHigh
	case decoderStateV2CommandHigh:
		d.cs.WriteByte(c)
		d.cmd |= Cmd(c) << 8
		d.state = decoderStateV2PayloadSizeLow
	case decoderStateV2PayloadSizeLow:
		d.cs.WriteByte(c)
		d.payloadSize = int(c)
		d.state = decoderStateV2PayloadSizeHigh
	case decoderStateV2PayloadSizeHigh:
		d.cs.WriteByte(c)
		d.payloadSize |= int(c) << 8
		if d.payloadSize > 0 {
			d.state = decoderStateV2Payload
		} else {
			d.state = decoderStateChecksum
		}

	case decoderStateChecksum:
		ok := d.cs.Sum8() == c
		if !ok {
			log.Debugf("invalid checksum 0x%02x vs expected 0x%02x", c, d.cs.Sum8())
		}
		f := d.frame(ok)
		log.Debugf("%s: %s <= %s", f.Version, f.Cmd, hex.EncodeToString(f.Payload))
		d.reset()
		return f
	default:
		panic(fmt.Errorf("invalid decoder state %d", d.state))
	}
	return nil
}

// pending returns the frame being decoded when its payload is
// complete and only the checksum byte is missing.
func (d *decoder) pending() *Frame {
	if d.state != decoderStateChecksum {
		return nil
	}
	return d.frame(false)
}

// ParseResponse decodes the first MSPv1 or MSPv2 response in raw without
// verifying its checksum. It returns false when raw holds no complete
// response: an empty read, a payload shorter than its declared length
// or an error frame.
func ParseResponse(raw []byte) (*Frame, bool) {
	return defaultCodec.Parse(raw)
}

// Parse decodes the first response frame in raw. See ParseResponse.
// When c.VerifyChecksum is set, frames with a missing or invalid
// checksum are rejected too.
func (c Codec) Parse(raw []byte) (*Frame, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var d decoder
	for _, b := range raw {
		f := d.feed(b)
		if f == nil {
			continue
		}
		if f.Direction == DirectionRequest {
			// Our own request echoed back by a bridge
			continue
		}
		return c.accept(f)
	}
	if f := d.pending(); f != nil && f.Direction != DirectionRequest {
		log.Debugf("%s: %s response without checksum", f.Version, f.Cmd)
		return c.accept(f)
	}
	log.Debugf("no complete frame in %d bytes: %s", len(raw), hex.EncodeToString(raw))
	return nil, false
}

func (c Codec) accept(f *Frame) (*Frame, bool) {
	if f.Direction == DirectionError {
		log.Debugf("%s: %s error response", f.Version, f.Cmd)
		return nil, false
	}
	if c.VerifyChecksum && !f.ChecksumOK {
		log.Warnf("%s: dropping %s response with bad checksum", f.Version, f.Cmd)
		return nil, false
	}
	return f, true
}

// ReadResponse reads from r until a complete response frame has been
// received, r has no more data available or max bytes have been read.
// A read returning no bytes and no error means no more data; any error,
// including io.EOF, is returned to the caller.
func ReadResponse(r io.Reader, max int) ([]byte, error) {
	var d decoder
	buf := make([]byte, 0, 64)
	chunk := make([]byte, 64)
	for len(buf) < max {
		n := len(chunk)
		if rem := max - len(buf); rem < n {
			n = rem
		}
		n, err := r.Read(chunk[:n])
		for _, c := range chunk[:n] {
			log.Tracef("R << %03d = 0x%02x = %q", c, c, string([]byte{c}))
		}
		buf = append(buf, chunk[:n]...)
		if err != nil {
			return buf, err
		}
		for _, c := range chunk[:n] {
			if f := d.feed(c); f != nil && f.Direction != DirectionRequest {
				return buf, nil
			}
		}
		if n == 0 {
			break
		}
	}
	return buf, nil
}
