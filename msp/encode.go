package msp

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"

	log "github.com/sirupsen/logrus"
)

// Codec builds and parses frames for one protocol version. The zero
// value speaks MSPv1 and doesn't verify response checksums.
type Codec struct {
	Version Version
	// VerifyChecksum rejects responses with a missing or invalid
	// checksum.
	VerifyChecksum bool
}

var defaultCodec = Codec{Version: V1}

func (c Codec) version() Version {
	if c.Version == V2 {
		return V2
	}
	return V1
}

// BuildRequest returns an MSPv1 request for cmd with an empty payload.
func BuildRequest(cmd Cmd) []byte {
	return defaultCodec.Request(cmd)
}

// BuildCommand returns an MSPv1 frame for cmd carrying values as
// little endian int16s.
func BuildCommand(cmd Cmd, values []int16) []byte {
	return defaultCodec.Command(cmd, values)
}

// Request returns a request frame for cmd with no payload.
func (c Codec) Request(cmd Cmd) []byte {
	return c.encode(cmd, nil)
}

// Command returns a request frame for cmd whose payload is values
// serialized as little endian int16s.
func (c Codec) Command(cmd Cmd, values []int16) []byte {
	data := make([]byte, 2*len(values))
	for ii, v := range values {
		binary.LittleEndian.PutUint16(data[2*ii:], uint16(v))
	}
	return c.encode(cmd, data)
}

func (c Codec) encode(cmd Cmd, data []byte) []byte {
	v := c.version()
	log.Debugf("%s: %s => %s", v, cmd, hex.EncodeToString(data))

	var body []byte
	if v == V2 {
		body = make([]byte, 5, 5+len(data))
		body[0] = 0 // flags
		binary.LittleEndian.PutUint16(body[1:3], uint16(cmd))
		binary.LittleEndian.PutUint16(body[3:5], uint16(len(data)))
	} else {
		body = make([]byte, 2, 2+len(data))
		body[0] = byte(len(data))
		body[1] = byte(cmd)
	}
	body = append(body, data...)

	var buf bytes.Buffer
	buf.WriteByte('$')
	buf.WriteByte(v.marker())
	buf.WriteByte(byte(DirectionRequest))
	buf.Write(body)
	buf.WriteByte(Checksum(v, body))
	return buf.Bytes()
}
