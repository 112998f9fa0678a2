package telemetry

import (
	"math"

	log "github.com/sirupsen/logrus"

	"mspmon/msp"
)

// fieldReader consumes little endian signed fields in sequence.
// Once a field doesn't fit in the payload, every following
// read fails too.
type fieldReader struct {
	payload []byte
	off     int
	short   bool
}

func (r *fieldReader) next(size int) (int64, bool) {
	if r.short || r.off+size > len(r.payload) {
		r.short = true
		return 0, false
	}
	v := msp.DecodeSigned(r.payload[r.off : r.off+size])
	r.off += size
	return v, true
}

// fields reads len(dst) int16 fields into dst, stopping at the first
// one that's not available. It returns the number of fields read.
func (r *fieldReader) fields(dst ...*float64) int {
	for ii, p := range dst {
		v, ok := r.next(2)
		if !ok {
			return ii
		}
		*p = float64(v)
	}
	return len(dst)
}

// decoder applies a payload to the snapshot and reports whether
// every field of the category was present.
type decoder func(payload []byte, s *Snapshot, cfg *Config) bool

var decoders = map[Category]decoder{
	Attitude: decodeAttitude,
	Altitude: decodeAltitude,
	RC:       decodeRC,
	Motors:   decodeMotors,
	RawIMU:   decodeRawIMU,
}

// Decode applies the payload of a response for cat to s. Fields are
// decoded in payload order up to the first one that is missing; that
// field and every later one keep their previous value. It returns
// false if any field was missing.
func Decode(cat Category, payload []byte, s *Snapshot, cfg *Config) bool {
	dec, ok := decoders[cat]
	if !ok {
		log.Warnf("no decoder for %v", cat)
		return false
	}
	if !dec(payload, s, cfg) {
		log.Debugf("%v: short payload (%d bytes)", cat, len(payload))
		return false
	}
	return true
}

func decodeAttitude(payload []byte, s *Snapshot, cfg *Config) bool {
	r := &fieldReader{payload: payload}
	x, ok := r.next(2)
	if !ok {
		return false
	}
	s.AngleX = float64(x) / 10
	y, ok := r.next(2)
	if !ok {
		return false
	}
	s.AngleY = float64(y) / 10
	h, ok := r.next(2)
	if !ok {
		return false
	}
	s.Heading = cfg.heading(h)
	return true
}

func (c *Config) heading(raw int64) float64 {
	h := (float64(raw) + c.HeadingOffset) / c.HeadingScale
	if c.WrapHeading {
		h = math.Mod(h, 360)
		if h < 0 {
			h += 360
		}
	}
	return h
}

func decodeAltitude(payload []byte, s *Snapshot, cfg *Config) bool {
	r := &fieldReader{payload: payload}
	alt, ok := r.next(4)
	if !ok {
		return false
	}
	s.Altitude = float64(alt) / 100
	return true
}

func decodeRC(payload []byte, s *Snapshot, cfg *Config) bool {
	r := &fieldReader{payload: payload}
	return r.fields(&s.Roll, &s.Pitch, &s.Yaw, &s.Throttle) == 4
}

func decodeMotors(payload []byte, s *Snapshot, cfg *Config) bool {
	r := &fieldReader{payload: payload}
	m := &s.Motors
	return r.fields(&m[0], &m[1], &m[2], &m[3]) == len(m)
}

func decodeRawIMU(payload []byte, s *Snapshot, cfg *Config) bool {
	r := &fieldReader{payload: payload}
	return r.fields(
		&s.Acc.X, &s.Acc.Y, &s.Acc.Z,
		&s.Gyro.X, &s.Gyro.Y, &s.Gyro.Z,
		&s.Mag.X, &s.Mag.Y, &s.Mag.Z,
	) == 9
}
