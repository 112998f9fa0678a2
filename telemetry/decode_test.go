package telemetry

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func le16(values ...int16) []byte {
	b := make([]byte, 2*len(values))
	for ii, v := range values {
		binary.LittleEndian.PutUint16(b[2*ii:], uint16(v))
	}
	return b
}

func mustConfig(t *testing.T, cats ...Category) *Config {
	cfg, err := NewConfig(cats...)
	require.NoError(t, err)
	return cfg
}

func TestDecodeAttitude(t *testing.T) {
	cfg := mustConfig(t, Attitude)
	var s Snapshot
	assert.True(t, Decode(Attitude, le16(150, -30, 90), &s, cfg))
	assert.Equal(t, 15.0, s.AngleX)
	assert.Equal(t, -3.0, s.AngleY)
	assert.Equal(t, 95.0, s.Heading)
}

func TestDecodeHeadingWrap(t *testing.T) {
	cfg := mustConfig(t, Attitude)
	var s Snapshot
	require.True(t, Decode(Attitude, le16(0, 0, 358), &s, cfg))
	assert.Equal(t, 3.0, s.Heading)

	require.True(t, Decode(Attitude, le16(0, 0, -180), &s, cfg))
	assert.Equal(t, 185.0, s.Heading)

	cfg.WrapHeading = false
	require.True(t, Decode(Attitude, le16(0, 0, 358), &s, cfg))
	assert.Equal(t, 363.0, s.Heading)
}

func TestDecodeAttitudePartial(t *testing.T) {
	cfg := mustConfig(t, Attitude)
	s := Snapshot{AngleX: 1, AngleY: 2, Heading: 3}

	// angle Y is cut in half: only angle X is updated
	payload := le16(150, -30, 90)[:3]
	assert.False(t, Decode(Attitude, payload, &s, cfg))
	assert.Equal(t, 15.0, s.AngleX)
	assert.Equal(t, 2.0, s.AngleY)
	assert.Equal(t, 3.0, s.Heading)

	s = Snapshot{AngleX: 1, AngleY: 2, Heading: 3}
	assert.False(t, Decode(Attitude, nil, &s, cfg))
	assert.Equal(t, Snapshot{AngleX: 1, AngleY: 2, Heading: 3}, s)
}

func TestDecodeAltitude(t *testing.T) {
	cfg := mustConfig(t, Altitude)
	var s Snapshot
	alt := int32(-1234)
	payload := make([]byte, 6)
	binary.LittleEndian.PutUint32(payload, uint32(alt))
	assert.True(t, Decode(Altitude, payload, &s, cfg))
	assert.Equal(t, -12.34, s.Altitude)

	s.Altitude = 7
	assert.False(t, Decode(Altitude, payload[:3], &s, cfg))
	assert.Equal(t, 7.0, s.Altitude)
}

func TestDecodeRC(t *testing.T) {
	cfg := mustConfig(t, RC)
	var s Snapshot
	// MSP_RC carries 8 channels, only the sticks are kept
	assert.True(t, Decode(RC, le16(1500, 1490, 1510, 1100, 1000, 1000, 2000, 2000), &s, cfg))
	assert.Equal(t, Snapshot{Roll: 1500, Pitch: 1490, Yaw: 1510, Throttle: 1100}, s)

	assert.False(t, Decode(RC, le16(1600, 1600, 1600), &s, cfg))
	assert.Equal(t, Snapshot{Roll: 1600, Pitch: 1600, Yaw: 1600, Throttle: 1100}, s)
}

func TestDecodeMotors(t *testing.T) {
	cfg := mustConfig(t, Motors)
	var s Snapshot
	assert.True(t, Decode(Motors, le16(1100, 1200, 1300, 1400, 0, 0, 0, 0), &s, cfg))
	assert.Equal(t, [4]float64{1100, 1200, 1300, 1400}, s.Motors)
}

func TestDecodeRawIMU(t *testing.T) {
	cfg := mustConfig(t, RawIMU)
	var s Snapshot
	assert.True(t, Decode(RawIMU, le16(1, -2, 512, 4, 5, -6, 100, -200, 300), &s, cfg))
	assert.Equal(t, Axes{1, -2, 512}, s.Acc)
	assert.Equal(t, Axes{4, 5, -6}, s.Gyro)
	assert.Equal(t, Axes{100, -200, 300}, s.Mag)

	assert.False(t, Decode(RawIMU, le16(9, 9, 9, 9), &s, cfg))
	assert.Equal(t, Axes{9, 9, 9}, s.Acc)
	assert.Equal(t, Axes{9, 5, -6}, s.Gyro)
	assert.Equal(t, Axes{100, -200, 300}, s.Mag)
}

func TestFieldReaderStopsAtFirstGap(t *testing.T) {
	r := &fieldReader{payload: []byte{1, 0, 2}}
	v, ok := r.next(2)
	assert.True(t, ok)
	assert.Equal(t, int64(1), v)
	_, ok = r.next(2)
	assert.False(t, ok)
	// A field that would fit is still unavailable after a gap
	_, ok = r.next(1)
	assert.False(t, ok)
}
