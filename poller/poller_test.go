package poller

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mspmon/msp"
	"mspmon/telemetry"
)

// fakeFC answers each MSPv1 request with the canned response for
// its command, if any.
type fakeFC struct {
	responses map[msp.Cmd][]byte
	writes    [][]byte
	pending   bytes.Buffer
	readErr   error
	writeErr  error
}

func newFakeFC() *fakeFC {
	return &fakeFC{responses: make(map[msp.Cmd][]byte)}
}

func (f *fakeFC) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.writes = append(f.writes, append([]byte(nil), p...))
	if len(p) > 4 {
		f.pending.Write(f.responses[msp.Cmd(p[4])])
	}
	return len(p), nil
}

func (f *fakeFC) Read(p []byte) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	if f.pending.Len() == 0 {
		return 0, nil
	}
	return f.pending.Read(p)
}

func response(cmd msp.Cmd, payload []byte) []byte {
	body := append([]byte{byte(len(payload)), byte(cmd)}, payload...)
	frame := append([]byte{'$', 'M', '>'}, body...)
	return append(frame, msp.Checksum(msp.V1, body))
}

func le16(values ...int16) []byte {
	var b []byte
	for _, v := range values {
		b = append(b, byte(uint16(v)), byte(uint16(v)>>8))
	}
	return b
}

type fakeClock struct {
	t      time.Time
	step   time.Duration
	sleeps []time.Duration
}

func (c *fakeClock) sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func newTestPoller(t *testing.T, fc *fakeFC, cats ...telemetry.Category) (*Poller, *fakeClock) {
	cfg, err := telemetry.NewConfig(cats...)
	require.NoError(t, err)
	clock := &fakeClock{t: time.Unix(1000, 0), step: 10 * time.Millisecond}
	return New(fc, cfg, WithClock(clock.sleep, clock.now)), clock
}

func TestCycle(t *testing.T) {
	fc := newFakeFC()
	fc.responses[msp.CmdAttitude] = response(msp.CmdAttitude, le16(123, 150, -10))
	fc.responses[msp.CmdRC] = response(msp.CmdRC, le16(1500, 1500, 1500, 1000))
	p, clock := newTestPoller(t, fc, telemetry.RC, telemetry.Attitude)

	res, err := p.Cycle()
	require.NoError(t, err)
	assert.True(t, res.Available)
	assert.Empty(t, res.Missing)
	assert.Equal(t, 10*time.Millisecond, res.Duration)

	// Attitude goes first regardless of configuration order
	require.Len(t, fc.writes, 2)
	assert.Equal(t, msp.BuildRequest(msp.CmdAttitude), fc.writes[0])
	assert.Equal(t, msp.BuildRequest(msp.CmdRC), fc.writes[1])
	assert.Equal(t, []time.Duration{telemetry.DefaultMessageDelay, telemetry.DefaultMessageDelay}, clock.sleeps)

	s := p.Snapshot()
	assert.InDelta(t, 12.3, s.AngleX, 1e-9)
	assert.InDelta(t, 15.0, s.AngleY, 1e-9)
	assert.InDelta(t, 355.0, s.Heading, 1e-9)
	assert.Equal(t, 1000.0, s.Throttle)
	assert.Equal(t, 1, p.Stats().Cycles())
	assert.Equal(t, 0, p.Stats().Skipped())
}

func TestCycleEmptyResponse(t *testing.T) {
	fc := newFakeFC()
	fc.responses[msp.CmdAttitude] = response(msp.CmdAttitude, le16(123, 150, -10))
	p, _ := newTestPoller(t, fc, telemetry.Attitude, telemetry.RC)

	res, err := p.Cycle()
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Equal(t, []telemetry.Category{telemetry.RC}, res.Missing)
	assert.InDelta(t, 12.3, p.Snapshot().AngleX, 1e-9)
	assert.Equal(t, 1, p.Stats().Skipped())

	// Without RC enabled the same controller yields records
	fc = newFakeFC()
	fc.responses[msp.CmdAttitude] = response(msp.CmdAttitude, le16(123, 150, -10))
	p, _ = newTestPoller(t, fc, telemetry.Attitude)
	res, err = p.Cycle()
	require.NoError(t, err)
	assert.True(t, res.Available)
}

func TestCycleTruncatedResponse(t *testing.T) {
	fc := newFakeFC()
	fc.responses[msp.CmdAttitude] = response(msp.CmdAttitude, le16(123, 150, -10))
	p, _ := newTestPoller(t, fc, telemetry.Attitude)
	_, err := p.Cycle()
	require.NoError(t, err)
	before := *p.Snapshot()

	// Declares 10 payload bytes, carries 6
	fc.responses[msp.CmdAttitude] = []byte{'$', 'M', '>', 0x0a, 0x6c, 0x96, 0x00, 0xe2, 0xff, 0x0b, 0x0e}
	res, err := p.Cycle()
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Equal(t, before, *p.Snapshot())
}

func TestCycleWrongCommand(t *testing.T) {
	fc := newFakeFC()
	fc.responses[msp.CmdAltitude] = response(msp.CmdAttitude, le16(1, 2, 3))
	p, _ := newTestPoller(t, fc, telemetry.Altitude)
	res, err := p.Cycle()
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Equal(t, telemetry.Snapshot{}, *p.Snapshot())
}

func TestCycleTransportError(t *testing.T) {
	unplugged := errors.New("device unplugged")
	fc := newFakeFC()
	fc.readErr = unplugged
	p, _ := newTestPoller(t, fc, telemetry.Attitude)
	_, err := p.Cycle()
	require.Error(t, err)
	assert.ErrorIs(t, err, unplugged)
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "read", terr.Op)
	assert.Equal(t, msp.CmdAttitude, terr.Cmd)

	fc = newFakeFC()
	fc.writeErr = unplugged
	p, _ = newTestPoller(t, fc, telemetry.Attitude)
	_, err = p.Cycle()
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "write", terr.Op)
}

type staticOverrides []int16

func (s staticOverrides) Latest() ([]int16, bool) {
	return s, len(s) > 0
}

func TestCycleForwardsOverride(t *testing.T) {
	fc := newFakeFC()
	fc.responses[msp.CmdSetRawRC] = response(msp.CmdSetRawRC, nil)
	fc.responses[msp.CmdAttitude] = response(msp.CmdAttitude, le16(0, 0, 0))
	cfg, err := telemetry.NewConfig(telemetry.Attitude)
	require.NoError(t, err)
	values := staticOverrides{1500, 1500, 1500, 1000}
	p := New(fc, cfg, WithOverrides(values), WithClock(func(time.Duration) {}, nil))

	res, err := p.Cycle()
	require.NoError(t, err)
	assert.True(t, res.Available)
	require.Len(t, fc.writes, 2)
	assert.Equal(t, msp.BuildCommand(msp.CmdSetRawRC, values), fc.writes[0])
	assert.Equal(t, msp.BuildRequest(msp.CmdAttitude), fc.writes[1])

	// An unacknowledged override doesn't affect availability
	fc.writes = nil
	delete(fc.responses, msp.CmdSetRawRC)
	res, err = p.Cycle()
	require.NoError(t, err)
	assert.True(t, res.Available)
	assert.Len(t, fc.writes, 2)

	fc.writes = nil
	p.overrides = staticOverrides(nil)
	_, err = p.Cycle()
	require.NoError(t, err)
	assert.Len(t, fc.writes, 1)
}

func TestRun(t *testing.T) {
	fc := newFakeFC()
	fc.responses[msp.CmdAttitude] = response(msp.CmdAttitude, le16(123, 150, 3595))
	p, _ := newTestPoller(t, fc, telemetry.Attitude)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var records []telemetry.Record
	err := p.Run(ctx, func(rec telemetry.Record) error {
		records = append(records, rec)
		if len(records) == 3 {
			cancel()
		}
		return nil
	})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "0.0 0.0 12.3 15.0 0.0", records[0].Format(" "))
	assert.Equal(t, "0.0 0.1 12.3 15.0 0.0", records[2].Format(" "))
	assert.Equal(t, 3, p.Stats().Cycles())
}

func TestRunSkipsUnavailable(t *testing.T) {
	fc := newFakeFC()
	fc.responses[msp.CmdAttitude] = response(msp.CmdAttitude, le16(123, 150, -10))
	p, _ := newTestPoller(t, fc, telemetry.Attitude, telemetry.RC)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	emitted := 0
	cycles := 0
	p.now = func() time.Time {
		return time.Unix(0, 0)
	}
	p.sleep = func(time.Duration) {
		cycles++
		if cycles == 10 {
			cancel()
		}
	}
	err := p.Run(ctx, func(telemetry.Record) error {
		emitted++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, emitted)
	assert.Equal(t, 5, p.Stats().Skipped())
}

func TestRunErrors(t *testing.T) {
	fc := newFakeFC()
	fc.responses[msp.CmdAttitude] = response(msp.CmdAttitude, le16(0, 0, 0))
	p, _ := newTestPoller(t, fc, telemetry.Attitude)
	full := errors.New("disk full")
	err := p.Run(context.Background(), func(telemetry.Record) error {
		return full
	})
	assert.ErrorIs(t, err, full)

	fc.readErr = errors.New("eof")
	err = p.Run(context.Background(), func(telemetry.Record) error {
		return nil
	})
	var terr *TransportError
	assert.ErrorAs(t, err, &terr)
}

func TestRunStartupDelayCancelled(t *testing.T) {
	fc := newFakeFC()
	cfg, err := telemetry.NewConfig(telemetry.Attitude)
	require.NoError(t, err)
	p := New(fc, cfg, WithStartupDelay(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, p.Run(ctx, func(telemetry.Record) error { return nil }))
	assert.Empty(t, fc.writes)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Awaiting", stateAwaiting.String())
	assert.Equal(t, "CycleComplete", stateCycleComplete.String())
	assert.Equal(t, "unknown state 42", state(42).String())
}

func TestWaitStartup(t *testing.T) {
	cfg, err := telemetry.NewConfig(telemetry.Attitude)
	require.NoError(t, err)
	p := New(newFakeFC(), cfg, WithStartupDelay(time.Millisecond))
	require.NoError(t, p.WaitStartup(context.Background()))

	// Only the first call waits
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, p.WaitStartup(ctx))

	p = New(newFakeFC(), cfg, WithStartupDelay(time.Hour))
	assert.ErrorIs(t, p.WaitStartup(ctx), context.Canceled)
}
