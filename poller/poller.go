package poller

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"mspmon/msp"
	"mspmon/telemetry"
)

const (
	// MultiWii frames carry at most 255 payload bytes
	defaultMaxResponse = 256 + 6
)

type state int

const (
	stateIdle state = iota
	stateRequesting
	stateAwaiting
	stateDecoding
	stateCycleComplete
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "Idle"
	case stateRequesting:
		return "Requesting"
	case stateAwaiting:
		return "Awaiting"
	case stateDecoding:
		return "Decoding"
	case stateCycleComplete:
		return "CycleComplete"
	}
	return fmt.Sprintf("unknown state %d", int(s))
}

// OverrideSource provides the latest RC command vector to forward
// to the flight controller, if any.
type OverrideSource interface {
	Latest() ([]int16, bool)
}

// CycleResult describes a completed cycle.
type CycleResult struct {
	// Available is false when a category got no usable response.
	Available bool
	Missing   []telemetry.Category
	Duration  time.Duration
	// Elapsed is the time since the run started.
	Elapsed time.Duration
}

// Poller requests the enabled telemetry categories from a flight
// controller in a fixed order and keeps the latest values in a
// Snapshot. It owns the link exclusively and is not safe for
// concurrent use.
type Poller struct {
	link         io.ReadWriter
	cfg          *telemetry.Config
	codec        msp.Codec
	overrides    OverrideSource
	startupDelay time.Duration
	waited       bool
	maxResponse  int
	sleep        func(time.Duration)
	now          func() time.Time

	snap  telemetry.Snapshot
	state state
	start time.Time
	stats *Stats
}

type Option func(*Poller)

// WithCodec sets the codec used to build requests and parse responses.
func WithCodec(c msp.Codec) Option {
	return func(p *Poller) {
		p.codec = c
	}
}

// WithOverrides forwards the vectors from src as MSP_SET_RAW_RC at
// the start of each cycle.
func WithOverrides(src OverrideSource) Option {
	return func(p *Poller) {
		p.overrides = src
	}
}

// WithStartupDelay makes Run wait d before the first cycle, giving
// the controller time to calibrate after the port is opened.
func WithStartupDelay(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.startupDelay = d
		}
	}
}

// WithMaxResponse limits the bytes read per response.
func WithMaxResponse(n int) Option {
	return func(p *Poller) {
		if n > 0 {
			p.maxResponse = n
		}
	}
}

// WithClock replaces time.Sleep and time.Now.
func WithClock(sleep func(time.Duration), now func() time.Time) Option {
	return func(p *Poller) {
		if sleep != nil {
			p.sleep = sleep
		}
		if now != nil {
			p.now = now
		}
	}
}

// New returns a Poller exchanging frames over link.
func New(link io.ReadWriter, cfg *telemetry.Config, opts ...Option) *Poller {
	p := &Poller{
		link:        link,
		cfg:         cfg,
		codec:       msp.Codec{Version: msp.V1},
		maxResponse: defaultMaxResponse,
		sleep:       time.Sleep,
		now:         time.Now,
		stats:       newStats(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Snapshot returns the snapshot updated by each cycle.
func (p *Poller) Snapshot() *telemetry.Snapshot {
	return &p.snap
}

// Stats returns the cycle statistics.
func (p *Poller) Stats() *Stats {
	return p.stats
}

func (p *Poller) setState(s state, cmd msp.Cmd) {
	log.Tracef("%s -> %s (%s)", p.state, s, cmd)
	p.state = s
}

func (p *Poller) write(data []byte) error {
	for _, b := range data {
		log.Tracef("W >> %03d = 0x%02x = %q", b, b, string([]byte{b}))
	}
	_, err := p.link.Write(data)
	return err
}

// Exchange sends cmd, with values as payload if not nil, waits for
// the configured message delay and reads the response. It returns
// false if no valid response for cmd arrived. Link failures are
// returned as *TransportError.
func (p *Poller) Exchange(cmd msp.Cmd, values []int16) (*msp.Frame, bool, error) {
	p.setState(stateRequesting, cmd)
	if err := msp.Flush(p.link); err != nil {
		return nil, false, &TransportError{Op: "flush", Cmd: cmd, Err: err}
	}
	var req []byte
	if values != nil {
		req = p.codec.Command(cmd, values)
	} else {
		req = p.codec.Request(cmd)
	}
	if err := p.write(req); err != nil {
		return nil, false, &TransportError{Op: "write", Cmd: cmd, Err: err}
	}

	p.setState(stateAwaiting, cmd)
	p.sleep(p.cfg.MessageDelay)

	p.setState(stateDecoding, cmd)
	raw, err := msp.ReadResponse(p.link, p.maxResponse)
	if err != nil {
		return nil, false, &TransportError{Op: "read", Cmd: cmd, Err: err}
	}
	frame, ok := p.codec.Parse(raw)
	if !ok {
		log.Debugf("%s unavailable", cmd)
		return nil, false, nil
	}
	if frame.Cmd != cmd {
		log.Debugf("expecting response to %s, got %s instead: %s", cmd, frame.Cmd, hex.EncodeToString(raw))
		return nil, false, nil
	}
	return frame, true, nil
}

func (p *Poller) forwardOverride() error {
	if p.overrides == nil {
		return nil
	}
	values, ok := p.overrides.Latest()
	if !ok {
		return nil
	}
	// The acknowledgement carries no data
	_, ok, err := p.Exchange(msp.CmdSetRawRC, values)
	if err != nil {
		return err
	}
	if !ok {
		log.Debugf("%s %v not acknowledged", msp.CmdSetRawRC, values)
	}
	return nil
}

// Cycle polls every enabled category once. A category without a
// usable response marks the cycle as not available but doesn't stop
// it; a link failure does.
func (p *Poller) Cycle() (CycleResult, error) {
	start := p.now()
	if p.start.IsZero() {
		p.start = start
	}
	if err := p.forwardOverride(); err != nil {
		return CycleResult{}, err
	}
	res := CycleResult{Available: true}
	for _, c := range p.cfg.Categories() {
		frame, ok, err := p.Exchange(c.Cmd(), nil)
		if err != nil {
			return CycleResult{}, err
		}
		if !ok || !telemetry.Decode(c, frame.Payload, &p.snap, p.cfg) {
			res.Available = false
			res.Missing = append(res.Missing, c)
		}
	}
	p.setState(stateCycleComplete, 0)
	end := p.now()
	res.Duration = end.Sub(start)
	res.Elapsed = end.Sub(p.start)
	p.stats.add(res.Duration, res.Available)
	p.setState(stateIdle, 0)
	return res, nil
}

// WaitStartup waits for the startup delay, once. It returns
// ctx.Err() if ctx is done first.
func (p *Poller) WaitStartup(ctx context.Context) error {
	if p.startupDelay <= 0 || p.waited {
		return nil
	}
	log.Infof("waiting %s for the flight controller", p.startupDelay)
	timer := time.NewTimer(p.startupDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}
	p.waited = true
	return nil
}

// Run waits for the startup delay and polls until ctx is done,
// calling emit with the record of every cycle that had data for all
// enabled categories. ctx is only checked between cycles. It returns nil when ctx is done, or the first
// transport or emit error.
func (p *Poller) Run(ctx context.Context, emit func(telemetry.Record) error) error {
	defer p.stats.log()
	if err := p.WaitStartup(ctx); err != nil {
		return nil
	}
	p.start = p.now()
	for {
		if ctx.Err() != nil {
			return nil
		}
		res, err := p.Cycle()
		if err != nil {
			return err
		}
		rec, ok := telemetry.Assemble(&p.snap, res.Available, res.Duration.Seconds(), res.Elapsed.Seconds(), p.cfg)
		if !ok {
			log.Debugf("skipping cycle, missing %v", res.Missing)
			continue
		}
		if err := emit(rec); err != nil {
			return err
		}
	}
}
