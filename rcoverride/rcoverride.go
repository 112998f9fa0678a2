// Package rcoverride receives RC channel vectors over UDP and keeps
// the latest one for the poller to forward as MSP_SET_RAW_RC.
package rcoverride

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	MinChannels = 4
	MaxChannels = 8
)

// Parse decodes a datagram holding 4 to 8 integers separated by
// whitespace or commas. Values outside the int16 range are rejected.
func Parse(data []byte) ([]int16, error) {
	fields := strings.FieldsFunc(string(data), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\r' || r == '\n'
	})
	if len(fields) < MinChannels || len(fields) > MaxChannels {
		return nil, fmt.Errorf("expecting %d-%d channels, got %d", MinChannels, MaxChannels, len(fields))
	}
	values := make([]int16, len(fields))
	for ii, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", ii+1, err)
		}
		if v < math.MinInt16 || v > math.MaxInt16 {
			return nil, fmt.Errorf("channel %d: %d out of range", ii+1, v)
		}
		values[ii] = int16(v)
	}
	return values, nil
}

// Listener stores the last valid vector received.
type Listener struct {
	// MaxAge discards vectors older than this when non zero.
	MaxAge time.Duration

	mu       sync.Mutex
	values   []int16
	received time.Time
	now      func() time.Time

	conn *net.UDPConn
}

// NewListener returns a Listener with no vector.
func NewListener() *Listener {
	return &Listener{now: time.Now}
}

// Set stores values as the latest vector.
func (l *Listener) Set(values []int16) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.values = append(l.values[:0], values...)
	l.received = l.now()
}

// Latest returns a copy of the latest vector, if there's one and it
// is not older than MaxAge.
func (l *Listener) Latest() ([]int16, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.values) == 0 {
		return nil, false
	}
	if l.MaxAge > 0 && l.now().Sub(l.received) > l.MaxAge {
		return nil, false
	}
	return append([]int16(nil), l.values...), true
}

// Addr returns the bound address, or nil before Listen.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Listen binds addr and returns once the socket is ready. Datagrams
// are handled in the background until ctx is done.
func (l *Listener) Listen(ctx context.Context, addr string) error {
	uaddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", uaddr)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
	log.Infof("listening for RC overrides on %s", conn.LocalAddr())

	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go l.serve(conn)
	return nil
}

func (l *Listener) serve(conn *net.UDPConn) {
	buf := make([]byte, 256)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Warnf("RC override listener: %v", err)
			}
			return
		}
		values, err := Parse(buf[:n])
		if err != nil {
			log.Debugf("ignoring RC override from %s: %v", from, err)
			continue
		}
		log.Tracef("RC override from %s: %v", from, values)
		l.Set(values)
	}
}
