// Package sink delivers telemetry records to files, sockets and
// brokers.
package sink

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"mspmon/telemetry"
)

// Sink receives every emitted record.
type Sink interface {
	Emit(rec telemetry.Record) error
	Close() error
}

// Multi fans records out to several sinks. Emit stops at the first
// error.
type Multi []Sink

func (m Multi) Emit(rec telemetry.Record) error {
	for _, s := range m {
		if err := s.Emit(rec); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink, returning the errors joined.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Options selects the sinks built by Open. Empty fields disable
// the corresponding sink.
type Options struct {
	Stdout    bool
	Separator string
	Text      string
	CSV       string
	UDP       string
	MQTT      string
	MQTTTopic string
	SQLite    string
	WebSocket string
}

// Open builds the sinks selected by opts. names are the field names
// of the records that will be emitted.
func Open(opts Options, names []string) (Multi, error) {
	var m Multi
	fail := func(what string, err error) (Multi, error) {
		m.Close()
		return nil, fmt.Errorf("opening %s sink: %w", what, err)
	}
	if opts.Stdout {
		m = append(m, NewText(os.Stdout, opts.Separator))
	}
	if opts.Text != "" {
		s, err := CreateText(opts.Text, opts.Separator)
		if err != nil {
			return fail("text", err)
		}
		m = append(m, s)
	}
	if opts.CSV != "" {
		s, err := CreateCSV(opts.CSV, names)
		if err != nil {
			return fail("CSV", err)
		}
		m = append(m, s)
	}
	if opts.UDP != "" {
		s, err := NewUDP(opts.UDP, opts.Separator)
		if err != nil {
			return fail("UDP", err)
		}
		m = append(m, s)
	}
	if opts.MQTT != "" {
		s, err := NewMQTT(opts.MQTT, opts.MQTTTopic)
		if err != nil {
			return fail("MQTT", err)
		}
		m = append(m, s)
	}
	if opts.SQLite != "" {
		s, err := OpenSQLite(opts.SQLite, names)
		if err != nil {
			return fail("SQLite", err)
		}
		m = append(m, s)
	}
	if opts.WebSocket != "" {
		s, err := NewWebSocket(opts.WebSocket)
		if err != nil {
			return fail("websocket", err)
		}
		m = append(m, s)
	}
	if len(m) == 0 {
		log.Warnf("no outputs enabled, records will be discarded")
	}
	return m, nil
}

type message struct {
	Time   time.Time          `json:"time"`
	Fields map[string]float64 `json:"fields"`
}

func encodeJSON(rec telemetry.Record, now time.Time) ([]byte, error) {
	return json.Marshal(message{Time: now.UTC(), Fields: rec.Map()})
}
