package sink

import (
	"bufio"
	"io"
	"os"

	"mspmon/telemetry"
)

// Text writes one line per record, values joined by a separator.
type Text struct {
	w      *bufio.Writer
	sep    string
	closer io.Closer
}

// NewText returns a Text sink writing to w. Closing it doesn't
// close w.
func NewText(w io.Writer, sep string) *Text {
	if sep == "" {
		sep = telemetry.DefaultSeparator
	}
	return &Text{w: bufio.NewWriter(w), sep: sep}
}

// CreateText truncates or creates the file at path.
func CreateText(path string, sep string) (*Text, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	t := NewText(f, sep)
	t.closer = f
	return t, nil
}

func (t *Text) Emit(rec telemetry.Record) error {
	t.w.WriteString(rec.Format(t.sep))
	t.w.WriteByte('\n')
	return t.w.Flush()
}

func (t *Text) Close() error {
	err := t.w.Flush()
	if t.closer != nil {
		if cerr := t.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
