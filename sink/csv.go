package sink

import (
	"encoding/csv"
	"io"
	"os"

	"mspmon/telemetry"
)

// CSV writes a header row followed by one row per record.
type CSV struct {
	w      *csv.Writer
	closer io.Closer
}

// NewCSV writes the header to w and returns the sink.
func NewCSV(w io.Writer, names []string) (*CSV, error) {
	c := &CSV{w: csv.NewWriter(w)}
	if err := c.write(names); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateCSV truncates or creates the file at path.
func CreateCSV(path string, names []string) (*CSV, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	c, err := NewCSV(f, names)
	if err != nil {
		f.Close()
		return nil, err
	}
	c.closer = f
	return c, nil
}

func (c *CSV) write(row []string) error {
	if err := c.w.Write(row); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *CSV) Emit(rec telemetry.Record) error {
	return c.write(rec.Strings())
}

func (c *CSV) Close() error {
	c.w.Flush()
	err := c.w.Error()
	if c.closer != nil {
		if cerr := c.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
