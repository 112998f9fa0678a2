package telemetry

import (
	"fmt"
	"time"
)

const (
	// DefaultMessageDelay gives the controller time to answer
	// before the response is read.
	DefaultMessageDelay = 20 * time.Millisecond
	DefaultPrecision    = 1
	DefaultSeparator    = " "
	// DefaultHeadingOffset corrects the declination bias of
	// the reference airframe's magnetometer calibration.
	DefaultHeadingOffset = 5
	DefaultHeadingScale  = 1
)

// Config selects what is polled each cycle and how records are
// formatted. It's built once at startup and must not be modified
// while a poller is using it.
type Config struct {
	categories []Category
	enabled    map[Category]bool

	// MessageDelay is the settle time between writing a
	// request and reading its response.
	MessageDelay time.Duration
	// Precision is the number of decimals of emitted values.
	Precision int
	Separator string

	// The heading is computed as (raw + HeadingOffset) / HeadingScale
	// and wrapped into [0, 360) when WrapHeading is set.
	HeadingOffset float64
	HeadingScale  float64
	WrapHeading   bool
}

// NewConfig returns a Config polling the given categories with
// default timing and formatting. Categories are always polled in
// PollOrder, regardless of the order they're passed in.
func NewConfig(categories ...Category) (*Config, error) {
	cfg := &Config{
		enabled:       make(map[Category]bool),
		MessageDelay:  DefaultMessageDelay,
		Precision:     DefaultPrecision,
		Separator:     DefaultSeparator,
		HeadingOffset: DefaultHeadingOffset,
		HeadingScale:  DefaultHeadingScale,
		WrapHeading:   true,
	}
	for _, c := range categories {
		if _, ok := categoryNames[c]; !ok {
			return nil, fmt.Errorf("invalid telemetry category %d", int(c))
		}
		cfg.enabled[c] = true
	}
	if len(cfg.enabled) == 0 {
		return nil, fmt.Errorf("no telemetry categories enabled")
	}
	for _, c := range PollOrder {
		if cfg.enabled[c] {
			cfg.categories = append(cfg.categories, c)
		}
	}
	return cfg, nil
}

// Categories returns the enabled categories in poll order.
func (c *Config) Categories() []Category {
	return append([]Category(nil), c.categories...)
}

// Enabled returns whether cat is polled.
func (c *Config) Enabled(cat Category) bool {
	return c.enabled[cat]
}

// Validate checks the tunables
func (c *Config) Validate() error {
	if c.MessageDelay < 0 {
		return fmt.Errorf("negative message delay %s", c.MessageDelay)
	}
	if c.Precision < 0 || c.Precision > 10 {
		return fmt.Errorf("precision %d out of range 0-10", c.Precision)
	}
	if c.Separator == "" {
		return fmt.Errorf("empty record separator")
	}
	if c.HeadingScale == 0 {
		return fmt.Errorf("heading scale can't be zero")
	}
	return nil
}
