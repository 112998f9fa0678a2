// Package config loads the mspmon TOML configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	toml "github.com/pelletier/go-toml/v2"

	"mspmon/msp"
	"mspmon/sink"
	"mspmon/telemetry"
)

const defaultFileName = ".mspmon.toml"

type Config struct {
	Link     LinkConfig     `toml:"link"`
	MSP      MSPConfig      `toml:"msp"`
	Poll     PollConfig     `toml:"poll"`
	Output   OutputConfig   `toml:"output"`
	Override OverrideConfig `toml:"override"`

	path string `toml:"-"`
}

type LinkConfig struct {
	// Port is a serial device or tcp:host:port
	Port        string `toml:"port"`
	BaudRate    int    `toml:"baud_rate"`
	ReadTimeout string `toml:"read_timeout"`
}

type MSPConfig struct {
	Version        int  `toml:"version"`
	VerifyChecksum bool `toml:"verify_checksum"`
}

type PollConfig struct {
	Categories    []string `toml:"categories"`
	MessageDelay  string   `toml:"message_delay"`
	StartupDelay  string   `toml:"startup_delay"`
	Precision     int      `toml:"precision"`
	Separator     string   `toml:"separator"`
	HeadingOffset float64  `toml:"heading_offset"`
	HeadingScale  float64  `toml:"heading_scale"`
	WrapHeading   bool     `toml:"wrap_heading"`
	MinFCVersion  string   `toml:"min_fc_version,omitempty"`
}

type OutputConfig struct {
	Stdout    bool   `toml:"stdout"`
	Text      string `toml:"text,omitempty"`
	CSV       string `toml:"csv,omitempty"`
	UDP       string `toml:"udp,omitempty"`
	MQTT      string `toml:"mqtt,omitempty"`
	MQTTTopic string `toml:"mqtt_topic"`
	SQLite    string `toml:"sqlite,omitempty"`
	WebSocket string `toml:"websocket,omitempty"`
}

type OverrideConfig struct {
	// Listen is the UDP address for RC overrides, empty to disable
	Listen string `toml:"listen,omitempty"`
	MaxAge string `toml:"max_age"`
}

func Default() Config {
	return Config{
		Link: LinkConfig{
			Port:        "/dev/ttyUSB0",
			BaudRate:    msp.DefaultBaudRate,
			ReadTimeout: "50ms",
		},
		MSP: MSPConfig{
			Version: int(msp.V1),
		},
		Poll: PollConfig{
			Categories:    []string{"attitude", "altitude", "rc", "motors", "raw_imu"},
			MessageDelay:  telemetry.DefaultMessageDelay.String(),
			StartupDelay:  "8s",
			Precision:     telemetry.DefaultPrecision,
			Separator:     telemetry.DefaultSeparator,
			HeadingOffset: telemetry.DefaultHeadingOffset,
			HeadingScale:  telemetry.DefaultHeadingScale,
			WrapHeading:   true,
		},
		Output: OutputConfig{
			Stdout:    true,
			MQTTTopic: sink.DefaultMQTTTopic,
		},
		Override: OverrideConfig{
			MaxAge: "1s",
		},
	}
}

// DefaultPath returns ~/.mspmon.toml, or a path relative to the
// working directory if the home directory can't be determined.
func DefaultPath() string {
	home, err := homedir.Dir()
	if err != nil {
		return defaultFileName
	}
	return filepath.Join(home, defaultFileName)
}

// LoadOrDefault reads the configuration at path on top of the
// defaults. The returned bool reports whether the file exists; a
// missing file is not an error. A leading ~ in path is expanded.
func LoadOrDefault(path string) (Config, bool, error) {
	cfg := Default()
	expanded, err := homedir.Expand(path)
	if err != nil {
		return Config{}, false, fmt.Errorf("config path: %w", err)
	}
	cfg.path = expanded

	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.normalize()
			return cfg, false, nil
		}
		return Config{}, false, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, true, fmt.Errorf("parse config %s: %w", expanded, err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, true, fmt.Errorf("%s: %w", expanded, err)
	}
	return cfg, true, nil
}

// Save writes cfg as TOML to path.
func (cfg *Config) Save(path string) error {
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Path returns the file the configuration was loaded from.
func (cfg *Config) Path() string {
	return cfg.path
}

func (cfg *Config) normalize() {
	cfg.Link.Port = strings.TrimSpace(cfg.Link.Port)
	if cfg.Link.BaudRate <= 0 {
		cfg.Link.BaudRate = msp.DefaultBaudRate
	}
	for ii, c := range cfg.Poll.Categories {
		cfg.Poll.Categories[ii] = strings.ToLower(strings.TrimSpace(c))
	}
	if cfg.Poll.Separator == "" {
		cfg.Poll.Separator = telemetry.DefaultSeparator
	}
	if cfg.Output.MQTTTopic == "" {
		cfg.Output.MQTTTopic = sink.DefaultMQTTTopic
	}
}

func parseDuration(name string, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %s", name, s)
	}
	return d, nil
}

func (cfg *Config) Validate() error {
	if cfg.Link.Port == "" {
		return fmt.Errorf("link.port is empty")
	}
	for _, d := range []struct{ name, value string }{
		{"link.read_timeout", cfg.Link.ReadTimeout},
		{"poll.message_delay", cfg.Poll.MessageDelay},
		{"poll.startup_delay", cfg.Poll.StartupDelay},
		{"override.max_age", cfg.Override.MaxAge},
	} {
		if _, err := parseDuration(d.name, d.value); err != nil {
			return err
		}
	}
	if v := msp.Version(cfg.MSP.Version); v != msp.V1 && v != msp.V2 {
		return fmt.Errorf("msp.version must be 1 or 2, got %d", cfg.MSP.Version)
	}
	if _, err := cfg.Telemetry(); err != nil {
		return err
	}
	return nil
}

// Telemetry returns the poll configuration.
func (cfg *Config) Telemetry() (*telemetry.Config, error) {
	cats := make([]telemetry.Category, 0, len(cfg.Poll.Categories))
	for _, name := range cfg.Poll.Categories {
		c, err := telemetry.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("poll.categories: %w", err)
		}
		cats = append(cats, c)
	}
	tc, err := telemetry.NewConfig(cats...)
	if err != nil {
		return nil, fmt.Errorf("poll.categories: %w", err)
	}
	if tc.MessageDelay, err = parseDuration("poll.message_delay", cfg.Poll.MessageDelay); err != nil {
		return nil, err
	}
	tc.Precision = cfg.Poll.Precision
	tc.Separator = cfg.Poll.Separator
	tc.HeadingOffset = cfg.Poll.HeadingOffset
	tc.HeadingScale = cfg.Poll.HeadingScale
	tc.WrapHeading = cfg.Poll.WrapHeading
	if err := tc.Validate(); err != nil {
		return nil, fmt.Errorf("poll: %w", err)
	}
	return tc, nil
}

// StartupDelay returns the wait before the first cycle.
func (cfg *Config) StartupDelay() time.Duration {
	d, _ := parseDuration("poll.startup_delay", cfg.Poll.StartupDelay)
	return d
}

// Codec returns the MSP codec.
func (cfg *Config) Codec() msp.Codec {
	return msp.Codec{Version: msp.Version(cfg.MSP.Version), VerifyChecksum: cfg.MSP.VerifyChecksum}
}

// LinkOptions returns the options used to open the link.
func (cfg *Config) LinkOptions() msp.LinkOptions {
	timeout, _ := parseDuration("link.read_timeout", cfg.Link.ReadTimeout)
	return msp.LinkOptions{BaudRate: cfg.Link.BaudRate, ReadTimeout: timeout}
}

// MaxOverrideAge returns how long an RC override vector stays valid.
func (cfg *Config) MaxOverrideAge() time.Duration {
	d, _ := parseDuration("override.max_age", cfg.Override.MaxAge)
	return d
}

// Sinks returns the output options.
func (cfg *Config) Sinks() sink.Options {
	return sink.Options{
		Stdout:    cfg.Output.Stdout,
		Separator: cfg.Poll.Separator,
		Text:      cfg.Output.Text,
		CSV:       cfg.Output.CSV,
		UDP:       cfg.Output.UDP,
		MQTT:      cfg.Output.MQTT,
		MQTTTopic: cfg.Output.MQTTTopic,
		SQLite:    cfg.Output.SQLite,
		WebSocket: cfg.Output.WebSocket,
	}
}
