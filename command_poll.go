package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mspmon/config"
	"mspmon/poller"
	"mspmon/rcoverride"
	"mspmon/sink"
	"mspmon/telemetry"
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll telemetry and emit one record per cycle",
	Long: `poll requests every enabled telemetry category in turn and emits a
record once all of them answered within the same cycle. Cycles with a
missing or malformed response produce no record.`,
	Args: cobra.NoArgs,
	RunE: runPoll,
}

func init() {
	f := pollCmd.Flags()
	f.StringP("port", "p", "", "Serial port or tcp:host:port")
	f.Int("baud", 0, "Serial baud rate")
	f.Int("msp-version", 0, "MSP framing version (1 or 2)")
	f.Bool("strict", false, "Reject responses with a missing or invalid checksum")
	f.StringSliceP("categories", "c", nil, "Telemetry categories to poll (attitude, altitude, rc, motors, raw_imu)")
	f.String("message-delay", "", "Delay between a request and reading its response")
	f.String("startup-delay", "", "Delay before the first cycle")
	f.Int("precision", 0, "Decimals of emitted values")
	f.String("separator", "", "Text record separator")
	f.String("min-fc-version", "", "Refuse to poll firmware older than this version")
	f.Bool("no-stdout", false, "Don't print records to stdout")
	f.String("text", "", "Write records to a text file")
	f.String("csv", "", "Write records to a CSV file")
	f.String("udp", "", "Send records to host:port over UDP")
	f.String("mqtt", "", "Publish records to an MQTT broker URL")
	f.String("mqtt-topic", "", "MQTT topic")
	f.String("sqlite", "", "Store records in a SQLite database")
	f.String("websocket", "", "Serve records over websocket on this address")
	f.String("override", "", "Listen for RC override vectors on this UDP address")
	rootCmd.AddCommand(pollCmd)
}

// applyPollFlags overrides the file configuration with the flags
// given on the command line.
func applyPollFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	num := func(name string, dst *int) {
		if f.Changed(name) {
			*dst, _ = f.GetInt(name)
		}
	}
	str("port", &cfg.Link.Port)
	num("baud", &cfg.Link.BaudRate)
	num("msp-version", &cfg.MSP.Version)
	if f.Changed("strict") {
		cfg.MSP.VerifyChecksum, _ = f.GetBool("strict")
	}
	if f.Changed("categories") {
		cfg.Poll.Categories, _ = f.GetStringSlice("categories")
	}
	str("message-delay", &cfg.Poll.MessageDelay)
	str("startup-delay", &cfg.Poll.StartupDelay)
	num("precision", &cfg.Poll.Precision)
	str("separator", &cfg.Poll.Separator)
	str("min-fc-version", &cfg.Poll.MinFCVersion)
	if noStdout, _ := f.GetBool("no-stdout"); noStdout {
		cfg.Output.Stdout = false
	}
	str("text", &cfg.Output.Text)
	str("csv", &cfg.Output.CSV)
	str("udp", &cfg.Output.UDP)
	str("mqtt", &cfg.Output.MQTT)
	str("mqtt-topic", &cfg.Output.MQTTTopic)
	str("sqlite", &cfg.Output.SQLite)
	str("websocket", &cfg.Output.WebSocket)
	str("override", &cfg.Override.Listen)
}

func runPoll(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyPollFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	tc, err := cfg.Telemetry()
	if err != nil {
		return err
	}
	log.Infof("polling %s on %s", strings.Join(categoryNames(tc), ", "), cfg.Link.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []poller.Option{poller.WithStartupDelay(cfg.StartupDelay())}
	if cfg.Override.Listen != "" {
		overrides := rcoverride.NewListener()
		overrides.MaxAge = cfg.MaxOverrideAge()
		if err := overrides.Listen(ctx, cfg.Override.Listen); err != nil {
			return err
		}
		opts = append(opts, poller.WithOverrides(overrides))
	}

	link, p, err := openPoller(&cfg, opts...)
	if err != nil {
		return err
	}
	defer link.Close()

	if cfg.Poll.MinFCVersion != "" {
		if err := p.WaitStartup(ctx); err != nil {
			return nil
		}
		ident, err := identify(p)
		if err != nil {
			return err
		}
		if err := ident.CheckMinVersion(cfg.Poll.MinFCVersion); err != nil {
			return err
		}
		log.Infof("connected to MultiWii %s (%s)", ident.FirmwareVersion(), ident.MultiType)
	}

	sinks, err := sink.Open(cfg.Sinks(), telemetry.FieldNames(tc))
	if err != nil {
		return err
	}
	defer sinks.Close()

	err = p.Run(ctx, sinks.Emit)
	var terr *poller.TransportError
	if errors.As(err, &terr) {
		log.Errorf("lost connection to the flight controller: %v", terr)
	}
	return err
}

func categoryNames(tc *telemetry.Config) []string {
	var names []string
	for _, c := range tc.Categories() {
		names = append(names, c.String())
	}
	return names
}
