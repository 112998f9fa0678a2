package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mspmon/config"
	"mspmon/msp"
	"mspmon/poller"
)

var infoWait time.Duration

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the flight controller identity and sensors",
	Args:  cobra.NoArgs,
	RunE:  runInfo,
}

func init() {
	infoCmd.Flags().StringP("port", "p", "", "Serial port or tcp:host:port")
	infoCmd.Flags().DurationVar(&infoWait, "wait", 0, "Time to wait for the flight controller after opening the port")
	rootCmd.AddCommand(infoCmd)
}

// openPoller opens the configured link and returns a poller over it.
func openPoller(cfg *config.Config, opts ...poller.Option) (msp.Link, *poller.Poller, error) {
	tc, err := cfg.Telemetry()
	if err != nil {
		return nil, nil, err
	}
	link, err := msp.Open(cfg.Link.Port, cfg.LinkOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", cfg.Link.Port, err)
	}
	opts = append([]poller.Option{poller.WithCodec(cfg.Codec())}, opts...)
	return link, poller.New(link, tc, opts...), nil
}

func identify(p *poller.Poller) (*msp.IdentMessage, error) {
	f, ok, err := p.Exchange(msp.CmdIdent, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no response to %s", msp.CmdIdent)
	}
	return msp.DecodeIdent(f.Payload)
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Link.Port = port
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	link, p, err := openPoller(&cfg, poller.WithStartupDelay(infoWait))
	if err != nil {
		return err
	}
	defer link.Close()
	if err := p.WaitStartup(ctx); err != nil {
		return err
	}

	ident, err := identify(p)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Firmware:     MultiWii %s\n", ident.FirmwareVersion())
	fmt.Fprintf(out, "Type:         %s\n", ident.MultiType)
	fmt.Fprintf(out, "MSP version:  %d\n", ident.MSPVersion)
	fmt.Fprintf(out, "Capabilities: 0x%08x\n", ident.Capability)

	f, ok, err := p.Exchange(msp.CmdStatus, nil)
	if err != nil {
		return err
	}
	if !ok {
		log.Warnf("no response to %s", msp.CmdStatus)
		return nil
	}
	status, err := msp.DecodeStatus(f.Payload)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Cycle time:   %dµs\n", status.CycleTime)
	fmt.Fprintf(out, "I2C errors:   %d\n", status.I2CErrors)
	fmt.Fprintf(out, "Sensors:      %s\n", status.SensorNames())
	return nil
}
