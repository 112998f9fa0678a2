package main // import "mspmon"

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mspmon/config"
)

var (
	configPath string
	debug      bool
	trace      bool
)

var rootCmd = &cobra.Command{
	Use:   "mspmon",
	Short: "Poll flight telemetry from a MultiWii flight controller",
	Long: `mspmon requests attitude, altitude, RC, motor and IMU data from a
flight controller speaking the MultiWii Serial Protocol and emits one
record per polling cycle to stdout, files, sockets or an MQTT broker.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setLogLevel()
	},
}

func setLogLevel() {
	if trace || os.Getenv("MSPMON_TRACE") != "" {
		log.SetLevel(log.TraceLevel)
	} else if debug || os.Getenv("MSPMON_DEBUG") != "" {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, exists, err := config.LoadOrDefault(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if !exists {
		if cmd.Flags().Changed("config") {
			return config.Config{}, fmt.Errorf("config file %s not found", configPath)
		}
		log.Debugf("%s not found, using defaults", cfg.Path())
	} else {
		log.Debugf("loaded configuration from %s", cfg.Path())
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Set logging level to debug")
	rootCmd.PersistentFlags().BoolVar(&trace, "trace", false, "Set logging level to trace. Implies debug.")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
