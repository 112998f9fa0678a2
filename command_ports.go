package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mspmon/msp"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List the ports a flight controller can be connected to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := msp.AvailablePorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no ports found")
			return nil
		}
		for _, p := range ports {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
}
