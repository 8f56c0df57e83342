package main

import (
	"os"

	"github.com/spf13/cobra"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:   "blueair2mqtt",
	Short: "Blueair air purifiers to MQTT bridge",
	Long: `blueair2mqtt polls the Blueair cloud for the purifiers of one account,
publishes their state to MQTT with Home Assistant discovery and forwards
commands back to the devices.

Without a subcommand the bridge is started.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// the flag wins over the environment
		if flagConfig != "" {
			os.Setenv("CONFIG_FILE", flagConfig)
		}
	},
	RunE: runBridge,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (env: CONFIG_FILE)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
