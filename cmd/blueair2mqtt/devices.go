package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/berfenger/blueair2mqtt/internal/entry"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the devices of the configured account",
	RunE:  runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	cfg, err := initConfig()
	if err != nil {
		return fmt.Errorf("config errors: %w", err)
	}
	logger := newLogger(cfg)
	defer logger.Sync()

	ctx := cmd.Context()
	username, password := cfg.Blueair.Username, cfg.Blueair.Password
	// the stored entry wins over the config credentials
	if store, err := entry.NewStore(cfg.Entry); err == nil {
		data, err := entry.LoadCurrent(ctx, store)
		switch {
		case err == nil:
			username, password = data.UserAccount.Username, data.UserAccount.Password
		case !errors.Is(err, entry.ErrEntryNotFound):
			return err
		}
	}

	client := newBlueairClient(cfg, logger)
	if err := client.Authenticate(ctx, username, password); err != nil {
		return err
	}
	devices, err := client.GetDevices(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "UUID\tNAME\tMAC\tMODEL")
	for _, d := range devices {
		model := "-"
		if info, err := client.GetInfo(ctx, d.UUID); err == nil {
			if compatibility, ok := info["compatibility"].(string); ok {
				model = compatibility
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.UUID, d.Name, d.MAC, model)
	}
	return w.Flush()
}
