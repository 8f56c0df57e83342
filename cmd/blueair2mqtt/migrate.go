package main

import (
	"fmt"

	"github.com/berfenger/blueair2mqtt/internal/entry"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Upgrade the stored config entry to the current layout",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := initConfig()
	if err != nil {
		return fmt.Errorf("config errors: %w", err)
	}

	store, err := entry.NewStore(cfg.Entry)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	e, err := store.Load(ctx)
	if err != nil {
		return err
	}
	migrated, changed, err := entry.Migrate(*e)
	if err != nil {
		return err
	}
	if !changed {
		fmt.Fprintf(cmd.OutOrStdout(), "entry already at %d.%d\n", e.Version, e.MinorVersion)
		return nil
	}
	if err := store.Save(ctx, migrated); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "entry migrated from %d.%d to %d.%d\n",
		e.Version, e.MinorVersion, migrated.Version, migrated.MinorVersion)
	return nil
}
