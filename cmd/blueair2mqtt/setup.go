package main

import (
	"context"
	"fmt"

	"github.com/berfenger/blueair2mqtt/internal/entry"

	"github.com/spf13/cobra"
)

var (
	flagUsername       string
	flagPassword       string
	flagNoPrefixName   bool
	flagCustomDeviceId bool
	flagEntityIds      map[string]string
	flagForce          bool
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the config entry of a Blueair account",
	Long: `Authenticate against the Blueair cloud, enumerate the devices of the
account and persist the config entry used by the bridge.

With --custom-device-id every device can get its own entity id prefix,
given as --entity-id "<name>-<uuid>=<id>". Devices without one keep the
ids chosen by Home Assistant.`,
	RunE: runSetup,
}

func init() {
	setupCmd.Flags().StringVar(&flagUsername, "username", "", "Blueair account (env: BLUEAIR_BLUEAIR_USERNAME)")
	setupCmd.Flags().StringVar(&flagPassword, "password", "", "Blueair password (env: BLUEAIR_BLUEAIR_PASSWORD)")
	setupCmd.Flags().BoolVar(&flagNoPrefixName, "no-prefix-device-name", false, "Do not prefix device names with blueair-")
	setupCmd.Flags().BoolVar(&flagCustomDeviceId, "custom-device-id", false, "Ask for custom entity ids per device")
	setupCmd.Flags().StringToStringVar(&flagEntityIds, "entity-id", nil, "Custom entity id per device")
	setupCmd.Flags().BoolVar(&flagForce, "force", false, "Replace an existing entry of the same account")
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg, err := initConfig()
	if err != nil {
		return fmt.Errorf("config errors: %w", err)
	}
	logger := newLogger(cfg)
	defer logger.Sync()

	store, err := entry.NewStore(cfg.Entry)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	input := &entry.UserInput{
		Username:         flagUsername,
		Password:         flagPassword,
		PrefixDeviceName: !flagNoPrefixName,
		CustomDeviceId:   flagCustomDeviceId,
	}
	if input.Username == "" {
		input.Username = cfg.Blueair.Username
	}
	if input.Password == "" {
		input.Password = cfg.Blueair.Password
	}

	flow := entry.NewFlow(newBlueairClient(cfg, logger), configuredAccount(ctx, store), logger)
	result := flow.StepUser(ctx, input)
	if result.Type == entry.RESULT_FORM && result.StepId == entry.STEP_CUSTOM_ENTRY_ID {
		for _, field := range result.Fields {
			if id, ok := flagEntityIds[field]; ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s => %s\n", field, id)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s => (default)\n", field)
			}
		}
		result = flow.StepCustomEntryId(ctx, flagEntityIds)
	}

	switch result.Type {
	case entry.RESULT_CREATE_ENTRY:
		if err := store.Save(ctx, *result.Entry); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created entry %q\n", result.Entry.Title)
		return nil
	case entry.RESULT_ABORT:
		return fmt.Errorf("setup aborted: %s", result.Reason)
	default:
		return fmt.Errorf("setup failed: %s", result.Errors["base"])
	}
}

// configuredAccount reports whether the stored entry belongs to the account,
// unless --force was given.
func configuredAccount(ctx context.Context, store entry.Store) func(string) bool {
	return func(uniqueId string) bool {
		if flagForce {
			return false
		}
		e, err := store.Load(ctx)
		if err != nil {
			return false
		}
		return e.UniqueId == uniqueId
	}
}
