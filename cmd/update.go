package cmd

import (
	"errors"
	"fmt"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

var checkOnly bool

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update grafcli to the latest release",
	Long: `Check the configured release repository (update.repository) for a newer
release and replace the running binary with it.`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().BoolVar(&checkOnly, "check", false, "only report whether an update is available")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if version == "dev" {
		return errors.New("development builds cannot be updated")
	}

	logger.Debug().Str("repository", cfg.Update.Repository).Msg("Checking for updates")

	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(cfg.Update.Repository))
	if err != nil {
		return fmt.Errorf("failed to check for updates: %w", err)
	}
	if !found {
		return fmt.Errorf("no release found in %s for this platform", cfg.Update.Repository)
	}

	if latest.LessOrEqual(version) {
		fmt.Fprintf(out, "✓ grafcli %s is up to date\n", version)
		return nil
	}

	fmt.Fprintf(out, "New version available: %s (current %s)\n", latest.Version(), version)
	if checkOnly {
		if latest.URL != "" {
			fmt.Fprintf(out, "Release: %s\n", latest.URL)
		}
		return nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}

	if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
		return fmt.Errorf("failed to update binary: %w", err)
	}

	fmt.Fprintf(out, "✓ Updated to %s\n", latest.Version())
	return nil
}
