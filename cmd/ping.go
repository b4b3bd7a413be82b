package cmd

import (
	"fmt"

	"github.com/blang/semver"
	"github.com/spf13/cobra"
)

// pingCmd represents the ping command
var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check the session and backend version",
	Long: `Probe the session endpoint, then fetch the backend's health and check
its version against backend.min_version when one is configured.`,
	Args: cobra.NoArgs,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Testing connection to %s%s...\n", cfg.Backend.URL, cfg.Backend.AppSubURL)

	if err := client.LoginPing(ctx); err != nil {
		return fmt.Errorf("session check failed: %w", err)
	}
	fmt.Fprintln(out, "✓ Session is valid")

	info, err := client.Health(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	fmt.Fprintf(out, "\nBackend:\n")
	fmt.Fprintf(out, "- Version: %s\n", info.Version)
	fmt.Fprintf(out, "- Database: %s\n", info.Database)
	if info.Commit != "" {
		fmt.Fprintf(out, "- Commit: %s\n", info.Commit)
	}

	if cfg.Backend.MinVersion == "" {
		return nil
	}
	if err := checkVersion(info.Version, cfg.Backend.MinVersion); err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Version satisfies minimum %s\n", cfg.Backend.MinVersion)
	return nil
}

// checkVersion fails when actual is older than minimum
func checkVersion(actual, minimum string) error {
	want, err := semver.ParseTolerant(minimum)
	if err != nil {
		return fmt.Errorf("invalid minimum version %q: %w", minimum, err)
	}
	got, err := semver.ParseTolerant(actual)
	if err != nil {
		return fmt.Errorf("backend reported an unparseable version %q: %w", actual, err)
	}
	if got.LT(want) {
		return fmt.Errorf("backend version %s is older than the required %s", got, want)
	}
	return nil
}
