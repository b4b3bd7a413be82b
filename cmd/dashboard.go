package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/grafcli/backend"
)

// maxConcurrentFetches bounds dashboard get fan-out
const maxConcurrentFetches = 4

var (
	outputDir string
	overwrite bool
	noConfirm bool
)

// dashboardCmd groups dashboard subcommands
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Export and import dashboards",
}

var dashboardGetCmd = &cobra.Command{
	Use:   "get <slug>...",
	Short: "Fetch dashboards by slug",
	Long: `Fetch one or more dashboards by slug and print them as JSON. With
--output-dir each dashboard is written to <dir>/<slug>.json instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDashboardGet,
}

var dashboardSaveCmd = &cobra.Command{
	Use:   "save <file>",
	Short: "Create or update a dashboard from a JSON file",
	Long: `Save a dashboard from a JSON file. The file may hold the dashboard model
itself or the output of "dashboard get".

Existing dashboards are only replaced with --overwrite, which asks for
confirmation unless --no-confirm is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runDashboardSave,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dashboardCmd.AddCommand(dashboardGetCmd, dashboardSaveCmd)

	dashboardGetCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "write each dashboard to this directory")

	dashboardSaveCmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing dashboard")
	dashboardSaveCmd.Flags().BoolVar(&noConfirm, "no-confirm", false, "skip confirmation prompt")
}

func runDashboardGet(cmd *cobra.Command, args []string) error {
	results := make([]*backend.DashboardWithMeta, len(args))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(maxConcurrentFetches)

	for i, slug := range args {
		g.Go(func() error {
			dash, err := client.GetDashboard(ctx, slug)
			if err != nil {
				return fmt.Errorf("failed to fetch %s: %w", slug, err)
			}
			results[i] = dash
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if outputDir != "" {
		return writeDashboards(cmd, outputDir, args, results)
	}

	if len(results) == 1 {
		return printJSON(cmd.OutOrStdout(), results[0])
	}
	return printJSON(cmd.OutOrStdout(), results)
}

func writeDashboards(cmd *cobra.Command, dir string, slugs []string, dashboards []*backend.DashboardWithMeta) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for i, dash := range dashboards {
		name := dash.Meta.Slug
		if name == "" {
			name = strings.TrimPrefix(slugs[i], "db/")
		}

		data, err := json.MarshalIndent(dash, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", name, err)
		}

		path := filepath.Join(dir, name+".json")
		if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s → %s\n", name, path)
	}
	return nil
}

func runDashboardSave(cmd *cobra.Command, args []string) error {
	dashboard, err := loadDashboardFile(args[0])
	if err != nil {
		return err
	}

	if overwrite && !noConfirm {
		ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
			fmt.Sprintf("Replace the existing dashboard with %s if there is one?", args[0]))
		if err != nil {
			return err
		}
		if !ok {
			logger.Info().Msg("Save cancelled")
			return nil
		}
	}

	result, err := client.SaveDashboard(cmd.Context(), dashboard, backend.SaveOptions{Overwrite: overwrite})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved %s (version %d)", result.Slug, result.Version)
	if result.URL != "" {
		fmt.Fprintf(cmd.OutOrStdout(), " %s%s", cfg.Backend.URL, result.URL)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

// loadDashboardFile reads a dashboard model. A file produced by
// "dashboard get" is unwrapped to its dashboard field.
func loadDashboardFile(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dashboard file: %w", err)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("dashboard file must contain a JSON object: %w", err)
	}

	if inner, ok := probe["dashboard"]; ok {
		if _, hasMeta := probe["meta"]; hasMeta {
			return inner, nil
		}
	}
	return json.RawMessage(data), nil
}
