package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/grafcli/backend"
	"github.com/s0up4200/grafcli/filter"
)

var (
	searchTags      []string
	searchStarred   bool
	searchLimit     int
	searchType      string
	searchFolderIDs []int64
	filterExpr      string
	preset          string
	searchJSON      bool
)

// compiler is shared so presets used repeatedly compile once
var compiler = filter.NewCompiler(filter.DefaultCacheSize)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search dashboards and folders",
	Long: `Search dashboards and folders, optionally narrowing the results with a
filter expression or a preset from search.presets.

Filter expressions see the hit fields (Title, UID, Slug, Type, Tags,
IsStarred, FolderID, FolderTitle, URL) and the helpers hasTag, inFolder,
isDashboard, isFolder, containsFold and hasPrefixFold, e.g.

  grafcli search --filter 'hasTag("prod") and not IsStarred'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringSliceVarP(&searchTags, "tag", "t", nil, "only hits with this tag (repeatable)")
	searchCmd.Flags().BoolVar(&searchStarred, "starred", false, "only starred dashboards")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 0, "maximum number of hits (default from search.default_limit)")
	searchCmd.Flags().StringVar(&searchType, "type", "", "hit type: dash-db or dash-folder")
	searchCmd.Flags().Int64SliceVar(&searchFolderIDs, "folder-id", nil, "only hits in this folder (repeatable)")
	searchCmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression")
	searchCmd.Flags().StringVarP(&preset, "preset", "p", "", "use a preset filter from config")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print hits as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	expression, err := getFilterExpression(filterExpr, preset, cfg.Search.Presets)
	if err != nil {
		return err
	}

	// compile before searching so a typo costs no request
	var f *filter.Filter
	if expression != "" {
		f, err = compiler.Compile(expression)
		if err != nil {
			return err
		}
	}

	limit := searchLimit
	if limit == 0 {
		limit = cfg.Search.DefaultLimit
	}

	query := backend.SearchQuery{
		Tags:      searchTags,
		Starred:   searchStarred,
		Type:      searchType,
		FolderIDs: searchFolderIDs,
		Limit:     limit,
	}
	if len(args) > 0 {
		query.Query = args[0]
	}

	hits, err := client.Search(ctx, query)
	if err != nil {
		return err
	}

	if f != nil {
		logger.Debug().Str("filter", expression).Int("hits", len(hits)).Msg("Applying filter")
		hits, err = filter.Apply(ctx, f, hits)
		if err != nil {
			return err
		}
	}

	if searchJSON {
		return printJSON(out, hits)
	}

	printHits(cmd, hits)
	return nil
}

// getFilterExpression picks the filter to use. An explicit expression wins
// over a preset; neither means no filtering.
func getFilterExpression(expression, presetName string, presets map[string]string) (string, error) {
	if expression != "" {
		return expression, nil
	}
	if presetName == "" {
		return "", nil
	}
	// config keys are case-insensitive
	if presetExpr, ok := presets[strings.ToLower(presetName)]; ok {
		return presetExpr, nil
	}
	return "", fmt.Errorf("preset '%s' not found in config", presetName)
}

func printHits(cmd *cobra.Command, hits []backend.SearchHit) {
	out := cmd.OutOrStdout()

	if len(hits) == 0 {
		fmt.Fprintln(out, "No dashboards found.")
		return
	}

	hitText := "hit"
	if len(hits) != 1 {
		hitText = "hits"
	}
	fmt.Fprintf(out, "Found %d %s:\n\n", len(hits), hitText)

	fmt.Fprintln(out, strings.Repeat("━", 85))
	fmt.Fprintf(out, "%-40s %-25s %-18s %s\n", "TITLE", "SLUG", "FOLDER", "TAGS")
	fmt.Fprintln(out, strings.Repeat("━", 85))

	for _, hit := range hits {
		title := hit.Title
		if hit.IsStarred {
			title = "★ " + title
		}
		if hit.Type == "dash-folder" {
			title += "/"
		}
		fmt.Fprintf(out, "%-40s %-25s %-18s %s\n",
			truncate(title, 40), truncate(hit.Slug(), 25), truncate(hit.FolderTitle, 18), strings.Join(hit.Tags, ", "))
	}
	fmt.Fprintln(out, strings.Repeat("━", 85))
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}
