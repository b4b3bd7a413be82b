package cmd

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/grafcli/backend"
)

var showHeaders bool

// datasourceCmd represents the datasource command
var datasourceCmd = &cobra.Command{
	Use:   "datasource <method> <url>",
	Short: "Send a raw request through the datasource channel",
	Long: `Send a request through the datasource channel. The URL is used exactly as
given: relative URLs go to the backend origin without the app sub path and
absolute URLs go straight to the data source.

Failures are returned unmodified and no alerts are shown. Only relative URLs
are retried after a session refresh.`,
	Example: `  grafcli datasource get /api/datasources/proxy/1/api/v1/query --param query=up
  grafcli datasource post http://prometheus:9090/api/v1/query --data @query.json`,
	Args: cobra.ExactArgs(2),
	RunE: runDatasource,
}

func init() {
	rootCmd.AddCommand(datasourceCmd)

	datasourceCmd.Flags().StringVarP(&requestData, "data", "d", "", "request body (JSON, @file or @-)")
	datasourceCmd.Flags().StringArrayVar(&requestParams, "param", nil, "query parameter as key=value (repeatable)")
	datasourceCmd.Flags().BoolVarP(&showHeaders, "include", "i", false, "print the status and response headers")
}

func runDatasource(cmd *cobra.Command, args []string) error {
	method := strings.ToUpper(args[0])
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return fmt.Errorf("unsupported method %q", args[0])
	}

	params, err := parseParams(requestParams)
	if err != nil {
		return err
	}
	body, err := readData(requestData, cmd.InOrStdin())
	if err != nil {
		return err
	}

	req := &backend.Request{Method: method, URL: args[1], Params: params}
	if body != nil {
		req.Body = body
	}

	resp, err := client.DatasourceRequest(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if showHeaders {
		fmt.Fprintf(out, "HTTP %d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))
		for key, values := range resp.Header {
			fmt.Fprintf(out, "%s: %s\n", key, strings.Join(values, ", "))
		}
		fmt.Fprintln(out)
	}

	if len(resp.Body) == 0 {
		return nil
	}
	return printJSON(out, resp.Body)
}
