package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/grafcli/backend"
)

var (
	requestData   string
	requestParams []string
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api <get|post|put|delete> <path>",
	Short: "Call a backend API endpoint",
	Long: `Call any backend API endpoint through the primary channel and print the
JSON response. The path is relative to the backend, e.g. /api/org.

--data takes a JSON document, @file or @- for stdin.`,
	Example: `  grafcli api get /api/folders --param limit=10
  grafcli api post /api/folders --data '{"title":"Infra"}'`,
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"get", "post", "put", "delete"},
	RunE:      runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVarP(&requestData, "data", "d", "", "request body (JSON, @file or @-)")
	apiCmd.Flags().StringArrayVar(&requestParams, "param", nil, "query parameter as key=value (repeatable)")
}

func runAPI(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	method, path := strings.ToLower(args[0]), args[1]

	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("path must start with /, got %q", path)
	}

	params, err := parseParams(requestParams)
	if err != nil {
		return err
	}
	body, err := readData(requestData, cmd.InOrStdin())
	if err != nil {
		return err
	}

	var resp json.RawMessage
	switch method {
	case "get":
		resp, err = client.Get(ctx, path, params)
	case "post", "put", "delete":
		if body == nil && method != "delete" {
			body = json.RawMessage("{}")
		}
		req := &backend.Request{Method: strings.ToUpper(method), URL: path, Params: params}
		if body != nil {
			req.Body = body
		}
		resp, err = client.Request(ctx, req)
	default:
		return fmt.Errorf("unsupported method %q, expected one of %s", args[0],
			strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}, ", "))
	}
	if err != nil {
		return err
	}

	if len(resp) == 0 {
		return nil
	}
	return printJSON(cmd.OutOrStdout(), resp)
}
