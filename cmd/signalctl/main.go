// signalctl calls operations on a running CryptoSatX server.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	models "CryptoSatX/internal/domain/models"
	xhttp "CryptoSatX/pkg/http"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	timeout   time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "signalctl",
		Short:         "Call CryptoSatX operations over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", envOr("CRYPTOSATX_URL", "http://localhost:8080"), "server base URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "request timeout")

	rootCmd.AddCommand(opsCmd())
	rootCmd.AddCommand(callCmd())
	rootCmd.AddCommand(signalCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func opsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List registered operations by namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp struct {
				Data struct {
					Namespaces map[string][]string `json:"namespaces"`
				} `json:"data"`
			}
			if err := send(cmd.Context(), xhttp.MethodGet, "/api/operations", nil, &resp); err != nil {
				return err
			}
			printNamespaces(cmd.OutOrStdout(), resp.Data.Namespaces)
			return nil
		},
	}
}

func callCmd() *cobra.Command {
	var pairs []string
	cmd := &cobra.Command{
		Use:   "call <operation>",
		Short: "Dispatch one operation and print the envelope",
		Example: `  signalctl call binance.price --arg symbol=BTC
  signalctl call signals.batch --arg symbols=BTC,ETH,SOL`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opArgs, err := parseArgs(pairs)
			if err != nil {
				return err
			}
			req := models.DispatchRequest{Operation: args[0], Args: opArgs}
			var resp models.DispatchResponse
			if err := send(cmd.Context(), xhttp.MethodPost, "/api/dispatch", req, &resp); err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), resp); err != nil {
				return err
			}
			if !resp.OK {
				return fmt.Errorf("%s: %s", resp.Meta.ErrorType, resp.ErrorMessage())
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&pairs, "arg", "a", nil, "operation argument as key=value (repeatable)")
	return cmd
}

func signalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signal <symbol>",
		Short: "Fetch the composite signal for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp xhttp.APIResponse
			if err := send(cmd.Context(), xhttp.MethodGet, "/api/signals/"+url.PathEscape(strings.ToUpper(args[0])), nil, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp.Data)
		},
	}
}

func send(ctx context.Context, method, path string, body, dest interface{}) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client := xhttp.NewClient(xhttp.WithTimeout(timeout), xhttp.WithUserAgent("signalctl/1.0"))
	err := client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  method,
		URL:     strings.TrimRight(serverURL, "/") + path,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	}, dest)

	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return fmt.Errorf("server returned %d: %s", se.Code, strings.TrimSpace(se.Body))
	}
	return err
}

// parseArgs turns key=value pairs into dispatch arguments. Numbers and
// booleans are decoded; everything else stays a string.
func parseArgs(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid argument %q, want key=value", p)
		}
		out[k] = parseValue(strings.TrimSpace(v))
	}
	return out, nil
}

func parseValue(v string) any {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return float64(n)
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}

func printNamespaces(w io.Writer, ns map[string][]string) {
	keys := make([]string, 0, len(ns))
	for k := range ns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s\n", k)
		for _, op := range ns[k] {
			fmt.Fprintf(w, "  %s\n", op)
		}
	}
}

func printJSON(w io.Writer, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, b, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err = buf.WriteTo(w)
	return err
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
