package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/S2-group/swim-HTTP/internal/domain"
	"github.com/S2-group/swim-HTTP/internal/infra/client"
	"github.com/S2-group/swim-HTTP/internal/infra/resilience"

	"github.com/spf13/cobra"
)

// documents maps the schema subcommand argument to its route.
var documents = map[string]string{
	domain.DocMonitorSchema:           domain.PathMonitorSchema,
	domain.DocExecuteSchema:           domain.PathExecuteSchema,
	domain.DocAdaptationOptions:       domain.PathAdaptationOptions,
	domain.DocAdaptationOptionsSchema: domain.PathAdaptationOptionsSchema,
}

// newClientCommands returns the subcommands that talk to a running
// control endpoint.
func newClientCommands() []*cobra.Command {
	var (
		addr    string
		timeout time.Duration
		retries int
	)

	connect := func() *client.ControlClient {
		if addr == "" {
			addr = os.Getenv("CONTROL_ADDR")
		}
		if addr == "" {
			addr = ":4242"
		}
		if strings.HasPrefix(addr, ":") {
			addr = "localhost" + addr
		}
		return client.NewControlClient(addr, timeout,
			resilience.NewCircuitBreaker("control-client", uint32(retries)+1, timeout),
			resilience.Config{MaxRetries: retries, InitialBackoff: 100 * time.Millisecond},
		)
	}

	addFlags := func(cmd *cobra.Command) *cobra.Command {
		cmd.Flags().StringVar(&addr, "addr", "", "Control endpoint address (default CONTROL_ADDR or localhost:4242)")
		cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Per-request timeout")
		cmd.Flags().IntVar(&retries, "retries", 3, "Dial retries before giving up")
		return cmd
	}

	monitorCmd := addFlags(&cobra.Command{
		Use:   "monitor",
		Short: "Print the current monitor snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := connect().Monitor(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		},
	})

	var servers, dimmer string
	executeCmd := addFlags(&cobra.Command{
		Use:   "execute",
		Short: "Send an adaptation directive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := connect().Execute(cmd.Context(), servers, dimmer)
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		},
	})
	executeCmd.Flags().StringVar(&servers, "servers", "", "Requested server count")
	executeCmd.Flags().StringVar(&dimmer, "dimmer", "", "Requested dimmer factor")
	_ = executeCmd.MarkFlagRequired("servers")
	_ = executeCmd.MarkFlagRequired("dimmer")

	schemaCmd := addFlags(&cobra.Command{
		Use:       "schema <name>",
		Short:     "Print a schema or options document",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{domain.DocMonitorSchema, domain.DocExecuteSchema, domain.DocAdaptationOptions, domain.DocAdaptationOptionsSchema},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, ok := documents[args[0]]
			if !ok {
				return fmt.Errorf("unknown document %q", args[0])
			}
			doc, err := connect().Document(cmd.Context(), path)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(doc))
			return err
		},
	})

	return []*cobra.Command{monitorCmd, executeCmd, schemaCmd}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
