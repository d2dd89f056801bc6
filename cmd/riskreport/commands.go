package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"PoolRisk/internal/core"
	"PoolRisk/internal/server"
)

func evalCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "eval",
		Short: "Evaluates a snapshot file offline",
		Long: "Evaluates a JSON snapshot with the fields pool_id, positions, " +
			"interest_rate_config, pool_state and options, without a running service.",
		Args: cobra.NoArgs,
		RunE: evalFunc,
	}
	flags := c.Flags()
	flags.StringP(FileKey, "f", "", "Snapshot file, or - for stdin (required)")
	addViewFlags(flags)
	c.MarkFlagRequired(FileKey)
	return c
}

func evalFunc(c *cobra.Command, _ []string) error {
	flags := c.Flags()
	view, err := parseViewFlags(flags)
	if err != nil {
		return err
	}
	path, err := flags.GetString(FileKey)
	if err != nil {
		return err
	}

	req, err := loadRequest(path)
	if err != nil {
		return err
	}

	engine, err := core.NewEngine(1, nil)
	if err != nil {
		return err
	}
	opts := view.Options.Apply(req.Options.Apply(defaultOptions))
	report, err := engine.Evaluate(core.Request{
		PoolID:           req.PoolID,
		Positions:        req.Positions,
		Grid:             opts.Grid,
		Buckets:          opts.Buckets,
		Rates:            req.Rates,
		Pool:             req.Pool,
		SelectedShockPct: opts.SelectedShockPct,
		DepositUSD:       opts.DepositUSD,
		HorizonDays:      opts.HorizonDays,
	})
	if err != nil {
		return err
	}
	return render(c.OutOrStdout(), view.Output, &server.ReportResponse{PoolID: req.PoolID, Report: report})
}

func poolCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "pool <pool_id>",
		Short: "Fetches the current report of a pool from a running service",
		Args:  cobra.ExactArgs(1),
		RunE:  poolFunc,
	}
	flags := c.Flags()
	addServerFlag(flags)
	addViewFlags(flags)
	return c
}

func poolFunc(c *cobra.Command, args []string) error {
	flags := c.Flags()
	view, err := parseViewFlags(flags)
	if err != nil {
		return err
	}
	client, closeFn, err := dial(c)
	if err != nil {
		return err
	}
	defer closeFn()

	resp, err := client.GetPoolReport(c.Context(), &server.GetPoolReportRequest{
		PoolID:  args[0],
		Options: view.Options,
	})
	if err != nil {
		return err
	}
	return render(c.OutOrStdout(), view.Output, resp)
}

func poolsCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "pools",
		Short: "Lists the pools known to a running service",
		Args:  cobra.NoArgs,
		RunE:  poolsFunc,
	}
	flags := c.Flags()
	addServerFlag(flags)
	flags.StringP(OutputKey, "o", outputTable, "Output format: table or json")
	return c
}

func poolsFunc(c *cobra.Command, _ []string) error {
	output, err := c.Flags().GetString(OutputKey)
	if err != nil {
		return err
	}
	client, closeFn, err := dial(c)
	if err != nil {
		return err
	}
	defer closeFn()

	resp, err := client.ListPools(c.Context())
	if err != nil {
		return err
	}
	if output == outputJSON {
		return writeJSON(c.OutOrStdout(), resp)
	}
	return renderPools(c.OutOrStdout(), resp)
}

func dial(c *cobra.Command) (*server.Client, func(), error) {
	addr, err := c.Flags().GetString(ServerKey)
	if err != nil {
		return nil, nil, err
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return server.NewClient(conn), func() { conn.Close() }, nil
}

func loadRequest(path string) (*server.EvaluateRequest, error) {
	f := os.Stdin
	if path != "-" {
		var err error
		if f, err = os.Open(path); err != nil {
			return nil, err
		}
		defer f.Close()
	}

	var req server.EvaluateRequest
	if err := json.NewDecoder(f).Decode(&req); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &req, nil
}
