package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"PoolRisk/internal/core"
	"PoolRisk/internal/server"
)

func render(w io.Writer, output string, resp *server.ReportResponse) error {
	if output == outputJSON {
		return writeJSON(w, resp)
	}
	return renderReport(w, resp)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderReport(w io.Writer, resp *server.ReportResponse) error {
	r := resp.Report
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Pool\t%s\n", resp.PoolID)
	if resp.PositionsAsOf != nil {
		fmt.Fprintf(tw, "Positions as of\t%s (seq %d)\n", resp.PositionsAsOf.UTC().Format("2006-01-02 15:04:05"), resp.PositionSequence)
	}
	fmt.Fprintf(tw, "Positions\t%d\n", r.TotalPositions)
	fmt.Fprintf(tw, "Total debt\t%s\n", usd(r.TotalDebtUSD))
	fmt.Fprintf(tw, "Liquidatable now\t%d (%s at risk)\n", r.Current.LiquidatableCount, usd(r.Current.DebtAtRiskUSD))
	fmt.Fprintf(tw, "At %+.1f%%\t%d (%s at risk)\n", r.Selected.PriceChangePct, r.Selected.LiquidatableCount, usd(r.Selected.DebtAtRiskUSD))

	if fl := r.FirstLiquidation; fl != nil {
		approx := ""
		if fl.Approximate {
			approx = " (approx.)"
		}
		fmt.Fprintf(tw, "First liquidation\t%+.2f%% (%s)%s\n", fl.PriceChangePct, fl.PositionID, approx)
	} else {
		fmt.Fprintf(tw, "First liquidation\tnone\n")
	}
	if cl := r.Cliff; cl != nil {
		fmt.Fprintf(tw, "Cliff\t%+.1f%%: %s -> %s (x%s)\n", cl.PriceChangePct, usd(cl.DebtBeforeUSD), usd(cl.DebtAfterUSD), cl.Multiplier)
	} else {
		fmt.Fprintf(tw, "Cliff\tnone\n")
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Band\tPositions\tDebt\t")
	for _, b := range r.Histogram {
		fmt.Fprintf(tw, "%s\t%d\t%s\t\n", b.Label, b.Count, usd(b.TotalDebtUSD))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.Horizons) > 0 {
		fmt.Fprintln(w)
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintf(tw, "Days\tLow\tCurrent\tHigh\t\n")
		for _, e := range r.Horizons {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t\n", e.Days, usd(e.Low), usd(e.Current), usd(e.High))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if e := r.Earnings; e != nil {
			fmt.Fprintf(w, "\n%s over %d days: %s (APY %.2f%% .. %.2f%%)\n",
				usd(e.DepositUSD), e.Days, usd(e.Current), e.APY.Pessimistic, e.APY.Optimistic)
		}
	}

	fmt.Fprintln(w)
	return renderCurve(w, r.Curve)
}

func renderCurve(w io.Writer, curve []core.SimulationPoint) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Move\tLiquidatable\tDebt at risk\t")
	for _, p := range curve {
		fmt.Fprintf(tw, "%+.0f%%\t%d\t%s\t\n", p.PriceChangePct, p.LiquidatableCount, usd(p.DebtAtRiskUSD))
	}
	return tw.Flush()
}

func renderPools(w io.Writer, resp *server.ListPoolsResponse) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Pool\tPositions\tSeq\tRates\tAs of")
	for _, p := range resp.Pools {
		rates := "no"
		if p.HasRates {
			rates = "yes"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", p.PoolID, p.Positions, p.PositionSequence, rates, p.PositionsAsOf.UTC().Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func usd(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
