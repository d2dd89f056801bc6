// Command riskreport evaluates pool risk offline from a snapshot file, or
// fetches reports from a running PoolRisk service.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	c := &cobra.Command{
		Use:           "riskreport",
		Short:         "Stress-test lending pool positions",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	c.AddCommand(evalCommand(), poolCommand(), poolsCommand())
	return c
}
