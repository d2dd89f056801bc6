package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"PoolRisk/internal/core"
	"PoolRisk/internal/server"
)

const (
	FileKey    = "file"
	ServerKey  = "server"
	ShockKey   = "shock"
	DepositKey = "deposit"
	DaysKey    = "days"
	OutputKey  = "output"

	outputTable = "table"
	outputJSON  = "json"
)

// defaultOptions are used for offline evaluation when neither the
// snapshot file nor the flags set a value.
var defaultOptions = core.EvalOptions{
	Grid:             core.DefaultShockGrid,
	SelectedShockPct: -20,
	DepositUSD:       1000,
	HorizonDays:      core.DefaultHorizonDays,
}

func addViewFlags(flags *pflag.FlagSet) {
	flags.Float64(ShockKey, defaultOptions.SelectedShockPct, "Selected base-price move in percent")
	flags.Float64(DepositKey, defaultOptions.DepositUSD, "Hypothetical deposit for the earnings projection (USD)")
	flags.Int(DaysKey, defaultOptions.HorizonDays, "Earnings horizon in days")
	flags.StringP(OutputKey, "o", outputTable, "Output format: table or json")
}

func addServerFlag(flags *pflag.FlagSet) {
	flags.String(ServerKey, "localhost:9090", "PoolRisk gRPC address")
}

type viewConfig struct {
	Options server.ViewOptions
	Output  string
}

// parseViewFlags reads the view flags. Only flags set on the command line
// end up in Options, so file values and remote defaults still apply.
func parseViewFlags(flags *pflag.FlagSet) (*viewConfig, error) {
	shock, err := flags.GetFloat64(ShockKey)
	if err != nil {
		return nil, err
	}
	deposit, err := flags.GetFloat64(DepositKey)
	if err != nil {
		return nil, err
	}
	days, err := flags.GetInt(DaysKey)
	if err != nil {
		return nil, err
	}
	output, err := flags.GetString(OutputKey)
	if err != nil {
		return nil, err
	}
	if output != outputTable && output != outputJSON {
		return nil, fmt.Errorf("unknown output format %q", output)
	}

	v := &viewConfig{Output: output}
	if flags.Changed(ShockKey) {
		v.Options.SelectedShockPct = &shock
	}
	if flags.Changed(DepositKey) {
		v.Options.DepositUSD = &deposit
	}
	if flags.Changed(DaysKey) {
		v.Options.HorizonDays = days
	}
	return v, nil
}
