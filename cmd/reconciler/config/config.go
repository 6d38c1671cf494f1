// Package config builds the runtime configurations for the CLI from flags,
// the optional config file and RECONCILER_* environment variables.
package config

import (
	"fmt"

	"ledger-reconciliation-service/internal/ledger"
	"ledger-reconciliation-service/internal/matcher"
	"ledger-reconciliation-service/internal/reporter"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Viper keys for the ledger connection. With the RECONCILER environment
// prefix these resolve to RECONCILER_LEDGER_TOKEN, RECONCILER_LEDGER_URL
// and RECONCILER_LEDGER_BUDGET.
const (
	KeyLedgerToken  = "ledger_token"
	KeyLedgerURL    = "ledger_url"
	KeyLedgerBudget = "ledger_budget"
)

// CreateLedgerConfig builds the ledger connection settings from viper.
func CreateLedgerConfig() (*ledger.HTTPConfig, error) {
	config := ledger.DefaultHTTPConfig()
	config.Token = viper.GetString(KeyLedgerToken)
	config.BaseURL = viper.GetString(KeyLedgerURL)
	config.BudgetID = viper.GetString(KeyLedgerBudget)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("incomplete ledger configuration: %w (set RECONCILER_LEDGER_TOKEN, RECONCILER_LEDGER_URL and RECONCILER_LEDGER_BUDGET)", err)
	}

	return config, nil
}

// CreateMatcherConfig builds a matching configuration with the given
// tolerance override. A zero tolerance keeps the default.
func CreateMatcherConfig(tolerance float64) (*matcher.Config, error) {
	if tolerance < 0 {
		return nil, fmt.Errorf("tolerance cannot be negative, got %g", tolerance)
	}

	config := matcher.DefaultConfig()
	if tolerance > 0 {
		config.Tolerance = decimal.NewFromFloat(tolerance)
	}
	return config, nil
}

// CreateReporterConfig builds a rendering configuration for the given
// output format. JSON output never uses colors.
func CreateReporterConfig(format string) (*reporter.Config, error) {
	config := reporter.DefaultConfig()

	switch format {
	case "console":
		config.Format = reporter.FormatConsole
	case "json":
		config.Format = reporter.FormatJSON
		config.UseColors = false
	default:
		return nil, fmt.Errorf("invalid output format '%s'. Valid formats: console, json", format)
	}

	return config, nil
}
