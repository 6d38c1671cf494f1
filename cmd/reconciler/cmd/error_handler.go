package cmd

import (
	"fmt"
	"os"

	"ledger-reconciliation-service/internal/reporter"
	"ledger-reconciliation-service/pkg/errors"
	"ledger-reconciliation-service/pkg/logger"

	"github.com/spf13/viper"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError prints a user-facing explanation of err and returns the
// process exit code.
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Error("Command failed")

	if reconcilerErr, ok := errors.AsReconcilerError(err); ok {
		return h.handleReconcilerError(reconcilerErr)
	}

	return h.handleGenericError(err)
}

// handleReconcilerError handles ReconcilerError with detailed context
func (h *CLIErrorHandler) handleReconcilerError(err *errors.ReconcilerError) int {
	// Normalization failures carry diagnostics the reporter knows how to
	// render: column detections, row errors and the retry template.
	if err.Category == errors.CategoryNormalization {
		reporter.RenderNormalizationFailure(err, os.Stderr)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

		if err.Suggestion != "" {
			fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", err.Suggestion)
		}

		fmt.Fprintf(os.Stderr, "\n%s\n", h.getCategoryHelp(err.Category))
	}

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

// handleGenericError handles non-ReconcilerError types
func (h *CLIErrorHandler) handleGenericError(err error) int {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	if h.verbose {
		fmt.Fprintf(os.Stderr, "\nFor more details, check the logs or run with --verbose flag\n")
	}

	return 1
}

// getCategoryHelp returns category-specific help text
func (h *CLIErrorHandler) getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryInput:
		return `Input error help:
• Check the command-line flags and their values
• Use 'reconciler accounts' to list valid account ids and names
• Verify dates use YYYY-MM-DD and amounts are plain decimal numbers
• Use 'reconciler reconcile --help' to see all available options`

	case errors.CategoryLedger:
		return `Ledger error help:
• Check that RECONCILER_LEDGER_TOKEN, RECONCILER_LEDGER_URL and
  RECONCILER_LEDGER_BUDGET are set and valid
• Verify the budgeting platform is reachable from this machine
• The request is retried automatically; persistent failures usually mean
  an outage or an invalid token`

	case errors.CategoryReconciliation:
		return `Reconciliation error help:
• Check data quality in the statement export
• Try adjusting the amount tolerance (--tolerance)
• Verify the statement date matches the period being reconciled`

	default:
		return `For more help:
• Use 'reconciler --help' for general help
• Use 'reconciler reconcile --help' for command-specific help
• Report bugs or ask for help on the project repository`
	}
}
