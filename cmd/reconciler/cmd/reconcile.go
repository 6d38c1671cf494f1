package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"ledger-reconciliation-service/cmd/reconciler/config"
	"ledger-reconciliation-service/internal/ledger"
	"ledger-reconciliation-service/internal/normalizer"
	"ledger-reconciliation-service/internal/reconciler"
	"ledger-reconciliation-service/internal/reporter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the reconcile command
var (
	accountQuery     string
	statementFile    string
	statementBalance float64
	statementDate    string
	tolerance        float64
	outputFormat     string
	outputFile       string

	// Column hint flags for statements whose layout cannot be inferred
	dateColumn        string
	amountColumn      string
	descriptionColumn string
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a bank statement against a budgeting account",
	Long: `Reconcile compares a bank statement export against the transactions
recorded for one account in your budgeting platform. The statement's column
layout is inferred from its header and data; when inference fails, name the
columns explicitly with the column hint flags.

Examples:
  # Basic reconciliation
  reconciler reconcile --account Checking --statement-file march.csv \
    --statement-balance 2454.33 --statement-date 2024-03-31

  # Read the statement from stdin
  cat march.csv | reconciler reconcile --account Checking \
    --statement-balance 2454.33 --statement-date 2024-03-31 --statement-file -

  # Explicit column hints and a custom tolerance
  reconciler reconcile --account acc-1 --statement-file export.csv \
    --statement-balance 910.00 --statement-date 2024-03-31 \
    --date-column Posted --amount-column Amt --description-column Ref \
    --tolerance 0.05

  # JSON report written to a file
  reconciler reconcile --account Checking --statement-file march.csv \
    --statement-balance 2454.33 --statement-date 2024-03-31 \
    --output-format json --output-file report.json`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Required flags
	reconcileCmd.Flags().StringVarP(&accountQuery, "account", "a", "", "account id or name (required)")
	reconcileCmd.Flags().StringVarP(&statementFile, "statement-file", "s", "", "path to the statement export, or '-' for stdin (required)")
	reconcileCmd.Flags().Float64VarP(&statementBalance, "statement-balance", "b", 0, "statement ending balance (required)")
	reconcileCmd.Flags().StringVarP(&statementDate, "statement-date", "d", "", "statement date, YYYY-MM-DD (required)")

	// Matching flags
	reconcileCmd.Flags().Float64VarP(&tolerance, "tolerance", "t", 0, "amount matching tolerance (default 0.01)")

	// Column hint flags
	reconcileCmd.Flags().StringVar(&dateColumn, "date-column", "", "statement column holding the transaction date")
	reconcileCmd.Flags().StringVar(&amountColumn, "amount-column", "", "statement column holding the amount")
	reconcileCmd.Flags().StringVar(&descriptionColumn, "description-column", "", "statement column holding the description")

	// Output flags
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	reconcileCmd.MarkFlagRequired("account")
	reconcileCmd.MarkFlagRequired("statement-file")
	reconcileCmd.MarkFlagRequired("statement-balance")
	reconcileCmd.MarkFlagRequired("statement-date")
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	if accountQuery == "" {
		return fmt.Errorf("account is required")
	}
	if statementFile == "" {
		return fmt.Errorf("statement-file is required")
	}

	if statementFile != "-" {
		if err := validateFileExists(statementFile, "statement file"); err != nil {
			return err
		}
	}

	if _, err := time.Parse("2006-01-02", statementDate); err != nil {
		return fmt.Errorf("invalid statement date format. Use YYYY-MM-DD: %w", err)
	}

	if tolerance < 0 {
		return fmt.Errorf("tolerance cannot be negative")
	}

	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[outputFormat] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json", outputFormat)
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}
	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting reconciliation...\n")
		fmt.Fprintf(os.Stderr, "Account: %s\n", accountQuery)
		fmt.Fprintf(os.Stderr, "Statement file: %s\n", statementFile)
		fmt.Fprintf(os.Stderr, "Output format: %s\n", outputFormat)
	}

	statementText, err := readStatement(statementFile)
	if err != nil {
		return err
	}

	ledgerConfig, err := config.CreateLedgerConfig()
	if err != nil {
		return err
	}

	client, err := ledger.NewHTTPClient(ledgerConfig)
	if err != nil {
		return err
	}

	matcherConfig, err := config.CreateMatcherConfig(tolerance)
	if err != nil {
		return err
	}

	service, err := reconciler.NewService(client, matcherConfig)
	if err != nil {
		return fmt.Errorf("failed to create reconciliation service: %w", err)
	}

	report, err := service.Reconcile(ctx, buildReconcileRequest(statementText))
	if err != nil {
		return err
	}

	reporterConfig, err := config.CreateReporterConfig(outputFormat)
	if err != nil {
		return err
	}
	if outputFile != "" {
		reporterConfig.UseColors = false
	}

	rep, err := reporter.New(reporterConfig)
	if err != nil {
		return fmt.Errorf("failed to create reporter: %w", err)
	}

	output := os.Stdout
	if outputFile != "" {
		output, err = os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	}

	if err := rep.Render(report, output); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "\nReconciliation completed: %s\n", report.Summary.Status)
		fmt.Fprintf(os.Stderr, "Matched %d of %d statement transactions.\n",
			report.Counts.ExactMatches+report.Counts.FuzzyMatches, report.Counts.TotalStatement)
	}

	return nil
}

// buildReconcileRequest assembles the reconciliation request from the
// validated flags. The tolerance flag rides on the request so the matcher
// and the analyzer both honor it.
func buildReconcileRequest(statementText string) *reconciler.Request {
	// Validated in PreRunE.
	date, _ := time.Parse("2006-01-02", statementDate)

	request := &reconciler.Request{
		AccountQuery:     accountQuery,
		StatementText:    statementText,
		StatementBalance: decimal.NewFromFloat(statementBalance),
		StatementDate:    date,
		Hints:            columnHints(),
	}
	if tolerance > 0 {
		request.Tolerance = decimal.NewFromFloat(tolerance)
	}
	return request
}

// columnHints builds normalizer hints from the column flags, or nil when
// none were given.
func columnHints() *normalizer.ColumnHints {
	if dateColumn == "" && amountColumn == "" && descriptionColumn == "" {
		return nil
	}
	return &normalizer.ColumnHints{
		DateColumn:        dateColumn,
		AmountColumn:      amountColumn,
		DescriptionColumn: descriptionColumn,
	}
}

func readStatement(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read statement from stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read statement file: %w", err)
	}
	return string(data), nil
}
