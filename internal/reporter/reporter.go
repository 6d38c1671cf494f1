// Package reporter renders reconciliation reports for people and programs.
//
// Two formats are supported:
//   - Console: sectioned human-readable output with a colored verdict line
//   - JSON: the report structure encoded as indented JSON
//
// Console output is bounded: the match list is sampled and the whole report
// is truncated past a configurable character budget so a pathological
// statement cannot flood a terminal. The package also renders normalization
// failure diagnostics, turning the column detections and row errors carried
// on a normalization error into an actionable retry message.
package reporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"ledger-reconciliation-service/internal/models"
	"ledger-reconciliation-service/internal/normalizer"

	apperrors "ledger-reconciliation-service/pkg/errors"

	"github.com/fatih/color"
)

// OutputFormat selects how a report is rendered.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON:
		return true
	default:
		return false
	}
}

// truncationMarker closes a console report that exceeded its character budget.
const truncationMarker = "... [report truncated]"

// maxRowErrorsShown bounds the row errors listed in a normalization
// failure message.
const maxRowErrorsShown = 5

// Config holds report rendering options.
type Config struct {
	Format OutputFormat `json:"format"`

	// MaxReportChars caps the console report length. Output past the cap is
	// replaced by a truncation marker. Zero or negative disables the cap.
	MaxReportChars int `json:"max_report_chars"`

	// MaxMatchSamples caps how many matched pairs the console report lists.
	MaxMatchSamples int `json:"max_match_samples"`

	UseColors bool `json:"use_colors"`
}

// DefaultConfig returns the default rendering configuration.
func DefaultConfig() *Config {
	return &Config{
		Format:          FormatConsole,
		MaxReportChars:  10000,
		MaxMatchSamples: 10,
		UseColors:       true,
	}
}

// Validate validates the rendering configuration
func (c *Config) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.MaxMatchSamples < 0 {
		return fmt.Errorf("max match samples must not be negative, got %d", c.MaxMatchSamples)
	}
	return nil
}

// Reporter renders reconciliation reports.
type Reporter struct {
	config *Config
}

// New creates a reporter with the given configuration. A nil configuration
// selects the defaults.
func New(config *Config) (*Reporter, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reporter configuration: %w", err)
	}
	return &Reporter{config: config}, nil
}

// Render writes the report to the writer in the configured format.
func (r *Reporter) Render(report *models.ReconciliationReport, writer io.Writer) error {
	if report == nil {
		return fmt.Errorf("report cannot be nil")
	}

	switch r.config.Format {
	case FormatConsole:
		return r.renderConsole(report, writer)
	case FormatJSON:
		return r.renderJSON(report, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", r.config.Format)
	}
}

func (r *Reporter) renderJSON(report *models.ReconciliationReport, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// renderConsole builds the full report in memory so the character budget
// can be applied before anything reaches the writer.
func (r *Reporter) renderConsole(report *models.ReconciliationReport, writer io.Writer) error {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "RECONCILIATION REPORT\n")
	fmt.Fprintf(&buf, "Run:       %s\n", report.RunID)
	fmt.Fprintf(&buf, "Account:   %s (%s)\n", report.AccountName, report.AccountID)
	fmt.Fprintf(&buf, "Statement: %s\n", report.StatementDate.Format("2006-01-02"))
	fmt.Fprintf(&buf, "Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	fmt.Fprintf(&buf, "=== BALANCES ===\n")
	fmt.Fprintf(&buf, "Statement Balance: %s\n", report.StatementBalance.StringFixed(2))
	fmt.Fprintf(&buf, "Ledger Balance:    %s\n", report.LedgerBalance.StringFixed(2))
	fmt.Fprintf(&buf, "Difference:        %s\n\n", report.BalanceDifference.StringFixed(2))

	fmt.Fprintf(&buf, "=== MATCHING ===\n")
	r.printCounts(report.Counts, &buf)
	fmt.Fprintf(&buf, "\n")

	fmt.Fprintf(&buf, "=== VERDICT ===\n")
	fmt.Fprintf(&buf, "Status:     %s\n", r.verdictLabel(report.Summary.Status))
	fmt.Fprintf(&buf, "Confidence: %.1f%%\n", report.Summary.ConfidenceScore*100)
	if !report.Summary.LargestDiscrepancy.IsZero() {
		fmt.Fprintf(&buf, "Largest Discrepancy: %s\n", report.Summary.LargestDiscrepancy.StringFixed(2))
	}
	fmt.Fprintf(&buf, "\n")

	if len(report.Summary.Recommendations) > 0 {
		fmt.Fprintf(&buf, "=== RECOMMENDATIONS ===\n")
		for _, rec := range report.Summary.Recommendations {
			fmt.Fprintf(&buf, "  - %s\n", rec)
		}
		fmt.Fprintf(&buf, "\n")
	}

	if len(report.Discrepancies) > 0 {
		fmt.Fprintf(&buf, "=== DISCREPANCIES ===\n")
		r.printDiscrepancies(report.Discrepancies, &buf)
		fmt.Fprintf(&buf, "\n")
	}

	matched := matchedPairs(report.Matches)
	if len(matched) > 0 && r.config.MaxMatchSamples > 0 {
		fmt.Fprintf(&buf, "=== MATCHED TRANSACTIONS ===\n")
		r.printMatchSample(matched, &buf)
	}

	return r.writeBounded(buf.String(), writer)
}

// writeBounded applies the character budget and flushes to the writer.
func (r *Reporter) writeBounded(report string, writer io.Writer) error {
	if r.config.MaxReportChars > 0 && len(report) > r.config.MaxReportChars {
		cut := r.config.MaxReportChars - len(truncationMarker) - 1
		if cut < 0 {
			cut = 0
		}
		// Cut on a line boundary when one is near.
		if idx := strings.LastIndexByte(report[:cut], '\n'); idx > 0 {
			cut = idx + 1
		}
		report = report[:cut] + truncationMarker + "\n"
	}
	_, err := io.WriteString(writer, report)
	return err
}

func (r *Reporter) printCounts(counts models.MatchCounts, writer io.Writer) {
	matched := counts.ExactMatches + counts.FuzzyMatches
	fmt.Fprintf(writer, "Ledger Transactions:    %d\n", counts.TotalLedger)
	fmt.Fprintf(writer, "Statement Transactions: %d\n", counts.TotalStatement)
	fmt.Fprintf(writer, "Matched:                %d (exact %d, fuzzy %d)\n",
		matched, counts.ExactMatches, counts.FuzzyMatches)
	fmt.Fprintf(writer, "Unmatched Ledger:       %d\n", counts.UnmatchedLedger)
	fmt.Fprintf(writer, "Unmatched Statement:    %d\n", counts.UnmatchedStatement)
}

// verdictLabel returns the status with a colored indicator when colors
// are enabled.
func (r *Reporter) verdictLabel(status models.ReconciliationStatus) string {
	if !r.config.UseColors {
		return string(status)
	}

	switch status {
	case models.StatusBalanced:
		return color.GreenString("✓ %s", status)
	case models.StatusNeedsReview:
		return color.YellowString("⚠ %s", status)
	default:
		return color.RedString("✗ %s", status)
	}
}

func (r *Reporter) printDiscrepancies(discrepancies []*models.Discrepancy, writer io.Writer) {
	groups := make(map[models.DiscrepancyType][]*models.Discrepancy)
	for _, disc := range discrepancies {
		groups[disc.Type] = append(groups[disc.Type], disc)
	}

	order := []models.DiscrepancyType{
		models.DiscrepancyMissingLedger,
		models.DiscrepancyMissingStatement,
		models.DiscrepancyAmountMismatch,
	}

	for _, dtype := range order {
		group := groups[dtype]
		if len(group) == 0 {
			continue
		}

		fmt.Fprintf(writer, "%s (%d):\n", dtype, len(group))
		for _, disc := range group {
			fmt.Fprintf(writer, "  - %s", disc.Description)
			if disc.Amount != nil {
				fmt.Fprintf(writer, " (Amount: %s)", disc.Amount.StringFixed(2))
			}
			fmt.Fprintf(writer, "\n")
		}
	}
}

func (r *Reporter) printMatchSample(matched []*models.TransactionMatch, writer io.Writer) {
	limit := r.config.MaxMatchSamples
	for i, match := range matched {
		if i >= limit {
			fmt.Fprintf(writer, "  ... and %d more\n", len(matched)-limit)
			break
		}
		fmt.Fprintf(writer, "  %d. [%s %.2f] %s = ledger %s on %s\n",
			i+1,
			match.MatchType,
			match.Confidence,
			match.Statement.Description,
			match.LedgerTransactionID,
			match.Statement.Date.Format("2006-01-02"))
	}
}

func matchedPairs(matches []*models.TransactionMatch) []*models.TransactionMatch {
	matched := make([]*models.TransactionMatch, 0, len(matches))
	for _, match := range matches {
		if match.IsMatched() {
			matched = append(matched, match)
		}
	}
	return matched
}

// RenderNormalizationFailure writes a diagnostic message for a failed
// normalization attempt: what each column looked like, which rows failed,
// and how to retry with explicit column hints. Errors without diagnostic
// context fall back to the plain error message.
func RenderNormalizationFailure(err error, writer io.Writer) error {
	recErr, ok := apperrors.AsReconcilerError(err)
	if !ok || recErr.Category != apperrors.CategoryNormalization {
		_, werr := fmt.Fprintf(writer, "Error: %v\n", err)
		return werr
	}

	fmt.Fprintf(writer, "STATEMENT NORMALIZATION FAILED\n")
	fmt.Fprintf(writer, "%s\n", recErr.Message)
	if recErr.Suggestion != "" {
		fmt.Fprintf(writer, "Suggestion: %s\n", recErr.Suggestion)
	}
	fmt.Fprintf(writer, "\n")

	if detections, ok := recErr.Context[apperrors.ContextColumnDetections].([]models.ColumnDetection); ok && len(detections) > 0 {
		fmt.Fprintf(writer, "Detected columns:\n")
		for _, det := range detections {
			fmt.Fprintf(writer, "  %-20s %-12s confidence %.2f", det.ColumnName, det.Type, det.Confidence)
			if len(det.SampleValues) > 0 {
				fmt.Fprintf(writer, "  samples: %s", strings.Join(det.SampleValues, ", "))
			}
			fmt.Fprintf(writer, "\n")
		}
		fmt.Fprintf(writer, "\n")
	}

	if rowErrors, ok := recErr.Context[apperrors.ContextRowErrors].([]normalizer.RowError); ok && len(rowErrors) > 0 {
		fmt.Fprintf(writer, "Row errors (%d total):\n", len(rowErrors))
		for i, rowErr := range rowErrors {
			if i >= maxRowErrorsShown {
				fmt.Fprintf(writer, "  ... and %d more\n", len(rowErrors)-maxRowErrorsShown)
				break
			}
			fmt.Fprintf(writer, "  row %d: %s\n", rowErr.Row, rowErr.Message)
		}
		fmt.Fprintf(writer, "\n")
	}

	if rate, ok := recErr.Context[apperrors.ContextSuccessRate].(float64); ok {
		fmt.Fprintf(writer, "Rows parsed successfully: %.0f%%\n\n", rate*100)
	}

	fmt.Fprintf(writer, "Retry with explicit column hints, for example:\n")
	fmt.Fprintf(writer, "  reconcile --date-column <name> --amount-column <name> --description-column <name>\n")
	return nil
}
