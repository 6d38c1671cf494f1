package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MatchStatus identifies which of the three match shapes a TransactionMatch has.
type MatchStatus string

const (
	// StatusMatched pairs one ledger transaction with one statement transaction
	StatusMatched MatchStatus = "matched"
	// StatusUnmatchedLedger is a ledger transaction with no statement counterpart
	StatusUnmatchedLedger MatchStatus = "unmatched_ledger"
	// StatusUnmatchedStatement is a statement transaction with no ledger counterpart
	StatusUnmatchedStatement MatchStatus = "unmatched_statement"
)

// MatchType classifies the quality of a matched pair.
type MatchType string

const (
	// MatchExact is a same-day, same-amount, high-similarity match
	MatchExact MatchType = "exact"
	// MatchFuzzy is any tolerated match below the exact tier
	MatchFuzzy MatchType = "fuzzy"
)

// ColumnType is the inferred role of a statement column.
type ColumnType string

const (
	ColumnDate        ColumnType = "date"
	ColumnAmount      ColumnType = "amount"
	ColumnDescription ColumnType = "description"
	ColumnUnknown     ColumnType = "unknown"
)

// DiscrepancyType classifies a reconciliation discrepancy.
type DiscrepancyType string

const (
	// DiscrepancyMissingLedger is a statement transaction absent from the ledger
	DiscrepancyMissingLedger DiscrepancyType = "missing_ledger"
	// DiscrepancyMissingStatement is a ledger transaction absent from the statement
	DiscrepancyMissingStatement DiscrepancyType = "missing_statement"
	// DiscrepancyAmountMismatch is a matched pair whose amounts differ beyond tolerance
	DiscrepancyAmountMismatch DiscrepancyType = "amount_mismatch"
)

// ReconciliationStatus is the tri-state verdict of a reconciliation run.
type ReconciliationStatus string

const (
	StatusBalanced    ReconciliationStatus = "balanced"
	StatusNeedsReview ReconciliationStatus = "needs_review"
	StatusUnbalanced  ReconciliationStatus = "unbalanced"
)

// StatementTransaction is a single record normalized out of a bank statement
// export. It has no identity beyond its position in the normalized list and
// is never mutated after creation.
type StatementTransaction struct {
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	RawLine     string          `json:"raw_line,omitempty"`
}

// String returns a string representation of the StatementTransaction
func (st *StatementTransaction) String() string {
	return fmt.Sprintf("StatementTransaction{Date: %s, Description: %s, Amount: %s}",
		st.Date.Format("2006-01-02"), st.Description, st.Amount.String())
}

// MarshalJSON renders the amount as a string and the date as a calendar date.
func (st *StatementTransaction) MarshalJSON() ([]byte, error) {
	type Alias StatementTransaction
	return json.Marshal(&struct {
		Date   string `json:"date"`
		Amount string `json:"amount"`
		*Alias
	}{
		Date:   st.Date.Format("2006-01-02"),
		Amount: st.Amount.String(),
		Alias:  (*Alias)(st),
	})
}

// ColumnDetection is the diagnostic result of classifying one statement
// column. It is produced once per normalization attempt and surfaced to the
// caller only when column resolution fails.
type ColumnDetection struct {
	ColumnName   string     `json:"column_name"`
	Type         ColumnType `json:"type"`
	Confidence   float64    `json:"confidence"`
	SampleValues []string   `json:"sample_values,omitempty"`
}

// LedgerTransaction is a transaction owned by the external budgeting
// platform. Amounts are signed integers in minor currency units (milliunits);
// the reconciliation core treats these records as read-only input.
type LedgerTransaction struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	Amount    int64     `json:"amount"`
	PayeeName string    `json:"payee_name"`
	Memo      string    `json:"memo,omitempty"`
	Deleted   bool      `json:"deleted,omitempty"`
}

// AmountDecimal returns the transaction amount in major currency units.
func (lt *LedgerTransaction) AmountDecimal() decimal.Decimal {
	return MilliunitsToDecimal(lt.Amount)
}

// String returns a string representation of the LedgerTransaction
func (lt *LedgerTransaction) String() string {
	return fmt.Sprintf("LedgerTransaction{ID: %s, Date: %s, Amount: %s, Payee: %s}",
		lt.ID, lt.Date.Format("2006-01-02"), lt.AmountDecimal().String(), lt.PayeeName)
}

// TransactionMatch is one element of the matcher's output partition. Exactly
// one of the three shapes applies, selected by Status:
//
//   - matched: LedgerTransactionID and Statement are both set
//   - unmatched_ledger: only LedgerTransactionID is set
//   - unmatched_statement: only Statement is set
type TransactionMatch struct {
	Status              MatchStatus           `json:"status"`
	LedgerTransactionID string                `json:"ledger_transaction_id,omitempty"`
	Statement           *StatementTransaction `json:"statement,omitempty"`
	MatchType           MatchType             `json:"match_type,omitempty"`
	Confidence          float64               `json:"confidence"`
	Discrepancy         *decimal.Decimal      `json:"discrepancy,omitempty"`
}

// IsMatched returns true if the record pairs a ledger and statement transaction
func (tm *TransactionMatch) IsMatched() bool {
	return tm.Status == StatusMatched
}

// Discrepancy describes a single reconciliation finding.
type Discrepancy struct {
	Type          DiscrepancyType  `json:"type"`
	Description   string           `json:"description"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	TransactionID string           `json:"transaction_id,omitempty"`
}

// ReconciliationSummary is the verdict block of a report.
type ReconciliationSummary struct {
	Status             ReconciliationStatus `json:"status"`
	ConfidenceScore    float64              `json:"confidence_score"`
	LargestDiscrepancy decimal.Decimal      `json:"largest_discrepancy"`
	Recommendations    []string             `json:"recommendations"`
}

// MatchCounts aggregates the match list by outcome.
type MatchCounts struct {
	TotalLedger        int `json:"total_ledger"`
	TotalStatement     int `json:"total_statement"`
	ExactMatches       int `json:"exact_matches"`
	FuzzyMatches       int `json:"fuzzy_matches"`
	UnmatchedLedger    int `json:"unmatched_ledger"`
	UnmatchedStatement int `json:"unmatched_statement"`
}

// ReconciliationReport is the top-level output of one reconciliation
// invocation. It is assembled once and never persisted by the core.
type ReconciliationReport struct {
	RunID             string                `json:"run_id"`
	AccountID         string                `json:"account_id"`
	AccountName       string                `json:"account_name"`
	StatementDate     time.Time             `json:"statement_date"`
	GeneratedAt       time.Time             `json:"generated_at"`
	StatementBalance  decimal.Decimal       `json:"statement_balance"`
	LedgerBalance     decimal.Decimal       `json:"ledger_balance"`
	BalanceDifference decimal.Decimal       `json:"balance_difference"`
	Counts            MatchCounts           `json:"counts"`
	Matches           []*TransactionMatch   `json:"matches"`
	Discrepancies     []*Discrepancy        `json:"discrepancies"`
	Summary           ReconciliationSummary `json:"summary"`
}

// Amount and date helpers shared by the normalizer, matcher and reporter.

var milliunitFactor = decimal.NewFromInt(1000)

// MilliunitsToDecimal converts a minor-unit integer amount to major units.
func MilliunitsToDecimal(amount int64) decimal.Decimal {
	return decimal.NewFromInt(amount).Div(milliunitFactor)
}

// DecimalToMilliunits converts a major-unit amount to minor units, rounding
// to the nearest milliunit.
func DecimalToMilliunits(amount decimal.Decimal) int64 {
	return amount.Mul(milliunitFactor).Round(0).IntPart()
}

// ParseDecimalAmount parses an amount string as found in bank statement
// exports. Currency symbols and thousands separators are stripped and
// parenthesized amounts are treated as negative.
func ParseDecimalAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	for _, symbol := range []string{"$", "€", "£", "¥", ","} {
		s = strings.ReplaceAll(s, symbol, "")
	}
	s = strings.TrimSpace(s)

	// Unicode minus occasionally shows up in exported statements
	s = strings.ReplaceAll(s, "−", "-")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount format '%s': %w", s, err)
	}

	if negative {
		d = d.Neg()
	}
	return d, nil
}

// statementDateFormats is the fixed pattern set used for both column
// detection and row parsing.
var statementDateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"01-02-2006",
	"1/2/2006",
	"2006/01/02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseStatementDate attempts to parse a date from string using the fixed
// statement pattern set.
func ParseStatementDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	var lastErr error
	for _, format := range statementDateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", s, lastErr)
}

// CompareAmountsWithTolerance reports whether two amounts differ by no more
// than tolerance.
func CompareAmountsWithTolerance(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}

// WithinDays reports whether two dates fall within toleranceDays of each other.
func WithinDays(a, b time.Time, toleranceDays int) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= time.Duration(toleranceDays)*24*time.Hour
}
