// Package analyzer turns a transaction match list into discrepancies, a
// confidence score and a reconciliation verdict. Everything here is a total
// function over well-typed inputs; analysis itself never fails.
package analyzer

import (
	"fmt"

	"ledger-reconciliation-service/internal/models"
	"ledger-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

const (
	// maxReviewDiscrepancies is the discrepancy count above which the
	// verdict escalates from needs_review to unbalanced
	maxReviewDiscrepancies = 2
	// lowConfidenceThreshold triggers the manual-review recommendation
	lowConfidenceThreshold = 0.8
)

// reviewBalanceLimit is the absolute balance difference (major currency
// units) above which the verdict escalates to unbalanced.
var reviewBalanceLimit = decimal.NewFromInt(10)

// Analyzer classifies mismatches and derives the reconciliation summary.
type Analyzer struct {
	tolerance decimal.Decimal
	log       logger.Logger
}

// New creates an Analyzer with the given amount tolerance.
func New(tolerance decimal.Decimal) *Analyzer {
	return &Analyzer{
		tolerance: tolerance,
		log:       logger.WithComponent("analyzer"),
	}
}

// Result is the output of one analysis.
type Result struct {
	Discrepancies []*models.Discrepancy
	Summary       models.ReconciliationSummary
	BalanceDiff   decimal.Decimal
}

// Analyze derives discrepancies and the summary from the match list and the
// two reported balances. ledgerBalance is in minor currency units;
// statementBalance in major units.
func (a *Analyzer) Analyze(matches []*models.TransactionMatch, ledgerBalance int64, statementBalance decimal.Decimal) *Result {
	balanceDiff := models.MilliunitsToDecimal(ledgerBalance).Sub(statementBalance)
	discrepancies := a.extractDiscrepancies(matches)
	confidence := confidenceScore(matches)

	summary := models.ReconciliationSummary{
		Status:             a.verdict(balanceDiff, len(discrepancies)),
		ConfidenceScore:    confidence,
		LargestDiscrepancy: largestDiscrepancy(discrepancies, balanceDiff),
	}
	summary.Recommendations = a.recommendations(summary.Status, balanceDiff, discrepancies, confidence)

	a.log.WithFields(logger.Fields{
		"status":        summary.Status,
		"confidence":    confidence,
		"discrepancies": len(discrepancies),
	}).Debug("reconciliation analyzed")

	return &Result{
		Discrepancies: discrepancies,
		Summary:       summary,
		BalanceDiff:   balanceDiff,
	}
}

// extractDiscrepancies classifies each match record. Exact matches never
// produce discrepancies.
func (a *Analyzer) extractDiscrepancies(matches []*models.TransactionMatch) []*models.Discrepancy {
	var discrepancies []*models.Discrepancy

	for _, match := range matches {
		switch match.Status {
		case models.StatusUnmatchedLedger:
			discrepancies = append(discrepancies, &models.Discrepancy{
				Type:          models.DiscrepancyMissingStatement,
				Description:   fmt.Sprintf("ledger transaction %s has no statement counterpart", match.LedgerTransactionID),
				TransactionID: match.LedgerTransactionID,
			})

		case models.StatusUnmatchedStatement:
			amount := match.Statement.Amount
			discrepancies = append(discrepancies, &models.Discrepancy{
				Type: models.DiscrepancyMissingLedger,
				Description: fmt.Sprintf("statement transaction '%s' (%s on %s) not found in ledger",
					match.Statement.Description, amount.String(), match.Statement.Date.Format("2006-01-02")),
				Amount: &amount,
			})

		case models.StatusMatched:
			if match.MatchType != models.MatchFuzzy || match.Discrepancy == nil {
				continue
			}
			if match.Discrepancy.GreaterThan(a.tolerance) {
				amount := *match.Discrepancy
				discrepancies = append(discrepancies, &models.Discrepancy{
					Type: models.DiscrepancyAmountMismatch,
					Description: fmt.Sprintf("ledger transaction %s differs from its statement match by %s",
						match.LedgerTransactionID, amount.String()),
					Amount:        &amount,
					TransactionID: match.LedgerTransactionID,
				})
			}
		}
	}

	return discrepancies
}

// confidenceScore is the ratio of non-residual matches to total match
// records, 0 when the list is empty.
func confidenceScore(matches []*models.TransactionMatch) float64 {
	if len(matches) == 0 {
		return 0
	}

	matched := 0
	for _, match := range matches {
		if match.IsMatched() {
			matched++
		}
	}
	return float64(matched) / float64(len(matches))
}

// verdict derives the tri-state outcome from the balance difference and the
// discrepancy count.
func (a *Analyzer) verdict(balanceDiff decimal.Decimal, discrepancyCount int) models.ReconciliationStatus {
	absDiff := balanceDiff.Abs()

	if absDiff.LessThanOrEqual(a.tolerance) && discrepancyCount == 0 {
		return models.StatusBalanced
	}
	if discrepancyCount <= maxReviewDiscrepancies && absDiff.LessThanOrEqual(reviewBalanceLimit) {
		return models.StatusNeedsReview
	}
	return models.StatusUnbalanced
}

// largestDiscrepancy is the maximum absolute value over all discrepancy
// amounts and the balance difference.
func largestDiscrepancy(discrepancies []*models.Discrepancy, balanceDiff decimal.Decimal) decimal.Decimal {
	largest := balanceDiff.Abs()
	for _, d := range discrepancies {
		if d.Amount == nil {
			continue
		}
		if abs := d.Amount.Abs(); abs.GreaterThan(largest) {
			largest = abs
		}
	}
	return largest
}

// recommendations produces the ordered action list for the report.
func (a *Analyzer) recommendations(status models.ReconciliationStatus, balanceDiff decimal.Decimal, discrepancies []*models.Discrepancy, confidence float64) []string {
	var recs []string

	if status == models.StatusBalanced {
		recs = append(recs, "Account is balanced - no action needed")
	}

	if balanceDiff.Abs().GreaterThan(a.tolerance) {
		recs = append(recs, fmt.Sprintf("Balance difference of %s requires attention", balanceDiff.Abs().String()))
	}

	missingLedger := 0
	missingStatement := 0
	for _, d := range discrepancies {
		switch d.Type {
		case models.DiscrepancyMissingLedger:
			missingLedger++
		case models.DiscrepancyMissingStatement:
			missingStatement++
		}
	}

	if missingLedger > 0 {
		recs = append(recs, fmt.Sprintf("%d statement transaction(s) missing from the ledger - consider adding them", missingLedger))
	}
	if missingStatement > 0 {
		recs = append(recs, fmt.Sprintf("%d ledger transaction(s) not on the statement - they may be pending or uncleared", missingStatement))
	}

	if confidence < lowConfidenceThreshold {
		recs = append(recs, "Match confidence is low - manual review recommended")
	}

	return recs
}

// CountMatches aggregates the match list into per-outcome counts.
func CountMatches(matches []*models.TransactionMatch) models.MatchCounts {
	var counts models.MatchCounts

	for _, match := range matches {
		switch match.Status {
		case models.StatusMatched:
			counts.TotalLedger++
			counts.TotalStatement++
			if match.MatchType == models.MatchExact {
				counts.ExactMatches++
			} else {
				counts.FuzzyMatches++
			}
		case models.StatusUnmatchedLedger:
			counts.TotalLedger++
			counts.UnmatchedLedger++
		case models.StatusUnmatchedStatement:
			counts.TotalStatement++
			counts.UnmatchedStatement++
		}
	}

	return counts
}
