// Package matcher pairs ledger transactions with bank statement
// transactions using a five-pass, confidence-scored greedy algorithm.
//
// Passes run in strict order from tightest to loosest tolerance: exact,
// strong, fuzzy, amount-only, residual. A transaction consumed in one pass
// is removed from both candidate pools and never reconsidered, so the output
// is a partition: every ledger transaction and every statement transaction
// appears in exactly one match record.
//
// Within a pass the search is greedy and order-sensitive: ledger
// transactions are visited in input order and the first statement candidate
// that satisfies the pass wins. There is deliberately no best-match search
// or global assignment; reproducibility of results across runs matters more
// here than matching optimality, and downstream fixtures depend on the
// greedy outcome.
package matcher

import (
	"ledger-reconciliation-service/internal/models"
	"ledger-reconciliation-service/pkg/logger"
)

// pass is one tier of the matching ladder. A negative similarity threshold
// means description similarity is not evaluated for the pass.
type pass struct {
	name         string
	matchType    models.MatchType
	dateWindow   int
	simThreshold float64
	confidence   func(sim float64) float64
}

var passes = []pass{
	{
		name:         "exact",
		matchType:    models.MatchExact,
		dateWindow:   1,
		simThreshold: 0.9,
		confidence:   func(float64) float64 { return 1.0 },
	},
	{
		name:         "strong",
		matchType:    models.MatchFuzzy,
		dateWindow:   3,
		simThreshold: 0.7,
		confidence:   func(sim float64) float64 { return 0.8 + 0.2*sim },
	},
	{
		name:         "fuzzy",
		matchType:    models.MatchFuzzy,
		dateWindow:   5,
		simThreshold: 0.6,
		confidence:   func(sim float64) float64 { return 0.6 + 0.2*sim },
	},
	{
		name:         "amount-only",
		matchType:    models.MatchFuzzy,
		dateWindow:   7,
		simThreshold: -1,
		confidence:   func(float64) float64 { return 0.3 },
	},
}

// Matcher runs the pass ladder over a pair of transaction lists. It holds no
// per-invocation state; concurrent invocations over different inputs are
// independent.
type Matcher struct {
	config *Config
	log    logger.Logger
}

// New creates a Matcher with the given configuration. A nil config selects
// the defaults.
func New(config *Config) *Matcher {
	if config == nil {
		config = DefaultConfig()
	}

	return &Matcher{
		config: config,
		log:    logger.WithComponent("matcher"),
	}
}

// Config returns the matcher's configuration.
func (m *Matcher) Config() *Config {
	return m.config
}

// Match partitions the ledger and statement transactions into match records.
// Both input slices are read-only; iteration order follows input order.
func (m *Matcher) Match(ledger []*models.LedgerTransaction, statements []*models.StatementTransaction) []*models.TransactionMatch {
	ledgerUsed := make([]bool, len(ledger))
	statementUsed := make([]bool, len(statements))

	var matches []*models.TransactionMatch

	for _, p := range passes {
		found := 0
		for li, lt := range ledger {
			if ledgerUsed[li] {
				continue
			}
			for si, st := range statements {
				if statementUsed[si] {
					continue
				}

				ok, sim := m.satisfies(p, lt, st)
				if !ok {
					continue
				}

				matches = append(matches, buildMatch(p, lt, st, sim))
				ledgerUsed[li] = true
				statementUsed[si] = true
				found++
				break
			}
		}

		if found > 0 {
			m.log.WithFields(logger.Fields{
				"pass":    p.name,
				"matched": found,
			}).Debug("matching pass complete")
		}
	}

	// Residual pass: everything not consumed above becomes an unmatched
	// record, preserving input order on each side.
	for li, lt := range ledger {
		if !ledgerUsed[li] {
			matches = append(matches, &models.TransactionMatch{
				Status:              models.StatusUnmatchedLedger,
				LedgerTransactionID: lt.ID,
			})
		}
	}
	for si, st := range statements {
		if !statementUsed[si] {
			matches = append(matches, &models.TransactionMatch{
				Status:    models.StatusUnmatchedStatement,
				Statement: st,
			})
		}
	}

	return matches
}

// satisfies checks one ledger/statement pair against a pass. The similarity
// is returned so confidence scoring does not recompute it; it is only
// evaluated when the pass requires it.
func (m *Matcher) satisfies(p pass, lt *models.LedgerTransaction, st *models.StatementTransaction) (bool, float64) {
	if !models.CompareAmountsWithTolerance(lt.AmountDecimal(), st.Amount, m.config.Tolerance) {
		return false, 0
	}

	if !models.WithinDays(lt.Date, st.Date, p.dateWindow) {
		return false, 0
	}

	if p.simThreshold < 0 {
		return true, 0
	}

	sim := m.Similarity(lt.PayeeName, st.Description)
	if sim <= p.simThreshold {
		return false, 0
	}
	return true, sim
}

func buildMatch(p pass, lt *models.LedgerTransaction, st *models.StatementTransaction, sim float64) *models.TransactionMatch {
	match := &models.TransactionMatch{
		Status:              models.StatusMatched,
		LedgerTransactionID: lt.ID,
		Statement:           st,
		MatchType:           p.matchType,
		Confidence:          p.confidence(sim),
	}

	delta := lt.AmountDecimal().Sub(st.Amount).Abs()
	if !delta.IsZero() {
		match.Discrepancy = &delta
	}

	return match
}
