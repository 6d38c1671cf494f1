// Package reconciler orchestrates one reconciliation invocation: resolve
// the target account, fetch its ledger transactions over the lookback
// window, normalize the statement text, run the matcher, analyze the
// result and assemble the report.
//
// The pipeline itself is synchronous and purely in-memory; the only
// suspension points are the ledger fetches, which happen before any of the
// core algorithms run. Concurrent invocations over different accounts are
// independent.
package reconciler

import (
	"context"
	"fmt"
	"time"

	"ledger-reconciliation-service/internal/analyzer"
	"ledger-reconciliation-service/internal/ledger"
	"ledger-reconciliation-service/internal/matcher"
	"ledger-reconciliation-service/internal/models"
	"ledger-reconciliation-service/internal/normalizer"
	"ledger-reconciliation-service/pkg/logger"

	apperrors "ledger-reconciliation-service/pkg/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// lookbackMonths bounds how far before the statement date ledger
// transactions are fetched.
const lookbackMonths = 3

// Request describes one reconciliation invocation.
type Request struct {
	// AccountQuery is an account id or name; names resolve case-insensitively,
	// exact match first, then substring.
	AccountQuery string

	// StatementText is the raw delimited statement export.
	StatementText string

	// StatementBalance is the statement's declared ending balance in major
	// currency units.
	StatementBalance decimal.Decimal

	// StatementDate is the statement's calendar date.
	StatementDate time.Time

	// Tolerance overrides the configured amount-equality tolerance when
	// positive.
	Tolerance decimal.Decimal

	// Hints optionally name the statement columns to use for each role.
	Hints *normalizer.ColumnHints
}

// Validate checks the request's required fields.
func (r *Request) Validate() error {
	if r.AccountQuery == "" {
		return apperrors.InvalidInput("account", "account id or name is required")
	}
	if r.StatementText == "" {
		return apperrors.InvalidInput("statement_text", "statement text is required")
	}
	if r.StatementDate.IsZero() {
		return apperrors.InvalidInput("statement_date", "statement date is required")
	}
	return nil
}

// Service wires the normalizer, matcher and analyzer behind the ledger
// client boundary.
type Service struct {
	client        ledger.Client
	normalizer    *normalizer.Normalizer
	matcherConfig *matcher.Config
	log           logger.Logger
}

// NewService creates a reconciliation service. A nil matcherConfig selects
// the default matching configuration.
func NewService(client ledger.Client, matcherConfig *matcher.Config) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("ledger client is required")
	}
	if matcherConfig == nil {
		matcherConfig = matcher.DefaultConfig()
	}
	if err := matcherConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matcher configuration: %w", err)
	}

	return &Service{
		client:        client,
		normalizer:    normalizer.New(),
		matcherConfig: matcherConfig,
		log:           logger.WithComponent("reconciler"),
	}, nil
}

// Reconcile runs one reconciliation invocation end to end.
func (s *Service) Reconcile(ctx context.Context, req *Request) (*models.ReconciliationReport, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	started := time.Now()
	log := s.log.WithField("run_id", runID)

	accounts, err := s.client.GetAccounts(ctx)
	if err != nil {
		return nil, err
	}

	account, err := ledger.ResolveAccount(accounts, req.AccountQuery)
	if err != nil {
		return nil, err
	}

	since := req.StatementDate.AddDate(0, -lookbackMonths, 0)
	transactions, err := s.client.GetAccountTransactions(ctx, account.ID, since)
	if err != nil {
		return nil, err
	}

	log.WithFields(logger.Fields{
		"account":      account.Name,
		"transactions": len(transactions),
		"since":        since.Format("2006-01-02"),
	}).Info("ledger transactions fetched")

	normResult, err := s.normalizer.Normalize(req.StatementText, req.Hints)
	if err != nil {
		return nil, err
	}

	tolerance := req.Tolerance
	if !tolerance.IsPositive() {
		tolerance = s.matcherConfig.Tolerance
	}
	config := s.matcherConfig.Clone()
	config.Tolerance = tolerance

	matches := matcher.New(config).Match(transactions, normResult.Transactions)
	analysis := analyzer.New(tolerance).Analyze(matches, account.Balance, req.StatementBalance)

	report := &models.ReconciliationReport{
		RunID:             runID,
		AccountID:         account.ID,
		AccountName:       account.Name,
		StatementDate:     req.StatementDate,
		GeneratedAt:       time.Now().UTC(),
		StatementBalance:  req.StatementBalance,
		LedgerBalance:     models.MilliunitsToDecimal(account.Balance),
		BalanceDifference: analysis.BalanceDiff,
		Counts:            analyzer.CountMatches(matches),
		Matches:           matches,
		Discrepancies:     analysis.Discrepancies,
		Summary:           analysis.Summary,
	}

	log.WithFields(logger.Fields{
		"status":   report.Summary.Status,
		"duration": time.Since(started).String(),
	}).Info("reconciliation complete")

	return report, nil
}
