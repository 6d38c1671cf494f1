// Package ledger is the boundary to the external budgeting platform that
// owns the account and transaction records being reconciled. The core
// treats the platform as a read-only, idempotent query source; nothing in
// this package ever writes to it.
package ledger

import (
	"context"
	"strings"
	"time"

	"ledger-reconciliation-service/internal/models"
	apperrors "ledger-reconciliation-service/pkg/errors"
)

// Account is a budgeting-platform account. Balance is in minor currency
// units (milliunits), matching the platform's transaction amounts.
type Account struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
	Closed  bool   `json:"closed"`
}

// Client is the read-only query interface the reconciliation core consumes.
type Client interface {
	// GetAccounts returns the budget's open accounts.
	GetAccounts(ctx context.Context) ([]*Account, error)

	// GetAccountTransactions returns the account's non-deleted transactions
	// dated on or after since.
	GetAccountTransactions(ctx context.Context, accountID string, since time.Time) ([]*models.LedgerTransaction, error)
}

// ResolveAccount finds the account matching query: by id, then by
// case-insensitive exact name, then by case-insensitive name substring.
func ResolveAccount(accounts []*Account, query string) (*Account, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.InvalidInput("account", "account id or name is required")
	}

	for _, account := range accounts {
		if account.ID == query {
			return account, nil
		}
	}

	lowerQuery := strings.ToLower(query)
	for _, account := range accounts {
		if strings.ToLower(account.Name) == lowerQuery {
			return account, nil
		}
	}

	for _, account := range accounts {
		if strings.Contains(strings.ToLower(account.Name), lowerQuery) {
			return account, nil
		}
	}

	return nil, apperrors.AccountNotFound(query)
}
