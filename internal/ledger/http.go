package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ledger-reconciliation-service/internal/models"
	apperrors "ledger-reconciliation-service/pkg/errors"
	"ledger-reconciliation-service/pkg/logger"
)

// HTTPConfig holds connection settings for the budgeting platform API.
type HTTPConfig struct {
	BaseURL     string
	Token       string
	BudgetID    string
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

// DefaultHTTPConfig returns the default connection settings. BaseURL, Token
// and BudgetID must still be supplied by the caller.
func DefaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		Timeout:     30 * time.Second,
		MaxAttempts: 3,
		RetryDelay:  500 * time.Millisecond,
	}
}

// Validate checks that the configuration is complete.
func (c *HTTPConfig) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("ledger base URL is required")
	}
	if strings.TrimSpace(c.Token) == "" {
		return fmt.Errorf("ledger API token is required")
	}
	if strings.TrimSpace(c.BudgetID) == "" {
		return fmt.Errorf("ledger budget id is required")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1")
	}
	return nil
}

// HTTPClient talks to the budgeting platform's REST API with a bounded
// retry policy. Amounts arrive as signed milliunit integers and are passed
// through unchanged.
type HTTPClient struct {
	config *HTTPConfig
	client *http.Client
	log    logger.Logger
}

// NewHTTPClient creates a client from the given configuration.
func NewHTTPClient(config *HTTPConfig) (*HTTPClient, error) {
	if config == nil {
		return nil, fmt.Errorf("ledger configuration is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ledger configuration: %w", err)
	}

	return &HTTPClient{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		log:    logger.WithComponent("ledger"),
	}, nil
}

// Wire types. The platform wraps every payload in a data envelope and
// renders dates as calendar-date strings.

type accountsEnvelope struct {
	Data struct {
		Accounts []struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Balance int64  `json:"balance"`
			Closed  bool   `json:"closed"`
			Deleted bool   `json:"deleted"`
		} `json:"accounts"`
	} `json:"data"`
}

type transactionsEnvelope struct {
	Data struct {
		Transactions []struct {
			ID        string `json:"id"`
			Date      string `json:"date"`
			Amount    int64  `json:"amount"`
			PayeeName string `json:"payee_name"`
			Memo      string `json:"memo"`
			Deleted   bool   `json:"deleted"`
		} `json:"transactions"`
	} `json:"data"`
}

// GetAccounts returns the budget's open, non-deleted accounts.
func (c *HTTPClient) GetAccounts(ctx context.Context) ([]*Account, error) {
	endpoint := fmt.Sprintf("/budgets/%s/accounts", url.PathEscape(c.config.BudgetID))

	body, err := c.get(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var envelope accountsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryLedger, apperrors.CodeUpstreamUnavailable,
			"ledger accounts response is not valid JSON")
	}

	var accounts []*Account
	for _, a := range envelope.Data.Accounts {
		if a.Deleted || a.Closed {
			continue
		}
		accounts = append(accounts, &Account{
			ID:      a.ID,
			Name:    a.Name,
			Balance: a.Balance,
		})
	}

	return accounts, nil
}

// GetAccountTransactions returns the account's non-deleted transactions
// dated on or after since.
func (c *HTTPClient) GetAccountTransactions(ctx context.Context, accountID string, since time.Time) ([]*models.LedgerTransaction, error) {
	endpoint := fmt.Sprintf("/budgets/%s/accounts/%s/transactions",
		url.PathEscape(c.config.BudgetID), url.PathEscape(accountID))
	query := url.Values{"since_date": []string{since.Format("2006-01-02")}}

	body, err := c.get(ctx, endpoint, query)
	if err != nil {
		return nil, err
	}

	var envelope transactionsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryLedger, apperrors.CodeUpstreamUnavailable,
			"ledger transactions response is not valid JSON")
	}

	var transactions []*models.LedgerTransaction
	for _, tx := range envelope.Data.Transactions {
		if tx.Deleted {
			continue
		}

		date, err := time.Parse("2006-01-02", tx.Date)
		if err != nil {
			c.log.WithFields(logger.Fields{
				"transaction_id": tx.ID,
				"date":           tx.Date,
			}).Warn("skipping ledger transaction with unparseable date")
			continue
		}

		transactions = append(transactions, &models.LedgerTransaction{
			ID:        tx.ID,
			Date:      date,
			Amount:    tx.Amount,
			PayeeName: tx.PayeeName,
			Memo:      tx.Memo,
		})
	}

	return transactions, nil
}

// get performs a GET with bounded retries. Transport errors, 429 and 5xx
// responses are retried with exponential backoff; other failures are final.
func (c *HTTPClient) get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	requestURL := strings.TrimRight(c.config.BaseURL, "/") + endpoint
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var lastErr error
	delay := c.config.RetryDelay

	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, apperrors.UpstreamUnavailable(endpoint, ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}

		body, retryable, err := c.attempt(ctx, requestURL)
		if err == nil {
			return body, nil
		}

		lastErr = err
		if !retryable {
			return nil, apperrors.UpstreamUnavailable(endpoint, err)
		}

		c.log.WithFields(logger.Fields{
			"endpoint": endpoint,
			"attempt":  attempt,
		}).WithError(err).Warn("ledger request failed, will retry")
	}

	return nil, apperrors.UpstreamUnavailable(endpoint, lastErr)
}

// attempt performs one request. The second return value reports whether the
// failure is worth retrying.
func (c *HTTPClient) attempt(ctx context.Context, requestURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("ledger returned status %d", resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("ledger returned status %d", resp.StatusCode)
	}
}
