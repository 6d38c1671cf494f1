package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestMilliunitsToDecimal(t *testing.T) {
	tests := []struct {
		name     string
		amount   int64
		expected string
	}{
		{"negative debit", -5000, "-5"},
		{"positive credit", 123450, "123.45"},
		{"zero", 0, "0"},
		{"sub-unit", -10, "-0.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MilliunitsToDecimal(tt.amount)
			if got.String() != tt.expected {
				t.Errorf("MilliunitsToDecimal(%d) = %s, want %s", tt.amount, got.String(), tt.expected)
			}
		})
	}
}

func TestDecimalToMilliunits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		expected int64
	}{
		{"whole amount", "-5", -5000},
		{"cents", "123.45", 123450},
		{"rounds sub-milliunit", "0.0016", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := decimal.NewFromString(tt.amount)
			if err != nil {
				t.Fatalf("bad fixture amount %s: %v", tt.amount, err)
			}
			if got := DecimalToMilliunits(d); got != tt.expected {
				t.Errorf("DecimalToMilliunits(%s) = %d, want %d", tt.amount, got, tt.expected)
			}
		})
	}
}

func TestParseDecimalAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{"plain", "12.34", "12.34", false},
		{"negative", "-5.00", "-5", false},
		{"currency symbol", "$1,234.56", "1234.56", false},
		{"parenthesized debit", "(12.34)", "-12.34", false},
		{"parenthesized with symbol", "($99.10)", "-99.1", false},
		{"unicode minus", "−5.00", "-5", false},
		{"empty", "", "", true},
		{"garbage", "abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecimalAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseDecimalAmount(%q) expected error, got %s", tt.input, got.String())
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDecimalAmount(%q) unexpected error: %v", tt.input, err)
			}
			if got.String() != tt.expected {
				t.Errorf("ParseDecimalAmount(%q) = %s, want %s", tt.input, got.String(), tt.expected)
			}
		})
	}
}

func TestParseStatementDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"iso", "2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{"us slash", "03/01/2024", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{"us dash", "03-01-2024", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{"short slash", "3/1/2024", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{"long form", "March 1, 2024", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{"empty", "", time.Time{}, true},
		{"not a date", "yesterday", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStatementDate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseStatementDate(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStatementDate(%q) unexpected error: %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseStatementDate(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestCompareAmountsWithTolerance(t *testing.T) {
	tolerance := decimal.NewFromFloat(0.01)

	a := decimal.NewFromFloat(100.00)
	b := decimal.NewFromFloat(100.01)
	if !CompareAmountsWithTolerance(a, b, tolerance) {
		t.Error("amounts within tolerance should compare equal")
	}

	c := decimal.NewFromFloat(100.02)
	if CompareAmountsWithTolerance(a, c, tolerance) {
		t.Error("amounts beyond tolerance should not compare equal")
	}
}

func TestWithinDays(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	if !WithinDays(base, base.AddDate(0, 0, 1), 1) {
		t.Error("adjacent days should be within a 1-day window")
	}
	if WithinDays(base, base.AddDate(0, 0, 2), 1) {
		t.Error("two days apart should not be within a 1-day window")
	}
	if !WithinDays(base.AddDate(0, 0, 3), base, 3) {
		t.Error("window must be symmetric")
	}
}

func TestStatementTransactionMarshalJSON(t *testing.T) {
	st := &StatementTransaction{
		Date:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Description: "ACME MARKET",
		Amount:      decimal.NewFromFloat(-5.00),
	}

	data, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}

	s := string(data)
	if !strings.Contains(s, `"date":"2024-03-01"`) {
		t.Errorf("expected calendar date in JSON, got %s", s)
	}
	if !strings.Contains(s, `"amount":"-5"`) {
		t.Errorf("expected string amount in JSON, got %s", s)
	}
}

func TestTransactionMatchIsMatched(t *testing.T) {
	matched := &TransactionMatch{Status: StatusMatched, LedgerTransactionID: "t1"}
	if !matched.IsMatched() {
		t.Error("matched record should report IsMatched")
	}

	unmatched := &TransactionMatch{Status: StatusUnmatchedLedger, LedgerTransactionID: "t2"}
	if unmatched.IsMatched() {
		t.Error("unmatched record should not report IsMatched")
	}
}

func TestLedgerTransactionAmountDecimal(t *testing.T) {
	lt := &LedgerTransaction{ID: "t1", Amount: -5000}
	if lt.AmountDecimal().String() != "-5" {
		t.Errorf("AmountDecimal() = %s, want -5", lt.AmountDecimal().String())
	}
}
