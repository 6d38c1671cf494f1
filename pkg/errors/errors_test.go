package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestReconcilerErrorError(t *testing.T) {
	err := New(CategoryInput, CodeInvalidInput, "something is missing")
	if err.Error() != "something is missing" {
		t.Errorf("Error() = %q, want bare message", err.Error())
	}

	err = err.WithSuggestion("provide the thing")
	if !strings.Contains(err.Error(), "suggestion: provide the thing") {
		t.Errorf("Error() = %q, want suggestion appended", err.Error())
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		expected int
	}{
		{CategoryInput, 2},
		{CategoryNormalization, 3},
		{CategoryReconciliation, 5},
		{CategoryInternal, 5},
		{CategoryLedger, 6},
		{ErrorCategory("other"), 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			err := New(tt.category, CodeUnexpectedError, "test")
			if got := err.GetExitCode(); got != tt.expected {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, CategoryInternal, CodeUnexpectedError, "test") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(cause, CategoryLedger, CodeUpstreamUnavailable, "fetch failed")

	if err.Unwrap() != cause {
		t.Error("Unwrap() should return the original cause")
	}
	if err.StackTrace == nil {
		t.Error("wrapped error should carry a stack trace")
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *ReconcilerError
		category ErrorCategory
		code     ErrorCode
	}{
		{"invalid input", InvalidInput("statement_balance", "required"), CategoryInput, CodeInvalidInput},
		{"account not found", AccountNotFound("Checking"), CategoryInput, CodeAccountNotFound},
		{"malformed input", MalformedInput("fewer than 2 lines"), CategoryNormalization, CodeMalformedInput},
		{"column resolution", ColumnResolution([]string{"amount"}, nil), CategoryNormalization, CodeColumnResolution},
		{"low parse yield", LowParseYield(0.1, nil), CategoryNormalization, CodeLowParseYield},
		{"upstream unavailable", UpstreamUnavailable("/accounts", fmt.Errorf("timeout")), CategoryLedger, CodeUpstreamUnavailable},
		{"internal", Internal("matching", fmt.Errorf("boom")), CategoryInternal, CodeUnexpectedError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Category != tt.category {
				t.Errorf("Category = %s, want %s", tt.err.Category, tt.category)
			}
			if tt.err.Code != tt.code {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.code)
			}
			if tt.err.Suggestion == "" {
				t.Error("constructor should attach a suggestion")
			}
		})
	}
}

func TestLowParseYieldMessage(t *testing.T) {
	err := LowParseYield(0.1, []string{"row 2: bad date"})
	if !strings.Contains(err.Message, "10%") {
		t.Errorf("message should include the success rate, got %q", err.Message)
	}
	if err.Context[ContextSuccessRate] != 0.1 {
		t.Error("success rate should be recorded in context")
	}
}

func TestAsReconcilerError(t *testing.T) {
	inner := AccountNotFound("savings")
	wrapped := fmt.Errorf("resolving account: %w", inner)

	got, ok := AsReconcilerError(wrapped)
	if !ok {
		t.Fatal("AsReconcilerError should find the error in the chain")
	}
	if got.Code != CodeAccountNotFound {
		t.Errorf("Code = %s, want %s", got.Code, CodeAccountNotFound)
	}

	if _, ok := AsReconcilerError(fmt.Errorf("plain error")); ok {
		t.Error("AsReconcilerError should not match plain errors")
	}
}

func TestWrapIfNeeded(t *testing.T) {
	original := MalformedInput("header too short")
	if got := WrapIfNeeded(original, CategoryInternal, CodeUnexpectedError, "x"); got != original {
		t.Error("WrapIfNeeded should pass through existing ReconcilerErrors")
	}

	plain := fmt.Errorf("plain")
	got := WrapIfNeeded(plain, CategoryInternal, CodeUnexpectedError, "wrapped")
	if got.Code != CodeUnexpectedError || got.Cause != plain {
		t.Error("WrapIfNeeded should wrap plain errors")
	}

	if WrapIfNeeded(nil, CategoryInternal, CodeUnexpectedError, "x") != nil {
		t.Error("WrapIfNeeded(nil) should return nil")
	}
}

func TestHasCode(t *testing.T) {
	err := LowParseYield(0.5, nil)
	if !HasCode(err, CodeLowParseYield) {
		t.Error("HasCode should match the error's code")
	}
	if HasCode(err, CodeMalformedInput) {
		t.Error("HasCode should not match a different code")
	}
	if HasCode(fmt.Errorf("plain"), CodeMalformedInput) {
		t.Error("HasCode should not match plain errors")
	}
}
