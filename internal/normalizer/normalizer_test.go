package normalizer

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"ledger-reconciliation-service/internal/models"
	apperrors "ledger-reconciliation-service/pkg/errors"
)

func buildCanonicalStatement(rows int) string {
	var b strings.Builder
	b.WriteString("Date,Description,Amount\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "2024-03-%02d,Merchant Number %d,-%d.50\n", i+1, i+1, i+10)
	}
	return b.String()
}

func TestNormalizeCanonicalStatement(t *testing.T) {
	normalizer := New()

	result, err := normalizer.Normalize(buildCanonicalStatement(10), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.SuccessRate != 1.0 {
		t.Errorf("SuccessRate = %v, want 1.0", result.SuccessRate)
	}
	if len(result.RowErrors) != 0 {
		t.Errorf("RowErrors = %v, want none", result.RowErrors)
	}
	if len(result.Transactions) != 10 {
		t.Fatalf("expected 10 transactions, got %d", len(result.Transactions))
	}

	first := result.Transactions[0]
	if !first.Date.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first date = %s, want 2024-03-01", first.Date)
	}
	if first.Description != "Merchant Number 1" {
		t.Errorf("first description = %q", first.Description)
	}
	if first.Amount.String() != "-10.5" {
		t.Errorf("first amount = %s, want -10.5", first.Amount.String())
	}
	if first.RawLine == "" {
		t.Error("raw line should be preserved for diagnostics")
	}
}

func TestNormalizeMalformedInput(t *testing.T) {
	normalizer := New()

	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"single line", "Date,Description,Amount"},
		{"narrow header", "Date,Amount\n2024-03-01,-5.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := normalizer.Normalize(tt.raw, nil)
			if !apperrors.HasCode(err, apperrors.CodeMalformedInput) {
				t.Errorf("expected MalformedInput, got %v", err)
			}
		})
	}
}

func TestNormalizeWithColumnHints(t *testing.T) {
	normalizer := New()

	// Short opaque values keep the Ref column below auto-detection
	// confidence, so only the hint can resolve the description role.
	raw := "Posted,Ref,Amt,Cat\n" +
		"2024-03-01,Coffee,-4.50,Food\n" +
		"2024-03-02,Tea,-2.10,Food\n"

	if _, err := normalizer.Normalize(raw, nil); !apperrors.HasCode(err, apperrors.CodeColumnResolution) {
		t.Fatalf("fixture should not auto-resolve, got %v", err)
	}

	hints := &ColumnHints{
		DateColumn:        "Posted",
		AmountColumn:      "Amt",
		DescriptionColumn: "Ref",
	}

	result, err := normalizer.Normalize(raw, hints)
	if err != nil {
		t.Fatalf("unexpected error with hints: %v", err)
	}

	if len(result.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(result.Transactions))
	}
	if result.Transactions[0].Description != "Coffee" {
		t.Errorf("description = %q, hint should select the Ref column", result.Transactions[0].Description)
	}
}

func TestNormalizeHintsAreCaseInsensitiveSubstrings(t *testing.T) {
	normalizer := New()

	raw := "Posting Date,Transaction Details,Debit Amount\n" +
		"2024-03-01,Coffee Shop,-4.50\n" +
		"2024-03-02,Book Store,-12.00\n"

	hints := &ColumnHints{
		DateColumn:        "posting",
		AmountColumn:      "debit",
		DescriptionColumn: "details",
	}

	result, err := normalizer.Normalize(raw, hints)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Transactions) != 2 {
		t.Errorf("expected 2 transactions, got %d", len(result.Transactions))
	}
}

func TestNormalizeColumnResolutionFailure(t *testing.T) {
	normalizer := New()

	// Opaque headers and short, non-date, non-amount content
	raw := "A,B,C\nx,y,z\nq,w,e\n"

	_, err := normalizer.Normalize(raw, nil)
	if !apperrors.HasCode(err, apperrors.CodeColumnResolution) {
		t.Fatalf("expected ColumnResolution, got %v", err)
	}

	reconcilerErr, _ := apperrors.AsReconcilerError(err)
	detections, ok := reconcilerErr.Context[apperrors.ContextColumnDetections].([]models.ColumnDetection)
	if !ok {
		t.Fatal("error should carry the column detection report")
	}
	if len(detections) != 3 {
		t.Errorf("expected 3 detections, got %d", len(detections))
	}
}

func TestNormalizeLowParseYield(t *testing.T) {
	normalizer := New()

	// Columns are named via hints so resolution succeeds and the failure
	// happens in row parsing, 9 rows out of 10.
	var b strings.Builder
	b.WriteString("Date,Description,Amount\n")
	b.WriteString("2024-03-01,Valid Merchant Row,-5.00\n")
	for i := 0; i < 9; i++ {
		b.WriteString("not-a-date,Some Merchant Name,not-an-amount\n")
	}
	hints := &ColumnHints{
		DateColumn:        "Date",
		AmountColumn:      "Amount",
		DescriptionColumn: "Description",
	}

	_, err := normalizer.Normalize(b.String(), hints)
	if !apperrors.HasCode(err, apperrors.CodeLowParseYield) {
		t.Fatalf("expected LowParseYield, got %v", err)
	}

	reconcilerErr, _ := apperrors.AsReconcilerError(err)
	rowErrors, ok := reconcilerErr.Context[apperrors.ContextRowErrors].([]RowError)
	if !ok {
		t.Fatal("error should carry the row error list")
	}
	if len(rowErrors) != 9 {
		t.Errorf("row error list length = %d, want 9", len(rowErrors))
	}
	detections, ok := reconcilerErr.Context[apperrors.ContextColumnDetections].([]models.ColumnDetection)
	if !ok {
		t.Fatal("error should carry the column detection report")
	}
	if len(detections) != 3 {
		t.Errorf("expected 3 detections, got %d", len(detections))
	}
	if rate, ok := reconcilerErr.Context[apperrors.ContextSuccessRate].(float64); !ok || rate != 0.1 {
		t.Errorf("success rate context = %v, want 0.1", reconcilerErr.Context[apperrors.ContextSuccessRate])
	}
}

func TestNormalizeRowErrorsBelowThresholdAreNonFatal(t *testing.T) {
	normalizer := New()

	raw := buildCanonicalStatement(9) + "broken-date,Broken Row Here,-1.00\n"

	result, err := normalizer.Normalize(raw, nil)
	if err != nil {
		t.Fatalf("a single bad row out of 10 should not be fatal, got %v", err)
	}

	if result.ParsedRows != 9 {
		t.Errorf("ParsedRows = %d, want 9", result.ParsedRows)
	}
	if len(result.RowErrors) != 1 {
		t.Fatalf("expected 1 row error, got %d", len(result.RowErrors))
	}
	if result.RowErrors[0].Row != 11 {
		t.Errorf("row error should reference row 11, got %d", result.RowErrors[0].Row)
	}
}

func TestNormalizeParenthesizedAmounts(t *testing.T) {
	normalizer := New()

	raw := "Date,Description,Amount\n" +
		"2024-03-01,Utility Payment,(12.34)\n" +
		"2024-03-02,Refund Credit,56.78\n"

	result, err := normalizer.Normalize(raw, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Transactions[0].Amount.String() != "-12.34" {
		t.Errorf("parenthesized amount = %s, want -12.34", result.Transactions[0].Amount.String())
	}
	if result.Transactions[1].Amount.String() != "56.78" {
		t.Errorf("plain amount = %s, want 56.78", result.Transactions[1].Amount.String())
	}
}

func TestNormalizeSemicolonDelimiter(t *testing.T) {
	normalizer := New()

	raw := "Date;Description;Amount\n" +
		"2024-03-01;Hardware Store;-45.00\n" +
		"2024-03-02;Garden Center;-12.99\n"

	result, err := normalizer.Normalize(raw, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Transactions) != 2 {
		t.Errorf("expected 2 transactions, got %d", len(result.Transactions))
	}
}

func TestNormalizeQuotedFields(t *testing.T) {
	normalizer := New()

	raw := "Date,Description,Amount\n" +
		`2024-03-01,"Restaurant, Downtown",-25.00` + "\n" +
		`2024-03-02,"The ""Corner"" Cafe",-8.00` + "\n"

	result, err := normalizer.Normalize(raw, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Transactions[0].Description != "Restaurant, Downtown" {
		t.Errorf("quoted delimiter mishandled: %q", result.Transactions[0].Description)
	}
	if result.Transactions[1].Description != `The "Corner" Cafe` {
		t.Errorf("escaped quote mishandled: %q", result.Transactions[1].Description)
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	normalizer := New()
	raw := buildCanonicalStatement(10)

	first, err := normalizer.Normalize(raw, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := normalizer.Normalize(raw, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first.Transactions) != len(second.Transactions) {
		t.Fatal("repeated normalization changed transaction count")
	}
	for i := range first.Transactions {
		a, b := first.Transactions[i], second.Transactions[i]
		if !a.Date.Equal(b.Date) || a.Description != b.Description || !a.Amount.Equal(b.Amount) {
			t.Errorf("transaction %d differs between runs", i)
		}
	}
}

func TestTokenizeLine(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		delimiter rune
		expected  []string
	}{
		{"plain", "a,b,c", ',', []string{"a", "b", "c"}},
		{"quoted delimiter", `a,"b,c",d`, ',', []string{"a", "b,c", "d"}},
		{"escaped quote", `a,"say ""hi""",c`, ',', []string{"a", `say "hi"`, "c"}},
		{"trailing empty", "a,b,", ',', []string{"a", "b", ""}},
		{"tab delimited", "a\tb\tc", '\t', []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenizeLine(tt.line, tt.delimiter)
			if len(got) != len(tt.expected) {
				t.Fatalf("field count = %d, want %d (%v)", len(got), len(tt.expected), got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("field %d = %q, want %q", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestDetectColumn(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		samples  []string
		wantType models.ColumnType
	}{
		{"named date column", "Date", []string{"2024-03-01", "2024-03-02", "2024-03-03"}, models.ColumnDate},
		{"named amount column", "Amount", []string{"-5.00", "12.34", "-99.10"}, models.ColumnAmount},
		{"named description column", "Description", []string{"Grocery Store", "Coffee Shop", "Gas Station"}, models.ColumnDescription},
		{"unnamed date by content", "Col1", []string{"2024-03-01", "2024-03-02", "2024-03-03"}, models.ColumnDate},
		{"unnamed amount by content", "Col2", []string{"-5.00", "-1.25", "3.99"}, models.ColumnAmount},
		{"long text defaults to description", "Col3", []string{"Payment to Electric Company", "Transfer from Savings Acct"}, models.ColumnDescription},
		{"short opaque column", "Col4", []string{"x", "y", "z"}, models.ColumnUnknown},
		{"date-named column with junk content", "Date", []string{"n/a", "n/a", "n/a"}, models.ColumnUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectColumn(tt.header, tt.samples)
			if got.Type != tt.wantType {
				t.Errorf("detectColumn(%q) type = %s, want %s", tt.header, got.Type, tt.wantType)
			}
			if got.Type == models.ColumnUnknown && got.Confidence != 0 {
				t.Errorf("unknown column should have zero confidence, got %v", got.Confidence)
			}
			if len(got.SampleValues) > 3 {
				t.Errorf("sample values should be capped at 3, got %d", len(got.SampleValues))
			}
		})
	}
}

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		header   string
		expected rune
	}{
		{"a,b,c", ','},
		{"a;b;c", ';'},
		{"a\tb\tc", '\t'},
		{"a|b|c", '|'},
	}

	for _, tt := range tests {
		if got := detectDelimiter(tt.header); got != tt.expected {
			t.Errorf("detectDelimiter(%q) = %q, want %q", tt.header, got, tt.expected)
		}
	}
}
