// Package normalizer turns raw, schema-unknown delimited bank statement
// exports into structured statement transactions.
//
// Real statement exports vary widely: different delimiters, quoted fields,
// arbitrary column names and orders, regional date formats, and amounts
// written with currency symbols, thousands separators or accounting-style
// parentheses. The normalizer handles this by inferring the schema instead
// of requiring one:
//
//   - The delimiter is picked from a fixed candidate set by header field count.
//   - Each column is classified (date, amount, description, unknown) from its
//     header name and a sample of data rows, producing a per-column
//     confidence report.
//   - The three required roles are resolved either from caller-supplied
//     column hints or from the highest-confidence detections.
//   - Rows that fail to parse are recorded but only become fatal when the
//     overall parse yield drops below 80%.
//
// Normalization is a pure function of its inputs: identical text and hints
// always produce identical output.
package normalizer

import (
	"fmt"
	"strings"

	"ledger-reconciliation-service/internal/models"
	apperrors "ledger-reconciliation-service/pkg/errors"
	"ledger-reconciliation-service/pkg/logger"
)

const (
	// sampleLimit caps how many data rows feed column classification
	sampleLimit = 10
	// minSuccessRate is the parse-yield gate below which normalization fails
	minSuccessRate = 0.8
	// resolveThreshold is the minimum detection confidence for auto-resolution
	resolveThreshold = 0.7
	// maxSampleValues caps the diagnostic samples kept per column
	maxSampleValues = 3
)

// ColumnHints names the statement columns to use for each role, overriding
// automatic detection. Matching is by case-insensitive substring against the
// header names. Empty fields fall back to detection for that role.
type ColumnHints struct {
	DateColumn        string `json:"date_column,omitempty"`
	AmountColumn      string `json:"amount_column,omitempty"`
	DescriptionColumn string `json:"description_column,omitempty"`
}

// RowError records why a single data row was rejected.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func (e RowError) String() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// Result is the output of a successful normalization.
type Result struct {
	Transactions []*models.StatementTransaction
	Detections   []models.ColumnDetection
	RowErrors    []RowError
	TotalRows    int
	ParsedRows   int
	SuccessRate  float64
}

// Normalizer converts raw delimited statement text into statement
// transactions. It holds no per-invocation state and is safe for concurrent
// use.
type Normalizer struct {
	log logger.Logger
}

// New creates a Normalizer.
func New() *Normalizer {
	return &Normalizer{
		log: logger.WithComponent("normalizer"),
	}
}

// Normalize parses raw statement text into statement transactions.
//
// Failure modes: MalformedInput when the text cannot be treated as a
// delimited export at all, ColumnResolution when the date, description or
// amount columns cannot be identified (the error carries the full detection
// report), and LowParseYield when more than 20% of data rows fail to parse
// (the error carries the accumulated row errors and the detection report).
func (n *Normalizer) Normalize(raw string, hints *ColumnHints) (*Result, error) {
	lines := splitLines(raw)
	if len(lines) < 2 {
		return nil, apperrors.MalformedInput("statement has fewer than 2 lines")
	}

	delimiter := detectDelimiter(lines[0])
	header := tokenizeLine(lines[0], delimiter)
	if len(header) < 3 {
		return nil, apperrors.MalformedInput(
			fmt.Sprintf("header row has %d fields, at least 3 are required", len(header)))
	}

	dataRows := lines[1:]
	samples := collectSamples(dataRows, delimiter, len(header))

	detections := make([]models.ColumnDetection, len(header))
	for i, name := range header {
		detections[i] = detectColumn(strings.TrimSpace(name), samples[i])
	}

	roles, missing := resolveColumns(header, detections, hints)
	if len(missing) > 0 {
		n.log.WithFields(logger.Fields{
			"missing": missing,
			"columns": len(header),
		}).Warn("statement column resolution failed")
		return nil, apperrors.ColumnResolution(missing, detections)
	}

	result := &Result{
		Detections: detections,
		TotalRows:  len(dataRows),
	}

	for i, line := range dataRows {
		rowNum := i + 2 // 1-based, counting the header row
		tx, err := parseRow(line, delimiter, roles)
		if err != nil {
			result.RowErrors = append(result.RowErrors, RowError{Row: rowNum, Message: err.Error()})
			continue
		}
		result.Transactions = append(result.Transactions, tx)
		result.ParsedRows++
	}

	result.SuccessRate = float64(result.ParsedRows) / float64(result.TotalRows)
	if result.SuccessRate < minSuccessRate {
		return nil, apperrors.LowParseYield(result.SuccessRate, result.RowErrors).
			WithContext(apperrors.ContextColumnDetections, result.Detections)
	}

	n.log.WithFields(logger.Fields{
		"total_rows":   result.TotalRows,
		"parsed_rows":  result.ParsedRows,
		"success_rate": result.SuccessRate,
	}).Debug("statement normalized")

	return result, nil
}

// columnRoles holds the resolved column index for each required role.
type columnRoles struct {
	date        int
	description int
	amount      int
}

// parseRow extracts one statement transaction from a data row.
func parseRow(line string, delimiter rune, roles columnRoles) (*models.StatementTransaction, error) {
	fields := tokenizeLine(line, delimiter)

	maxIdx := roles.date
	if roles.description > maxIdx {
		maxIdx = roles.description
	}
	if roles.amount > maxIdx {
		maxIdx = roles.amount
	}
	if len(fields) <= maxIdx {
		return nil, fmt.Errorf("expected at least %d fields, found %d", maxIdx+1, len(fields))
	}

	date, err := models.ParseStatementDate(fields[roles.date])
	if err != nil {
		return nil, fmt.Errorf("invalid date: %v", err)
	}

	amount, err := models.ParseDecimalAmount(fields[roles.amount])
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %v", err)
	}

	description := strings.TrimSpace(fields[roles.description])
	if description == "" {
		return nil, fmt.Errorf("empty description")
	}

	return &models.StatementTransaction{
		Date:        date,
		Description: description,
		Amount:      amount,
		RawLine:     line,
	}, nil
}

// resolveColumns maps each role to a column index, from hints when supplied
// and highest-confidence detection otherwise. The second return value lists
// the roles that could not be resolved.
func resolveColumns(header []string, detections []models.ColumnDetection, hints *ColumnHints) (columnRoles, []string) {
	roles := columnRoles{date: -1, description: -1, amount: -1}
	var missing []string

	roles.date = resolveRole(header, detections, models.ColumnDate, hintField(hints, models.ColumnDate))
	roles.description = resolveRole(header, detections, models.ColumnDescription, hintField(hints, models.ColumnDescription))
	roles.amount = resolveRole(header, detections, models.ColumnAmount, hintField(hints, models.ColumnAmount))

	if roles.date < 0 {
		missing = append(missing, string(models.ColumnDate))
	}
	if roles.description < 0 {
		missing = append(missing, string(models.ColumnDescription))
	}
	if roles.amount < 0 {
		missing = append(missing, string(models.ColumnAmount))
	}

	return roles, missing
}

func hintField(hints *ColumnHints, role models.ColumnType) string {
	if hints == nil {
		return ""
	}
	switch role {
	case models.ColumnDate:
		return strings.TrimSpace(hints.DateColumn)
	case models.ColumnAmount:
		return strings.TrimSpace(hints.AmountColumn)
	case models.ColumnDescription:
		return strings.TrimSpace(hints.DescriptionColumn)
	default:
		return ""
	}
}

// resolveRole finds the column index for one role. A non-empty hint is
// matched by case-insensitive substring against header names; without a hint
// the highest-confidence detection of the right type wins, subject to the
// resolution threshold. Returns -1 when unresolved.
func resolveRole(header []string, detections []models.ColumnDetection, role models.ColumnType, hint string) int {
	if hint != "" {
		lowerHint := strings.ToLower(hint)
		for i, name := range header {
			if strings.Contains(strings.ToLower(strings.TrimSpace(name)), lowerHint) {
				return i
			}
		}
		return -1
	}

	best := -1
	bestConfidence := 0.0
	for i, det := range detections {
		if det.Type != role {
			continue
		}
		if det.Confidence >= resolveThreshold && det.Confidence > bestConfidence {
			best = i
			bestConfidence = det.Confidence
		}
	}
	return best
}

// collectSamples gathers up to sampleLimit values per column for
// classification.
func collectSamples(dataRows []string, delimiter rune, columns int) [][]string {
	samples := make([][]string, columns)

	for i, line := range dataRows {
		if i >= sampleLimit {
			break
		}
		fields := tokenizeLine(line, delimiter)
		for c := 0; c < columns && c < len(fields); c++ {
			value := strings.TrimSpace(fields[c])
			if value != "" {
				samples[c] = append(samples[c], value)
			}
		}
	}

	return samples
}

// splitLines splits raw statement text into non-empty lines.
func splitLines(raw string) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// delimiterCandidates are tried in order; ties go to the earliest.
var delimiterCandidates = []rune{',', ';', '\t', '|'}

// detectDelimiter picks the candidate that splits the header into the most
// fields.
func detectDelimiter(headerLine string) rune {
	best := delimiterCandidates[0]
	bestFields := len(tokenizeLine(headerLine, best))

	for _, candidate := range delimiterCandidates[1:] {
		if n := len(tokenizeLine(headerLine, candidate)); n > bestFields {
			best = candidate
			bestFields = n
		}
	}

	return best
}

// tokenizeLine splits a line on the delimiter, respecting quoted fields. A
// quote character toggles the in-quotes state, so delimiters inside quotes
// are not field boundaries; a doubled quote inside a quoted field is a
// literal quote.
func tokenizeLine(line string, delimiter rune) []string {
	var fields []string
	var current strings.Builder
	inQuotes := false

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				current.WriteRune('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case r == delimiter && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	fields = append(fields, current.String())

	return fields
}
