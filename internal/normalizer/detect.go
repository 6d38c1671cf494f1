package normalizer

import (
	"strings"
	"unicode"

	"ledger-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

const (
	// namedThreshold applies when the header name carries a role keyword
	namedThreshold = 0.7
	// genericThreshold applies to content-only classification
	genericThreshold = 0.8
	// descriptionFallbackLength is the average sample length above which an
	// otherwise-unclassified column defaults to description
	descriptionFallbackLength = 10
)

// Header keywords that suggest a column's role. Matched case-insensitively
// by substring.
var (
	dateKeywords        = []string{"date", "posted", "time", "day"}
	amountKeywords      = []string{"amount", "amt", "debit", "credit", "value", "sum", "total"}
	descriptionKeywords = []string{"desc", "payee", "memo", "merchant", "name", "detail", "narrative", "reference"}
)

// detectColumn classifies a single statement column from its header name and
// sampled values. It is a pure function so the heuristics can be tested in
// isolation from the row-parsing loop.
func detectColumn(name string, samples []string) models.ColumnDetection {
	detection := models.ColumnDetection{
		ColumnName:   name,
		Type:         models.ColumnUnknown,
		SampleValues: sampleSubset(samples),
	}

	lowerName := strings.ToLower(name)
	dateScore := scoreDateSamples(samples)
	amountScore := scoreAmountSamples(samples)

	// A role keyword in the header lowers the bar for its role. A keyword
	// column whose content does not back the claim falls through to the
	// generic content checks.
	if containsAny(lowerName, dateKeywords) && dateScore > namedThreshold {
		detection.Type = models.ColumnDate
		detection.Confidence = dateScore
		return detection
	}

	if containsAny(lowerName, amountKeywords) && amountScore > namedThreshold {
		detection.Type = models.ColumnAmount
		detection.Confidence = amountScore
		return detection
	}

	if containsAny(lowerName, descriptionKeywords) {
		detection.Type = models.ColumnDescription
		detection.Confidence = scoreDescriptionSamples(samples)
		return detection
	}

	if dateScore > genericThreshold {
		detection.Type = models.ColumnDate
		detection.Confidence = dateScore
		return detection
	}

	if amountScore > genericThreshold {
		detection.Type = models.ColumnAmount
		detection.Confidence = amountScore
		return detection
	}

	if averageLength(samples) > descriptionFallbackLength {
		detection.Type = models.ColumnDescription
		detection.Confidence = scoreDescriptionSamples(samples)
		return detection
	}

	return detection
}

// scoreDateSamples returns the fraction of samples that parse under the
// fixed statement date pattern set.
func scoreDateSamples(samples []string) float64 {
	if len(samples) == 0 {
		return 0
	}

	parsed := 0
	for _, sample := range samples {
		if _, err := models.ParseStatementDate(sample); err == nil {
			parsed++
		}
	}
	return float64(parsed) / float64(len(samples))
}

// scoreAmountSamples returns the fraction of samples that, after stripping
// currency symbols and separators, parse as a number carrying a decimal
// point or a sign.
func scoreAmountSamples(samples []string) float64 {
	if len(samples) == 0 {
		return 0
	}

	parsed := 0
	for _, sample := range samples {
		if looksLikeAmount(sample) {
			parsed++
		}
	}
	return float64(parsed) / float64(len(samples))
}

func looksLikeAmount(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}

	// Accounting-style parentheses count as a sign
	signed := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")

	cleaned := s
	if signed {
		cleaned = cleaned[1 : len(cleaned)-1]
	}
	for _, symbol := range []string{"$", "€", "£", "¥", ","} {
		cleaned = strings.ReplaceAll(cleaned, symbol, "")
	}
	cleaned = strings.ReplaceAll(cleaned, "−", "-")
	cleaned = strings.TrimSpace(cleaned)

	if _, err := decimal.NewFromString(cleaned); err != nil {
		return false
	}

	return signed || strings.ContainsAny(cleaned, ".-")
}

// scoreDescriptionSamples returns the fraction of samples that look like
// free text: longer than 5 characters and containing at least one letter.
func scoreDescriptionSamples(samples []string) float64 {
	if len(samples) == 0 {
		return 0
	}

	texty := 0
	for _, sample := range samples {
		if len(sample) > 5 && containsLetter(sample) {
			texty++
		}
	}
	return float64(texty) / float64(len(samples))
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}

func averageLength(samples []string) float64 {
	if len(samples) == 0 {
		return 0
	}

	total := 0
	for _, sample := range samples {
		total += len(sample)
	}
	return float64(total) / float64(len(samples))
}

func sampleSubset(samples []string) []string {
	if len(samples) <= maxSampleValues {
		return samples
	}
	return samples[:maxSampleValues]
}
