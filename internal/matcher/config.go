package matcher

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Config holds the tunable inputs of the matching engine. The token tables
// are static lookup data injected here rather than package-level mutable
// state, so alternate vocabularies can be supplied per deployment.
type Config struct {
	// Tolerance is the absolute amount difference (major currency units)
	// within which two amounts are considered equal.
	Tolerance decimal.Decimal

	// StopWords are generic banking tokens discarded before similarity
	// scoring.
	StopWords map[string]bool

	// Synonyms collapses known processor/bank aliases to a canonical token.
	Synonyms map[string]string

	// ImportantTokens are brand tokens that boost similarity when present on
	// both sides. The default set is illustrative; deployments should supply
	// their own vocabulary.
	ImportantTokens map[string]bool
}

// DefaultTolerance is the default amount-equality tolerance.
var DefaultTolerance = decimal.NewFromFloat(0.01)

// DefaultConfig returns a matching configuration with the standard token
// tables and the default tolerance.
func DefaultConfig() *Config {
	return &Config{
		Tolerance:       DefaultTolerance,
		StopWords:       defaultStopWords(),
		Synonyms:        defaultSynonyms(),
		ImportantTokens: defaultImportantTokens(),
	}
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.Tolerance.IsNegative() {
		return fmt.Errorf("tolerance cannot be negative")
	}
	return nil
}

// Clone returns a copy of the configuration with copied token tables.
func (c *Config) Clone() *Config {
	clone := &Config{
		Tolerance:       c.Tolerance,
		StopWords:       make(map[string]bool, len(c.StopWords)),
		Synonyms:        make(map[string]string, len(c.Synonyms)),
		ImportantTokens: make(map[string]bool, len(c.ImportantTokens)),
	}
	for k, v := range c.StopWords {
		clone.StopWords[k] = v
	}
	for k, v := range c.Synonyms {
		clone.Synonyms[k] = v
	}
	for k, v := range c.ImportantTokens {
		clone.ImportantTokens[k] = v
	}
	return clone
}

func defaultStopWords() map[string]bool {
	words := []string{
		"ach", "pos", "debit", "credit", "payment", "pmt", "purchase",
		"withdrawal", "deposit", "transaction", "card", "online", "web",
		"recurring", "pending", "inc", "llc", "ltd", "corp", "company",
		"the", "and",
	}
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func defaultSynonyms() map[string]string {
	return map[string]string{
		"amzn":     "amazon",
		"amazn":    "amazon",
		"wmt":      "walmart",
		"wal":      "walmart",
		"mart":     "walmart",
		"sbux":     "starbucks",
		"mcd":      "mcdonalds",
		"mcdonald": "mcdonalds",
		"pypl":     "paypal",
		"sq":       "square",
		"tgt":      "target",
	}
}

func defaultImportantTokens() map[string]bool {
	tokens := []string{
		"amazon", "walmart", "target", "costco", "starbucks", "netflix",
		"spotify", "apple", "google", "paypal", "venmo", "uber",
	}
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}
