package matcher

import (
	"strings"
	"unicode"
)

// Similarity floors and boosts. Escalating floors reward shared tokens even
// when the overlap ratio is diluted by extra noise tokens on one side.
const (
	anyOverlapFloor      = 0.5
	multiOverlapFloor    = 0.7
	stringSubstringFloor = 0.8
	tokenSubstringFloor  = 0.6
	importantBoost       = 0.3
	importantBoostLow    = 0.4
	lowScoreCutoff       = 0.3
	bothEmptyScore       = 0.1
)

// Similarity scores how alike a ledger payee name and a statement
// description are, in [0,1]. The score is a token-overlap ratio with
// escalating floors and an important-token boost; see the config for the
// injected token tables.
func (m *Matcher) Similarity(payee, description string) float64 {
	payeeTokens := m.tokenize(payee)
	descTokens := m.tokenize(description)

	if len(payeeTokens) == 0 || len(descTokens) == 0 {
		if len(payeeTokens) == 0 && len(descTokens) == 0 {
			return bothEmptyScore
		}
		return 0
	}

	common := 0
	for token := range payeeTokens {
		if descTokens[token] {
			common++
		}
	}

	larger := len(payeeTokens)
	if len(descTokens) > larger {
		larger = len(descTokens)
	}
	score := float64(common) / float64(larger)

	if common > 0 && score < anyOverlapFloor {
		score = anyOverlapFloor
	}
	if common >= 2 && score < multiOverlapFloor {
		score = multiOverlapFloor
	}
	if common == len(payeeTokens) && common == len(descTokens) {
		score = 1.0
	}

	lowerPayee := strings.ToLower(strings.TrimSpace(payee))
	lowerDesc := strings.ToLower(strings.TrimSpace(description))
	if lowerPayee != "" && lowerDesc != "" &&
		(strings.Contains(lowerPayee, lowerDesc) || strings.Contains(lowerDesc, lowerPayee)) &&
		score < stringSubstringFloor {
		score = stringSubstringFloor
	}

	if score < tokenSubstringFloor && hasTokenSubstring(payeeTokens, descTokens) {
		score = tokenSubstringFloor
	}

	if m.hasImportantTokenOnBothSides(payeeTokens, descTokens) {
		if score <= lowScoreCutoff {
			score += importantBoostLow
		} else {
			score += importantBoost
		}
		if score > 1.0 {
			score = 1.0
		}
	}

	return score
}

// tokenize splits a payee or description into the token set used for
// similarity scoring: lowercased, split on whitespace and punctuation,
// synonym-normalized, with short tokens, stop words and pure numbers
// discarded.
func (m *Matcher) tokenize(s string) map[string]bool {
	raw := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make(map[string]bool)
	for _, token := range raw {
		if canonical, ok := m.config.Synonyms[token]; ok {
			token = canonical
		}
		if len(token) <= 2 {
			continue
		}
		if m.config.StopWords[token] {
			continue
		}
		if isNumeric(token) {
			continue
		}
		tokens[token] = true
	}
	return tokens
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

// hasTokenSubstring reports whether any token on one side is a strict
// substring of a token on the other side. Equal tokens are already covered
// by the overlap floors.
func hasTokenSubstring(a, b map[string]bool) bool {
	for ta := range a {
		for tb := range b {
			if ta == tb {
				continue
			}
			if strings.Contains(ta, tb) || strings.Contains(tb, ta) {
				return true
			}
		}
	}
	return false
}

func (m *Matcher) hasImportantTokenOnBothSides(a, b map[string]bool) bool {
	for token := range a {
		if m.config.ImportantTokens[token] && b[token] {
			return true
		}
	}
	return false
}
