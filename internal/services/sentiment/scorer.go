// Package sentiment scores independent lines of text against a word polarity lexicon.
package sentiment

import (
	"strings"
	"unicode"

	"SignalLab/internal/domain/models"
	domsvc "SignalLab/internal/domain/service"
)

// Scorer applies a fixed Lexicon. It holds no mutable state and is safe for
// concurrent use.
type Scorer struct {
	lexicon     Lexicon
	fingerprint string
}

// NewScorer builds a Scorer. A nil lexicon scores every word as 0.
func NewScorer(lexicon Lexicon) *Scorer {
	if lexicon == nil {
		lexicon = Lexicon{}
	}
	return &Scorer{lexicon: lexicon, fingerprint: lexicon.Fingerprint()}
}

// Fingerprint identifies the lexicon the scorer was built with.
func (s *Scorer) Fingerprint() string { return s.fingerprint }

// Analyze scores every non-empty trimmed line of raw, preserving input order.
func (s *Scorer) Analyze(raw string) []models.SentimentResult {
	lines := SplitLines(raw)
	out := make([]models.SentimentResult, 0, len(lines))
	for _, line := range lines {
		score, comparative := s.ScoreLine(line)
		out = append(out, models.SentimentResult{
			Text:        line,
			Score:       score,
			Comparative: comparative,
			Label:       Classify(score),
		})
	}
	return out
}

// ScoreLine sums token polarities. Comparative divides by every token in the
// line, including words the lexicon does not know.
func (s *Scorer) ScoreLine(line string) (score int, comparative float64) {
	tokens := Tokenize(line)
	for _, tok := range tokens {
		score += s.lexicon.Polarity(tok)
	}
	if len(tokens) > 0 {
		comparative = float64(score) / float64(len(tokens))
	}
	return score, comparative
}

// SplitLines splits on \n or \r\n, trims each piece and drops empty ones.
func SplitLines(raw string) []string {
	parts := strings.Split(raw, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.TrimSuffix(p, "\r"))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Tokenize lowercases text and splits it into runs of letters, digits and
// in-word apostrophes.
func Tokenize(text string) []string {
	var words []string
	var current strings.Builder

	flush := func() {
		w := strings.Trim(current.String(), "'")
		if w != "" {
			words = append(words, w)
		}
		current.Reset()
	}

	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			current.WriteRune(unicode.ToLower(r))
		case r == '\'' || r == '’':
			if current.Len() > 0 {
				current.WriteRune('\'')
			}
		default:
			if current.Len() > 0 {
				flush()
			}
		}
	}
	if current.Len() > 0 {
		flush()
	}
	return words
}

// Classify labels a score with exact thresholds at +1 and -1.
func Classify(score int) models.Label {
	switch {
	case score >= 1:
		return models.LabelPositive
	case score <= -1:
		return models.LabelNegative
	default:
		return models.LabelNeutral
	}
}

var _ domsvc.SentimentAnalyzer = (*Scorer)(nil)
