package classifier

import (
	"context"
	"strings"
	"unicode"
)

// Lexicon is a word-list model for development and tests.
// Each known word counts toward its polarity; a preceding negator flips it.
// Ties, including texts with no known words, are POSITIVE.
type Lexicon struct {
	positive map[string]struct{}
	negative map[string]struct{}
	negators map[string]struct{}
}

// NewLexicon returns a Lexicon with the built-in English word lists.
func NewLexicon() *Lexicon {
	return &Lexicon{
		positive: set(
			"amazing", "awesome", "beautiful", "best", "brilliant", "calm", "cool",
			"delight", "delighted", "delightful", "enjoy", "enjoyed", "excellent",
			"fantastic", "fine", "fun", "glad", "good", "great", "happy", "helpful",
			"like", "liked", "love", "loved", "lovely", "nice", "perfect", "pleased",
			"recommend", "satisfied", "super", "thanks", "wonderful", "wow",
		),
		negative: set(
			"angry", "annoying", "awful", "bad", "boring", "broken", "disappointed",
			"disappointing", "dislike", "fail", "failed", "hate", "hated", "horrible",
			"poor", "sad", "slow", "terrible", "ugly", "unhappy", "useless", "worse",
			"worst", "wrong",
		),
		negators: set("not", "no", "never", "dont", "don't", "isnt", "isn't", "wasnt", "wasn't", "cannot", "can't"),
	}
}

// Classify scores text by counting polar words.
func (l *Lexicon) Classify(ctx context.Context, text string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var pos, neg int
	negate := false
	for _, word := range tokenize(text) {
		if _, ok := l.negators[word]; ok {
			negate = true
			continue
		}

		polarity := 0
		if _, ok := l.positive[word]; ok {
			polarity = 1
		} else if _, ok := l.negative[word]; ok {
			polarity = -1
		}
		if negate {
			polarity = -polarity
			negate = false
		}

		switch polarity {
		case 1:
			pos++
		case -1:
			neg++
		}
	}

	diff := pos - neg
	label := LabelPositive
	if diff < 0 {
		label = LabelNegative
		diff = -diff
	}

	score := 0.5 + 0.5*float64(diff)/float64(pos+neg+1)
	return Result{Label: label, Score: score}, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
