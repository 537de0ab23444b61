// Package classify assigns subjects to discovered posts and decides whether a
// post is a pain-point candidate at all. Resolution is tiered: a curated
// source mapping always wins over keyword inference, and keyword inference
// only applies when no source is known (the reconciliation case).
package classify

import (
	"strings"
	"unicode"

	"ideaengine/internal/taxonomy"
)

// Result describes one classification. Subject is empty when no tier
// resolved. AdHoc marks a tier-2 hit: the source was not in the curated map
// and its capitalized name was used instead of a taxonomy subject.
type Result struct {
	Subject string
	AdHoc   bool
}

type Classifier struct {
	tax taxonomy.Taxonomy
}

func New(tax taxonomy.Taxonomy) *Classifier {
	return &Classifier{tax: tax}
}

// Classify resolves a subject for the given text and optional source.
// Order: curated source mapping, capitalized source fallback, keyword rules,
// unknown. First match wins.
func (c *Classifier) Classify(title, body, source string) Result {
	if source != "" {
		if subject, ok := c.tax.SourceSubjects[strings.ToLower(source)]; ok {
			return Result{Subject: string(subject)}
		}
		return Result{Subject: capitalize(source), AdHoc: true}
	}

	text := strings.ToLower(title + " " + body)
	for _, rule := range c.tax.KeywordRules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(text, keyword) {
				return Result{Subject: string(rule.Subject)}
			}
		}
	}
	return Result{}
}

// IsCandidate reports whether the post text contains at least one pain-point
// term. Pure and deterministic.
func (c *Classifier) IsCandidate(title, body string) bool {
	text := strings.ToLower(title + " " + body)
	for _, term := range c.tax.PainLexicon {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
