// Package classifier maps request text to a provisional routing decision.
//
// Classification is a deterministic, ordered rule set: tiers are evaluated top
// to bottom and the first match wins. Tier order is semantically significant
// because the pattern sets overlap ("show me" is interrogative, "show" alone
// is an edit verb).
package classifier

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zen-systems/promptroute/pkg/route"
)

// ErrEmptyRequest is returned for empty or whitespace-only input. Empty input
// is a caller error, not a classification case.
var ErrEmptyRequest = errors.New("request text is empty")

// Fixed per-tier confidences.
const (
	MetaChatConfidence     = 0.95
	DirectEditConfidence   = 0.90
	RefactorConfidence     = 0.85
	FeatureBuildConfidence = 0.80
)

// directEditMaxWords bounds the short action-first pattern: anything longer
// reads as a feature request even when it starts with an edit verb.
const directEditMaxWords = 10

var (
	interrogativePrefixes = []string{
		"what", "how", "why", "can you", "tell me", "describe", "show me",
	}
	editVerbPrefixes = []string{
		"change", "update", "make", "set", "show", "hide", "remove", "add", "fix",
	}
	styleMutationPhrases = []string{
		"change the background", "change the color", "change the text",
		"change the font", "change the size",
	}
	refactorPrefixes = []string{
		"refactor", "optimize", "improve", "restructure", "reorganize",
	}
	refactorPhrases = []string{
		"clean up", "better structure", "more efficient",
	}
)

// Classify resolves request text to exactly one of the four routes.
//
// It is pure and total over non-empty input: the same text always yields the
// same route and confidence, and unmatched text falls through to FeatureBuild.
func Classify(text string) (*route.Decision, error) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return nil, ErrEmptyRequest
	}

	if tier, ok := matchMetaChat(normalized); ok {
		return decisionFor(route.MetaChat, MetaChatConfidence, tier), nil
	}
	if tier, ok := matchDirectEdit(normalized); ok {
		return decisionFor(route.DirectEdit, DirectEditConfidence, tier), nil
	}
	if tier, ok := matchRefactor(normalized); ok {
		return decisionFor(route.Refactor, RefactorConfidence, tier), nil
	}

	return decisionFor(route.FeatureBuild, FeatureBuildConfidence,
		"feature-build fallback: no edit, refactor, or question pattern matched"), nil
}

func decisionFor(r route.Route, confidence float64, reason string) *route.Decision {
	d := &route.Decision{
		Route:      r,
		Confidence: confidence,
	}
	d.AppendReasoning(reason)
	d.EstimatedDuration, d.EstimatedCost = estimates(r)
	return d
}

func matchMetaChat(text string) (string, bool) {
	for _, prefix := range interrogativePrefixes {
		if hasWordPrefix(text, prefix) {
			return fmt.Sprintf("meta-chat tier: interrogative prefix %q", prefix), true
		}
	}
	if strings.HasSuffix(text, "?") {
		return "meta-chat tier: text ends with question mark", true
	}
	return "", false
}

func matchDirectEdit(text string) (string, bool) {
	if wordCount(text) <= directEditMaxWords {
		for _, prefix := range editVerbPrefixes {
			if hasWordPrefix(text, prefix) {
				return fmt.Sprintf("direct-edit tier: short action-first request (%q)", prefix), true
			}
		}
	}
	for _, phrase := range styleMutationPhrases {
		if containsPhrase(text, phrase) {
			return fmt.Sprintf("direct-edit tier: style mutation %q", phrase), true
		}
	}
	return "", false
}

func matchRefactor(text string) (string, bool) {
	for _, prefix := range refactorPrefixes {
		if hasWordPrefix(text, prefix) {
			return fmt.Sprintf("refactor tier: prefix %q", prefix), true
		}
	}
	for _, phrase := range refactorPhrases {
		if containsPhrase(text, phrase) {
			return fmt.Sprintf("refactor tier: phrase %q", phrase), true
		}
	}
	if ok := matchMakeBetter(text); ok {
		return `refactor tier: "make ... better" pattern`, true
	}
	return "", false
}

// matchMakeBetter detects "make <something> better" with any words between.
func matchMakeBetter(text string) bool {
	idx := phraseIndex(text, "make")
	if idx == -1 {
		return false
	}
	rest := text[idx+len("make"):]
	return phraseIndex(rest, "better") != -1
}

// estimates returns informational duration/cost bounds per route class. They
// are surfaced to callers but never enforced.
func estimates(r route.Route) (time.Duration, float64) {
	switch r {
	case route.DirectEdit:
		return 5 * time.Second, 0.01
	case route.MetaChat:
		return 3 * time.Second, 0.005
	case route.Refactor:
		return 30 * time.Second, 0.05
	default:
		return 60 * time.Second, 0.10
	}
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

// hasWordPrefix reports whether text starts with prefix followed by a word
// boundary, so "update" matches but "updated styles" prefix "update" does not.
func hasWordPrefix(text, prefix string) bool {
	if !strings.HasPrefix(text, prefix) {
		return false
	}
	if len(text) == len(prefix) {
		return true
	}
	return !isWordChar(text[len(prefix)])
}

// containsPhrase checks for phrase with word boundaries on both sides.
func containsPhrase(text, phrase string) bool {
	return phraseIndex(text, phrase) != -1
}

func phraseIndex(text, phrase string) int {
	offset := 0
	for {
		idx := strings.Index(text[offset:], phrase)
		if idx == -1 {
			return -1
		}
		idx += offset
		startOK := idx == 0 || !isWordChar(text[idx-1])
		end := idx + len(phrase)
		endOK := end == len(text) || !isWordChar(text[end])
		if startOK && endOK {
			return idx
		}
		offset = idx + 1
	}
}

func isWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}
