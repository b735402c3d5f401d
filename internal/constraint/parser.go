// Package constraint extracts verbatim-text and lock/unlock directives from
// raw message text. All functions are pure; the only failure mode is an
// empty result.
package constraint

import (
	"regexp"
	"strings"

	"herald/internal/domain"
)

type quotePair struct {
	open  rune
	close rune
	// strict requires word-boundary context so apostrophes in words like
	// "don't" are not mistaken for quotes.
	strict bool
}

// Double-quote variants are preferred over single-quote variants.
var quotePairs = []quotePair{
	{open: '"', close: '"'},
	{open: '“', close: '”'}, // curly double
	{open: '\'', close: '\'', strict: true},
	{open: '‘', close: '’'}, // curly single
}

var verbatimIntroPhrases = []string{
	"send this",
	"say this",
	"verbatim",
	"exact text",
	"exact wording",
	"exact message",
	"use this exact",
}

var verbatimKeywords = []string{
	"word for word",
	"my exact",
	"exact text",
	"exact wording",
	"exact message",
	"verbatim",
	"exactly",
	"exact",
}

var includeAllSignals = []string{
	"include all",
	"include both",
	"all of them",
	"both",
}

// commandPrefixes are stripped from the front of a keyword-flagged message
// to isolate the dictated text. Longer prefixes come first so the loop takes
// the biggest bite available.
var commandPrefixes = []string{
	"use my exact words",
	"send this exact message",
	"send the exact message",
	"send a message saying",
	"send this message",
	"send the message",
	"message everyone",
	"tell everyone",
	"send this",
	"send out",
	"tell them",
	"could you",
	"word for word",
	"exact wording",
	"exact message",
	"exact text",
	"my exact words",
	"my exact",
	"can you",
	"announce",
	"verbatim",
	"exactly",
	"please",
	"exact",
	"send",
	"post",
	"say",
}

// ParseVerbatim detects user-dictated text that must be transmitted
// unmodified. Priority order: quoted spans, then a verbatim-introduction
// colon pattern, then an explicit keyword with a strippable command prefix.
func ParseVerbatim(text string) domain.VerbatimConstraint {
	if spans := quotedSpans(text); len(spans) > 0 {
		quoted := spans[0]
		if len(spans) > 1 && hasIncludeAllSignal(text) {
			quoted = strings.Join(spans, " ")
		}
		return domain.VerbatimConstraint{
			IsVerbatim: true,
			Text:       quoted,
			Provenance: domain.ProvenanceQuoted,
		}
	}

	if after, ok := colonVerbatim(text); ok {
		return domain.VerbatimConstraint{
			IsVerbatim: true,
			Text:       after,
			Provenance: domain.ProvenanceColonPattern,
		}
	}

	if remainder, ok := keywordVerbatim(text); ok {
		return domain.VerbatimConstraint{
			IsVerbatim: true,
			Text:       remainder,
			Provenance: domain.ProvenanceExplicitKeyword,
		}
	}

	return domain.VerbatimConstraint{Provenance: domain.ProvenanceNone}
}

// quotedSpans returns the contents of quoted spans, using the highest-
// priority quote style that yields at least one complete span.
func quotedSpans(text string) []string {
	runes := []rune(text)
	for _, pair := range quotePairs {
		var spans []string
		start := -1
		for i, r := range runes {
			switch {
			case start < 0 && r == pair.open:
				if pair.strict && !boundaryBefore(runes, i) {
					continue
				}
				start = i
			case start >= 0 && r == pair.close:
				if pair.strict && !boundaryAfter(runes, i) {
					continue
				}
				spans = append(spans, string(runes[start+1:i]))
				start = -1
			}
		}
		if len(spans) > 0 {
			return spans
		}
	}
	return nil
}

func boundaryBefore(runes []rune, i int) bool {
	if i == 0 {
		return true
	}
	prev := runes[i-1]
	return prev == ' ' || prev == '\t' || prev == '\n' || prev == ':' || prev == ','
}

func boundaryAfter(runes []rune, i int) bool {
	if i == len(runes)-1 {
		return true
	}
	next := runes[i+1]
	return next == ' ' || next == '\t' || next == '\n' ||
		next == '.' || next == ',' || next == '!' || next == '?'
}

func hasIncludeAllSignal(text string) bool {
	lower := strings.ToLower(text)
	for _, signal := range includeAllSignals {
		if strings.Contains(lower, signal) {
			return true
		}
	}
	return false
}

func colonVerbatim(text string) (string, bool) {
	idx := strings.Index(text, ":")
	if idx < 0 {
		return "", false
	}
	prefix := strings.ToLower(text[:idx])
	for _, phrase := range verbatimIntroPhrases {
		if strings.Contains(prefix, phrase) {
			after := strings.TrimSpace(text[idx+1:])
			if after == "" {
				return "", false
			}
			return after, true
		}
	}
	return "", false
}

func keywordVerbatim(text string) (string, bool) {
	lower := strings.ToLower(text)
	found := false
	for _, kw := range verbatimKeywords {
		if strings.Contains(lower, kw) {
			found = true
			break
		}
	}
	if !found {
		return "", false
	}

	remainder := stripCommandPrefixes(strings.TrimSpace(text))
	if len(remainder) < 6 {
		return "", false
	}
	// The strip has to have removed a real command prefix, otherwise the
	// keyword was incidental and nothing was dictated.
	if len(strings.TrimSpace(text))-len(remainder) < 5 {
		return "", false
	}
	return remainder, true
}

func stripCommandPrefixes(text string) string {
	for {
		trimmed := strings.TrimLeft(text, " \t,:-")
		lower := strings.ToLower(trimmed)
		stripped := false
		for _, prefix := range commandPrefixes {
			if strings.HasPrefix(lower, prefix) {
				rest := trimmed[len(prefix):]
				if rest != "" && !isBoundaryByte(rest[0]) {
					continue
				}
				text = rest
				stripped = true
				break
			}
		}
		if !stripped {
			return trimmed
		}
	}
}

func isBoundaryByte(b byte) bool {
	switch b {
	case ' ', '\t', ',', ':', '-':
		return true
	}
	return false
}

var mustIncludePattern = regexp.MustCompile(
	`(?i)\b(?:make sure|be sure|don'?t forget)(?:\s+to)?\s+(?:say|mention|include)\s+(?:that\s+)?(.+?)\s*(?:[.!?]|$)`)

// ParseMustInclude extracts phrases the final message has to contain.
func ParseMustInclude(text string) []string {
	var phrases []string
	for _, match := range mustIncludePattern.FindAllStringSubmatch(text, -1) {
		phrase := strings.Trim(match[1], ` "'`)
		if phrase != "" {
			phrases = append(phrases, phrase)
		}
	}
	return phrases
}

var mustNotChangePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:don'?t|do not|never)\s+(?:change|touch|alter|modify)\s+(?:the\s+)?([a-z][a-z ]*?)\s*(?:[.!?,]|$)`),
	regexp.MustCompile(`(?i)\bkeep\s+(?:the\s+)?([a-z][a-z ]*?)\s+(?:the same|as is|as-is|unchanged)\b`),
}

// fieldSynonyms maps natural phrasing to canonical draft field names.
var fieldSynonyms = map[string]string{
	"time":       domain.FieldTime,
	"when":       domain.FieldTime,
	"location":   domain.FieldLocation,
	"where":      domain.FieldLocation,
	"place":      domain.FieldLocation,
	"venue":      domain.FieldLocation,
	"date":       domain.FieldDate,
	"day":        domain.FieldDate,
	"body":       domain.FieldBody,
	"message":    domain.FieldBody,
	"text":       domain.FieldBody,
	"wording":    domain.FieldBody,
	"words":      domain.FieldBody,
	"title":      domain.FieldTitle,
	"subject":    domain.FieldTitle,
	"audience":   domain.FieldAudience,
	"recipients": domain.FieldAudience,
	"group":      domain.FieldAudience,
	"question":   domain.FieldQuestion,
	"options":    domain.FieldOptions,
	"choices":    domain.FieldOptions,
}

// ParseMustNotChange extracts canonical field names the user asked to lock.
func ParseMustNotChange(text string) []string {
	var fields []string
	seen := map[string]bool{}
	for _, pattern := range mustNotChangePatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			for _, word := range splitFieldList(match[1]) {
				if canonical, ok := fieldSynonyms[word]; ok && !seen[canonical] {
					seen[canonical] = true
					fields = append(fields, canonical)
				}
			}
		}
	}
	return fields
}

func splitFieldList(raw string) []string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	parts := regexp.MustCompile(`\s*(?:,|\bor\b|\band\b)\s*`).Split(raw, -1)
	var words []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			words = append(words, p)
		}
	}
	return words
}
