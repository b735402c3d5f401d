// Package router maps raw message text to an Intent using an ordered rule
// table. The first matching rule wins; only when no rule fires does the
// router delegate to the language-model fallback classifier.
package router

import (
	"context"
	"regexp"
	"strings"

	"herald/internal/constraint"
	"herald/internal/domain"
	"herald/internal/logging"
)

// Classifier resolves genuinely ambiguous messages. It is the only routing
// path touched by external-service latency.
type Classifier interface {
	Classify(ctx context.Context, text string, history []domain.Exchange) (domain.Intent, error)
}

// Router is a pure, stateless classifier: it never consults session state.
type Router struct {
	classifier Classifier
	logger     logging.Logger
}

// New constructs a Router. classifier may be nil, in which case ambiguous
// messages route to smalltalk.
func New(classifier Classifier, logger logging.Logger) *Router {
	return &Router{
		classifier: classifier,
		logger:     logging.OrNop(logger),
	}
}

var sendTokens = map[string]bool{
	"send it":      true,
	"send now":     true,
	"send":         true,
	"yes":          true,
	"yes please":   true,
	"yep":          true,
	"yeah":         true,
	"ship it":      true,
	"confirm":      true,
	"go ahead":     true,
	"yes send it":  true,
	"ok send it":   true,
	"looks good":   true,
}

var cancelTokens = map[string]bool{
	"cancel":     true,
	"stop":       true,
	"never mind": true,
	"nevermind":  true,
	"discard":    true,
	"forget it":  true,
	"scrap it":   true,
}

var editTokens = map[string]bool{
	"no":           true,
	"edit":         true,
	"change":       true,
	"make changes": true,
	"not yet":      true,
}

var (
	interrogatives = []string{
		"who", "what", "when", "where", "why", "how", "which",
		"can", "could", "would", "will", "is", "are", "do", "does",
		"did", "should",
	}

	announcementPattern = regexp.MustCompile(
		`(?i)\b(send|blast|broadcast|make|create|draft|write)\b.*\b(message|announcement|blast|broadcast)\b`)
	announcementColonPattern = regexp.MustCompile(`(?i)^\s*(broadcast|blast|announce(?:ment)?)\s*:\s*(.+)$`)

	pollPattern         = regexp.MustCompile(`(?i)\b(make|create|send|start|run|draft)\b.*\b(poll|survey)\b`)
	pollQuestionPattern = regexp.MustCompile(`(?i)\bask(?:ing)?\s+(?:them|everyone|the group)?\s*(.+?\?)`)
	pollOptionsPattern  = regexp.MustCompile(`(?i)\b(?:options?|choices)\s*:?\s+(.+)$`)

	timeTokenPattern = regexp.MustCompile(`(?i)\b(\d{1,2}(?::\d{2})?\s*(?:am|pm))\b`)
	// A location token is "at"/"in" followed by a proper-noun phrase.
	locationTokenPattern = regexp.MustCompile(`\b(?:at|in)\s+((?:[A-Z][\w']*)(?:\s+[A-Z][\w']*)*)`)
	editSignalPattern    = regexp.MustCompile(`(?i)\b(make it|change it to|change the|move it to|at|in)\b`)

	audiencePattern = regexp.MustCompile(`(?i)\b(?:to|for)\s+(?:the\s+)?(parents|team|staff|students|everyone|group|club|class)\b`)

	smalltalkTokens = map[string]bool{
		"hi": true, "hello": true, "hey": true, "yo": true, "sup": true,
		"thanks": true, "thank you": true, "thx": true, "ty": true,
		"cool": true, "great": true, "awesome": true, "nice": true,
		"lol": true, "haha": true, "ok": true, "okay": true,
		"good morning": true, "good night": true, "goodnight": true,
		"whats up": true, "what's up": true, "bye": true,
	}

	enclaveHints = []string{
		"the app", "the bot", "herald", "sign up", "signup", "log in",
		"login", "account", "how do i use", "unsubscribe", "opt out",
	}
)

// Route classifies one message. Rules are evaluated in a fixed order and the
// first match returns immediately: control commands, questions, new
// announcement, new poll, verbatim override, field edit, smalltalk, then
// the fallback classifier.
func (r *Router) Route(ctx context.Context, text string, history []domain.Exchange) domain.Intent {
	vc := constraint.ParseVerbatim(text)

	if intent, ok := matchControl(text); ok {
		return intent
	}
	if intent, ok := matchQuestion(text); ok {
		return intent
	}
	if intent, ok := matchAnnouncement(text, vc); ok {
		return intent
	}
	if intent, ok := matchPoll(text); ok {
		return intent
	}
	if vc.IsVerbatim {
		// Verbatim text always locks the body field.
		return domain.Intent{
			Kind:           domain.IntentEdit,
			ModeTransition: domain.ModeEditing,
			QuotedText:     vc.Text,
			FieldsLocked:   []string{domain.FieldBody},
		}
	}
	if intent, ok := matchFieldEdit(text); ok {
		return intent
	}
	if intent, ok := matchSmalltalk(text); ok {
		return intent
	}

	return r.fallback(ctx, text, history)
}

func (r *Router) fallback(ctx context.Context, text string, history []domain.Exchange) domain.Intent {
	if r.classifier == nil {
		return domain.Intent{Kind: domain.IntentSmalltalk}
	}
	intent, err := r.classifier.Classify(ctx, text, history)
	if err != nil {
		r.logger.Warn("fallback classifier failed, defaulting to smalltalk: %v", err)
		return domain.Intent{Kind: domain.IntentSmalltalk}
	}
	if !domain.KnownIntentKind(intent.Kind) {
		r.logger.Warn("fallback classifier returned unknown kind %q", intent.Kind)
		return domain.Intent{Kind: domain.IntentSmalltalk}
	}
	return intent
}

// normalizeToken lowercases and strips surrounding punctuation so "Send it!"
// still counts as a near-exact control command.
func normalizeToken(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.Trim(t, " \t.!?,")
	return strings.Join(strings.Fields(t), " ")
}

func matchControl(text string) (domain.Intent, bool) {
	token := normalizeToken(text)
	switch {
	case sendTokens[token]:
		return domain.Intent{
			Kind:             domain.IntentControl,
			IsControlCommand: true,
			Control:          domain.ControlSend,
			ModeTransition:   domain.ModeSending,
		}, true
	case cancelTokens[token]:
		return domain.Intent{
			Kind:             domain.IntentControl,
			IsControlCommand: true,
			Control:          domain.ControlCancel,
			ModeTransition:   domain.ModeIdle,
		}, true
	case editTokens[token]:
		return domain.Intent{
			Kind:             domain.IntentControl,
			IsControlCommand: true,
			Control:          domain.ControlEdit,
			ModeTransition:   domain.ModeEditing,
		}, true
	}
	return domain.Intent{}, false
}

func matchQuestion(text string) (domain.Intent, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.Intent{}, false
	}
	isQuestion := false
	first := strings.ToLower(strings.Fields(trimmed)[0])
	for _, w := range interrogatives {
		if first == w {
			isQuestion = true
			break
		}
	}
	if !isQuestion && strings.Contains(trimmed, "?") {
		// "make a poll asking when should we meet?" is a command that
		// happens to contain a question, not a question to answer.
		if !pollPattern.MatchString(trimmed) && !announcementPattern.MatchString(trimmed) {
			isQuestion = true
		}
	}
	if !isQuestion {
		return domain.Intent{}, false
	}
	kind := domain.IntentContentQuery
	lower := strings.ToLower(trimmed)
	for _, hint := range enclaveHints {
		if strings.Contains(lower, hint) {
			kind = domain.IntentEnclaveHelp
			break
		}
	}
	return domain.Intent{Kind: kind}, true
}

func matchAnnouncement(text string, vc domain.VerbatimConstraint) (domain.Intent, bool) {
	colonMatch := announcementColonPattern.FindStringSubmatch(text)
	if colonMatch == nil && !announcementPattern.MatchString(text) {
		return domain.Intent{}, false
	}

	intent := domain.Intent{
		Kind:           domain.IntentAnnouncement,
		ModeTransition: domain.ModeDrafting,
		FieldsChanged:  map[string]string{},
	}
	if colonMatch != nil {
		intent.FieldsChanged[domain.FieldBody] = strings.TrimSpace(colonMatch[2])
	} else if idx := strings.Index(text, ":"); idx >= 0 {
		if after := strings.TrimSpace(text[idx+1:]); after != "" {
			intent.FieldsChanged[domain.FieldBody] = after
		}
	}
	if vc.IsVerbatim {
		intent.QuotedText = vc.Text
	}
	if m := audiencePattern.FindStringSubmatch(text); m != nil {
		intent.FieldsChanged[domain.FieldAudience] = strings.ToLower(m[1])
	}
	if m := timeTokenPattern.FindStringSubmatch(text); m != nil {
		intent.FieldsChanged[domain.FieldTime] = strings.ToLower(m[1])
	}
	return intent, true
}

func matchPoll(text string) (domain.Intent, bool) {
	if !pollPattern.MatchString(text) {
		return domain.Intent{}, false
	}
	intent := domain.Intent{
		Kind:           domain.IntentPoll,
		ModeTransition: domain.ModeDrafting,
		FieldsChanged:  map[string]string{},
	}
	if m := pollQuestionPattern.FindStringSubmatch(text); m != nil {
		intent.FieldsChanged[domain.FieldQuestion] = strings.TrimSpace(m[1])
	}
	if m := pollOptionsPattern.FindStringSubmatch(text); m != nil {
		intent.Options = splitOptions(m[1])
	}
	if m := audiencePattern.FindStringSubmatch(text); m != nil {
		intent.FieldsChanged[domain.FieldAudience] = strings.ToLower(m[1])
	}
	return intent, true
}

func splitOptions(raw string) []string {
	parts := regexp.MustCompile(`\s*(?:,|\bor\b)\s*`).Split(raw, -1)
	var options []string
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), ".!?")
		if p != "" {
			options = append(options, p)
		}
	}
	return options
}

func matchFieldEdit(text string) (domain.Intent, bool) {
	if !editSignalPattern.MatchString(text) {
		return domain.Intent{}, false
	}
	if m := timeTokenPattern.FindStringSubmatch(text); m != nil {
		return domain.Intent{
			Kind:           domain.IntentEdit,
			ModeTransition: domain.ModeEditing,
			FieldsChanged:  map[string]string{domain.FieldTime: strings.ToLower(m[1])},
		}, true
	}
	if m := locationTokenPattern.FindStringSubmatch(text); m != nil {
		return domain.Intent{
			Kind:           domain.IntentEdit,
			ModeTransition: domain.ModeEditing,
			FieldsChanged:  map[string]string{domain.FieldLocation: m[1]},
		}, true
	}
	return domain.Intent{}, false
}

func matchSmalltalk(text string) (domain.Intent, bool) {
	token := normalizeToken(text)
	if token == "" {
		return domain.Intent{Kind: domain.IntentSmalltalk}, true
	}
	if len(strings.Fields(token)) > 4 {
		return domain.Intent{}, false
	}
	if smalltalkTokens[token] {
		return domain.Intent{Kind: domain.IntentSmalltalk}, true
	}
	for greet := range smalltalkTokens {
		if strings.HasPrefix(token, greet+" ") {
			return domain.Intent{Kind: domain.IntentSmalltalk}, true
		}
	}
	return domain.Intent{}, false
}
