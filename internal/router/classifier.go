package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"github.com/pkoukk/tiktoken-go"

	"herald/internal/domain"
	"herald/internal/herr"
	"herald/internal/llm"
	"herald/internal/logging"
)

const (
	classifyTimeout    = 5 * time.Second
	historyTokenBudget = 512
	classifierEncoding = "cl100k_base"
)

const classifyPrompt = `You classify one text message from a group organizer into exactly one intent.
Reply with only a JSON object: {"kind": "<kind>"}
Kinds: content_query (question about schedules/documents), enclave_help (question
about using this assistant), action_request (asking to remind/resend/schedule),
announcement (wants to send a group message), poll (wants to run a poll),
edit (changing an in-progress draft), smalltalk (greeting/chitchat), abusive.
When unsure, use smalltalk.`

// LLMClassifier resolves ambiguous messages through the language-model
// service. It is deliberately swappable: the deterministic rules never
// depend on it, and every failure degrades to an error the router turns
// into smalltalk.
type LLMClassifier struct {
	client  llm.Client
	logger  logging.Logger
	timeout time.Duration
	encoder *tiktoken.Tiktoken
}

// NewLLMClassifier constructs the fallback classifier.
func NewLLMClassifier(client llm.Client, logger logging.Logger) *LLMClassifier {
	encoder, err := tiktoken.GetEncoding(classifierEncoding)
	if err != nil {
		// Token budgeting degrades to exchange counting.
		encoder = nil
	}
	return &LLMClassifier{
		client:  client,
		logger:  logging.OrNop(logger),
		timeout: classifyTimeout,
		encoder: encoder,
	}
}

// Classify sends the message plus a token-budgeted history window to the
// model and parses the returned JSON intent.
func (c *LLMClassifier) Classify(ctx context.Context, text string, history []domain.Exchange) (domain.Intent, error) {
	if c.client == nil {
		return domain.Intent{}, fmt.Errorf("no language model client configured")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.client.Generate(ctx, llm.GenerateRequest{
		Query:   text,
		Context: classifyPrompt + c.historyContext(history),
		Kind:    "classify",
	})
	if err != nil {
		if ctx.Err() != nil {
			return domain.Intent{}, &herr.LLMTimeoutError{Err: err}
		}
		return domain.Intent{}, err
	}
	if strings.TrimSpace(raw) == "" {
		return domain.Intent{}, fmt.Errorf("empty classifier response")
	}
	return c.parseIntent(raw)
}

// historyContext renders recent exchanges, newest last, dropping the oldest
// ones once the token budget is spent.
func (c *LLMClassifier) historyContext(history []domain.Exchange) string {
	if len(history) == 0 {
		return ""
	}
	var lines []string
	budget := historyTokenBudget
	for _, ex := range history { // most-recent-first
		line := fmt.Sprintf("user: %s\nassistant: %s", ex.UserMessage, ex.BotResponse)
		cost := c.tokenCount(line)
		if cost > budget {
			break
		}
		budget -= cost
		lines = append([]string{line}, lines...)
	}
	if len(lines) == 0 {
		return ""
	}
	return "\n\nRecent conversation:\n" + strings.Join(lines, "\n")
}

func (c *LLMClassifier) tokenCount(text string) int {
	if c.encoder == nil {
		return len(strings.Fields(text))
	}
	return len(c.encoder.Encode(text, nil, nil))
}

type classifierReply struct {
	Kind string `json:"kind"`
}

func (c *LLMClassifier) parseIntent(raw string) (domain.Intent, error) {
	payload := extractJSONObject(raw)
	repaired, err := jsonrepair.JSONRepair(payload)
	if err != nil {
		return domain.Intent{}, fmt.Errorf("repair classifier JSON: %w", err)
	}
	var reply classifierReply
	if err := json.Unmarshal([]byte(repaired), &reply); err != nil {
		return domain.Intent{}, fmt.Errorf("decode classifier JSON: %w", err)
	}
	kind := domain.IntentKind(strings.ToLower(strings.TrimSpace(reply.Kind)))
	if !domain.KnownIntentKind(kind) {
		return domain.Intent{}, fmt.Errorf("unknown intent kind %q", reply.Kind)
	}
	intent := domain.Intent{Kind: kind}
	switch kind {
	case domain.IntentAnnouncement, domain.IntentPoll:
		intent.ModeTransition = domain.ModeDrafting
	case domain.IntentEdit:
		intent.ModeTransition = domain.ModeEditing
	}
	return intent, nil
}

// extractJSONObject trims chat framing (code fences, prose) around the first
// JSON object in the reply.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return strings.TrimSpace(raw)
}
