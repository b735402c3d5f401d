package retrieval

import (
	"context"
	"fmt"
	"os"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"gopkg.in/yaml.v3"

	"herald/internal/domain"
	"herald/internal/logging"
)

const enclaveCacheSize = 256

// EnclaveEntry is one product-help article: how to use the assistant itself.
type EnclaveEntry struct {
	ID       string   `yaml:"id"`
	Title    string   `yaml:"title"`
	Keywords []string `yaml:"keywords"`
	Answer   string   `yaml:"answer"`
}

// EnclaveLayer answers product-help questions from a static corpus with
// keyword-overlap scoring and an LRU result cache.
type EnclaveLayer struct {
	entries []EnclaveEntry
	cache   *lru.Cache[string, []domain.RetrievalItem]
	logger  logging.Logger
}

// NewEnclaveLayer builds the layer from in-memory entries.
func NewEnclaveLayer(entries []EnclaveEntry, logger logging.Logger) (*EnclaveLayer, error) {
	cache, err := lru.New[string, []domain.RetrievalItem](enclaveCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create enclave cache: %w", err)
	}
	return &EnclaveLayer{
		entries: entries,
		cache:   cache,
		logger:  logging.OrNop(logger),
	}, nil
}

// DefaultEnclaveCorpus covers the basic "how do I use this" questions when
// no corpus file is configured.
func DefaultEnclaveCorpus() []EnclaveEntry {
	return []EnclaveEntry{
		{
			ID:       "send-announcement",
			Title:    "Sending an announcement",
			Keywords: []string{"send", "announcement", "message"},
			Answer:   "Say something like \"send a message to the team: practice moved to 6pm\". I'll show you a draft before anything goes out.",
		},
		{
			ID:       "run-poll",
			Title:    "Running a poll",
			Keywords: []string{"poll", "survey", "vote"},
			Answer:   "Say \"make a poll\" and tell me the question and options, like \"options: Friday, Saturday\".",
		},
		{
			ID:       "edit-draft",
			Title:    "Editing a draft",
			Keywords: []string{"edit", "change", "draft"},
			Answer:   "While a draft is open, reply \"edit\" and then tell me the change, like \"make it 7pm\". Reply \"cancel\" to discard it.",
		},
		{
			ID:       "exact-wording",
			Title:    "Exact wording",
			Keywords: []string{"exact", "verbatim", "wording"},
			Answer:   "Put the text in quotes, or say \"send this: ...\", and I'll send it word for word without touching it.",
		},
	}
}

// LoadEnclaveCorpus reads a YAML corpus file.
func LoadEnclaveCorpus(path string) ([]EnclaveEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read enclave corpus: %w", err)
	}
	var entries []EnclaveEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode enclave corpus: %w", err)
	}
	return entries, nil
}

// Name implements Layer.
func (l *EnclaveLayer) Name() domain.Layer { return domain.LayerEnclave }

// Retrieve implements Layer by keyword overlap against the corpus.
func (l *EnclaveLayer) Retrieve(_ context.Context, query, _ string) ([]domain.RetrievalItem, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	if cached, ok := l.cache.Get(key); ok {
		return cached, nil
	}

	queryTokens := tokenize(key)
	var items []domain.RetrievalItem
	for _, entry := range l.entries {
		score := entry.score(queryTokens)
		if score <= 0 {
			continue
		}
		items = append(items, domain.RetrievalItem{
			Layer:   domain.LayerEnclave,
			Title:   entry.Title,
			Snippet: entry.Answer,
			Score:   score,
		})
	}
	sortByScore(items)
	l.cache.Add(key, items)
	return items, nil
}

// score is the fraction of the entry's keywords present in the query, with
// a small boost when the title itself appears.
func (e EnclaveEntry) score(queryTokens map[string]bool) float64 {
	if len(e.Keywords) == 0 {
		return 0
	}
	matched := 0
	for _, kw := range e.Keywords {
		hit := true
		for _, part := range strings.Fields(strings.ToLower(kw)) {
			if !queryTokens[part] {
				hit = false
				break
			}
		}
		if hit {
			matched++
		}
	}
	if matched == 0 {
		return 0
	}
	score := float64(matched) / float64(len(e.Keywords))
	titleTokens := tokenize(strings.ToLower(e.Title))
	for token := range titleTokens {
		if queryTokens[token] {
			score += 0.1
			break
		}
	}
	return clampScore(score)
}

func tokenize(text string) map[string]bool {
	tokens := map[string]bool{}
	for _, f := range strings.Fields(text) {
		f = strings.Trim(f, ".,!?\"'")
		if f != "" {
			tokens[f] = true
		}
	}
	return tokens
}
