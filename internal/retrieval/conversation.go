package retrieval

import (
	"context"
	"strings"

	"herald/internal/domain"
	"herald/internal/logging"
	"herald/internal/session"
)

const conversationLookback = 50

// ConversationLayer looks an answer up in the sender's own recent exchanges,
// so "what did you tell me yesterday" style questions resolve locally.
type ConversationLayer struct {
	history session.History
	logger  logging.Logger
}

// NewConversationLayer constructs the layer over the history log.
func NewConversationLayer(history session.History, logger logging.Logger) *ConversationLayer {
	return &ConversationLayer{
		history: history,
		logger:  logging.OrNop(logger),
	}
}

// Name implements Layer.
func (l *ConversationLayer) Name() domain.Layer { return domain.LayerConversation }

// Retrieve implements Layer. scope is the sender identity.
func (l *ConversationLayer) Retrieve(ctx context.Context, query, scope string) ([]domain.RetrievalItem, error) {
	if l.history == nil || scope == "" {
		return nil, nil
	}
	exchanges, err := l.history.Recent(ctx, scope, conversationLookback)
	if err != nil {
		return nil, err
	}

	queryTokens := tokenize(strings.ToLower(query))
	if len(queryTokens) == 0 {
		return nil, nil
	}

	var items []domain.RetrievalItem
	for _, ex := range exchanges {
		score := overlapScore(queryTokens, strings.ToLower(ex.UserMessage+" "+ex.BotResponse))
		if score <= 0 {
			continue
		}
		items = append(items, domain.RetrievalItem{
			Layer:   domain.LayerConversation,
			Title:   ex.UserMessage,
			Snippet: ex.BotResponse,
			Score:   score,
		})
	}
	sortByScore(items)
	if len(items) > 5 {
		items = items[:5]
	}
	return items, nil
}

// overlapScore is the fraction of query tokens found in the exchange text.
func overlapScore(queryTokens map[string]bool, text string) float64 {
	textTokens := tokenize(text)
	matched := 0
	for token := range queryTokens {
		if textTokens[token] {
			matched++
		}
	}
	return clampScore(float64(matched) / float64(len(queryTokens)))
}
