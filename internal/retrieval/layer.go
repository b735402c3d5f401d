// Package retrieval hosts the four independent answer sources and the
// combiner that merges their ranked candidates into one decision.
package retrieval

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"herald/internal/domain"
	"herald/internal/logging"
)

// Layer is one independently failable retrieval source. A failing layer
// yields an empty list and never blocks the others.
type Layer interface {
	Name() domain.Layer
	Retrieve(ctx context.Context, query, scope string) ([]domain.RetrievalItem, error)
}

// Results groups items per layer after a fan-out.
type Results struct {
	Content      []domain.RetrievalItem
	Conversation []domain.RetrievalItem
	Enclave      []domain.RetrievalItem
	Action       []domain.RetrievalItem
}

// Gather queries every layer concurrently. Per-layer failures are logged
// and swallowed; the group never cancels siblings.
func Gather(ctx context.Context, layers []Layer, query, scope string, logger logging.Logger) Results {
	logger = logging.OrNop(logger)
	var (
		results Results
		g       errgroup.Group
	)
	for _, layer := range layers {
		g.Go(func() error {
			items, err := layer.Retrieve(ctx, query, scope)
			if err != nil {
				logger.Warn("retrieval layer %s failed: %v", layer.Name(), err)
				return nil
			}
			sortByScore(items)
			switch layer.Name() {
			case domain.LayerContent:
				results.Content = items
			case domain.LayerConversation:
				results.Conversation = items
			case domain.LayerEnclave:
				results.Enclave = items
			case domain.LayerAction:
				results.Action = items
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func sortByScore(items []domain.RetrievalItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
}

func topScore(items []domain.RetrievalItem) float64 {
	if len(items) == 0 {
		return 0
	}
	return items[0].Score
}
