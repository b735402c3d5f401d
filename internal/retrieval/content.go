package retrieval

import (
	"context"
	"fmt"
	"path/filepath"

	chromem "github.com/philippgille/chromem-go"

	"herald/internal/domain"
	"herald/internal/herr"
	"herald/internal/logging"
)

// ContentConfig configures the document retrieval layer.
type ContentConfig struct {
	// PersistPath persists the vector DB; empty keeps it in memory.
	PersistPath string
	Collection  string
	TopK        int
}

// ContentDocument is an ingested knowledge-base document chunk.
type ContentDocument struct {
	ID       string
	Title    string
	Text     string
	Metadata map[string]string
}

// ContentLayer searches ingested documents by vector similarity.
type ContentLayer struct {
	cfg        ContentConfig
	collection *chromem.Collection
	logger     logging.Logger
}

// NewContentLayer opens (or creates) the vector collection. The embedding
// function is injected so tests can run without a remote embedder.
func NewContentLayer(cfg ContentConfig, embed chromem.EmbeddingFunc, logger logging.Logger) (*ContentLayer, error) {
	if cfg.Collection == "" {
		cfg.Collection = "herald"
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}

	var (
		db  *chromem.DB
		err error
	)
	if cfg.PersistPath != "" {
		db, err = chromem.NewPersistentDB(filepath.Join(cfg.PersistPath, "content.gob"), false)
		if err != nil {
			return nil, fmt.Errorf("open persistent vector store: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", cfg.Collection, err)
	}
	return &ContentLayer{
		cfg:        cfg,
		collection: collection,
		logger:     logging.OrNop(logger),
	}, nil
}

// Name implements Layer.
func (l *ContentLayer) Name() domain.Layer { return domain.LayerContent }

// Index adds or replaces document chunks in the collection.
func (l *ContentLayer) Index(ctx context.Context, docs []ContentDocument) error {
	if len(docs) == 0 {
		return nil
	}
	converted := make([]chromem.Document, 0, len(docs))
	for _, doc := range docs {
		metadata := map[string]string{"title": doc.Title}
		for k, v := range doc.Metadata {
			metadata[k] = v
		}
		converted = append(converted, chromem.Document{
			ID:       doc.ID,
			Content:  doc.Text,
			Metadata: metadata,
		})
	}
	if err := l.collection.AddDocuments(ctx, converted, 2); err != nil {
		return fmt.Errorf("index documents: %w", err)
	}
	return nil
}

// Retrieve implements Layer via similarity search.
func (l *ContentLayer) Retrieve(ctx context.Context, query, _ string) ([]domain.RetrievalItem, error) {
	count := l.collection.Count()
	if count == 0 {
		return nil, nil
	}
	n := l.cfg.TopK
	if n > count {
		n = count
	}
	results, err := l.collection.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, &herr.RetrievalError{Layer: string(domain.LayerContent), Err: err}
	}
	items := make([]domain.RetrievalItem, 0, len(results))
	for _, res := range results {
		items = append(items, domain.RetrievalItem{
			Layer:   domain.LayerContent,
			Title:   res.Metadata["title"],
			Snippet: res.Content,
			Score:   clampScore(float64(res.Similarity)),
		})
	}
	return items, nil
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
