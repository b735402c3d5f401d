package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herald/internal/domain"
	"herald/internal/session"
)

func TestEnclaveLayerMatchesKeywords(t *testing.T) {
	layer, err := NewEnclaveLayer(DefaultEnclaveCorpus(), nil)
	require.NoError(t, err)

	items, err := layer.Retrieve(context.Background(), "how do I send an announcement", "")
	require.NoError(t, err)
	require.NotEmpty(t, items)
	assert.Equal(t, "Sending an announcement", items[0].Title)
	assert.Equal(t, domain.LayerEnclave, items[0].Layer)
	assert.Greater(t, items[0].Score, 0.0)
}

func TestEnclaveLayerNoMatch(t *testing.T) {
	layer, err := NewEnclaveLayer(DefaultEnclaveCorpus(), nil)
	require.NoError(t, err)

	items, err := layer.Retrieve(context.Background(), "quantum flux capacitors", "")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestEnclaveLayerCachesByNormalizedQuery(t *testing.T) {
	layer, err := NewEnclaveLayer(DefaultEnclaveCorpus(), nil)
	require.NoError(t, err)

	first, err := layer.Retrieve(context.Background(), "How Do I Make A Poll", "")
	require.NoError(t, err)
	second, err := layer.Retrieve(context.Background(), "  how do i make a poll  ", "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, layer.cache.Len())
}

func TestEnclaveEntryScoreTitleBoost(t *testing.T) {
	entry := EnclaveEntry{
		Title:    "Running a poll",
		Keywords: []string{"poll", "vote"},
	}
	withTitle := entry.score(tokenize("how do i run a poll"))
	withoutTitle := entry.score(tokenize("can people vote somehow"))
	assert.Greater(t, withTitle, withoutTitle)
}

func TestConversationLayerFindsPriorExchange(t *testing.T) {
	history := session.NewMemoryHistory(0)
	ctx := context.Background()
	require.NoError(t, history.Append(ctx, "+15551234", "when is practice", "Practice is at 6pm on Friday."))
	require.NoError(t, history.Append(ctx, "+15551234", "thanks", "Anytime!"))

	layer := NewConversationLayer(history, nil)
	items, err := layer.Retrieve(ctx, "what time is practice", "+15551234")
	require.NoError(t, err)
	require.NotEmpty(t, items)
	assert.Equal(t, "Practice is at 6pm on Friday.", items[0].Snippet)
}

func TestConversationLayerScopedToSender(t *testing.T) {
	history := session.NewMemoryHistory(0)
	ctx := context.Background()
	require.NoError(t, history.Append(ctx, "+15550001", "when is practice", "6pm"))

	layer := NewConversationLayer(history, nil)
	items, err := layer.Retrieve(ctx, "when is practice", "+15559999")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestConversationLayerEmptyScope(t *testing.T) {
	layer := NewConversationLayer(session.NewMemoryHistory(0), nil)
	items, err := layer.Retrieve(context.Background(), "anything", "")
	require.NoError(t, err)
	assert.Nil(t, items)
}

func TestActionLayerProposals(t *testing.T) {
	layer := NewActionLayer()
	cases := map[string]string{
		"remind everyone about the game": "send_reminder",
		"can you resend that":            "resend_last",
		"schedule it for friday":         "schedule_message",
	}
	for query, proposal := range cases {
		items, err := layer.Retrieve(context.Background(), query, "")
		require.NoError(t, err, "query %q", query)
		require.NotEmpty(t, items, "query %q", query)
		assert.Equal(t, proposal, items[0].Proposal, "query %q", query)
		assert.InDelta(t, 0.9, items[0].Score, 1e-9, "query %q", query)
	}
}

func TestActionLayerNoTrigger(t *testing.T) {
	layer := NewActionLayer()
	items, err := layer.Retrieve(context.Background(), "hello there", "")
	require.NoError(t, err)
	assert.Empty(t, items)
}

type faultyLayer struct {
	name domain.Layer
}

func (f faultyLayer) Name() domain.Layer { return f.name }

func (f faultyLayer) Retrieve(context.Context, string, string) ([]domain.RetrievalItem, error) {
	return nil, errors.New("backend down")
}

func TestGatherSwallowsLayerFailure(t *testing.T) {
	enclave, err := NewEnclaveLayer(DefaultEnclaveCorpus(), nil)
	require.NoError(t, err)

	layers := []Layer{
		faultyLayer{name: domain.LayerContent},
		enclave,
		NewActionLayer(),
	}
	results := Gather(context.Background(), layers, "how do i send an announcement", "+15551234", nil)
	assert.Empty(t, results.Content)
	assert.NotEmpty(t, results.Enclave)
}

func TestGatherSortsByScore(t *testing.T) {
	enclave, err := NewEnclaveLayer([]EnclaveEntry{
		{ID: "a", Title: "Alpha", Keywords: []string{"poll", "vote", "survey"}, Answer: "a"},
		{ID: "b", Title: "Beta", Keywords: []string{"poll"}, Answer: "b"},
	}, nil)
	require.NoError(t, err)

	results := Gather(context.Background(), []Layer{enclave}, "make a poll", "", nil)
	require.Len(t, results.Enclave, 2)
	assert.GreaterOrEqual(t, results.Enclave[0].Score, results.Enclave[1].Score)
}
