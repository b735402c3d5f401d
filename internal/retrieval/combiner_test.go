package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herald/internal/domain"
)

func item(layer domain.Layer, score float64) domain.RetrievalItem {
	return domain.RetrievalItem{Layer: layer, Snippet: "snippet", Score: score}
}

func TestCombineConfidenceAgreementBonus(t *testing.T) {
	c := NewCombiner(DefaultCombinerConfig(), nil)
	results := Results{
		Content: []domain.RetrievalItem{item(domain.LayerContent, 0.8)},
		Enclave: []domain.RetrievalItem{item(domain.LayerEnclave, 0.5)},
	}
	decision := c.Combine(domain.Intent{Kind: domain.IntentContentQuery}, results)
	require.Equal(t, domain.DecisionAnswer, decision.Kind)
	assert.InDelta(t, 0.95, decision.Confidence, 1e-9)
}

func TestCombineConfidenceClampedToOne(t *testing.T) {
	c := NewCombiner(DefaultCombinerConfig(), nil)
	results := Results{
		Content: []domain.RetrievalItem{item(domain.LayerContent, 0.95)},
		Enclave: []domain.RetrievalItem{item(domain.LayerEnclave, 0.9)},
	}
	decision := c.Combine(domain.Intent{Kind: domain.IntentContentQuery}, results)
	assert.InDelta(t, 1.0, decision.Confidence, 1e-9)
}

func TestCombineNoBonusWhenLayersDisagree(t *testing.T) {
	c := NewCombiner(DefaultCombinerConfig(), nil)
	results := Results{
		Content: []domain.RetrievalItem{item(domain.LayerContent, 0.8)},
		Enclave: []domain.RetrievalItem{item(domain.LayerEnclave, 0.2)},
	}
	decision := c.Combine(domain.Intent{Kind: domain.IntentContentQuery}, results)
	assert.InDelta(t, 0.8, decision.Confidence, 1e-9)
}

func TestCombineContentQueryNoResultsClarifies(t *testing.T) {
	c := NewCombiner(DefaultCombinerConfig(), nil)
	decision := c.Combine(domain.Intent{Kind: domain.IntentContentQuery}, Results{})
	assert.Equal(t, domain.DecisionClarify, decision.Kind)
	assert.Equal(t, noContentReply, decision.Message)
	assert.Zero(t, decision.Confidence)
}

func TestCombineContentQueryBelowFloorClarifies(t *testing.T) {
	c := NewCombiner(DefaultCombinerConfig(), nil)
	results := Results{
		Content: []domain.RetrievalItem{item(domain.LayerContent, 0.2)},
	}
	decision := c.Combine(domain.Intent{Kind: domain.IntentContentQuery}, results)
	assert.Equal(t, domain.DecisionClarify, decision.Kind)
	assert.Equal(t, clarifyReply, decision.Message)
}

func TestCombineContentQueryAnswersAtFloor(t *testing.T) {
	c := NewCombiner(DefaultCombinerConfig(), nil)
	results := Results{
		Content: []domain.RetrievalItem{item(domain.LayerContent, 0.35)},
	}
	decision := c.Combine(domain.Intent{Kind: domain.IntentContentQuery}, results)
	assert.Equal(t, domain.DecisionAnswer, decision.Kind)
	assert.Equal(t, "snippet", decision.Message)
}

func TestCombineEnclaveHelpAnswers(t *testing.T) {
	c := NewCombiner(DefaultCombinerConfig(), nil)
	top := domain.RetrievalItem{Layer: domain.LayerEnclave, Snippet: "say make a poll", Score: 0.7}
	results := Results{Enclave: []domain.RetrievalItem{top}}
	decision := c.Combine(domain.Intent{Kind: domain.IntentEnclaveHelp}, results)
	require.Equal(t, domain.DecisionAnswer, decision.Kind)
	assert.Equal(t, "say make a poll", decision.Message)
	assert.Equal(t, []domain.RetrievalItem{top}, decision.Sources)
}

func TestCombineActionRequest(t *testing.T) {
	c := NewCombiner(DefaultCombinerConfig(), nil)
	top := domain.RetrievalItem{
		Layer:    domain.LayerAction,
		Snippet:  "I can resend the last announcement.",
		Proposal: "resend_last",
		Score:    0.9,
	}
	results := Results{Action: []domain.RetrievalItem{top}}
	decision := c.Combine(domain.Intent{Kind: domain.IntentActionRequest}, results)
	require.Equal(t, domain.DecisionExecuteAction, decision.Kind)
	assert.Equal(t, "resend_last", decision.Action)
	assert.InDelta(t, 0.9, decision.Confidence, 1e-9)
}

func TestCombineActionRequestNoMatchClarifies(t *testing.T) {
	c := NewCombiner(DefaultCombinerConfig(), nil)
	decision := c.Combine(domain.Intent{Kind: domain.IntentActionRequest}, Results{})
	assert.Equal(t, domain.DecisionClarify, decision.Kind)
}

func TestCombineSmalltalkCanned(t *testing.T) {
	c := NewCombiner(DefaultCombinerConfig(), nil)
	decision := c.Combine(domain.Intent{Kind: domain.IntentSmalltalk}, Results{})
	assert.Equal(t, domain.DecisionAnswer, decision.Kind)
	assert.Equal(t, smalltalkReply, decision.Message)
	assert.InDelta(t, 1.0, decision.Confidence, 1e-9)
}

func TestCombineAbusiveCanned(t *testing.T) {
	c := NewCombiner(DefaultCombinerConfig(), nil)
	decision := c.Combine(domain.Intent{Kind: domain.IntentAbusive}, Results{})
	assert.Equal(t, domain.DecisionAnswer, decision.Kind)
	assert.Equal(t, abusiveReply, decision.Message)
}

func TestNewCombinerZeroConfigUsesDefaults(t *testing.T) {
	c := NewCombiner(CombinerConfig{}, nil)
	assert.Equal(t, DefaultCombinerConfig(), c.cfg)
}
