package retrieval

import (
	"context"
	"strings"

	"herald/internal/domain"
)

const actionProposalScore = 0.9

type actionRule struct {
	triggers []string
	proposal string
	snippet  string
}

var actionRules = []actionRule{
	{
		triggers: []string{"remind", "reminder"},
		proposal: "send_reminder",
		snippet:  "I can send a reminder about your last announcement.",
	},
	{
		triggers: []string{"resend", "send again", "send it again"},
		proposal: "resend_last",
		snippet:  "I can resend your last message to the group.",
	},
	{
		triggers: []string{"schedule", "later", "tomorrow morning"},
		proposal: "schedule_message",
		snippet:  "I can schedule that message to go out later.",
	},
}

// ActionLayer proposes executable actions from recognizable request verbs.
type ActionLayer struct{}

// NewActionLayer constructs the rule-based proposal generator.
func NewActionLayer() *ActionLayer { return &ActionLayer{} }

// Name implements Layer.
func (l *ActionLayer) Name() domain.Layer { return domain.LayerAction }

// Retrieve implements Layer.
func (l *ActionLayer) Retrieve(_ context.Context, query, _ string) ([]domain.RetrievalItem, error) {
	lower := strings.ToLower(query)
	var items []domain.RetrievalItem
	for _, rule := range actionRules {
		for _, trigger := range rule.triggers {
			if strings.Contains(lower, trigger) {
				items = append(items, domain.RetrievalItem{
					Layer:    domain.LayerAction,
					Title:    rule.proposal,
					Proposal: rule.proposal,
					Snippet:  rule.snippet,
					Score:    actionProposalScore,
				})
				break
			}
		}
	}
	return items, nil
}
