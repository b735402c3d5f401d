package domain

import "time"

// Layer tags which retrieval source produced an item.
type Layer string

const (
	LayerContent      Layer = "content"
	LayerConversation Layer = "conversation"
	LayerEnclave      Layer = "enclave"
	LayerAction       Layer = "action"
)

// RetrievalItem is one ranked candidate answer from a retrieval layer.
type RetrievalItem struct {
	Layer    Layer
	Title    string
	Snippet  string
	Proposal string
	// Score is the layer's own relevance estimate in [0, 1].
	Score float64
}

// DecisionKind is the tag of the combiner's tagged-union result.
type DecisionKind string

const (
	DecisionClarify       DecisionKind = "clarify"
	DecisionAnswer        DecisionKind = "answer"
	DecisionExecuteAction DecisionKind = "execute_action"
)

// Decision is the combiner's terminal output for one turn. Exactly one
// variant applies, selected by Kind: Clarify and Answer carry Message,
// ExecuteAction carries Action.
type Decision struct {
	Kind       DecisionKind
	Message    string
	Confidence float64
	Sources    []RetrievalItem
	Action     string
}

// Exchange is one (user message, bot response) pair from the history log.
type Exchange struct {
	UserMessage string    `json:"user_message"`
	BotResponse string    `json:"bot_response"`
	At          time.Time `json:"at"`
}
