package retrieval

import (
	"herald/internal/domain"
	"herald/internal/logging"
)

// CombinerConfig carries the confidence calibration thresholds.
type CombinerConfig struct {
	// ContentThreshold and EnclaveThreshold gate the agreement bonus.
	ContentThreshold float64
	EnclaveThreshold float64
	// AnswerFloor is the minimum confidence to answer instead of clarify.
	AnswerFloor float64
	// AgreementBonus is added when content and enclave agree.
	AgreementBonus float64
}

// DefaultCombinerConfig returns the calibration used in production.
func DefaultCombinerConfig() CombinerConfig {
	return CombinerConfig{
		ContentThreshold: 0.6,
		EnclaveThreshold: 0.4,
		AnswerFloor:      0.35,
		AgreementBonus:   0.15,
	}
}

const (
	actionConfidence    = 0.9
	smalltalkConfidence = 1.0

	smalltalkReply = "Hey! I can answer questions about your group's schedule and documents, or help you send an announcement or poll."
	abusiveReply   = "Let's keep it friendly. I can help with schedules, announcements, and polls."
	clarifyReply   = "I'm not sure I have that. Could you rephrase, or tell me what you'd like to send?"
	noContentReply = "I couldn't find anything about that in your group's documents. Could you give me a bit more detail?"
)

// Combiner merges ranked candidates from the retrieval layers into a single
// Decision. Below-threshold results clarify instead of answering, so
// low-confidence guesses are never presented as facts.
type Combiner struct {
	cfg    CombinerConfig
	logger logging.Logger
}

// NewCombiner constructs a Combiner.
func NewCombiner(cfg CombinerConfig, logger logging.Logger) *Combiner {
	if cfg == (CombinerConfig{}) {
		cfg = DefaultCombinerConfig()
	}
	return &Combiner{cfg: cfg, logger: logging.OrNop(logger)}
}

// Combine dispatches on the intent kind and calibrates a confidence score
// from the content and enclave layers.
func (c *Combiner) Combine(intent domain.Intent, results Results) domain.Decision {
	confidence := c.confidence(results)

	switch intent.Kind {
	case domain.IntentActionRequest:
		if len(results.Action) > 0 {
			top := results.Action[0]
			return domain.Decision{
				Kind:       domain.DecisionExecuteAction,
				Action:     top.Proposal,
				Message:    top.Snippet,
				Confidence: actionConfidence,
				Sources:    []domain.RetrievalItem{top},
			}
		}
		return c.clarify(clarifyReply)

	case domain.IntentEnclaveHelp:
		if len(results.Enclave) == 0 {
			return c.clarify(clarifyReply)
		}
		top := results.Enclave[0]
		if top.Score < c.cfg.AnswerFloor {
			return c.clarify(clarifyReply)
		}
		return domain.Decision{
			Kind:       domain.DecisionAnswer,
			Message:    top.Snippet,
			Confidence: confidence,
			Sources:    answerSources(results),
		}

	case domain.IntentContentQuery:
		if len(results.Content) == 0 {
			// Never fabricate an answer from nothing.
			return c.clarify(noContentReply)
		}
		top := results.Content[0]
		if top.Score < c.cfg.AnswerFloor {
			return c.clarify(clarifyReply)
		}
		return domain.Decision{
			Kind:       domain.DecisionAnswer,
			Message:    top.Snippet,
			Confidence: confidence,
			Sources:    answerSources(results),
		}

	case domain.IntentSmalltalk:
		return domain.Decision{
			Kind:       domain.DecisionAnswer,
			Message:    smalltalkReply,
			Confidence: smalltalkConfidence,
		}

	case domain.IntentAbusive:
		return domain.Decision{
			Kind:       domain.DecisionAnswer,
			Message:    abusiveReply,
			Confidence: smalltalkConfidence,
		}
	}

	return c.clarify(clarifyReply)
}

// confidence is max(top content score, top enclave score), plus a fixed
// bonus when both layers clear their thresholds at once, clamped to [0, 1].
func (c *Combiner) confidence(results Results) float64 {
	contentTop := topScore(results.Content)
	enclaveTop := topScore(results.Enclave)

	score := contentTop
	if enclaveTop > score {
		score = enclaveTop
	}
	if contentTop > c.cfg.ContentThreshold && enclaveTop > c.cfg.EnclaveThreshold {
		score += c.cfg.AgreementBonus
	}
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

func (c *Combiner) clarify(message string) domain.Decision {
	return domain.Decision{
		Kind:       domain.DecisionClarify,
		Message:    message,
		Confidence: 0,
	}
}

func answerSources(results Results) []domain.RetrievalItem {
	var sources []domain.RetrievalItem
	if len(results.Content) > 0 {
		sources = append(sources, results.Content[0])
	}
	if len(results.Enclave) > 0 {
		sources = append(sources, results.Enclave[0])
	}
	if len(results.Conversation) > 0 {
		sources = append(sources, results.Conversation[0])
	}
	return sources
}
