// Package turn orchestrates one webhook turn: load state, route, reduce,
// answer or dispatch, persist, chunk. All I/O lives here; the router,
// reducer, renderer, and combiner stay pure.
package turn

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"herald/internal/domain"
	"herald/internal/herr"
	"herald/internal/logging"
	"herald/internal/observability"
	"herald/internal/reducer"
	"herald/internal/render"
	"herald/internal/retrieval"
	"herald/internal/router"
	"herald/internal/session"
	"herald/internal/transport"
)

const (
	defaultHistoryWindow = 10
	defaultRecipient     = "group"

	draftPrompt   = "\n\nReply \"send it\" to send, \"edit\" to change it, or \"cancel\" to discard."
	fallbackReply = "Sorry, I didn't catch that. You can ask me a question or say something like \"send a message to the team\"."
)

// Config tunes the orchestrator.
type Config struct {
	HistoryWindow int
	MaxChunkLen   int
}

// Handler is the per-turn entry point. It is safe for concurrent use; all
// cross-turn state lives in the session store.
type Handler struct {
	cfg      Config
	store    session.Store
	history  session.History
	router   *router.Router
	combiner *retrieval.Combiner
	layers   []retrieval.Layer
	sender   transport.Sender
	logger   logging.Logger
	metrics  *observability.Metrics
	tracer   trace.Tracer
	now      func() time.Time
}

// NewHandler wires the orchestrator. metrics and tracer may be nil.
func NewHandler(
	cfg Config,
	store session.Store,
	history session.History,
	rt *router.Router,
	combiner *retrieval.Combiner,
	layers []retrieval.Layer,
	sender transport.Sender,
	logger logging.Logger,
	metrics *observability.Metrics,
	tracer trace.Tracer,
) *Handler {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = defaultHistoryWindow
	}
	if cfg.MaxChunkLen <= 0 {
		cfg.MaxChunkLen = transport.DefaultMaxChunkLen
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("herald")
	}
	return &Handler{
		cfg:      cfg,
		store:    store,
		history:  history,
		router:   rt,
		combiner: combiner,
		layers:   layers,
		sender:   sender,
		logger:   logging.OrNop(logger),
		metrics:  metrics,
		tracer:   tracer,
		now:      time.Now,
	}
}

// HandleTurn processes one inbound message and returns the outbound chunks.
// It always produces some outbound text; internal failures degrade to
// generic responses rather than aborting the turn.
func (h *Handler) HandleTurn(ctx context.Context, sender, text string) ([]string, error) {
	start := h.now()
	ctx, span := h.tracer.Start(ctx, "turn.handle")
	defer span.End()

	outcome, err := h.runTurn(ctx, sender, text)
	if errors.Is(err, session.ErrVersionConflict) {
		// A concurrent turn for the same sender won the write; re-run once
		// against the fresh state.
		h.metrics.VersionConflict()
		h.logger.Warn("session conflict for %s, retrying turn", sender)
		outcome, err = h.runTurn(ctx, sender, text)
	}
	if err != nil {
		h.logger.Error("turn persist failed for %s: %v", sender, err)
		if outcome.response == "" {
			outcome.response = fallbackReply
		}
	}

	if h.history != nil {
		if err := h.history.Append(ctx, sender, text, outcome.response); err != nil {
			h.logger.Warn("history append failed for %s: %v", sender, err)
		}
	}

	span.SetAttributes(
		attribute.String("turn.intent", string(outcome.intent.Kind)),
		attribute.String("turn.mode", string(outcome.mode)),
	)
	h.metrics.ObserveTurn(string(outcome.intent.Kind), string(outcome.mode), h.now().Sub(start))

	return transport.Split(outcome.response, h.cfg.MaxChunkLen), nil
}

type turnOutcome struct {
	response string
	intent   domain.Intent
	mode     domain.Mode
}

func (h *Handler) runTurn(ctx context.Context, sender, text string) (turnOutcome, error) {
	state := h.loadState(ctx, sender)
	history := h.loadHistory(ctx, sender)

	intent := h.router.Route(ctx, text, history)
	next := reducer.Reduce(state, intent, text, h.now())

	response := h.respond(ctx, sender, text, state, next, intent)

	// Persist before the response leaves, so a crash after this point can
	// not replay a stale state on webhook retry.
	if err := h.store.Upsert(ctx, sender, next); err != nil {
		return turnOutcome{response: response, intent: intent, mode: next.Mode}, err
	}
	return turnOutcome{response: response, intent: intent, mode: next.Mode}, nil
}

func (h *Handler) loadState(ctx context.Context, sender string) *domain.SessionState {
	state, err := h.store.Get(ctx, sender)
	if errors.Is(err, session.ErrNotFound) {
		return domain.NewSessionState()
	}
	if err != nil {
		// Store trouble degrades to a fresh idle session; failing the turn
		// would make the webhook retry and duplicate side effects.
		h.logger.Error("session load failed for %s: %v", sender, err)
		return domain.NewSessionState()
	}
	return state
}

func (h *Handler) loadHistory(ctx context.Context, sender string) []domain.Exchange {
	if h.history == nil {
		return nil
	}
	history, err := h.history.Recent(ctx, sender, h.cfg.HistoryWindow)
	if err != nil {
		h.logger.Warn("history load failed for %s: %v", sender, err)
		return nil
	}
	return history
}

func (h *Handler) respond(ctx context.Context, sender, text string, prev, next *domain.SessionState, intent domain.Intent) string {
	if intent.IsControlCommand {
		return h.respondControl(ctx, prev, next, intent)
	}

	switch {
	case next.Mode == domain.ModeConfirming && prev.Mode != domain.ModeConfirming:
		return render.Confirmation(next.Draft)

	case next.Mode == domain.ModeDrafting && prev.Draft == nil && next.Draft != nil:
		return "Here's your draft:\n" + render.Preview(next.Draft) + draftPrompt

	case next.Mode.Active() && draftChanged(prev, next):
		return render.Diff(prev.Draft, next.Draft) + draftPrompt

	case intent.Kind.SideChat():
		if prev.Mode.Active() {
			h.metrics.GuardrailBlock()
		}
		return h.sideChat(ctx, sender, text, intent)

	case prev.Mode.Active() && intent.ModeTransition == domain.ModeDrafting:
		// A new-draft request while one is active is suppressed.
		h.metrics.GuardrailBlock()
		return "You already have a " + string(prev.Draft.Kind) + " in progress:\n" +
			render.Preview(prev.Draft) + draftPrompt
	}

	return fallbackReply
}

func (h *Handler) respondControl(ctx context.Context, prev, next *domain.SessionState, intent domain.Intent) string {
	switch intent.Control {
	case domain.ControlSend:
		if next.Mode != domain.ModeSending {
			return "There's nothing ready to send. Say something like \"send a message to the team\" to start one."
		}
		return h.dispatch(ctx, next)
	case domain.ControlCancel:
		if prev.Mode.Active() || prev.Draft != nil {
			return "Okay, I've discarded the draft."
		}
		return "Nothing in progress — you're all set."
	case domain.ControlEdit:
		if next.Mode == domain.ModeEditing {
			return "Okay — tell me what to change."
		}
		return "There's no draft to edit right now."
	}
	return fallbackReply
}

// dispatch sends the retained draft through the outbound transport and
// resets the session to idle. Delivery failures are logged and counted; the
// turn still completes and persists.
func (h *Handler) dispatch(ctx context.Context, next *domain.SessionState) string {
	draft := next.Draft
	recipient := draft.Slots.Audience
	if recipient == "" {
		recipient = defaultRecipient
	}
	message := render.Preview(draft)

	delivered := true
	if h.sender != nil {
		for _, chunk := range transport.Split(message, h.cfg.MaxChunkLen) {
			if _, err := h.sender.Send(ctx, recipient, chunk); err != nil {
				if herr.IsTransient(err) {
					h.logger.Warn("delivery failed, transport will retry: %v", err)
				} else {
					h.logger.Error("delivery failed: %v", err)
				}
				h.metrics.DeliveryFailure()
				delivered = false
			}
		}
	}

	kind := string(draft.Kind)
	next.Mode = domain.ModeIdle
	next.Draft = nil
	next.LastUpdatedAt = h.now()

	if !delivered {
		return "I couldn't deliver the " + kind + " just now. The transport will keep trying on its side."
	}
	return "Sent the " + kind + " to the " + recipient + "."
}

// sideChat answers a question or smalltalk without touching the draft.
func (h *Handler) sideChat(ctx context.Context, sender, text string, intent domain.Intent) string {
	results := retrieval.Gather(ctx, h.layers, text, sender, h.logger)
	decision := h.combiner.Combine(intent, results)
	h.metrics.CombinerDecision(string(decision.Kind))

	if decision.Kind == domain.DecisionExecuteAction && decision.Message == "" {
		return "I can do that — say the word and I'll set it up."
	}
	if decision.Message == "" {
		return fallbackReply
	}
	return decision.Message
}

func draftChanged(prev, next *domain.SessionState) bool {
	if next.Draft == nil {
		return false
	}
	if prev.Draft == nil {
		return true
	}
	return !next.Draft.UpdatedAt.Equal(prev.Draft.UpdatedAt) || prev.Mode != next.Mode
}
