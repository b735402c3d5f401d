// Package reducer implements the pure per-turn state transition
// (SessionState, Intent, rawText) -> SessionState with the draft guardrails.
// All I/O belongs to the orchestrator; this package never blocks.
package reducer

import (
	"time"

	"herald/internal/constraint"
	"herald/internal/domain"
)

// Reduce computes the next session state. The input state is never mutated;
// when nothing changes the returned state is an equal copy, so side-chat
// turns leave mode and draft byte-for-byte intact.
func Reduce(state *domain.SessionState, intent domain.Intent, rawText string, now time.Time) *domain.SessionState {
	if state == nil {
		state = domain.NewSessionState()
	}
	next := state.Clone()

	if intent.IsControlCommand {
		return applyControl(next, intent, now)
	}

	active := state.Mode.Active()

	// Guardrail: while a draft is active, queries and smalltalk are
	// side-chat. They must not change mode or touch the draft.
	if active && intent.Kind.SideChat() {
		return next
	}

	// Guardrail: any other transition besides editing/confirming is
	// suppressed while a draft exists.
	if active &&
		intent.ModeTransition != domain.ModeEditing &&
		intent.ModeTransition != domain.ModeConfirming {
		return next
	}

	switch intent.ModeTransition {
	case domain.ModeDrafting:
		return startDraft(next, intent, rawText, now)
	case domain.ModeEditing:
		if next.Draft == nil {
			if intent.QuotedText != "" {
				// Dictated text with no open draft starts a fresh one.
				return startDraft(next, intent, rawText, now)
			}
			// Nothing to edit; leave the state untouched and let the
			// orchestrator answer with a fallback.
			return next
		}
		return applyEdit(next, intent, rawText, now)
	case domain.ModeConfirming:
		if next.Draft == nil {
			return next
		}
		next.Mode = domain.ModeConfirming
		next.LastUpdatedAt = now
		return next
	}

	return next
}

func applyControl(next *domain.SessionState, intent domain.Intent, now time.Time) *domain.SessionState {
	switch intent.Control {
	case domain.ControlSend:
		if next.Draft == nil {
			// "yes" with nothing pending is a no-op.
			return next
		}
		// Draft is retained for the orchestrator to dispatch; the
		// orchestrator resets to idle once delivery is handed off.
		next.Mode = domain.ModeSending
		next.LastUpdatedAt = now
	case domain.ControlCancel:
		if next.Mode == domain.ModeIdle && next.Draft == nil {
			// Cancelling twice in a row stays a strict no-op.
			return next
		}
		next.Mode = domain.ModeIdle
		next.Draft = nil
		next.LastUpdatedAt = now
	case domain.ControlEdit:
		if next.Draft == nil {
			return next
		}
		// A bare "no"/"edit" only opens editing; the edit itself comes
		// on the next message.
		next.Mode = domain.ModeEditing
		next.LastUpdatedAt = now
	}
	return next
}

func startDraft(next *domain.SessionState, intent domain.Intent, rawText string, now time.Time) *domain.SessionState {
	kind := domain.KindAnnouncement
	if intent.Kind == domain.IntentPoll {
		kind = domain.KindPoll
	}
	draft := domain.NewDraft(kind, now)

	for field, value := range intent.FieldsChanged {
		draft.Slots.Set(field, value)
	}
	if len(intent.Options) > 0 {
		draft.Slots.Options = append([]string(nil), intent.Options...)
	}
	if intent.QuotedText != "" {
		draft.Slots.Body = intent.QuotedText
		draft.VerbatimText = intent.QuotedText
		draft.Constraints.VerbatimOnly = true
		draft.Constraints.Lock(domain.FieldBody)
	}
	for _, field := range intent.FieldsLocked {
		draft.Constraints.Lock(field)
	}
	applyTextConstraints(draft, rawText)

	next.Mode = domain.ModeDrafting
	next.Draft = draft
	next.LastUpdatedAt = now
	return next
}

func applyEdit(next *domain.SessionState, intent domain.Intent, rawText string, now time.Time) *domain.SessionState {
	draft := next.Draft

	for field, value := range intent.FieldsChanged {
		if draft.Constraints.Locked(field) {
			// Locked fields silently keep their prior value.
			continue
		}
		draft.Slots.Set(field, value)
	}
	if len(intent.Options) > 0 && !draft.Constraints.Locked(domain.FieldOptions) {
		draft.Slots.Options = append([]string(nil), intent.Options...)
	}
	if intent.QuotedText != "" {
		// Verbatim text replaces the entire body and locks it.
		draft.Slots.Body = intent.QuotedText
		draft.VerbatimText = intent.QuotedText
		draft.Constraints.VerbatimOnly = true
		draft.Constraints.Lock(domain.FieldBody)
	}
	for _, field := range intent.FieldsLocked {
		draft.Constraints.Lock(field)
	}
	applyTextConstraints(draft, rawText)

	draft.UpdatedAt = now
	next.Mode = domain.ModeEditing
	next.LastUpdatedAt = now
	return next
}

// applyTextConstraints folds must-include phrases and field locks dictated
// in the message text into the draft's constraints. The lock set only grows.
func applyTextConstraints(draft *domain.Draft, rawText string) {
	for _, phrase := range constraint.ParseMustInclude(rawText) {
		draft.Constraints.Include(phrase)
	}
	for _, field := range constraint.ParseMustNotChange(rawText) {
		draft.Constraints.Lock(field)
	}
}
