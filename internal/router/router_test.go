package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herald/internal/domain"
	"herald/internal/logging"
)

func newTestRouter(classifier Classifier) *Router {
	return New(classifier, logging.Nop())
}

func TestRouteControlCommands(t *testing.T) {
	r := newTestRouter(nil)
	ctx := context.Background()

	cases := []struct {
		text    string
		control domain.ControlKind
		mode    domain.Mode
	}{
		{"send it", domain.ControlSend, domain.ModeSending},
		{"Send it!", domain.ControlSend, domain.ModeSending},
		{"yes", domain.ControlSend, domain.ModeSending},
		{"ship it", domain.ControlSend, domain.ModeSending},
		{"confirm", domain.ControlSend, domain.ModeSending},
		{"go ahead", domain.ControlSend, domain.ModeSending},
		{"cancel", domain.ControlCancel, domain.ModeIdle},
		{"never mind", domain.ControlCancel, domain.ModeIdle},
		{"discard", domain.ControlCancel, domain.ModeIdle},
		{"no", domain.ControlEdit, domain.ModeEditing},
		{"edit", domain.ControlEdit, domain.ModeEditing},
		{"change", domain.ControlEdit, domain.ModeEditing},
	}
	for _, tc := range cases {
		intent := r.Route(ctx, tc.text, nil)
		require.True(t, intent.IsControlCommand, "text %q", tc.text)
		assert.Equal(t, tc.control, intent.Control, "text %q", tc.text)
		assert.Equal(t, tc.mode, intent.ModeTransition, "text %q", tc.text)
	}
}

func TestRouteQuestion(t *testing.T) {
	r := newTestRouter(nil)
	intent := r.Route(context.Background(), "what time is study hall", nil)
	assert.Equal(t, domain.IntentContentQuery, intent.Kind)
	assert.Empty(t, intent.ModeTransition)
}

func TestRouteQuestionMark(t *testing.T) {
	r := newTestRouter(nil)
	intent := r.Route(context.Background(), "the gym is open tomorrow?", nil)
	assert.Equal(t, domain.IntentContentQuery, intent.Kind)
}

func TestRouteEnclaveHelpQuestion(t *testing.T) {
	r := newTestRouter(nil)
	intent := r.Route(context.Background(), "how do i use the bot to send a poll?", nil)
	assert.Equal(t, domain.IntentEnclaveHelp, intent.Kind)
}

func TestRouteNewAnnouncement(t *testing.T) {
	r := newTestRouter(nil)
	intent := r.Route(context.Background(), "send a message to the team: practice moved to 6pm", nil)
	require.Equal(t, domain.IntentAnnouncement, intent.Kind)
	assert.Equal(t, domain.ModeDrafting, intent.ModeTransition)
	assert.Equal(t, "practice moved to 6pm", intent.FieldsChanged[domain.FieldBody])
	assert.Equal(t, "team", intent.FieldsChanged[domain.FieldAudience])
	assert.Equal(t, "6pm", intent.FieldsChanged[domain.FieldTime])
}

func TestRouteAnnouncementColonForm(t *testing.T) {
	r := newTestRouter(nil)
	intent := r.Route(context.Background(), "broadcast: game cancelled tonight", nil)
	require.Equal(t, domain.IntentAnnouncement, intent.Kind)
	assert.Equal(t, "game cancelled tonight", intent.FieldsChanged[domain.FieldBody])
}

func TestRouteNewPoll(t *testing.T) {
	r := newTestRouter(nil)
	intent := r.Route(context.Background(), "make a poll", nil)
	require.Equal(t, domain.IntentPoll, intent.Kind)
	assert.Equal(t, domain.ModeDrafting, intent.ModeTransition)
}

func TestRoutePollWithOptions(t *testing.T) {
	r := newTestRouter(nil)
	intent := r.Route(context.Background(), "create a poll asking them when should we meet? options: Friday, Saturday", nil)
	require.Equal(t, domain.IntentPoll, intent.Kind)
	assert.Equal(t, []string{"Friday", "Saturday"}, intent.Options)
}

func TestRouteVerbatimOverrideLocksBody(t *testing.T) {
	r := newTestRouter(nil)
	intent := r.Route(context.Background(), `say "Bring cleats and water bottles"`, nil)
	require.Equal(t, domain.IntentEdit, intent.Kind)
	assert.Equal(t, domain.ModeEditing, intent.ModeTransition)
	assert.Equal(t, "Bring cleats and water bottles", intent.QuotedText)
	assert.Equal(t, []string{domain.FieldBody}, intent.FieldsLocked)
}

func TestRouteFieldEditTime(t *testing.T) {
	r := newTestRouter(nil)
	intent := r.Route(context.Background(), "make it 7:30pm", nil)
	require.Equal(t, domain.IntentEdit, intent.Kind)
	assert.Equal(t, domain.ModeEditing, intent.ModeTransition)
	assert.Equal(t, "7:30pm", intent.FieldsChanged[domain.FieldTime])
}

func TestRouteFieldEditLocation(t *testing.T) {
	r := newTestRouter(nil)
	intent := r.Route(context.Background(), "change it to the one at Miller Park", nil)
	require.Equal(t, domain.IntentEdit, intent.Kind)
	assert.Equal(t, "Miller Park", intent.FieldsChanged[domain.FieldLocation])
}

func TestRouteSmalltalk(t *testing.T) {
	r := newTestRouter(nil)
	for _, text := range []string{"hey", "thanks", "good morning", "hello there"} {
		intent := r.Route(context.Background(), text, nil)
		assert.Equal(t, domain.IntentSmalltalk, intent.Kind, "text %q", text)
		assert.Empty(t, intent.ModeTransition, "text %q", text)
	}
}

type stubClassifier struct {
	intent domain.Intent
	err    error
	calls  int
}

func (s *stubClassifier) Classify(context.Context, string, []domain.Exchange) (domain.Intent, error) {
	s.calls++
	return s.intent, s.err
}

func TestRouteFallbackUsesClassifier(t *testing.T) {
	stub := &stubClassifier{intent: domain.Intent{Kind: domain.IntentActionRequest}}
	r := newTestRouter(stub)
	intent := r.Route(context.Background(), "the usual thing for tomorrow please", nil)
	assert.Equal(t, domain.IntentActionRequest, intent.Kind)
	assert.Equal(t, 1, stub.calls)
}

func TestRouteFallbackDefaultsToSmalltalkOnError(t *testing.T) {
	stub := &stubClassifier{err: errors.New("model unavailable")}
	r := newTestRouter(stub)
	intent := r.Route(context.Background(), "the usual thing for tomorrow please", nil)
	assert.Equal(t, domain.IntentSmalltalk, intent.Kind)
}

func TestRouteFallbackRejectsUnknownKind(t *testing.T) {
	stub := &stubClassifier{intent: domain.Intent{Kind: "nonsense"}}
	r := newTestRouter(stub)
	intent := r.Route(context.Background(), "the usual thing for tomorrow please", nil)
	assert.Equal(t, domain.IntentSmalltalk, intent.Kind)
}

func TestRouteControlWinsOverQuestion(t *testing.T) {
	// Control commands always win regardless of other rules.
	r := newTestRouter(nil)
	intent := r.Route(context.Background(), "confirm", nil)
	assert.True(t, intent.IsControlCommand)
}

func TestRouteNeverConsultsState(t *testing.T) {
	// The router is stateless: identical text routes identically however
	// often it is called.
	r := newTestRouter(nil)
	first := r.Route(context.Background(), "make a poll", nil)
	second := r.Route(context.Background(), "make a poll", nil)
	assert.Equal(t, first, second)
}
