package turn

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herald/internal/domain"
	"herald/internal/logging"
	"herald/internal/retrieval"
	"herald/internal/router"
	"herald/internal/session"
	"herald/internal/transport"
)

const testSender = "+15551234"

type fixture struct {
	handler *Handler
	store   session.Store
	history *session.MemoryHistory
	sender  *transport.MemorySender
}

func newFixture(t *testing.T, store session.Store) *fixture {
	t.Helper()
	if store == nil {
		store = session.NewMemoryStore()
	}
	history := session.NewMemoryHistory(0)
	sender := transport.NewMemorySender()

	enclave, err := retrieval.NewEnclaveLayer(retrieval.DefaultEnclaveCorpus(), nil)
	require.NoError(t, err)
	layers := []retrieval.Layer{
		enclave,
		retrieval.NewConversationLayer(history, nil),
		retrieval.NewActionLayer(),
	}

	handler := NewHandler(
		Config{},
		store,
		history,
		router.New(nil, logging.Nop()),
		retrieval.NewCombiner(retrieval.DefaultCombinerConfig(), nil),
		layers,
		sender,
		logging.Nop(), nil, nil,
	)
	return &fixture{handler: handler, store: store, history: history, sender: sender}
}

func (f *fixture) turn(t *testing.T, text string) string {
	t.Helper()
	chunks, err := f.handler.HandleTurn(context.Background(), testSender, text)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	return strings.Join(chunks, "")
}

func (f *fixture) state(t *testing.T) *domain.SessionState {
	t.Helper()
	state, err := f.store.Get(context.Background(), testSender)
	require.NoError(t, err)
	return state
}

func TestTurnStartPollDraft(t *testing.T) {
	f := newFixture(t, nil)
	reply := f.turn(t, "make a poll")

	assert.Contains(t, reply, "Here's your draft:")
	state := f.state(t)
	assert.Equal(t, domain.ModeDrafting, state.Mode)
	require.NotNil(t, state.Draft)
	assert.Equal(t, domain.KindPoll, state.Draft.Kind)
}

func TestTurnAnnouncementDraftAndSend(t *testing.T) {
	f := newFixture(t, nil)

	reply := f.turn(t, "send a message to the team: practice moved to 6pm")
	assert.Contains(t, reply, "practice moved to 6pm")
	assert.Contains(t, reply, `Reply "send it"`)

	reply = f.turn(t, "send it")
	assert.Equal(t, "Sent the announcement to the team.", reply)

	sent := f.sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "team", sent[0].Recipient)
	assert.Contains(t, sent[0].Text, "practice moved to 6pm")

	state := f.state(t)
	assert.Equal(t, domain.ModeIdle, state.Mode)
	assert.Nil(t, state.Draft)
}

func TestTurnSideChatLeavesDraftIntact(t *testing.T) {
	f := newFixture(t, nil)
	f.turn(t, "send a message to the team: practice moved to 6pm")
	before := f.state(t)

	reply := f.turn(t, "what time is study hall")
	// No content layer in the fixture, so the combiner clarifies instead of
	// inventing an answer.
	assert.Contains(t, reply, "couldn't find anything")

	after := f.state(t)
	assert.Equal(t, before.Mode, after.Mode)
	assert.Equal(t, before.Draft, after.Draft)
}

func TestTurnSecondDraftBlocked(t *testing.T) {
	f := newFixture(t, nil)
	f.turn(t, "send a message to the team: practice moved to 6pm")

	reply := f.turn(t, "send a message to everyone: bake sale saturday")
	assert.Contains(t, reply, "You already have a announcement in progress")

	state := f.state(t)
	require.NotNil(t, state.Draft)
	assert.Equal(t, "practice moved to 6pm", state.Draft.Slots.Body)
}

func TestTurnEditFlow(t *testing.T) {
	f := newFixture(t, nil)
	f.turn(t, "send a message to the team: practice moved to 6pm")

	reply := f.turn(t, "no")
	assert.Equal(t, "Okay — tell me what to change.", reply)

	reply = f.turn(t, "make it 7pm")
	assert.Contains(t, reply, "7pm")
	assert.NotContains(t, reply, "practice moved")

	state := f.state(t)
	assert.Equal(t, "7pm", state.Draft.Slots.Time)
	assert.Equal(t, "practice moved to 6pm", state.Draft.Slots.Body)
}

func TestTurnCancelDiscardsDraft(t *testing.T) {
	f := newFixture(t, nil)
	f.turn(t, "make a poll")

	reply := f.turn(t, "cancel")
	assert.Equal(t, "Okay, I've discarded the draft.", reply)

	state := f.state(t)
	assert.Equal(t, domain.ModeIdle, state.Mode)
	assert.Nil(t, state.Draft)
}

func TestTurnCancelWithNothingPending(t *testing.T) {
	f := newFixture(t, nil)
	reply := f.turn(t, "cancel")
	assert.Equal(t, "Nothing in progress — you're all set.", reply)
}

func TestTurnSendWithNothingPending(t *testing.T) {
	f := newFixture(t, nil)
	reply := f.turn(t, "send it")
	assert.Contains(t, reply, "nothing ready to send")
	assert.Empty(t, f.sender.Sent())
}

func TestTurnVerbatimSentByteForByte(t *testing.T) {
	f := newFixture(t, nil)
	f.turn(t, "send this: football tomorrow at 6am im fields")
	f.turn(t, "send it")

	sent := f.sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "football tomorrow at 6am im fields", sent[0].Text)
}

func TestTurnEnclaveHelpAnswered(t *testing.T) {
	f := newFixture(t, nil)
	reply := f.turn(t, "how do i send an announcement with the bot?")
	assert.Contains(t, reply, "send a message to the team")
}

func TestTurnHistoryRecorded(t *testing.T) {
	f := newFixture(t, nil)
	f.turn(t, "hey")

	recent, err := f.history.Recent(context.Background(), testSender, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "hey", recent[0].UserMessage)
	assert.NotEmpty(t, recent[0].BotResponse)
}

func TestTurnDeliveryFailureStillCompletes(t *testing.T) {
	f := newFixture(t, nil)
	f.turn(t, "make a poll")
	f.sender.Err = errors.New("gateway down")

	reply := f.turn(t, "send it")
	assert.Contains(t, reply, "couldn't deliver")

	// The session is still reset; the transport owns delivery retries.
	state := f.state(t)
	assert.Equal(t, domain.ModeIdle, state.Mode)
	assert.Nil(t, state.Draft)
}

// conflictStore forces one ErrVersionConflict before delegating.
type conflictStore struct {
	session.Store
	conflicts int
}

func (s *conflictStore) Upsert(ctx context.Context, sender string, state *domain.SessionState) error {
	if s.conflicts > 0 {
		s.conflicts--
		return session.ErrVersionConflict
	}
	return s.Store.Upsert(ctx, sender, state)
}

func TestTurnRetriesOnceOnVersionConflict(t *testing.T) {
	store := &conflictStore{Store: session.NewMemoryStore(), conflicts: 1}
	f := newFixture(t, store)

	reply := f.turn(t, "make a poll")
	assert.Contains(t, reply, "Here's your draft:")

	state := f.state(t)
	assert.Equal(t, domain.ModeDrafting, state.Mode)
	assert.Zero(t, store.conflicts)
}

func TestTurnPersistentConflictStillReplies(t *testing.T) {
	store := &conflictStore{Store: session.NewMemoryStore(), conflicts: 2}
	f := newFixture(t, store)

	chunks, err := f.handler.HandleTurn(context.Background(), testSender, "make a poll")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.NotEmpty(t, chunks[0])
}

func TestTurnLongResponseChunked(t *testing.T) {
	f := newFixture(t, nil)
	handler := f.handler
	handler.cfg.MaxChunkLen = 80

	chunks, err := handler.HandleTurn(context.Background(), testSender,
		"send a message to the team: "+strings.Repeat("bring snacks and water ", 10))
	require.NoError(t, err)
	assert.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 80)
	}
}

func TestTurnStoreLoadFailureDegrades(t *testing.T) {
	store := &failingGetStore{Store: session.NewMemoryStore()}
	f := newFixture(t, store)

	reply := f.turn(t, "make a poll")
	assert.Contains(t, reply, "Here's your draft:")
}

// failingGetStore errors on Get but persists normally.
type failingGetStore struct {
	session.Store
}

func (s *failingGetStore) Get(context.Context, string) (*domain.SessionState, error) {
	return nil, errors.New("backend unavailable")
}
