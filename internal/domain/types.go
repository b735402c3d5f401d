// Package domain holds the shared data model for the session/intent engine.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Mode is the drafting lifecycle state of a session.
type Mode string

const (
	ModeIdle       Mode = "idle"
	ModeDrafting   Mode = "drafting"
	ModeEditing    Mode = "editing"
	ModeConfirming Mode = "confirming"
	ModeSending    Mode = "sending"
)

// Active reports whether a draft is in progress in this mode.
func (m Mode) Active() bool {
	return m == ModeDrafting || m == ModeEditing || m == ModeConfirming
}

// DraftKind distinguishes the two composable message types.
type DraftKind string

const (
	KindAnnouncement DraftKind = "announcement"
	KindPoll         DraftKind = "poll"
)

// Slots are the structured fields of a draft.
type Slots struct {
	Title    string   `json:"title,omitempty"`
	Body     string   `json:"body,omitempty"`
	Time     string   `json:"time,omitempty"`
	Date     string   `json:"date,omitempty"`
	Location string   `json:"location,omitempty"`
	Audience string   `json:"audience,omitempty"`
	Question string   `json:"question,omitempty"`
	Options  []string `json:"options,omitempty"`
}

// Get returns the named slot value. Options are joined for display purposes.
func (s Slots) Get(field string) string {
	switch field {
	case FieldTitle:
		return s.Title
	case FieldBody:
		return s.Body
	case FieldTime:
		return s.Time
	case FieldDate:
		return s.Date
	case FieldLocation:
		return s.Location
	case FieldAudience:
		return s.Audience
	case FieldQuestion:
		return s.Question
	}
	return ""
}

// Set assigns the named slot value. Unknown fields are ignored.
func (s *Slots) Set(field, value string) {
	switch field {
	case FieldTitle:
		s.Title = value
	case FieldBody:
		s.Body = value
	case FieldTime:
		s.Time = value
	case FieldDate:
		s.Date = value
	case FieldLocation:
		s.Location = value
	case FieldAudience:
		s.Audience = value
	case FieldQuestion:
		s.Question = value
	}
}

// Canonical slot field names.
const (
	FieldTitle    = "title"
	FieldBody     = "body"
	FieldTime     = "time"
	FieldDate     = "date"
	FieldLocation = "location"
	FieldAudience = "audience"
	FieldQuestion = "question"
	FieldOptions  = "options"
)

// Constraints restrict how a draft may be edited on later turns.
type Constraints struct {
	// VerbatimOnly forces slots.Body to stay byte-identical to VerbatimText.
	VerbatimOnly bool `json:"verbatim_only,omitempty"`
	// MustInclude lists phrases the final message has to contain.
	MustInclude []string `json:"must_include,omitempty"`
	// MustNotChange is the monotonically growing set of locked field names.
	MustNotChange []string `json:"must_not_change,omitempty"`
}

// Locked reports whether the named field may no longer be edited.
func (c Constraints) Locked(field string) bool {
	for _, name := range c.MustNotChange {
		if name == field {
			return true
		}
	}
	return false
}

// Lock adds a field to the locked set. Fields are never unlocked.
func (c *Constraints) Lock(field string) {
	if field == "" || c.Locked(field) {
		return
	}
	c.MustNotChange = append(c.MustNotChange, field)
}

// Include records a must-include phrase, dropping duplicates.
func (c *Constraints) Include(phrase string) {
	if phrase == "" {
		return
	}
	for _, p := range c.MustInclude {
		if p == phrase {
			return
		}
	}
	c.MustInclude = append(c.MustInclude, phrase)
}

// Draft is the in-progress announcement or poll owned by one session.
type Draft struct {
	ID           string      `json:"id"`
	Kind         DraftKind   `json:"kind"`
	VerbatimText string      `json:"verbatim_text,omitempty"`
	Slots        Slots       `json:"slots"`
	Constraints  Constraints `json:"constraints"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// NewDraft constructs an empty draft of the given kind.
func NewDraft(kind DraftKind, now time.Time) *Draft {
	return &Draft{
		ID:        uuid.NewString(),
		Kind:      kind,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so reducer outputs never alias prior state.
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	dup := *d
	dup.Slots.Options = append([]string(nil), d.Slots.Options...)
	dup.Constraints.MustInclude = append([]string(nil), d.Constraints.MustInclude...)
	dup.Constraints.MustNotChange = append([]string(nil), d.Constraints.MustNotChange...)
	return &dup
}

// SessionState is the single per-sender blob persisted between turns.
type SessionState struct {
	Mode             Mode      `json:"mode"`
	Draft            *Draft    `json:"draft,omitempty"`
	HistoryWindowIDs []string  `json:"history_window_ids,omitempty"`
	LastUpdatedAt    time.Time `json:"last_updated_at"`
	// Version is a monotonic counter used for compare-and-swap upserts.
	Version int64 `json:"version"`
}

// NewSessionState returns the default idle state for a first-time sender.
func NewSessionState() *SessionState {
	return &SessionState{Mode: ModeIdle}
}

// Clone returns a deep copy of the state.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	dup := *s
	dup.Draft = s.Draft.Clone()
	dup.HistoryWindowIDs = append([]string(nil), s.HistoryWindowIDs...)
	return &dup
}
