package domain

// IntentKind classifies a single incoming message.
type IntentKind string

const (
	IntentContentQuery  IntentKind = "content_query"
	IntentEnclaveHelp   IntentKind = "enclave_help"
	IntentActionRequest IntentKind = "action_request"
	IntentAnnouncement  IntentKind = "announcement"
	IntentPoll          IntentKind = "poll"
	IntentEdit          IntentKind = "edit"
	IntentControl       IntentKind = "control"
	IntentSmalltalk     IntentKind = "smalltalk"
	IntentAbusive       IntentKind = "abusive"
)

// KnownIntentKind reports whether k is one of the defined intent kinds.
func KnownIntentKind(k IntentKind) bool {
	switch k {
	case IntentContentQuery, IntentEnclaveHelp, IntentActionRequest,
		IntentAnnouncement, IntentPoll, IntentEdit, IntentControl,
		IntentSmalltalk, IntentAbusive:
		return true
	}
	return false
}

// SideChat reports whether the intent is answered without touching a draft.
func (k IntentKind) SideChat() bool {
	switch k {
	case IntentContentQuery, IntentEnclaveHelp, IntentActionRequest,
		IntentSmalltalk, IntentAbusive:
		return true
	}
	return false
}

// ControlKind names the three control commands.
type ControlKind string

const (
	ControlSend   ControlKind = "send"
	ControlCancel ControlKind = "cancel"
	ControlEdit   ControlKind = "edit"
)

// Intent is the router's transient classification of one message. It is
// consumed by the reducer on the same turn and never persisted.
type Intent struct {
	Kind             IntentKind
	ModeTransition   Mode // zero value means no transition requested
	FieldsChanged    map[string]string
	Options          []string
	FieldsLocked     []string
	QuotedText       string
	IsControlCommand bool
	Control          ControlKind
}

// Provenance records how verbatim text was detected.
type Provenance string

const (
	ProvenanceQuoted          Provenance = "quoted"
	ProvenanceExplicitKeyword Provenance = "explicit_keyword"
	ProvenanceColonPattern    Provenance = "colon_pattern"
	ProvenanceNone            Provenance = "none"
)

// VerbatimConstraint is the constraint parser's per-message result.
type VerbatimConstraint struct {
	IsVerbatim bool
	Text       string
	Provenance Provenance
}
