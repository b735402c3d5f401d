// Package render turns drafts into human-readable outbound text: previews,
// edit diffs, and send confirmations.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"herald/internal/domain"
)

// Preview renders the draft the way it would be sent. When verbatim text is
// set it is returned unmodified: no trimming, no normalization, verbatim
// means verbatim.
func Preview(draft *domain.Draft) string {
	if draft == nil {
		return ""
	}
	if draft.VerbatimText != "" {
		return draft.VerbatimText
	}
	if draft.Kind == domain.KindPoll {
		return previewPoll(draft)
	}
	return previewAnnouncement(draft)
}

func previewAnnouncement(draft *domain.Draft) string {
	var parts []string
	if draft.Slots.Body != "" {
		parts = append(parts, draft.Slots.Body)
	}
	if draft.Slots.Time != "" {
		parts = append(parts, "at "+ConversationalTime(draft.Slots.Time))
	}
	if draft.Slots.Location != "" {
		parts = append(parts, "at "+draft.Slots.Location)
	}
	if draft.Slots.Audience != "" {
		parts = append(parts, "for the "+draft.Slots.Audience)
	}
	if len(parts) == 0 {
		return "(empty announcement)"
	}
	return strings.Join(parts, " ")
}

func previewPoll(draft *domain.Draft) string {
	var b strings.Builder
	if draft.Slots.Question != "" {
		b.WriteString(draft.Slots.Question)
	} else if draft.Slots.Body != "" {
		b.WriteString(draft.Slots.Body)
	} else {
		b.WriteString("(poll question not set yet)")
	}
	for i, opt := range draft.Slots.Options {
		b.WriteString(fmt.Sprintf("\n%d. %s", i+1, opt))
	}
	return b.String()
}

// Diff narrates only the fields that actually changed between two drafts,
// so an edit turn never re-states unrelated slot values.
func Diff(oldDraft, newDraft *domain.Draft) string {
	if newDraft == nil {
		return ""
	}
	if oldDraft == nil {
		return Preview(newDraft)
	}

	var lines []string
	if oldDraft.Slots.Body != newDraft.Slots.Body {
		lines = append(lines, bodyChangeLine(oldDraft.Slots.Body, newDraft.Slots.Body))
	}
	for _, field := range []string{
		domain.FieldTitle, domain.FieldTime, domain.FieldDate,
		domain.FieldLocation, domain.FieldAudience, domain.FieldQuestion,
	} {
		oldVal, newVal := oldDraft.Slots.Get(field), newDraft.Slots.Get(field)
		if oldVal == newVal {
			continue
		}
		display := newVal
		if field == domain.FieldTime {
			display = ConversationalTime(newVal)
		}
		if oldVal == "" {
			lines = append(lines, fmt.Sprintf("Set %s: %s", field, display))
		} else {
			lines = append(lines, fmt.Sprintf("Updated %s: %s", field, display))
		}
	}
	if !equalOptions(oldDraft.Slots.Options, newDraft.Slots.Options) {
		lines = append(lines, "Updated options: "+strings.Join(newDraft.Slots.Options, ", "))
	}
	if len(lines) == 0 {
		return "No changes."
	}
	return strings.Join(lines, "\n")
}

// bodyChangeLine summarizes how much of the body text moved using a
// character-level diff, then shows the new body.
func bodyChangeLine(oldBody, newBody string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldBody, newBody, false)
	added, removed := 0, 0
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += len(d.Text)
		case diffmatchpatch.DiffDelete:
			removed += len(d.Text)
		}
	}
	if oldBody == "" {
		return "Set message: " + newBody
	}
	return fmt.Sprintf("Updated message (+%d/-%d chars): %s", added, removed, newBody)
}

func equalOptions(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Confirmation renders the pre-send summary with the control commands the
// user can reply with.
func Confirmation(draft *domain.Draft) string {
	if draft == nil {
		return ""
	}
	return fmt.Sprintf("Ready to send this %s:\n%s\nReply \"send it\" to send, \"edit\" to change it, or \"cancel\" to discard.",
		draft.Kind, Preview(draft))
}

// ConversationalTime converts a 24-hour clock value like "21:00:00" to a
// conversational form like "9pm". Values already in am/pm form, or not
// parseable as a clock, pass through unchanged.
func ConversationalTime(value string) string {
	v := strings.TrimSpace(value)
	lower := strings.ToLower(v)
	if strings.Contains(lower, "am") || strings.Contains(lower, "pm") {
		return lower
	}
	parts := strings.Split(v, ":")
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return value
	}
	minute := 0
	if len(parts) > 1 {
		if m, err := strconv.Atoi(parts[1]); err == nil {
			minute = m
		}
	}
	suffix := "am"
	display := hour
	switch {
	case hour == 0:
		display = 12
	case hour == 12:
		suffix = "pm"
	case hour > 12:
		display = hour - 12
		suffix = "pm"
	}
	if minute == 0 {
		return fmt.Sprintf("%d%s", display, suffix)
	}
	return fmt.Sprintf("%d:%02d%s", display, minute, suffix)
}
