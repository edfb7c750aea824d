package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Meeting represents a scheduled or past encounter with one or more contacts.
// The AIGuide field is the only part of the record mutated by the guide
// pipeline; UserNote is append-only and never silently overwritten.
type Meeting struct {
	ID          string          `json:"id"`
	ContactIDs  []string        `json:"contact_ids"`
	Title       string          `json:"title"`
	Date        time.Time       `json:"date"`
	Location    string          `json:"location"`
	UserNote    string          `json:"user_note,omitempty"`
	AIGuide     *SmallTalkGuide `json:"ai_guide,omitempty"`
	PastContext string          `json:"past_context,omitempty"`
}

// NewMeeting mints a meeting with a fresh identity, ready for insertion.
func NewMeeting(title string, date time.Time, contactIDs []string) Meeting {
	if contactIDs == nil {
		contactIDs = []string{}
	}
	return Meeting{
		ID:         uuid.NewString(),
		Title:      title,
		Date:       date,
		ContactIDs: contactIDs,
	}
}

// HasGuide reports whether a usable guide is already attached.
func (m *Meeting) HasGuide() bool {
	return m.AIGuide != nil
}

// HasNote reports whether the meeting carries a non-empty recorded note.
func (m *Meeting) HasNote() bool {
	return strings.TrimSpace(m.UserNote) != ""
}

// SharesParticipant reports whether the two meetings have at least one
// contact in common.
func (m *Meeting) SharesParticipant(other *Meeting) bool {
	for _, id := range m.ContactIDs {
		for _, otherID := range other.ContactIDs {
			if id == otherID {
				return true
			}
		}
	}
	return false
}

// BeforeDay reports whether t falls strictly before the calendar day
// containing now, in now's location.
func BeforeDay(t, now time.Time) bool {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return t.Before(startOfDay)
}

// IsBeforeDay reports whether the meeting falls strictly before the calendar
// day containing now. Meetings on the current day or later are eligible for
// guide generation; strictly past ones never are.
func (m *Meeting) IsBeforeDay(now time.Time) bool {
	return BeforeDay(m.Date, now)
}

// InPrefetchHorizon reports whether the meeting falls within
// [now, end of tomorrow], the window the background prefetch covers.
func (m *Meeting) InPrefetchHorizon(now time.Time) bool {
	if m.Date.Before(now) {
		return false
	}
	endOfTomorrow := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
		AddDate(0, 0, 2)
	return m.Date.Before(endOfTomorrow)
}

// AppendNote adds free text to the meeting note, separated from any existing
// content by a blank line. Existing text is never discarded.
func (m *Meeting) AppendNote(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	if m.HasNote() {
		m.UserNote = strings.TrimRight(m.UserNote, "\n") + "\n\n" + note
	} else {
		m.UserNote = note
	}
}
