// Package repository defines the persistence contracts required by the guide
// pipeline. The external store is append/merge-oriented for contacts and
// write-replace for a meeting's guide/note fields; each call targets a single
// record and no multi-row transactional guarantee is assumed.
package repository

import (
	"context"

	"rapport-backend/internal/domain"
)

// RecordStore is the generic persistence collaborator the core depends on.
// Implementations must be last-write-wins for the single-column updates.
type RecordStore interface {
	// FindContacts retrieves all contacts scoped to the given user.
	FindContacts(ctx context.Context, userID string) ([]domain.Contact, error)

	// FindMeetings retrieves all meetings scoped to the given user.
	FindMeetings(ctx context.Context, userID string) ([]domain.Meeting, error)

	// UpdateMeetingGuide replaces the ai_guide field of one meeting.
	// A nil guide clears the field.
	UpdateMeetingGuide(ctx context.Context, userID, meetingID string, guide *domain.SmallTalkGuide) error

	// UpdateMeetingNote replaces the user_note field of one meeting.
	UpdateMeetingNote(ctx context.Context, userID, meetingID, note string) error

	// UpdateContactProfile replaces the interests and personality fields of
	// one contact. Callers are responsible for merge semantics; the store
	// writes what it is given.
	UpdateContactProfile(ctx context.Context, userID, contactID string, interests domain.Interests, personality string) error

	// InsertContact stores a new contact record.
	InsertContact(ctx context.Context, userID string, contact domain.Contact) error

	// InsertMeeting stores a new meeting record.
	InsertMeeting(ctx context.Context, userID string, meeting domain.Meeting) error
}
