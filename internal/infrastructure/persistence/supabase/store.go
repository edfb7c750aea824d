// Package supabase implements the RecordStore contract over a Supabase
// Postgres project via PostgREST. Writes are single-record and
// last-write-wins, which is the discipline the guide pipeline relies on when
// the interactive and prefetch paths race for the same meeting.
package supabase

import (
	"context"
	"fmt"

	supa "github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"rapport-backend/internal/config"
	"rapport-backend/internal/domain"
	appErrors "rapport-backend/pkg/errors"
)

// Store is the Supabase-backed RecordStore implementation.
type Store struct {
	client        *supa.Client
	contactsTable string
	meetingsTable string
	logger        *zap.Logger
}

// NewStore creates a store from configuration using the service role key.
func NewStore(cfg config.Supabase, logger *zap.Logger) (*Store, error) {
	client, err := supa.NewClient(cfg.URL, cfg.ServiceRoleKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client:        client,
		contactsTable: cfg.ContactsTable,
		meetingsTable: cfg.MeetingsTable,
		logger:        logger,
	}, nil
}

// FindContacts retrieves all contacts scoped to the given user.
func (s *Store) FindContacts(ctx context.Context, userID string) ([]domain.Contact, error) {
	var rows []contactRow
	_, err := s.client.From(s.contactsTable).
		Select("*", "", false).
		Eq("user_id", userID).
		ExecuteTo(&rows)
	if err != nil {
		return nil, appErrors.NewPersistence("failed to load contacts", err)
	}

	contacts := make([]domain.Contact, 0, len(rows))
	for _, row := range rows {
		contacts = append(contacts, row.toDomain())
	}
	return contacts, nil
}

// FindMeetings retrieves all meetings scoped to the given user.
func (s *Store) FindMeetings(ctx context.Context, userID string) ([]domain.Meeting, error) {
	var rows []meetingRow
	_, err := s.client.From(s.meetingsTable).
		Select("*", "", false).
		Eq("user_id", userID).
		ExecuteTo(&rows)
	if err != nil {
		return nil, appErrors.NewPersistence("failed to load meetings", err)
	}

	meetings := make([]domain.Meeting, 0, len(rows))
	for _, row := range rows {
		meetings = append(meetings, row.toDomain())
	}
	return meetings, nil
}

// UpdateMeetingGuide replaces the ai_guide column of one meeting. A nil
// guide clears the column so a stale guide is not re-served on reload.
func (s *Store) UpdateMeetingGuide(ctx context.Context, userID, meetingID string, guide *domain.SmallTalkGuide) error {
	payload := map[string]interface{}{"ai_guide": nil}
	if guide != nil {
		payload["ai_guide"] = guide
	}

	_, _, err := s.client.From(s.meetingsTable).
		Update(payload, "", "").
		Eq("user_id", userID).
		Eq("id", meetingID).
		Execute()
	if err != nil {
		return appErrors.NewPersistence("failed to update meeting guide", err)
	}

	s.logger.Debug("Updated meeting guide",
		zap.String("meeting_id", meetingID),
		zap.Bool("cleared", guide == nil),
	)
	return nil
}

// UpdateMeetingNote replaces the user_note column of one meeting.
func (s *Store) UpdateMeetingNote(ctx context.Context, userID, meetingID, note string) error {
	_, _, err := s.client.From(s.meetingsTable).
		Update(map[string]interface{}{"user_note": note}, "", "").
		Eq("user_id", userID).
		Eq("id", meetingID).
		Execute()
	if err != nil {
		return appErrors.NewPersistence("failed to update meeting note", err)
	}
	return nil
}

// UpdateContactProfile replaces the interests and personality columns of one
// contact. Merge semantics are the caller's responsibility.
func (s *Store) UpdateContactProfile(ctx context.Context, userID, contactID string, interests domain.Interests, personality string) error {
	_, _, err := s.client.From(s.contactsTable).
		Update(map[string]interface{}{
			"interests":   interests,
			"personality": personality,
		}, "", "").
		Eq("user_id", userID).
		Eq("id", contactID).
		Execute()
	if err != nil {
		return appErrors.NewPersistence("failed to update contact profile", err)
	}
	return nil
}

// InsertContact stores a new contact record.
func (s *Store) InsertContact(ctx context.Context, userID string, contact domain.Contact) error {
	_, _, err := s.client.From(s.contactsTable).
		Insert(fromDomainContact(userID, contact), false, "", "", "").
		Execute()
	if err != nil {
		return appErrors.NewPersistence("failed to insert contact", err)
	}
	return nil
}

// InsertMeeting stores a new meeting record.
func (s *Store) InsertMeeting(ctx context.Context, userID string, meeting domain.Meeting) error {
	_, _, err := s.client.From(s.meetingsTable).
		Insert(fromDomainMeeting(userID, meeting), false, "", "", "").
		Execute()
	if err != nil {
		return appErrors.NewPersistence("failed to insert meeting", err)
	}
	return nil
}
