package observability

import (
	"context"

	"rapport-backend/internal/domain"
	"rapport-backend/internal/repository"
)

// MeterRecordStore wraps a record store so every operation is counted with
// its outcome.
func MeterRecordStore(store repository.RecordStore, collector *Collector) repository.RecordStore {
	return &meteredRecordStore{
		inner:     store,
		collector: collector,
	}
}

type meteredRecordStore struct {
	inner     repository.RecordStore
	collector *Collector
}

func (s *meteredRecordStore) count(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.collector.StoreOperations.WithLabelValues(operation, status).Inc()
}

func (s *meteredRecordStore) FindContacts(ctx context.Context, userID string) ([]domain.Contact, error) {
	contacts, err := s.inner.FindContacts(ctx, userID)
	s.count("find_contacts", err)
	return contacts, err
}

func (s *meteredRecordStore) FindMeetings(ctx context.Context, userID string) ([]domain.Meeting, error) {
	meetings, err := s.inner.FindMeetings(ctx, userID)
	s.count("find_meetings", err)
	return meetings, err
}

func (s *meteredRecordStore) UpdateMeetingGuide(ctx context.Context, userID, meetingID string, guide *domain.SmallTalkGuide) error {
	err := s.inner.UpdateMeetingGuide(ctx, userID, meetingID, guide)
	s.count("update_meeting_guide", err)
	return err
}

func (s *meteredRecordStore) UpdateMeetingNote(ctx context.Context, userID, meetingID, note string) error {
	err := s.inner.UpdateMeetingNote(ctx, userID, meetingID, note)
	s.count("update_meeting_note", err)
	return err
}

func (s *meteredRecordStore) UpdateContactProfile(ctx context.Context, userID, contactID string, interests domain.Interests, personality string) error {
	err := s.inner.UpdateContactProfile(ctx, userID, contactID, interests, personality)
	s.count("update_contact_profile", err)
	return err
}

func (s *meteredRecordStore) InsertContact(ctx context.Context, userID string, contact domain.Contact) error {
	err := s.inner.InsertContact(ctx, userID, contact)
	s.count("insert_contact", err)
	return err
}

func (s *meteredRecordStore) InsertMeeting(ctx context.Context, userID string, meeting domain.Meeting) error {
	err := s.inner.InsertMeeting(ctx, userID, meeting)
	s.count("insert_meeting", err)
	return err
}
