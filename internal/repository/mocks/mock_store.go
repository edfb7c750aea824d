// Package mocks provides mock implementations of repository interfaces for testing.
package mocks

import (
	"context"
	"sync"

	"rapport-backend/internal/domain"
	appErrors "rapport-backend/pkg/errors"
)

// MockStore provides an in-memory mock implementation of the RecordStore
// interface. This is useful for unit testing services without a real
// Supabase project.
type MockStore struct {
	mu sync.RWMutex

	// In-memory storage, keyed by userID then record id
	contacts map[string]map[string]domain.Contact
	meetings map[string]map[string]domain.Meeting

	// Call counters for asserting exactly-once persistence
	calls map[string]int

	// For testing error scenarios
	shouldFailOn map[string]error
}

// NewMockStore creates a new mock store instance.
func NewMockStore() *MockStore {
	return &MockStore{
		contacts:     make(map[string]map[string]domain.Contact),
		meetings:     make(map[string]map[string]domain.Meeting),
		calls:        make(map[string]int),
		shouldFailOn: make(map[string]error),
	}
}

// SetError configures the mock to return an error for a specific method.
// Useful for testing error handling in services.
func (m *MockStore) SetError(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailOn[method] = err
}

// ClearError removes a configured error for a method.
func (m *MockStore) ClearError(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.shouldFailOn, method)
}

// Calls returns how many times the named method has been invoked.
func (m *MockStore) Calls(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[method]
}

func (m *MockStore) failure(method string) error {
	m.calls[method]++
	if err, ok := m.shouldFailOn[method]; ok {
		return err
	}
	return nil
}

// SeedContact places a contact directly into the mock store.
func (m *MockStore) SeedContact(userID string, contact domain.Contact) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.contacts[userID] == nil {
		m.contacts[userID] = make(map[string]domain.Contact)
	}
	m.contacts[userID][contact.ID] = contact
}

// SeedMeeting places a meeting directly into the mock store.
func (m *MockStore) SeedMeeting(userID string, meeting domain.Meeting) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.meetings[userID] == nil {
		m.meetings[userID] = make(map[string]domain.Meeting)
	}
	m.meetings[userID][meeting.ID] = meeting
}

// Meeting returns a stored meeting, if present.
func (m *MockStore) Meeting(userID, meetingID string) (domain.Meeting, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	meeting, ok := m.meetings[userID][meetingID]
	return meeting, ok
}

// Contact returns a stored contact, if present.
func (m *MockStore) Contact(userID, contactID string) (domain.Contact, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	contact, ok := m.contacts[userID][contactID]
	return contact, ok
}

// FindContacts retrieves all contacts scoped to the given user.
func (m *MockStore) FindContacts(ctx context.Context, userID string) ([]domain.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("FindContacts"); err != nil {
		return nil, err
	}
	out := make([]domain.Contact, 0, len(m.contacts[userID]))
	for _, c := range m.contacts[userID] {
		out = append(out, c)
	}
	return out, nil
}

// FindMeetings retrieves all meetings scoped to the given user.
func (m *MockStore) FindMeetings(ctx context.Context, userID string) ([]domain.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("FindMeetings"); err != nil {
		return nil, err
	}
	out := make([]domain.Meeting, 0, len(m.meetings[userID]))
	for _, mt := range m.meetings[userID] {
		out = append(out, mt)
	}
	return out, nil
}

// UpdateMeetingGuide replaces the ai_guide field of one meeting.
func (m *MockStore) UpdateMeetingGuide(ctx context.Context, userID, meetingID string, guide *domain.SmallTalkGuide) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("UpdateMeetingGuide"); err != nil {
		return err
	}
	meeting, ok := m.meetings[userID][meetingID]
	if !ok {
		return appErrors.NewNotFound("meeting not found: " + meetingID)
	}
	meeting.AIGuide = guide.Clone()
	m.meetings[userID][meetingID] = meeting
	return nil
}

// UpdateMeetingNote replaces the user_note field of one meeting.
func (m *MockStore) UpdateMeetingNote(ctx context.Context, userID, meetingID, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("UpdateMeetingNote"); err != nil {
		return err
	}
	meeting, ok := m.meetings[userID][meetingID]
	if !ok {
		return appErrors.NewNotFound("meeting not found: " + meetingID)
	}
	meeting.UserNote = note
	m.meetings[userID][meetingID] = meeting
	return nil
}

// UpdateContactProfile replaces the interests and personality fields of one contact.
func (m *MockStore) UpdateContactProfile(ctx context.Context, userID, contactID string, interests domain.Interests, personality string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("UpdateContactProfile"); err != nil {
		return err
	}
	contact, ok := m.contacts[userID][contactID]
	if !ok {
		return appErrors.NewNotFound("contact not found: " + contactID)
	}
	contact.Interests = interests
	contact.Personality = personality
	m.contacts[userID][contactID] = contact
	return nil
}

// InsertContact stores a new contact record.
func (m *MockStore) InsertContact(ctx context.Context, userID string, contact domain.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("InsertContact"); err != nil {
		return err
	}
	if m.contacts[userID] == nil {
		m.contacts[userID] = make(map[string]domain.Contact)
	}
	m.contacts[userID][contact.ID] = contact
	return nil
}

// InsertMeeting stores a new meeting record.
func (m *MockStore) InsertMeeting(ctx context.Context, userID string, meeting domain.Meeting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("InsertMeeting"); err != nil {
		return err
	}
	if m.meetings[userID] == nil {
		m.meetings[userID] = make(map[string]domain.Meeting)
	}
	m.meetings[userID][meeting.ID] = meeting
	return nil
}
