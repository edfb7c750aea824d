// Package notes records free-text meeting notes and runs the note-analysis
// side effect: inferred interests are merged into the contact's existing
// sets, never replacing them.
package notes

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"rapport-backend/internal/domain"
	"rapport-backend/internal/repository"
	"rapport-backend/internal/service/llm"
	appErrors "rapport-backend/pkg/errors"
)

// Analyzer is the remote note-analysis capability.
type Analyzer interface {
	AnalyzeNote(ctx context.Context, note string) (*llm.NoteAnalysis, error)
}

// Service records notes and applies analysis results to contacts.
type Service struct {
	userID   string
	store    repository.RecordStore
	analyzer Analyzer
	logger   *zap.Logger
}

// NewService creates a session-scoped notes service.
func NewService(userID string, store repository.RecordStore, analyzer Analyzer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		userID:   userID,
		store:    store,
		analyzer: analyzer,
		logger:   logger,
	}
}

// RecordNote appends the given text to the meeting's note and persists it,
// then runs the analysis side effect against every participant contact.
// Analysis failure is non-fatal: prior contact state is simply retained.
func (s *Service) RecordNote(ctx context.Context, meetingID, note string) error {
	note = strings.TrimSpace(note)
	if note == "" {
		return appErrors.NewInvalidInput("note is empty")
	}

	meetings, err := s.store.FindMeetings(ctx, s.userID)
	if err != nil {
		return err
	}
	var meeting *domain.Meeting
	for i := range meetings {
		if meetings[i].ID == meetingID {
			meeting = &meetings[i]
			break
		}
	}
	if meeting == nil {
		return appErrors.NewNotFound("meeting not found: " + meetingID)
	}

	meeting.AppendNote(note)
	if err := s.store.UpdateMeetingNote(ctx, s.userID, meetingID, meeting.UserNote); err != nil {
		return err
	}

	s.analyzeAndMerge(ctx, meeting, note)
	return nil
}

// analyzeAndMerge extracts interests and personality from the note and
// merges them into each participant. Every failure here is swallowed after
// logging; the note itself is already saved.
func (s *Service) analyzeAndMerge(ctx context.Context, meeting *domain.Meeting, note string) {
	analysis, err := s.analyzer.AnalyzeNote(ctx, note)
	if err != nil {
		s.logger.Warn("Note analysis failed, keeping prior contact state",
			zap.String("meeting_id", meeting.ID),
			zap.Error(err),
		)
		return
	}

	contacts, err := s.store.FindContacts(ctx, s.userID)
	if err != nil {
		s.logger.Warn("Note analysis merge skipped: failed to load contacts",
			zap.Error(err),
		)
		return
	}
	byID := make(map[string]domain.Contact, len(contacts))
	for _, c := range contacts {
		byID[c.ID] = c
	}

	for _, contactID := range meeting.ContactIDs {
		contact, ok := byID[contactID]
		if !ok {
			continue
		}
		contact.ApplyAnalysis(analysis.BusinessInterests, analysis.LifestyleInterests, analysis.Personality)

		err := s.store.UpdateContactProfile(ctx, s.userID, contact.ID, contact.Interests, contact.Personality)
		if err != nil {
			s.logger.Warn("Failed to persist merged contact profile",
				zap.String("contact_id", contact.ID),
				zap.Error(err),
			)
			continue
		}
		s.logger.Debug("Merged note analysis into contact",
			zap.String("contact_id", contact.ID),
			zap.Int("business_interests", len(contact.Interests.Business)),
			zap.Int("lifestyle_interests", len(contact.Interests.Lifestyle)),
		)
	}
}
