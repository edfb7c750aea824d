// Package guide implements the meeting-guide pipeline: the cache and
// persistence gate for interactive generation, user-triggered regeneration,
// and the background prefetch scheduler.
package guide

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"rapport-backend/internal/config"
	"rapport-backend/internal/domain"
	"rapport-backend/internal/infrastructure/observability"
	"rapport-backend/internal/repository"
	"rapport-backend/internal/service/history"
	"rapport-backend/internal/service/llm"
	appErrors "rapport-backend/pkg/errors"
)

// Generator is the remote generation capability the pipeline depends on.
type Generator interface {
	GenerateGuide(ctx context.Context, req llm.GuideRequest) (*domain.SmallTalkGuide, error)
	GenerateGuideStream(ctx context.Context, req llm.GuideRequest) (*llm.GuideStream, error)
}

// Session identifies the operator this pipeline instance serves. A new
// session means a new Service: the cache, in-flight registry and one-shot
// prefetch flag all reset with it.
type Session struct {
	UserID  string
	Profile domain.UserProfile
}

// Service is the guide cache and persistence gate. It owns all mutable guide
// state: the in-memory cache, the per-meeting in-flight registry, and the
// pending-regeneration set. Other components only read records passed to
// them and return new values.
type Service struct {
	session   Session
	store     repository.RecordStore
	generator Generator
	logger    *zap.Logger
	metrics   *observability.Collector
	tracer    trace.Tracer
	now       func() time.Time

	prefetch     config.Prefetch
	prefetchOnce sync.Once

	mu sync.Mutex
	// cache maps meeting id to the session's best-known guide. Entries carry
	// the meeting date so the past-meeting gate can be re-evaluated on hits
	// after the session clock crosses midnight.
	cache map[string]cacheEntry
	// tokens maps meeting id to a monotonically increasing generation token.
	// Interactive attempts bump it; completions apply their result only when
	// their token is still current, which is how stale results are discarded.
	tokens map[string]uint64
	// interactive counts running interactive generations per meeting, so
	// prefetch can skip meetings the user is already waiting on.
	interactive map[string]int
	// regen marks meetings whose next generation must bypass the cache hit
	// exactly once.
	regen map[string]bool
	// activeMeeting is the meeting the presentation layer is currently
	// showing; partial snapshots for any other meeting are suppressed.
	activeMeeting string
}

// cacheEntry pairs a cached guide with its meeting date.
type cacheEntry struct {
	guide *domain.SmallTalkGuide
	date  time.Time
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithMetrics attaches a Prometheus collector.
func WithMetrics(collector *observability.Collector) Option {
	return func(s *Service) { s.metrics = collector }
}

// WithClock overrides the time source; the scope gate and the prefetch
// horizon both evaluate against it.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPrefetchConfig overrides prefetch settings.
func WithPrefetchConfig(cfg config.Prefetch) Option {
	return func(s *Service) { s.prefetch = cfg }
}

// NewService creates a session-scoped guide service.
func NewService(session Session, store repository.RecordStore, generator Generator, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		session:     session,
		store:       store,
		generator:   generator,
		logger:      logger,
		tracer:      otel.Tracer("rapport-backend/guide"),
		now:         time.Now,
		prefetch:    config.Prefetch{Enabled: true},
		cache:       make(map[string]cacheEntry),
		tokens:      make(map[string]uint64),
		interactive: make(map[string]int),
		regen:       make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetActiveMeeting records which meeting the presentation layer is showing.
// Navigating away stops partial updates for abandoned streams from being
// applied, even though the underlying stream drains to completion.
func (s *Service) SetActiveMeeting(meetingID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeMeeting = meetingID
}

// EnsureGuide is the sole interactive entry point. It returns the cached
// guide when one exists and no regeneration is pending; otherwise it runs a
// streaming generation, forwarding partial snapshots to onPartial while the
// meeting stays active, persists the completed guide exactly once, and
// caches it.
//
// Strictly past meetings (before the current day) never trigger generation
// and yield (nil, nil). A stale completion — superseded by a newer attempt
// for the same meeting — is discarded and also yields (nil, nil).
//
// On a persistence failure the generated guide is still returned for the
// current session, alongside a PERSISTENCE error, so the caller can flag the
// at-least-once gap instead of silently swallowing it.
func (s *Service) EnsureGuide(ctx context.Context, meetingID string, onPartial func(domain.SmallTalkGuide)) (*domain.SmallTalkGuide, error) {
	ctx, span := s.tracer.Start(ctx, "guide.EnsureGuide",
		trace.WithAttributes(attribute.String("meeting.id", meetingID)),
	)
	defer span.End()

	s.mu.Lock()
	s.activeMeeting = meetingID
	if entry, ok := s.cache[meetingID]; ok && !s.regen[meetingID] {
		if domain.BeforeDay(entry.date, s.now()) {
			// The session clock crossed midnight since this guide was
			// cached; past meetings show no guide regardless of cache state.
			delete(s.cache, meetingID)
			s.mu.Unlock()
			return nil, nil
		}
		s.mu.Unlock()
		s.countCacheHit()
		return entry.guide.Clone(), nil
	}
	s.mu.Unlock()
	s.countCacheMiss()

	meeting, contacts, meetings, err := s.load(ctx, meetingID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// Hard scope gate: guides exist only for today's and future meetings.
	if meeting.IsBeforeDay(s.now()) {
		s.logger.Debug("Skipping guide for past meeting",
			zap.String("meeting_id", meetingID),
			zap.Time("date", meeting.Date),
		)
		return nil, nil
	}

	s.mu.Lock()
	if meeting.HasGuide() && !s.regen[meetingID] {
		guide := meeting.AIGuide.Clone()
		s.cache[meetingID] = cacheEntry{guide: guide, date: meeting.Date}
		s.mu.Unlock()
		return guide.Clone(), nil
	}
	delete(s.regen, meetingID) // the bypass is consumed by this attempt
	s.tokens[meetingID]++
	token := s.tokens[meetingID]
	s.interactive[meetingID]++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.interactive[meetingID]--
		s.mu.Unlock()
	}()

	req, err := s.buildRequest(meeting, contacts, meetings, true)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	start := s.now()
	stream, err := s.generator.GenerateGuideStream(ctx, req)
	if err != nil {
		s.observeGeneration("interactive", "error", s.now().Sub(start))
		span.RecordError(err)
		return nil, err
	}

	for snapshot := range stream.Updates() {
		if onPartial != nil && s.isCurrent(meetingID, token) {
			onPartial(snapshot)
		}
	}

	guide, err := stream.Wait()
	if err != nil {
		s.observeGeneration("interactive", "error", s.now().Sub(start))
		span.RecordError(err)
		return nil, err
	}
	s.observeGeneration("interactive", "success", s.now().Sub(start))

	return s.commit(ctx, meetingID, token, guide, meeting.Date)
}

// Regenerate clears the existing guide, invalidates the cache gate, and
// re-triggers a streaming generation. Strictly past meetings are left
// untouched: there is nothing to regenerate for them and the stored guide
// must not be destroyed by the clear.
func (s *Service) Regenerate(ctx context.Context, meetingID string, onPartial func(domain.SmallTalkGuide)) (*domain.SmallTalkGuide, error) {
	meeting, _, _, err := s.load(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if meeting.IsBeforeDay(s.now()) {
		s.logger.Debug("Skipping regeneration for past meeting",
			zap.String("meeting_id", meetingID),
			zap.Time("date", meeting.Date),
		)
		return nil, nil
	}

	s.mu.Lock()
	delete(s.cache, meetingID)
	s.regen[meetingID] = true
	// Bump the token so any in-flight attempt for this meeting becomes stale.
	s.tokens[meetingID]++
	s.mu.Unlock()

	// Explicit clear so a stale guide is not re-served on reload before the
	// new one completes. A failed clear is logged but does not block the
	// regeneration itself.
	if err := s.store.UpdateMeetingGuide(ctx, s.session.UserID, meetingID, nil); err != nil {
		s.logger.Warn("Failed to clear persisted guide before regeneration",
			zap.String("meeting_id", meetingID),
			zap.Error(err),
		)
	}

	return s.EnsureGuide(ctx, meetingID, onPartial)
}

// commit applies a completed generation if its token is still current:
// cache update plus exactly one persistence write.
func (s *Service) commit(ctx context.Context, meetingID string, token uint64, guide *domain.SmallTalkGuide, date time.Time) (*domain.SmallTalkGuide, error) {
	s.mu.Lock()
	if s.tokens[meetingID] != token {
		s.mu.Unlock()
		s.logger.Debug("Discarding stale generation result",
			zap.String("meeting_id", meetingID),
			zap.Uint64("token", token),
		)
		return nil, nil
	}
	s.cache[meetingID] = cacheEntry{guide: guide.Clone(), date: date}
	s.mu.Unlock()

	if err := s.store.UpdateMeetingGuide(ctx, s.session.UserID, meetingID, guide); err != nil {
		// Memory and storage are now inconsistent; surface it rather than
		// swallowing. The guide is still usable for this session.
		return guide, appErrors.Wrap(err, "guide generated but not persisted")
	}
	return guide, nil
}

// isCurrent reports whether a generation attempt is still the one of
// interest for partial updates.
func (s *Service) isCurrent(meetingID string, token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeMeeting == meetingID && s.tokens[meetingID] == token
}

// load fetches the meeting corpus and contacts for the session and resolves
// the target meeting.
func (s *Service) load(ctx context.Context, meetingID string) (*domain.Meeting, []domain.Contact, []domain.Meeting, error) {
	meetings, err := s.store.FindMeetings(ctx, s.session.UserID)
	if err != nil {
		return nil, nil, nil, err
	}
	var target *domain.Meeting
	for i := range meetings {
		if meetings[i].ID == meetingID {
			target = &meetings[i]
			break
		}
	}
	if target == nil {
		return nil, nil, nil, appErrors.NewNotFound("meeting not found: " + meetingID)
	}

	contacts, err := s.store.FindContacts(ctx, s.session.UserID)
	if err != nil {
		return nil, nil, nil, err
	}
	return target, contacts, meetings, nil
}

// buildRequest assembles the generation request for a meeting from the
// loaded corpus.
func (s *Service) buildRequest(meeting *domain.Meeting, contacts []domain.Contact, meetings []domain.Meeting, stream bool) (llm.GuideRequest, error) {
	byID := make(map[string]domain.Contact, len(contacts))
	for _, c := range contacts {
		byID[c.ID] = c
	}

	var primary *domain.Contact
	var attendees []domain.Contact
	for i, id := range meeting.ContactIDs {
		contact, ok := byID[id]
		if !ok {
			return llm.GuideRequest{}, appErrors.NewInvalidInput("unknown contact on meeting: " + id)
		}
		if i == 0 {
			primary = &contact
		} else {
			attendees = append(attendees, contact)
		}
	}

	return BuildRequest(BuildInput{
		User:      s.session.Profile,
		Contact:   primary,
		Attendees: attendees,
		Meeting:   meeting,
		History:   history.Aggregate(meeting, meetings),
		Stream:    stream,
	})
}

func (s *Service) countCacheHit() {
	if s.metrics != nil {
		s.metrics.CacheHits.Inc()
	}
}

func (s *Service) countCacheMiss() {
	if s.metrics != nil {
		s.metrics.CacheMisses.Inc()
	}
}

func (s *Service) observeGeneration(path, status string, duration time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveGeneration(path, status, duration)
	}
}
