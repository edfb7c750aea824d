package guide

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"rapport-backend/internal/domain"
)

// RunPrefetch scans the session's meetings for ones inside the prefetch
// horizon (now through end of tomorrow) that lack a guide, and generates
// guides for them sequentially over the non-streaming path. It runs at most
// once per session regardless of how many times it is invoked; callers fire
// it in the background after the initial data load.
//
// Per-item failures are logged and do not abort the remaining queue. A
// meeting with an interactive generation in flight is skipped, and a
// prefetch completion that lost the race to an interactive attempt is
// discarded by the shared token check, so the user-initiated result wins.
func (s *Service) RunPrefetch(ctx context.Context) {
	if !s.prefetch.Enabled {
		return
	}
	s.prefetchOnce.Do(func() {
		s.runPrefetch(ctx)
	})
}

func (s *Service) runPrefetch(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "guide.RunPrefetch")
	defer span.End()

	if s.metrics != nil {
		s.metrics.PrefetchRuns.Inc()
	}

	meetings, err := s.store.FindMeetings(ctx, s.session.UserID)
	if err != nil {
		s.logger.Warn("Prefetch aborted: failed to load meetings", zap.Error(err))
		span.RecordError(err)
		return
	}
	contacts, err := s.store.FindContacts(ctx, s.session.UserID)
	if err != nil {
		s.logger.Warn("Prefetch aborted: failed to load contacts", zap.Error(err))
		span.RecordError(err)
		return
	}

	now := s.now()
	var queue []domain.Meeting
	for _, meeting := range meetings {
		if !meeting.InPrefetchHorizon(now) || meeting.HasGuide() {
			continue
		}
		queue = append(queue, meeting)
	}
	sort.Slice(queue, func(i, j int) bool {
		return queue[i].Date.Before(queue[j].Date)
	})
	if s.prefetch.MaxMeetings > 0 && len(queue) > s.prefetch.MaxMeetings {
		queue = queue[:s.prefetch.MaxMeetings]
	}

	s.logger.Info("Prefetching guides for upcoming meetings",
		zap.Int("count", len(queue)),
	)

	for i := range queue {
		if ctx.Err() != nil {
			return
		}
		s.prefetchOne(ctx, &queue[i], contacts, meetings)
	}
}

// prefetchOne generates and persists a guide for a single meeting. It runs
// sequentially with its siblings to respect the remote endpoint.
func (s *Service) prefetchOne(ctx context.Context, meeting *domain.Meeting, contacts []domain.Contact, meetings []domain.Meeting) {
	s.mu.Lock()
	if _, cached := s.cache[meeting.ID]; cached {
		s.mu.Unlock()
		return
	}
	if s.interactive[meeting.ID] > 0 {
		// The user is already waiting on this meeting; the interactive
		// path owns it.
		s.mu.Unlock()
		s.countPrefetch("skipped")
		return
	}
	// Prefetch does not bump the token: an interactive attempt started
	// after this point supersedes it, and the token check on commit
	// discards this result.
	token := s.tokens[meeting.ID]
	s.mu.Unlock()

	req, err := s.buildRequest(meeting, contacts, meetings, false)
	if err != nil {
		s.logger.Warn("Prefetch skipping meeting with bad input",
			zap.String("meeting_id", meeting.ID),
			zap.Error(err),
		)
		s.countPrefetch("error")
		return
	}

	start := s.now()
	guide, err := s.generator.GenerateGuide(ctx, req)
	if err != nil {
		s.observeGeneration("prefetch", "error", s.now().Sub(start))
		s.logger.Warn("Prefetch generation failed",
			zap.String("meeting_id", meeting.ID),
			zap.Error(err),
		)
		s.countPrefetch("error")
		return
	}
	s.observeGeneration("prefetch", "success", s.now().Sub(start))

	applied, err := s.commit(ctx, meeting.ID, token, guide, meeting.Date)
	if err != nil {
		s.logger.Warn("Prefetch failed to persist guide",
			zap.String("meeting_id", meeting.ID),
			zap.Error(err),
		)
		s.countPrefetch("error")
		return
	}
	if applied == nil {
		// Lost the race to an interactive attempt; its result wins.
		s.countPrefetch("skipped")
		return
	}
	s.countPrefetch("success")
}

func (s *Service) countPrefetch(status string) {
	if s.metrics != nil {
		s.metrics.PrefetchMeetings.WithLabelValues(status).Inc()
	}
}
