package guide

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rapport-backend/internal/config"
	"rapport-backend/internal/domain"
	"rapport-backend/internal/repository/mocks"
	"rapport-backend/internal/service/llm"
	appErrors "rapport-backend/pkg/errors"
)

func TestRunPrefetch(t *testing.T) {
	t.Run("GeneratesForHorizonMeetingsWithoutGuides", func(t *testing.T) {
		store := mocks.NewMockStore()
		generator := llm.NewMockGenerator()
		store.SeedContact(testUserID, domain.Contact{ID: "c1", Name: "박서연"})

		existing := &domain.SmallTalkGuide{
			PastReview:  "a",
			BusinessTip: domain.BusinessTip{Content: "b"},
			LifeTip:     "c",
		}
		seed := func(id string, date time.Time, guide *domain.SmallTalkGuide) {
			store.SeedMeeting(testUserID, domain.Meeting{
				ID: id, Date: date, ContactIDs: []string{"c1"}, AIGuide: guide,
			})
		}
		seed("today", testNow.Add(2*time.Hour), nil)
		seed("tomorrow-late", testNow.AddDate(0, 0, 1).Add(13*time.Hour), nil)
		seed("already-guided", testNow.Add(4*time.Hour), existing)
		seed("yesterday", testNow.AddDate(0, 0, -1), nil)
		seed("day-after", testNow.AddDate(0, 0, 2), nil)

		svc := newTestService(store, generator)
		svc.RunPrefetch(context.Background())

		requests := generator.Requests()
		require.Len(t, requests, 2)
		for _, req := range requests {
			assert.False(t, req.Stream)
		}

		for _, id := range []string{"today", "tomorrow-late"} {
			meeting, ok := store.Meeting(testUserID, id)
			require.True(t, ok)
			assert.NotNil(t, meeting.AIGuide, id)
		}
		for _, id := range []string{"yesterday", "day-after"} {
			meeting, ok := store.Meeting(testUserID, id)
			require.True(t, ok)
			assert.Nil(t, meeting.AIGuide, id)
		}
	})

	t.Run("RunsAtMostOncePerSession", func(t *testing.T) {
		store := mocks.NewMockStore()
		generator := llm.NewMockGenerator()
		store.SeedContact(testUserID, domain.Contact{ID: "c1"})
		store.SeedMeeting(testUserID, domain.Meeting{
			ID: "m1", Date: testNow.Add(time.Hour), ContactIDs: []string{"c1"},
		})
		svc := newTestService(store, generator)

		svc.RunPrefetch(context.Background())
		svc.RunPrefetch(context.Background())

		assert.Len(t, generator.Requests(), 1)
		assert.Equal(t, 1, store.Calls("UpdateMeetingGuide"))
	})

	t.Run("DisabledByConfig", func(t *testing.T) {
		store := mocks.NewMockStore()
		generator := llm.NewMockGenerator()
		store.SeedContact(testUserID, domain.Contact{ID: "c1"})
		store.SeedMeeting(testUserID, domain.Meeting{
			ID: "m1", Date: testNow.Add(time.Hour), ContactIDs: []string{"c1"},
		})
		svc := newTestService(store, generator, WithPrefetchConfig(config.Prefetch{Enabled: false}))

		svc.RunPrefetch(context.Background())

		assert.Empty(t, generator.Requests())
	})

	t.Run("MaxMeetingsCapsEarliestFirst", func(t *testing.T) {
		store := mocks.NewMockStore()
		generator := llm.NewMockGenerator()
		store.SeedContact(testUserID, domain.Contact{ID: "c1"})
		store.SeedMeeting(testUserID, domain.Meeting{
			ID: "late", Date: testNow.Add(5 * time.Hour), ContactIDs: []string{"c1"},
		})
		store.SeedMeeting(testUserID, domain.Meeting{
			ID: "early", Date: testNow.Add(time.Hour), ContactIDs: []string{"c1"},
		})
		svc := newTestService(store, generator,
			WithPrefetchConfig(config.Prefetch{Enabled: true, MaxMeetings: 1}))

		svc.RunPrefetch(context.Background())

		assert.Len(t, generator.Requests(), 1)
		early, _ := store.Meeting(testUserID, "early")
		assert.NotNil(t, early.AIGuide)
		late, _ := store.Meeting(testUserID, "late")
		assert.Nil(t, late.AIGuide)
	})

	t.Run("PerMeetingFailureDoesNotAbortQueue", func(t *testing.T) {
		store := mocks.NewMockStore()
		generator := llm.NewMockGenerator()
		store.SeedContact(testUserID, domain.Contact{ID: "c1"})
		store.SeedMeeting(testUserID, domain.Meeting{
			ID: "first", Date: testNow.Add(time.Hour), ContactIDs: []string{"c1"},
		})
		store.SeedMeeting(testUserID, domain.Meeting{
			ID: "second", Date: testNow.Add(2 * time.Hour), ContactIDs: []string{"c1"},
		})

		// The first generation fails; the hook then lets the second succeed.
		generator.Err = appErrors.NewTransport("endpoint unreachable", nil)
		var once sync.Once
		generator.BeforeFinish = func() {
			once.Do(func() { generator.Err = nil })
		}

		svc := newTestService(store, generator)
		svc.RunPrefetch(context.Background())

		assert.Len(t, generator.Requests(), 2)
		assert.Equal(t, 1, store.Calls("UpdateMeetingGuide"))
		first, _ := store.Meeting(testUserID, "first")
		assert.Nil(t, first.AIGuide)
		second, _ := store.Meeting(testUserID, "second")
		assert.NotNil(t, second.AIGuide)
	})

	t.Run("SkipsMeetingWithInteractiveGenerationInFlight", func(t *testing.T) {
		store := mocks.NewMockStore()
		generator := llm.NewMockGenerator()
		seedBasicMeeting(store, "m1", testNow.Add(2*time.Hour))
		svc := newTestService(store, generator)

		hold := make(chan struct{})
		generator.BeforeFinish = func() { <-hold }

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = svc.EnsureGuide(context.Background(), "m1", nil)
		}()

		require.Eventually(t, func() bool {
			return len(generator.Requests()) == 1
		}, time.Second, 5*time.Millisecond)

		svc.RunPrefetch(context.Background())

		// Prefetch saw the interactive attempt and left the meeting alone.
		assert.Len(t, generator.Requests(), 1)

		close(hold)
		<-done

		assert.Equal(t, 1, store.Calls("UpdateMeetingGuide"))
		meeting, _ := store.Meeting(testUserID, "m1")
		assert.NotNil(t, meeting.AIGuide)
	})

	t.Run("InteractiveResultWinsOverInFlightPrefetch", func(t *testing.T) {
		store := mocks.NewMockStore()
		generator := llm.NewMockGenerator()
		seedBasicMeeting(store, "m1", testNow.Add(2*time.Hour))
		svc := newTestService(store, generator)

		// While the prefetch generation is in flight, the user opens the
		// meeting and an interactive generation completes a newer guide.
		// The hook detaches itself first so the nested interactive stream
		// does not re-enter it.
		generator.BeforeFinish = func() {
			generator.BeforeFinish = nil
			generator.Guide = domain.SmallTalkGuide{
				PastReview:  "대화형 리뷰",
				BusinessTip: domain.BusinessTip{Content: "대화형 팁"},
				LifeTip:     "대화형 취미",
			}
			guide, err := svc.EnsureGuide(context.Background(), "m1", nil)
			require.NoError(t, err)
			require.NotNil(t, guide)
		}

		svc.RunPrefetch(context.Background())

		// The prefetch result was superseded and discarded; only the
		// interactive guide was persisted.
		assert.Len(t, generator.Requests(), 2)
		assert.Equal(t, 1, store.Calls("UpdateMeetingGuide"))
		meeting, _ := store.Meeting(testUserID, "m1")
		require.NotNil(t, meeting.AIGuide)
		assert.Equal(t, "대화형 리뷰", meeting.AIGuide.PastReview)
	})
}
