package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterestsMerge(t *testing.T) {
	t.Run("UnionNeverRegresses", func(t *testing.T) {
		interests := Interests{Lifestyle: []string{"golf"}}
		interests.Merge(nil, []string{"tennis"})

		assert.Equal(t, []string{"golf", "tennis"}, interests.Lifestyle)
	})

	t.Run("DuplicatesSuppressed", func(t *testing.T) {
		interests := Interests{Lifestyle: []string{"golf", "tennis"}}
		interests.Merge(nil, []string{"golf"})

		assert.Equal(t, []string{"golf", "tennis"}, interests.Lifestyle)
	})

	t.Run("CaseInsensitiveDedup", func(t *testing.T) {
		interests := Interests{Business: []string{"AI"}}
		interests.Merge([]string{"ai", "fintech"}, nil)

		assert.Equal(t, []string{"AI", "fintech"}, interests.Business)
	})

	t.Run("BlankEntriesIgnored", func(t *testing.T) {
		interests := Interests{}
		interests.Merge([]string{"", "  "}, nil)

		assert.Empty(t, interests.Business)
	})
}

func TestContactApplyAnalysis(t *testing.T) {
	t.Run("PersonalityReplacedOnlyWhenNonEmpty", func(t *testing.T) {
		contact := Contact{Personality: "외향적"}

		contact.ApplyAnalysis(nil, nil, "")
		assert.Equal(t, "외향적", contact.Personality)

		contact.ApplyAnalysis(nil, nil, "분석적")
		assert.Equal(t, "분석적", contact.Personality)
	})
}

func TestEntityConstructors(t *testing.T) {
	t.Run("NewContactMintsIdentityAndEmptySets", func(t *testing.T) {
		a := NewContact("박서연", "한빛증권", "이사")
		b := NewContact("이민호", "", "")

		assert.NotEmpty(t, a.ID)
		assert.NotEqual(t, a.ID, b.ID)
		assert.NotNil(t, a.Tags)
		assert.NotNil(t, a.Interests.Business)
		assert.NotNil(t, a.Interests.Lifestyle)
	})

	t.Run("NewMeetingMintsIdentity", func(t *testing.T) {
		date := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
		m := NewMeeting("분기 미팅", date, []string{"c1"})

		assert.NotEmpty(t, m.ID)
		assert.Equal(t, date, m.Date)
		assert.Equal(t, []string{"c1"}, m.ContactIDs)

		empty := NewMeeting("미정", date, nil)
		assert.NotNil(t, empty.ContactIDs)
	})
}

func TestMeetingDateGates(t *testing.T) {
	now := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)

	t.Run("YesterdayIsBeforeDay", func(t *testing.T) {
		m := Meeting{Date: time.Date(2026, 8, 29, 23, 59, 0, 0, time.UTC)}
		assert.True(t, m.IsBeforeDay(now))
	})

	t.Run("EarlierTodayIsNotBeforeDay", func(t *testing.T) {
		m := Meeting{Date: time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)}
		assert.False(t, m.IsBeforeDay(now))
	})

	t.Run("PrefetchHorizonCoversThroughTomorrow", func(t *testing.T) {
		in := Meeting{Date: time.Date(2026, 8, 31, 23, 0, 0, 0, time.UTC)}
		assert.True(t, in.InPrefetchHorizon(now))

		dayAfter := Meeting{Date: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)}
		assert.False(t, dayAfter.InPrefetchHorizon(now))

		past := Meeting{Date: now.Add(-time.Hour)}
		assert.False(t, past.InPrefetchHorizon(now))
	})
}

func TestMeetingSharesParticipant(t *testing.T) {
	a := Meeting{ContactIDs: []string{"c1", "c2"}}
	b := Meeting{ContactIDs: []string{"c2", "c3"}}
	c := Meeting{ContactIDs: []string{"c4"}}

	assert.True(t, a.SharesParticipant(&b))
	assert.False(t, a.SharesParticipant(&c))
}

func TestMeetingAppendNote(t *testing.T) {
	t.Run("FirstNote", func(t *testing.T) {
		m := Meeting{}
		m.AppendNote("비건 스킨케어에 관심")
		assert.Equal(t, "비건 스킨케어에 관심", m.UserNote)
	})

	t.Run("AppendsWithoutOverwriting", func(t *testing.T) {
		m := Meeting{UserNote: "첫 메모"}
		m.AppendNote("추가 메모")
		assert.Equal(t, "첫 메모\n\n추가 메모", m.UserNote)
	})

	t.Run("BlankNoteIgnored", func(t *testing.T) {
		m := Meeting{UserNote: "첫 메모"}
		m.AppendNote("   ")
		assert.Equal(t, "첫 메모", m.UserNote)
	})
}

func TestGuideDefaultsAndCompleteness(t *testing.T) {
	t.Run("FillDefaultsCompletesMissingFields", func(t *testing.T) {
		guide := (&SmallTalkGuide{PastReview: "x"}).FillDefaults()

		require.True(t, guide.IsComplete())
		assert.Equal(t, "x", guide.PastReview)
		assert.Equal(t, DefaultBusinessTip, guide.BusinessTip.Content)
		assert.Equal(t, DefaultLifeTip, guide.LifeTip)
	})

	t.Run("PopulatedFieldsUntouched", func(t *testing.T) {
		guide := (&SmallTalkGuide{
			PastReview:  "a",
			BusinessTip: BusinessTip{Content: "b", Source: "뉴스"},
			LifeTip:     "c",
		}).FillDefaults()

		assert.Equal(t, "b", guide.BusinessTip.Content)
		assert.Equal(t, "뉴스", guide.BusinessTip.Source)
	})

	t.Run("AttendeesOptionalForCompleteness", func(t *testing.T) {
		guide := SmallTalkGuide{
			PastReview:  "a",
			BusinessTip: BusinessTip{Content: "b"},
			LifeTip:     "c",
		}
		assert.True(t, guide.IsComplete())
	})
}

func TestGuideClone(t *testing.T) {
	guide := &SmallTalkGuide{
		PastReview: "a",
		Attendees:  []PersonGuide{{Name: "김"}},
	}

	clone := guide.Clone()
	clone.Attendees[0].Name = "이"

	assert.Equal(t, "김", guide.Attendees[0].Name)
}
