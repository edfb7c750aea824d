package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"rapport-backend/internal/domain"
)

func TestFormatDate(t *testing.T) {
	formatted := FormatDate(time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC))
	assert.Equal(t, "2026. 8. 30.", formatted)

	// Single-digit month and day are not zero-padded.
	formatted = FormatDate(time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2026. 1. 5.", formatted)
}

func TestAggregate(t *testing.T) {
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	target := domain.Meeting{
		ID:         "m-target",
		Date:       base,
		ContactIDs: []string{"c1"},
	}

	t.Run("ChronologicalEntriesJoinedWithSeparator", func(t *testing.T) {
		corpus := []domain.Meeting{
			target,
			{ID: "m2", Date: base.AddDate(0, 0, -1), ContactIDs: []string{"c1"}, UserNote: "두 번째 메모"},
			{ID: "m1", Date: base.AddDate(0, 0, -10), ContactIDs: []string{"c1", "c2"}, UserNote: "첫 번째 메모"},
		}

		got := Aggregate(&target, corpus)
		assert.Equal(t, "[2026. 8. 20.] 첫 번째 메모\n---\n[2026. 8. 29.] 두 번째 메모", got)
	})

	t.Run("ExcludesNonQualifyingMeetings", func(t *testing.T) {
		corpus := []domain.Meeting{
			// The target itself never contributes, even with a note.
			{ID: "m-target", Date: base, ContactIDs: []string{"c1"}, UserNote: "자기 자신"},
			// Dated at or after the target.
			{ID: "same", Date: base, ContactIDs: []string{"c1"}, UserNote: "같은 시각"},
			{ID: "later", Date: base.Add(time.Hour), ContactIDs: []string{"c1"}, UserNote: "이후"},
			// No note.
			{ID: "silent", Date: base.AddDate(0, 0, -2), ContactIDs: []string{"c1"}},
			// No shared participant.
			{ID: "other", Date: base.AddDate(0, 0, -2), ContactIDs: []string{"c9"}, UserNote: "다른 사람"},
		}

		assert.Empty(t, Aggregate(&target, corpus))
	})

	t.Run("AnySharedParticipantQualifies", func(t *testing.T) {
		multi := domain.Meeting{ID: "m-multi", Date: base, ContactIDs: []string{"c1", "c2"}}
		corpus := []domain.Meeting{
			{ID: "m1", Date: base.AddDate(0, 0, -3), ContactIDs: []string{"c2"}, UserNote: "c2와의 기록"},
		}

		got := Aggregate(&multi, corpus)
		assert.Equal(t, "[2026. 8. 27.] c2와의 기록", got)
	})

	t.Run("EmptyCorpusYieldsEmptyString", func(t *testing.T) {
		assert.Empty(t, Aggregate(&target, nil))
	})

	t.Run("NoteWhitespaceTrimmed", func(t *testing.T) {
		corpus := []domain.Meeting{
			{ID: "m1", Date: base.AddDate(0, 0, -1), ContactIDs: []string{"c1"}, UserNote: "  메모  \n"},
		}

		got := Aggregate(&target, corpus)
		assert.Equal(t, "[2026. 8. 29.] 메모", got)
	})
}
