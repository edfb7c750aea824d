package guide

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rapport-backend/internal/domain"
	appErrors "rapport-backend/pkg/errors"
)

func TestBuildRequest(t *testing.T) {
	user := domain.UserProfile{Name: "김지훈", Company: "라포르"}
	contact := &domain.Contact{ID: "c1", Name: "박서연"}
	meeting := &domain.Meeting{
		ID:         "m1",
		Title:      "분기 미팅",
		Date:       time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		ContactIDs: []string{"c1"},
	}

	t.Run("AssemblesLocalizedPayload", func(t *testing.T) {
		req, err := BuildRequest(BuildInput{
			User:    user,
			Contact: contact,
			Meeting: meeting,
			History: "[2026. 8. 27.] 메모",
			Stream:  true,
		})

		require.NoError(t, err)
		assert.True(t, req.Stream)
		assert.Equal(t, "2026. 8. 30.", req.Payload.Meeting.Date)
		assert.Equal(t, "[2026. 8. 27.] 메모", req.Payload.HistoryNotes)
		assert.False(t, req.Payload.FirstMeeting)
	})

	t.Run("EmptyHistorySignalsFirstMeeting", func(t *testing.T) {
		req, err := BuildRequest(BuildInput{User: user, Contact: contact, Meeting: meeting})

		require.NoError(t, err)
		assert.True(t, req.Payload.FirstMeeting)
	})

	t.Run("MissingContactRejected", func(t *testing.T) {
		_, err := BuildRequest(BuildInput{User: user, Meeting: meeting})

		require.Error(t, err)
		assert.True(t, appErrors.IsInvalidInput(err))
	})

	t.Run("MeetingWithoutParticipantsRejected", func(t *testing.T) {
		empty := &domain.Meeting{ID: "m2", Date: meeting.Date}
		_, err := BuildRequest(BuildInput{User: user, Contact: contact, Meeting: empty})

		require.Error(t, err)
		assert.True(t, appErrors.IsInvalidInput(err))
	})

	t.Run("MeetingWithoutIDRejected", func(t *testing.T) {
		anonymous := &domain.Meeting{ContactIDs: []string{"c1"}}
		_, err := BuildRequest(BuildInput{User: user, Contact: contact, Meeting: anonymous})

		require.Error(t, err)
		assert.True(t, appErrors.IsInvalidInput(err))
	})
}
