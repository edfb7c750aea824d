package guide

import (
	"github.com/go-playground/validator/v10"

	"rapport-backend/internal/domain"
	"rapport-backend/internal/service/history"
	"rapport-backend/internal/service/llm"
	appErrors "rapport-backend/pkg/errors"
)

var validate = validator.New()

// BuildInput is everything the request builder needs. The builder is pure
// data assembly: it performs no network calls and no retries.
type BuildInput struct {
	User    domain.UserProfile `validate:"required"`
	Contact *domain.Contact    `validate:"required"`
	// Attendees are the additional participants of a multi-party meeting.
	Attendees []domain.Contact
	Meeting   *domain.Meeting `validate:"required"`
	// History is the aggregated prior-meeting text block. Empty means no
	// qualifying history exists.
	History string
	Stream  bool
}

// BuildRequest assembles the full generation request payload. Missing
// required input fails with an invalid-input error before any network call
// could be made.
func BuildRequest(in BuildInput) (llm.GuideRequest, error) {
	if err := validate.Struct(in); err != nil {
		return llm.GuideRequest{}, appErrors.NewInvalidInput("incomplete guide request input: " + err.Error())
	}
	if in.Meeting.ID == "" {
		return llm.GuideRequest{}, appErrors.NewInvalidInput("meeting has no id")
	}
	if len(in.Meeting.ContactIDs) == 0 {
		return llm.GuideRequest{}, appErrors.NewInvalidInput("meeting has no participants")
	}
	if in.Contact.ID == "" {
		return llm.GuideRequest{}, appErrors.NewInvalidInput("primary contact has no id")
	}

	return llm.GuideRequest{
		Stream: in.Stream,
		Payload: llm.GuidePayload{
			User:      in.User,
			Contact:   *in.Contact,
			Attendees: in.Attendees,
			Meeting: llm.MeetingContext{
				Title:    in.Meeting.Title,
				Date:     history.FormatDate(in.Meeting.Date),
				Location: in.Meeting.Location,
			},
			HistoryNotes: in.History,
			// An explicit first-meeting signal: the model must not invent
			// familiarity when there is no recorded history.
			FirstMeeting: in.History == "",
		},
	}, nil
}
