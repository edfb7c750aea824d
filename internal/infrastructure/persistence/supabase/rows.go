package supabase

import (
	"encoding/json"
	"strings"
	"time"

	"rapport-backend/internal/domain"
)

// Row types mirror the Postgres schema. All domain mapping happens here, in
// one place, so loosely-shaped rows are validated and defaulted exactly once
// at the storage boundary.

type contactRow struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	Name             string          `json:"name"`
	Company          string          `json:"company"`
	Role             string          `json:"role"`
	Phone            string          `json:"phone"`
	Email            string          `json:"email"`
	Tags             []string        `json:"tags"`
	Interests        json.RawMessage `json:"interests"`
	Personality      string          `json:"personality"`
	RelationshipType string          `json:"relationship_type"`
	MeetingFrequency string          `json:"meeting_frequency"`
	AvatarURL        string          `json:"avatar_url"`
}

type meetingRow struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	ContactIDs  []string        `json:"contact_ids"`
	Title       string          `json:"title"`
	Date        string          `json:"date"`
	Location    string          `json:"location"`
	UserNote    string          `json:"user_note"`
	AIGuide     json.RawMessage `json:"ai_guide"`
	PastContext string          `json:"past_context"`
}

// toDomain maps a contact row into the canonical entity shape, defaulting
// every loosely-typed field.
func (r contactRow) toDomain() domain.Contact {
	contact := domain.Contact{
		ID:               r.ID,
		Name:             r.Name,
		Company:          r.Company,
		Role:             r.Role,
		Phone:            r.Phone,
		Email:            r.Email,
		Tags:             r.Tags,
		Personality:      r.Personality,
		RelationshipType: r.RelationshipType,
		MeetingFrequency: r.MeetingFrequency,
		AvatarURL:        r.AvatarURL,
	}
	if contact.Tags == nil {
		contact.Tags = []string{}
	}
	contact.Interests = decodeInterests(r.Interests)
	return contact
}

// toDomain maps a meeting row into the canonical entity shape. An
// unparseable date yields the zero time rather than failing the whole load;
// a zero-dated meeting is strictly past and so inert in the pipeline.
func (r meetingRow) toDomain() domain.Meeting {
	meeting := domain.Meeting{
		ID:          r.ID,
		ContactIDs:  r.ContactIDs,
		Title:       r.Title,
		Location:    r.Location,
		UserNote:    r.UserNote,
		PastContext: r.PastContext,
	}
	if meeting.ContactIDs == nil {
		meeting.ContactIDs = []string{}
	}
	if r.Date != "" {
		if t, err := time.Parse(time.RFC3339, r.Date); err == nil {
			meeting.Date = t
		}
	}
	if len(r.AIGuide) > 0 && !isJSONNull(r.AIGuide) {
		var guide domain.SmallTalkGuide
		if err := json.Unmarshal(r.AIGuide, &guide); err == nil {
			meeting.AIGuide = &guide
		}
	}
	return meeting
}

func decodeInterests(raw json.RawMessage) domain.Interests {
	interests := domain.Interests{Business: []string{}, Lifestyle: []string{}}
	if len(raw) == 0 || isJSONNull(raw) {
		return interests
	}
	var decoded domain.Interests
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return interests
	}
	if decoded.Business != nil {
		interests.Business = decoded.Business
	}
	if decoded.Lifestyle != nil {
		interests.Lifestyle = decoded.Lifestyle
	}
	return interests
}

func isJSONNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

// fromDomainContact builds the row payload for inserts.
func fromDomainContact(userID string, c domain.Contact) map[string]interface{} {
	return map[string]interface{}{
		"id":                c.ID,
		"user_id":           userID,
		"name":              c.Name,
		"company":           c.Company,
		"role":              c.Role,
		"phone":             c.Phone,
		"email":             c.Email,
		"tags":              c.Tags,
		"interests":         c.Interests,
		"personality":       c.Personality,
		"relationship_type": c.RelationshipType,
		"meeting_frequency": c.MeetingFrequency,
		"avatar_url":        c.AvatarURL,
	}
}

// fromDomainMeeting builds the row payload for inserts.
func fromDomainMeeting(userID string, m domain.Meeting) map[string]interface{} {
	row := map[string]interface{}{
		"id":           m.ID,
		"user_id":      userID,
		"contact_ids":  m.ContactIDs,
		"title":        m.Title,
		"date":         m.Date.Format(time.RFC3339),
		"location":     m.Location,
		"user_note":    m.UserNote,
		"past_context": m.PastContext,
	}
	if m.AIGuide != nil {
		row["ai_guide"] = m.AIGuide
	}
	return row
}
