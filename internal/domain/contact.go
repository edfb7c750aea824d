// Package domain contains domain models and business logic for the
// relationship-management core: contacts, meetings, user profiles and the
// generated small talk guides.
package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Interests groups a person's interest keywords by sphere. Both lists carry
// set semantics even though they are stored as ordered slices: merges are
// always union, never replacement.
type Interests struct {
	Business  []string `json:"business"`
	Lifestyle []string `json:"lifestyle"`
}

// Merge unions the given keywords into the receiver, preserving the existing
// order and appending only entries not already present. Comparison is
// case-insensitive after trimming; the stored form of existing entries wins.
func (i *Interests) Merge(business, lifestyle []string) {
	i.Business = unionAppend(i.Business, business)
	i.Lifestyle = unionAppend(i.Lifestyle, lifestyle)
}

func unionAppend(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, v := range existing {
		seen[normalizeKeyword(v)] = struct{}{}
	}
	for _, v := range incoming {
		key := normalizeKeyword(v)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		existing = append(existing, strings.TrimSpace(v))
	}
	return existing
}

func normalizeKeyword(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Contact represents a tracked relationship.
type Contact struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Company          string    `json:"company"`
	Role             string    `json:"role"`
	Phone            string    `json:"phone"`
	Email            string    `json:"email"`
	Tags             []string  `json:"tags"`
	Interests        Interests `json:"interests"`
	Personality      string    `json:"personality"`
	RelationshipType string    `json:"relationship_type"`
	MeetingFrequency string    `json:"meeting_frequency"`
	AvatarURL        string    `json:"avatar_url,omitempty"`
}

// NewContact mints a contact with a fresh identity, ready for insertion.
func NewContact(name, company, role string) Contact {
	return Contact{
		ID:      uuid.NewString(),
		Name:    name,
		Company: company,
		Role:    role,
		Tags:    []string{},
		Interests: Interests{
			Business:  []string{},
			Lifestyle: []string{},
		},
	}
}

// ApplyAnalysis merges a note-analysis result into the contact. Interests are
// unioned with the existing sets; personality is replaced only when the
// analysis produced a non-empty value.
func (c *Contact) ApplyAnalysis(business, lifestyle []string, personality string) {
	c.Interests.Merge(business, lifestyle)
	if strings.TrimSpace(personality) != "" {
		c.Personality = personality
	}
}

// UserProfile is the operator's own identity, used as prompt context.
// Singleton per session; mutated only through explicit profile edits.
type UserProfile struct {
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Company   string    `json:"company"`
	Industry  string    `json:"industry"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Interests Interests `json:"interests"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}
