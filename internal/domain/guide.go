package domain

import "strings"

// Fallback texts used when the generation response omits an individual field.
// A single missing field never fails the whole guide.
const (
	DefaultPastReview  = "만남의 기록이 분석되었습니다."
	DefaultBusinessTip = "최근 업계 동향이나 회사 근황을 가볍게 물어보세요."
	DefaultLifeTip     = "상대방의 관심사나 최근 일상을 화제로 꺼내보세요."
)

// BusinessTip carries a business conversation tip and, optionally, the
// source it was drawn from.
type BusinessTip struct {
	Content string `json:"content"`
	Source  string `json:"source,omitempty"`
}

// PersonGuide is a per-attendee tip set for multi-participant meetings.
type PersonGuide struct {
	Name        string      `json:"name"`
	BusinessTip BusinessTip `json:"businessTip"`
	LifeTip     string      `json:"lifeTip"`
}

// SmallTalkGuide is the generated conversation guide for one meeting.
// Once present and not explicitly cleared it is treated as immutable and
// reused; regeneration is the only path to replacing it.
//
// Field order matches the reveal order the prompt requests: pastReview,
// then businessTip, then lifeTip, so partial streaming reveal is meaningful.
type SmallTalkGuide struct {
	PastReview  string        `json:"pastReview"`
	BusinessTip BusinessTip   `json:"businessTip"`
	LifeTip     string        `json:"lifeTip"`
	Attendees   []PersonGuide `json:"attendees,omitempty"`
}

// IsComplete reports whether all three top-level fields are populated.
// Attendee guides are an optional augmentation and do not affect completeness.
func (g *SmallTalkGuide) IsComplete() bool {
	return strings.TrimSpace(g.PastReview) != "" &&
		strings.TrimSpace(g.BusinessTip.Content) != "" &&
		strings.TrimSpace(g.LifeTip) != ""
}

// FillDefaults populates any missing top-level field with its fallback text,
// returning the receiver for chaining.
func (g *SmallTalkGuide) FillDefaults() *SmallTalkGuide {
	if strings.TrimSpace(g.PastReview) == "" {
		g.PastReview = DefaultPastReview
	}
	if strings.TrimSpace(g.BusinessTip.Content) == "" {
		g.BusinessTip.Content = DefaultBusinessTip
	}
	if strings.TrimSpace(g.LifeTip) == "" {
		g.LifeTip = DefaultLifeTip
	}
	return g
}

// Clone returns a deep copy, so snapshots handed to observers cannot alias
// pipeline-internal state.
func (g *SmallTalkGuide) Clone() *SmallTalkGuide {
	if g == nil {
		return nil
	}
	out := *g
	if g.Attendees != nil {
		out.Attendees = make([]PersonGuide, len(g.Attendees))
		copy(out.Attendees, g.Attendees)
	}
	return &out
}
