// Package history aggregates prior-meeting notes into the text block the
// generation prompt consumes. Output is plain text for the model, not a
// machine-parsed structure.
package history

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"rapport-backend/internal/domain"
)

// entrySeparator joins history entries in the aggregated block.
const entrySeparator = "\n---\n"

// FormatDate renders a timestamp as the localized short date embedded in
// prompts (ko-KR style, e.g. "2026. 8. 30."). The aggregator and the request
// builder must share this localization so the model's continuity reasoning
// stays coherent.
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d. %d. %d.", t.Year(), int(t.Month()), t.Day())
}

// Aggregate collects every meeting from the corpus that shares at least one
// participant with the target, is dated strictly before the target, and has a
// non-empty note. Entries are sorted ascending by date and formatted as
// "[localized-date] note". Zero qualifying history yields an empty string;
// the request builder turns that into an explicit first-meeting signal.
func Aggregate(target *domain.Meeting, corpus []domain.Meeting) string {
	var qualifying []domain.Meeting
	for _, meeting := range corpus {
		if meeting.ID == target.ID {
			continue
		}
		if !meeting.Date.Before(target.Date) {
			continue
		}
		if !meeting.HasNote() {
			continue
		}
		if !meeting.SharesParticipant(target) {
			continue
		}
		qualifying = append(qualifying, meeting)
	}

	sort.Slice(qualifying, func(i, j int) bool {
		return qualifying[i].Date.Before(qualifying[j].Date)
	})

	entries := make([]string, len(qualifying))
	for i, meeting := range qualifying {
		entries[i] = fmt.Sprintf("[%s] %s", FormatDate(meeting.Date), strings.TrimSpace(meeting.UserNote))
	}
	return strings.Join(entries, entrySeparator)
}
