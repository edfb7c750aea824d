package llm

import (
	"encoding/json"
	"strings"

	"rapport-backend/internal/domain"
	appErrors "rapport-backend/pkg/errors"
)

// stripFences removes markdown code-fence wrapping the model sometimes adds
// around the JSON payload.
func stripFences(response string) string {
	response = strings.TrimSpace(response)
	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
		response = strings.TrimSuffix(response, "```")
		response = strings.TrimSpace(response)
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
		response = strings.TrimSuffix(response, "```")
		response = strings.TrimSpace(response)
	}
	return response
}

// parseFinal parses the complete accumulated text into a guide. Failure here
// is fatal for the generation; individually missing sub-fields are not, and
// get their fallback defaults instead.
func parseFinal(text string) (*domain.SmallTalkGuide, error) {
	cleaned := stripFences(text)

	var guide domain.SmallTalkGuide
	if err := json.Unmarshal([]byte(cleaned), &guide); err != nil {
		return nil, appErrors.NewMalformedResponse("failed to parse guide JSON", err)
	}

	return guide.FillDefaults(), nil
}

// parsePartial attempts a best-effort parse of the growing stream text into a
// partial guide. The text is usually truncated mid-document, so the missing
// closers are synthesized first; if the result still is not valid JSON the
// fragment is simply skipped — partial-parse misses are never errors.
func parsePartial(text string) (*domain.SmallTalkGuide, bool) {
	cleaned := strings.TrimSpace(text)
	// A leading fence may already be complete while the payload is not.
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if !strings.HasPrefix(cleaned, "{") {
		return nil, false
	}

	closed, ok := closeTruncatedJSON(cleaned)
	if !ok {
		return nil, false
	}

	var guide domain.SmallTalkGuide
	if err := json.Unmarshal([]byte(closed), &guide); err != nil {
		return nil, false
	}
	return &guide, true
}

// closeTruncatedJSON appends the object and array closers a truncated JSON
// document is missing, innermost-first. Text cut off inside a string value is
// reported as unparseable rather than repaired: only fields whose values have
// fully arrived are revealed, which keeps the reveal order meaningful and
// avoids flashing half a sentence.
//
// A trailing comma or a key awaiting its value still breaks the synthesized
// document; the caller treats that as a miss and waits for more fragments.
func closeTruncatedJSON(text string) (string, bool) {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch ch {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, ch)
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if inString || escaped {
		return "", false
	}

	var builder strings.Builder
	builder.WriteString(strings.TrimRight(text, ", \t\n"))
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			builder.WriteByte('}')
		} else {
			builder.WriteByte(']')
		}
	}
	return builder.String(), true
}
