package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rapport-backend/internal/domain"
	appErrors "rapport-backend/pkg/errors"
)

func TestStripFences(t *testing.T) {
	t.Run("JSONFence", func(t *testing.T) {
		assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	})

	t.Run("BareFence", func(t *testing.T) {
		assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	})

	t.Run("NoFence", func(t *testing.T) {
		assert.Equal(t, `{"a":1}`, stripFences(`  {"a":1}  `))
	})
}

func TestParseFinal(t *testing.T) {
	t.Run("CompleteGuide", func(t *testing.T) {
		guide, err := parseFinal(`{"pastReview":"a","businessTip":{"content":"b","source":"뉴스"},"lifeTip":"c"}`)

		require.NoError(t, err)
		assert.Equal(t, "a", guide.PastReview)
		assert.Equal(t, "b", guide.BusinessTip.Content)
		assert.Equal(t, "뉴스", guide.BusinessTip.Source)
		assert.Equal(t, "c", guide.LifeTip)
	})

	t.Run("MissingFieldsGetDefaults", func(t *testing.T) {
		guide, err := parseFinal(`{"pastReview":"x"}`)

		require.NoError(t, err)
		assert.Equal(t, "x", guide.PastReview)
		assert.Equal(t, domain.DefaultBusinessTip, guide.BusinessTip.Content)
		assert.Equal(t, domain.DefaultLifeTip, guide.LifeTip)
	})

	t.Run("FencedPayload", func(t *testing.T) {
		guide, err := parseFinal("```json\n{\"pastReview\":\"x\"}\n```")

		require.NoError(t, err)
		assert.Equal(t, "x", guide.PastReview)
	})

	t.Run("UnparseableIsMalformedResponse", func(t *testing.T) {
		_, err := parseFinal("죄송합니다, 가이드를 만들 수 없습니다.")

		require.Error(t, err)
		assert.True(t, appErrors.IsMalformedResponse(err))
	})
}

func TestParsePartial(t *testing.T) {
	t.Run("TruncatedAfterCompleteValue", func(t *testing.T) {
		guide, ok := parsePartial(`{"pastReview": "abc",`)

		require.True(t, ok)
		assert.Equal(t, "abc", guide.PastReview)
		assert.Empty(t, guide.BusinessTip.Content)
	})

	t.Run("TruncatedInsideStringIsAMiss", func(t *testing.T) {
		_, ok := parsePartial(`{"pastReview": "abc`)
		assert.False(t, ok)
	})

	t.Run("TruncatedInsideNestedObject", func(t *testing.T) {
		guide, ok := parsePartial(`{"pastReview":"a","businessTip":{"content":"b"}`)

		require.True(t, ok)
		assert.Equal(t, "a", guide.PastReview)
		assert.Equal(t, "b", guide.BusinessTip.Content)
	})

	t.Run("UnterminatedNestedValueIsAMiss", func(t *testing.T) {
		_, ok := parsePartial(`{"pastReview":"a","businessTip":{"content":"b`)
		assert.False(t, ok)
	})

	t.Run("KeyAwaitingValueIsAMiss", func(t *testing.T) {
		_, ok := parsePartial(`{"pastReview":"a","businessTip":`)
		assert.False(t, ok)
	})

	t.Run("TruncatedInsideAttendeesArray", func(t *testing.T) {
		guide, ok := parsePartial(`{"pastReview":"a","attendees":[{"name":"김"}`)

		require.True(t, ok)
		require.Len(t, guide.Attendees, 1)
		assert.Equal(t, "김", guide.Attendees[0].Name)
	})

	t.Run("OpenFenceTolerated", func(t *testing.T) {
		guide, ok := parsePartial("```json\n{\"pastReview\":\"a\",")

		require.True(t, ok)
		assert.Equal(t, "a", guide.PastReview)
	})

	t.Run("NonObjectPrefixIsAMiss", func(t *testing.T) {
		_, ok := parsePartial("가이드를 준비하고 있습니다")
		assert.False(t, ok)
	})

	t.Run("EscapedQuoteInsideString", func(t *testing.T) {
		guide, ok := parsePartial(`{"pastReview":"he said \"hi\"",`)

		require.True(t, ok)
		assert.Equal(t, `he said "hi"`, guide.PastReview)
	})
}

func TestCloseTruncatedJSON(t *testing.T) {
	t.Run("ClosesInnermostFirst", func(t *testing.T) {
		closed, ok := closeTruncatedJSON(`{"a":[{"b":1}`)

		require.True(t, ok)
		assert.Equal(t, `{"a":[{"b":1}]}`, closed)
	})

	t.Run("TrailingCommaTrimmed", func(t *testing.T) {
		closed, ok := closeTruncatedJSON(`{"a":1, `)

		require.True(t, ok)
		assert.Equal(t, `{"a":1}`, closed)
	})

	t.Run("OpenStringRejected", func(t *testing.T) {
		_, ok := closeTruncatedJSON(`{"a":"unfinished`)
		assert.False(t, ok)
	})

	t.Run("AlreadyBalancedUnchanged", func(t *testing.T) {
		closed, ok := closeTruncatedJSON(`{"a":1}`)

		require.True(t, ok)
		assert.Equal(t, `{"a":1}`, closed)
	})
}
