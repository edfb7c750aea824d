package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"rapport-backend/internal/domain"
	appErrors "rapport-backend/pkg/errors"
)

const (
	dataPrefix      = "data: "
	streamDoneToken = "[DONE]"
)

// streamFrame is one decoded event frame: either an incremental text
// fragment or a terminal error signal.
type streamFrame struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

// GuideStream is a lazy, finite, non-restartable sequence of partial-guide
// snapshots, terminated by either a final complete guide or an error.
//
// Snapshots on Updates are best-effort: a consumer that stops draining loses
// intermediate snapshots but never the terminal result, which is always
// available through Wait. Abandoning the stream (ceasing to read Updates)
// does not abort the underlying call; it drains to natural completion.
type GuideStream struct {
	updates chan domain.SmallTalkGuide
	done    chan struct{}

	guide *domain.SmallTalkGuide
	err   error
}

func newGuideStream() *GuideStream {
	return &GuideStream{
		updates: make(chan domain.SmallTalkGuide, 16),
		done:    make(chan struct{}),
	}
}

// Updates returns the snapshot channel. It is closed once the stream
// terminates.
func (s *GuideStream) Updates() <-chan domain.SmallTalkGuide {
	return s.updates
}

// Wait blocks until the stream terminates and returns the final guide or the
// terminal error.
func (s *GuideStream) Wait() (*domain.SmallTalkGuide, error) {
	<-s.done
	return s.guide, s.err
}

// emit delivers a snapshot without ever blocking the read loop. If the
// consumer has fallen behind, the snapshot is dropped; a later, strictly
// larger one will follow.
func (s *GuideStream) emit(snapshot domain.SmallTalkGuide) {
	select {
	case s.updates <- snapshot:
	default:
	}
}

// finish records the terminal state exactly once.
func (s *GuideStream) finish(guide *domain.SmallTalkGuide, err error) {
	s.guide = guide
	s.err = err
	close(s.updates)
	close(s.done)
}

// GenerateGuideStream opens the streaming generation call. The returned
// stream is already live; the HTTP connection has been established and the
// status checked before this returns.
func (c *Client) GenerateGuideStream(ctx context.Context, req GuideRequest) (*GuideStream, error) {
	req.Action = actionGenerateGuide
	req.Stream = true

	result, err := c.breaker.Execute(func() (any, error) {
		return c.open(ctx, c.streamClient, req)
	})
	if err != nil {
		return nil, mapBreakerError(err)
	}
	resp := result.(*http.Response)

	stream := newGuideStream()
	go c.consume(resp.Body, stream)
	return stream, nil
}

// consume runs the stream read loop: decode frames in arrival order, keep the
// monotonically growing fullText, surface best-effort partial snapshots, and
// parse the final document on completion.
func (c *Client) consume(body io.ReadCloser, stream *GuideStream) {
	defer body.Close()

	var fullText strings.Builder
	var protocolErr error

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		payload := strings.TrimPrefix(line, dataPrefix)
		if payload == streamDoneToken {
			break
		}

		var frame streamFrame
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			c.logger.Debug("Skipping undecodable stream frame", zap.Error(err))
			continue
		}
		if frame.Error != "" {
			protocolErr = appErrors.NewStreamProtocol(frame.Error)
			break
		}
		if frame.Text == "" {
			continue
		}

		fullText.WriteString(frame.Text)
		if c.onStreamFragment != nil {
			c.onStreamFragment()
		}

		// Partial-parse misses are silently skipped; only the final parse
		// can fail the stream.
		if partial, ok := parsePartial(fullText.String()); ok {
			stream.emit(*partial.Clone())
		}
	}

	if protocolErr != nil {
		stream.finish(nil, protocolErr)
		return
	}
	if err := scanner.Err(); err != nil {
		stream.finish(nil, appErrors.NewTransport("stream read failed", err))
		return
	}

	guide, err := parseFinal(fullText.String())
	if err != nil {
		stream.finish(nil, err)
		return
	}
	stream.finish(guide, nil)
}
