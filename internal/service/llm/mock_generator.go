package llm

import (
	"context"
	"sync"

	"rapport-backend/internal/domain"
)

// MockGenerator provides a scripted in-memory implementation of the
// generation client surface for testing and development.
type MockGenerator struct {
	mu sync.Mutex

	// Guide returned by both call paths on success.
	Guide domain.SmallTalkGuide

	// PartialSnapshots are emitted on the streaming path before completion.
	PartialSnapshots []domain.SmallTalkGuide

	// Err, when set, fails every call.
	Err error

	// Delay hooks let tests order completions deterministically.
	BeforeFinish func()

	requests []GuideRequest
	notes    []string
	analysis NoteAnalysis
}

// NewMockGenerator creates a mock generator returning a minimal complete guide.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{
		Guide: domain.SmallTalkGuide{
			PastReview:  "지난 만남에서 업계 동향을 이야기했습니다.",
			BusinessTip: domain.BusinessTip{Content: "신제품 출시 근황을 물어보세요."},
			LifeTip:     "최근 시작한 운동에 대해 물어보세요.",
		},
		analysis: NoteAnalysis{
			BusinessInterests:  []string{},
			LifestyleInterests: []string{},
		},
	}
}

// SetAnalysis configures the result of AnalyzeNote.
func (m *MockGenerator) SetAnalysis(a NoteAnalysis) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analysis = a
}

// Requests returns all guide requests seen so far.
func (m *MockGenerator) Requests() []GuideRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GuideRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Notes returns all analyzed note texts.
func (m *MockGenerator) Notes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.notes))
	copy(out, m.notes)
	return out
}

// GenerateGuide implements the non-streaming path.
func (m *MockGenerator) GenerateGuide(ctx context.Context, req GuideRequest) (*domain.SmallTalkGuide, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	err := m.Err
	guide := m.Guide
	hook := m.BeforeFinish
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return guide.Clone().FillDefaults(), nil
}

// GenerateGuideStream implements the streaming path with scripted snapshots.
func (m *MockGenerator) GenerateGuideStream(ctx context.Context, req GuideRequest) (*GuideStream, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	err := m.Err
	guide := m.Guide
	partials := make([]domain.SmallTalkGuide, len(m.PartialSnapshots))
	copy(partials, m.PartialSnapshots)
	hook := m.BeforeFinish
	m.mu.Unlock()

	stream := newGuideStream()
	go func() {
		for _, snapshot := range partials {
			stream.emit(snapshot)
		}
		if hook != nil {
			hook()
		}
		if err != nil {
			stream.finish(nil, err)
			return
		}
		stream.finish(guide.Clone().FillDefaults(), nil)
	}()
	return stream, nil
}

// AnalyzeNote implements the note-analysis action.
func (m *MockGenerator) AnalyzeNote(ctx context.Context, note string) (*NoteAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = append(m.notes, note)
	if m.Err != nil {
		return nil, m.Err
	}
	analysis := m.analysis
	return &analysis, nil
}
