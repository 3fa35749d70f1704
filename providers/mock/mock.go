// Package mock provides a canned-response provider.Model for exercising
// llmkit's client and middleware without network I/O.
//
// Grounded on the teacher's test-double conventions (canned responses
// configured per test, no real transport).
package mock

import (
	"context"
	"io"
	"sync"

	"github.com/llmkit-go/llmkit/llmkiterr"
	"github.com/llmkit-go/llmkit/provider"
	"github.com/llmkit-go/llmkit/streamevent"
)

type generateResult struct {
	resp *provider.Response
	err  error
}

type streamResult struct {
	events []streamevent.Event
	err    error
}

// Provider hands out Models that replay a fixed, ordered script of
// Generate/Stream results.
type Provider struct {
	modelID string

	mu        sync.Mutex
	generates []generateResult
	streams   []streamResult
	calls     []provider.Request
	caps      provider.Capabilities
}

func New(modelID string) *Provider {
	return &Provider{modelID: modelID, caps: provider.Capabilities{
		SupportsTools: true, SupportsStructuredOutput: true, SupportsImageInput: true, SupportsStreaming: true,
	}}
}

func (p *Provider) Name() string { return "mock" }

func (p *Provider) LanguageModel(modelID string) (provider.Model, error) {
	return &Model{p: p, modelID: modelID}, nil
}

// WithCapabilities overrides the advertised Capabilities.
func (p *Provider) WithCapabilities(c provider.Capabilities) *Provider {
	p.caps = c
	return p
}

// EnqueueResponse schedules resp to be returned by the next Generate call.
func (p *Provider) EnqueueResponse(resp *provider.Response) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generates = append(p.generates, generateResult{resp: resp})
	return p
}

// EnqueueError schedules err to be returned by the next Generate call.
func (p *Provider) EnqueueError(err error) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generates = append(p.generates, generateResult{err: err})
	return p
}

// EnqueueStream schedules events to be replayed by the next Stream call.
func (p *Provider) EnqueueStream(events []streamevent.Event) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streams = append(p.streams, streamResult{events: events})
	return p
}

// EnqueueStreamError schedules err to be returned by the next Stream call.
func (p *Provider) EnqueueStreamError(err error) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streams = append(p.streams, streamResult{err: err})
	return p
}

// Calls returns every Request passed to Generate or Stream so far.
func (p *Provider) Calls() []provider.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]provider.Request(nil), p.calls...)
}

type Model struct {
	p       *Provider
	modelID string
}

func (m *Model) Name() string                       { return "mock" }
func (m *Model) ModelID() string                     { return m.modelID }
func (m *Model) Capabilities() provider.Capabilities { return m.p.caps }

func (m *Model) Generate(_ context.Context, req provider.Request) (*provider.Response, error) {
	m.p.mu.Lock()
	defer m.p.mu.Unlock()
	m.p.calls = append(m.p.calls, req)

	if len(m.p.generates) == 0 {
		return &provider.Response{Text: "", FinishReason: provider.FinishStop}, nil
	}
	result := m.p.generates[0]
	m.p.generates = m.p.generates[1:]
	if result.err != nil {
		return nil, result.err
	}
	return result.resp, nil
}

func (m *Model) Stream(_ context.Context, req provider.Request) (streamevent.Stream, error) {
	m.p.mu.Lock()
	defer m.p.mu.Unlock()
	m.p.calls = append(m.p.calls, req)

	if len(m.p.streams) == 0 {
		return nil, llmkiterr.NewProvider("mock", 0, nil, "no stream enqueued")
	}
	result := m.p.streams[0]
	m.p.streams = m.p.streams[1:]
	if result.err != nil {
		return nil, result.err
	}
	return &replayStream{events: result.events}, nil
}

type replayStream struct {
	events []streamevent.Event
	pos    int
	done   bool
}

func (s *replayStream) Next() (*streamevent.Event, error) {
	if s.done {
		return nil, io.EOF
	}
	ev := streamevent.Event{Kind: streamevent.KindDone}
	if s.pos < len(s.events) {
		ev = s.events[s.pos]
		s.pos++
	}
	if ev.Kind == streamevent.KindDone {
		s.done = true
	}
	return &ev, nil
}

func (s *replayStream) Close() error { return nil }
