package provider

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockProvider is a lightweight in-memory Provider useful for tests and
// examples. Fragments are scripted; every request is recorded for
// assertions.
type MockProvider struct {
	mu          sync.Mutex
	info        Info
	fragments   []string
	streamErr   error
	completion  string
	completeErr error
	delay       time.Duration
	requests    []Request
}

// NewMockProvider constructs a MockProvider with reasoning support enabled.
func NewMockProvider(model string) *MockProvider {
	return &MockProvider{
		info: Info{Provider: "mock", Model: model, SupportsReasoning: true},
	}
}

// SetFragments scripts the fragments the next streams will emit.
func (m *MockProvider) SetFragments(fragments ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fragments = fragments
}

// SetStreamError makes streams fail with err after emitting the scripted
// fragments.
func (m *MockProvider) SetStreamError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamErr = err
}

// SetCompletion scripts the Complete response.
func (m *MockProvider) SetCompletion(text string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completion, m.completeErr = text, err
}

// SetDelay inserts a pause before each fragment, letting tests exercise
// mid-stream cancellation deterministically.
func (m *MockProvider) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Requests returns a copy of every request seen so far.
func (m *MockProvider) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	reqs := make([]Request, len(m.requests))
	copy(reqs, m.requests)
	return reqs
}

// LastRequest returns the most recent request, if any.
func (m *MockProvider) LastRequest() (Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return Request{}, false
	}
	return m.requests[len(m.requests)-1], true
}

// Info implements Provider.
func (m *MockProvider) Info() Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info
}

// Stream implements Provider; emits the scripted fragments then the
// scripted error, honoring ctx cancellation between fragments.
func (m *MockProvider) Stream(ctx context.Context, req Request) (<-chan Chunk, <-chan error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	fragments := make([]string, len(m.fragments))
	copy(fragments, m.fragments)
	streamErr := m.streamErr
	delay := m.delay
	m.mu.Unlock()

	out := make(chan Chunk, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)
		for _, f := range fragments {
			if delay > 0 {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case <-time.After(delay):
				}
			}
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case out <- Chunk{Text: f}:
			}
		}
		if streamErr != nil {
			errCh <- streamErr
		}
	}()

	return out, errCh
}

// Complete implements Provider.
func (m *MockProvider) Complete(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	completion, err := m.completion, m.completeErr
	m.mu.Unlock()

	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	if completion == "" {
		return fmt.Sprintf("Mock summary of %d messages", len(req.Messages)), nil
	}
	return completion, nil
}
