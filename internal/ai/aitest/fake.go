// Package aitest provides a scripted model client for tests.
package aitest

import (
	"context"
	"fmt"
	"sync"

	"resumerank/internal/ai"
)

// ResponderFunc produces the reply for one request
type ResponderFunc func(req ai.GenerateRequest) (string, error)

// FakeClient is a concurrency-safe ai.ModelClient that records every request
type FakeClient struct {
	mu       sync.Mutex
	respond  ResponderFunc
	requests []ai.GenerateRequest
}

var _ ai.ModelClient = (*FakeClient)(nil)

// NewFakeClient returns a client that answers every request with respond
func NewFakeClient(respond ResponderFunc) *FakeClient {
	return &FakeClient{respond: respond}
}

// StaticClient always replies with text
func StaticClient(text string) *FakeClient {
	return NewFakeClient(func(ai.GenerateRequest) (string, error) {
		return text, nil
	})
}

// ScriptedClient replies with the given texts in call order and fails once they run out
func ScriptedClient(replies ...string) *FakeClient {
	var (
		mu   sync.Mutex
		next int
	)
	return NewFakeClient(func(req ai.GenerateRequest) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if next >= len(replies) {
			return "", fmt.Errorf("aitest: no scripted reply for call %d (%s)", next+1, req.Operation)
		}
		reply := replies[next]
		next++
		return reply, nil
	})
}

// Generate records req and returns the reply. The responder runs outside
// the lock, so concurrent calls overlap as they would against a real service.
func (f *FakeClient) Generate(ctx context.Context, req ai.GenerateRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	respond := f.respond
	f.mu.Unlock()

	if respond == nil {
		return "", fmt.Errorf("aitest: no responder configured")
	}
	return respond(req)
}

// Requests returns a copy of the requests seen so far
func (f *FakeClient) Requests() []ai.GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ai.GenerateRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// Calls returns how many requests were made
func (f *FakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}
