package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lomoval/calendar-helper/internal/llm"
)

var errTransport = errors.New("connection reset by peer")

type fakeLLM struct {
	mu       sync.Mutex
	handler  func(call int, req llm.ChatRequest) (string, error)
	requests []llm.ChatRequest
}

func newFakeLLM(handler func(call int, req llm.ChatRequest) (string, error)) *fakeLLM {
	return &fakeLLM{handler: handler}
}

// reply always answers with content.
func reply(content string) *fakeLLM {
	return newFakeLLM(func(int, llm.ChatRequest) (string, error) { return content, nil })
}

func failing(err error) *fakeLLM {
	return newFakeLLM(func(int, llm.ChatRequest) (string, error) { return "", err })
}

func (f *fakeLLM) Complete(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	call := len(f.requests)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return llm.ChatResponse{}, err
	}
	content, err := f.handler(call, req)
	if err != nil {
		return llm.ChatResponse{}, err
	}
	return llm.ChatResponse{Content: content}, nil
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeLLM) request(i int) llm.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[i]
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func mustParse(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return t
}
