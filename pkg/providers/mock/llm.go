package mock

import (
	"context"
	"sync"

	"github.com/storestorm/intake/pkg/llm"
)

// LLMAdapter returns scripted responses in order, then repeats the last one.
type LLMAdapter struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     []llm.Request
}

func NewLLMAdapter(responses ...string) *LLMAdapter {
	if len(responses) == 0 {
		responses = []string{"[]"}
	}
	return &LLMAdapter{responses: responses}
}

// NewFailingLLMAdapter fails every Generate call with err.
func NewFailingLLMAdapter(err error) *LLMAdapter {
	return &LLMAdapter{err: err}
}

func (a *LLMAdapter) Name() string { return "mock_llm" }

func (a *LLMAdapter) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, req)
	if a.err != nil {
		return llm.Response{}, a.err
	}
	text := a.responses[0]
	if len(a.responses) > 1 {
		a.responses = a.responses[1:]
	}
	return llm.Response{Text: text}, nil
}

// Calls returns every request seen so far.
func (a *LLMAdapter) Calls() []llm.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]llm.Request(nil), a.calls...)
}
