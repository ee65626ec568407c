package llm

import "context"

// Request is one completion request. When ImageB64 is set the provider
// issues a vision-capable call with the prompt and image as one user turn.
type Request struct {
	Prompt      string
	ImageB64    string
	ImageMime   string
	Temperature float64
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Response struct {
	Text         string
	Usage        Usage
	FinishReason string
}

type Adapter interface {
	Generate(ctx context.Context, req Request) (Response, error)
	Name() string
}
