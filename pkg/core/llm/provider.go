package llm

import (
	"context"
	"fmt"
	"sync"
)

// Provider is the interface for all LLM providers.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
	// AdaptInstructions transforms raw instructions into model-specific formats
	AdaptInstructions(rawInstructions string) string
}

// DocumentProvider is implemented by providers that can read binary documents
// (PDF, images) alongside the prompt. Used for OCR extraction.
type DocumentProvider interface {
	Provider
	GenerateFromDocument(ctx context.Context, prompt string, systemPrompt string, mimeType string, data []byte, options map[string]interface{}) (string, error)
}

// MockProvider returns canned responses. It records the prompts it receives.
type MockProvider struct {
	Response string
	Err      error

	mu      sync.Mutex
	Prompts []string
}

var _ DocumentProvider = (*MockProvider)(nil)

func (p *MockProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	p.mu.Lock()
	p.Prompts = append(p.Prompts, prompt)
	p.mu.Unlock()
	if p.Err != nil {
		return "", p.Err
	}
	return p.Response, nil
}

func (p *MockProvider) GenerateFromDocument(ctx context.Context, prompt string, systemPrompt string, mimeType string, data []byte, options map[string]interface{}) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("MOCK_EMPTY_DOCUMENT")
	}
	return p.GenerateResponse(ctx, prompt, systemPrompt, options)
}

func (p *MockProvider) AdaptInstructions(raw string) string {
	return raw
}
