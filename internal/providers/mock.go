package providers

import (
	"context"
	"strings"
)

// MockProvider answers every agent step immediately with a text envelope.
type MockProvider struct{}

func NewMockProvider() *MockProvider { return &MockProvider{} }

func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	_ = ctx
	text := "Final Answer: {\"answer\": \"Mock analysis only; configure a real provider for results.\"}"
	if !strings.Contains(strings.ToLower(req.Operation), "agent") {
		text = "Mock response."
	}
	return GenerateResponse{Text: text}, ProviderInfo{Name: "mock", Model: "mock-llm-v1", Key: "mock"}, nil
}
