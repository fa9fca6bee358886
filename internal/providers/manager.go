package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dataagent/internal/config"
)

type NamedLLMProvider struct {
	Ref      ProviderRef
	Provider LLMProvider
}

// Manager holds the configured providers and tries them in preferred order.
type Manager struct {
	llmProviders []NamedLLMProvider
}

func NewManager(cfg config.Config) (*Manager, error) {
	m := &Manager{}
	for _, ref := range ParseProviderList(cfg.LLMProviders) {
		p, err := buildProvider(ref)
		if err != nil {
			return nil, err
		}
		m.llmProviders = append(m.llmProviders, NamedLLMProvider{Ref: ref, Provider: p})
	}
	if len(m.llmProviders) == 0 {
		m.llmProviders = []NamedLLMProvider{{Ref: ProviderRef{Raw: "mock", Name: "mock"}, Provider: NewMockProvider()}}
	}
	return m, nil
}

// NewManagerWith wraps already-built providers, in the given order.
func NewManagerWith(providers ...NamedLLMProvider) *Manager {
	return &Manager{llmProviders: providers}
}

// Generate asks each provider in preferred order and returns the first
// success. Only the last failure is returned when all of them fail.
func (m *Manager) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	if len(m.llmProviders) == 0 {
		return NewMockProvider().Generate(ctx, req)
	}
	var (
		lastErr  error
		lastInfo ProviderInfo
	)
	for _, i := range m.PreferredLLMOrder() {
		p := m.llmProviders[i]
		resp, info, err := p.Provider.Generate(ctx, req)
		if err == nil {
			return resp, info, nil
		}
		lastErr, lastInfo = err, info
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			break
		}
	}
	return GenerateResponse{}, lastInfo, lastErr
}

func (m *Manager) LLMProviderRefs() []ProviderRef {
	out := make([]ProviderRef, 0, len(m.llmProviders))
	for i := range m.llmProviders {
		out = append(out, m.llmProviders[i].Ref)
	}
	return out
}

func (m *Manager) PreferredLLMOrder() []int {
	return preferredOrder(len(m.llmProviders), func(i int) string { return strings.ToLower(m.llmProviders[i].Ref.Name) })
}

func preferredOrder(n int, nameAt func(i int) string) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if nameAt(i) != "mock" {
			out = append(out, i)
		}
	}
	for i := 0; i < n; i++ {
		if nameAt(i) == "mock" {
			out = append(out, i)
		}
	}
	return out
}

func buildProvider(ref ProviderRef) (LLMProvider, error) {
	switch strings.ToLower(ref.Name) {
	case "mock":
		return NewMockProvider(), nil
	case "openai":
		return NewOpenAIProvider(ref.KeyAlias), nil
	case "deepseek":
		return NewDeepSeekProvider(ref.KeyAlias), nil
	case "anthropic":
		return NewAnthropicProvider(ref.KeyAlias), nil
	case "groq":
		return NewGroqProvider(ref.KeyAlias), nil
	case "ollama":
		return NewOllamaProvider(ref.KeyAlias), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", ref.Name)
	}
}
