package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	jetai "go.jetify.com/ai"
	jetapi "go.jetify.com/ai/api"
)

const defaultMaxOutputTokens = 4096

// languageModelProvider adapts a jetify language model (OpenAI-compatible or
// Anthropic) to LLMProvider. A nil model means the API key was missing.
type languageModelProvider struct {
	info  ProviderInfo
	model jetapi.LanguageModel
}

func (p *languageModelProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	if p.model == nil {
		return GenerateResponse{}, p.info, fmt.Errorf("%s key missing for alias %q", p.info.Name, p.info.Key)
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxOutputTokens
	}
	resp, err := jetai.GenerateText(
		ctx,
		promptMessages(req.System, req.Prompt),
		jetai.WithModel(p.model),
		jetai.WithTemperature(req.Temperature),
		jetai.WithMaxOutputTokens(maxTokens),
	)
	if err != nil {
		return GenerateResponse{}, p.info, fmt.Errorf("%s generate request failed: %w", p.info.Name, err)
	}
	text, err := responseText(resp)
	if err != nil {
		return GenerateResponse{}, p.info, fmt.Errorf("%s: %w", p.info.Name, err)
	}
	return GenerateResponse{Text: text}, p.info, nil
}

func promptMessages(system, prompt string) []jetapi.Message {
	messages := make([]jetapi.Message, 0, 2)
	if strings.TrimSpace(system) != "" {
		messages = append(messages, &jetapi.SystemMessage{Content: system})
	}
	messages = append(messages, &jetapi.UserMessage{Content: jetapi.ContentFromText(prompt)})
	return messages
}

func responseText(resp *jetapi.Response) (string, error) {
	if resp == nil {
		return "", errors.New("empty response")
	}
	var full strings.Builder
	for _, block := range resp.Content {
		textBlock, ok := block.(*jetapi.TextBlock)
		if !ok || textBlock.Text == "" {
			continue
		}
		full.WriteString(textBlock.Text)
	}
	if strings.TrimSpace(full.String()) == "" {
		return "", errors.New("empty response")
	}
	return full.String(), nil
}
