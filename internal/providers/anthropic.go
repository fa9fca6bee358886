package providers

import (
	"os"
	"strings"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	jetanthropic "go.jetify.com/ai/provider/anthropic"
)

func NewAnthropicProvider(keyName string) LLMProvider {
	model := strings.TrimSpace(os.Getenv("DATAAGENT_ANTHROPIC_MODEL"))
	if model == "" {
		model = "claude-haiku-4-5-20251001"
	}
	p := &languageModelProvider{info: ProviderInfo{Name: "anthropic", Model: model, Key: keyName}}
	apiKey := resolveKey("anthropic", keyName, "ANTHROPIC_API_KEY")
	if apiKey == "" {
		return p
	}
	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(apiKey),
		anthropicoption.WithMaxRetries(0),
	}
	if endpoint := strings.TrimSpace(os.Getenv("DATAAGENT_ANTHROPIC_BASE_URL")); endpoint != "" {
		opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(endpoint, "/")))
	}
	client := anthropicclient.NewClient(opts...)
	p.model = jetanthropic.NewLanguageModel(model, jetanthropic.WithClient(client))
	return p
}
