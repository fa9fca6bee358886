package providers

import (
	neturl "net/url"
	"os"
	"strings"

	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
	jetopenai "go.jetify.com/ai/provider/openai"
)

// openAICompatible describes a hosted endpoint that speaks the OpenAI chat API.
type openAICompatible struct {
	name         string
	keyEnv       string
	defaultModel string
	defaultURL   string
}

var (
	openAIEndpoint   = openAICompatible{name: "openai", keyEnv: "OPENAI_API_KEY", defaultModel: "gpt-4o-mini"}
	deepSeekEndpoint = openAICompatible{name: "deepseek", keyEnv: "DEEPSEEK_API_KEY", defaultModel: "deepseek-chat", defaultURL: "https://api.deepseek.com"}
	groqEndpoint     = openAICompatible{name: "groq", keyEnv: "GROQ_API_KEY", defaultModel: "llama-3.1-8b-instant", defaultURL: "https://api.groq.com/openai"}
)

func NewOpenAIProvider(keyName string) LLMProvider { return newOpenAICompatible(openAIEndpoint, keyName) }

// NewDeepSeekProvider talks to DeepSeek through its OpenAI-compatible API.
func NewDeepSeekProvider(keyName string) LLMProvider {
	return newOpenAICompatible(deepSeekEndpoint, keyName)
}

func NewGroqProvider(keyName string) LLMProvider { return newOpenAICompatible(groqEndpoint, keyName) }

func newOpenAICompatible(e openAICompatible, keyName string) *languageModelProvider {
	upper := strings.ToUpper(e.name)
	model := strings.TrimSpace(os.Getenv("DATAAGENT_" + upper + "_MODEL"))
	if model == "" {
		model = e.defaultModel
	}
	p := &languageModelProvider{info: ProviderInfo{Name: e.name, Model: model, Key: keyName}}
	apiKey := resolveKey(e.name, keyName, e.keyEnv)
	if apiKey == "" {
		return p
	}

	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(apiKey),
		openaioption.WithMaxRetries(0),
	}
	base := strings.TrimSpace(os.Getenv("DATAAGENT_" + upper + "_BASE_URL"))
	if base == "" {
		base = e.defaultURL
	}
	if normalized := normalizeOpenAIBaseURL(base); normalized != "" {
		opts = append(opts, openaioption.WithBaseURL(normalized))
	}
	client := openaiclient.NewClient(opts...)
	p.model = jetopenai.NewLanguageModel(model, jetopenai.WithClient(client))
	return p
}

// normalizeOpenAIBaseURL makes sure the base URL ends in /v1.
func normalizeOpenAIBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return ""
	}
	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimRight(base, "/")
	}
	path := strings.TrimRight(parsed.Path, "/")
	if !strings.HasSuffix(path, "/v1") {
		path += "/v1"
	}
	parsed.Path = path
	return strings.TrimRight(parsed.String(), "/")
}

// resolveKey prefers DATAAGENT_<NAME>_KEY_<ALIAS> and falls back to the
// provider's usual variable.
func resolveKey(name, alias, fallbackEnv string) string {
	if alias != "" {
		if v := os.Getenv("DATAAGENT_" + strings.ToUpper(name) + "_KEY_" + sanitizeEnvToken(alias)); v != "" {
			return v
		}
	}
	return os.Getenv(fallbackEnv)
}

func sanitizeEnvToken(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, ".", "_")
	s = strings.ReplaceAll(s, "/", "_")
	return s
}
