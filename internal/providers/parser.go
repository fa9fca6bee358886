package providers

import "strings"

// ProviderRef is one entry of DATAAGENT_LLM_PROVIDERS, e.g. "deepseek:key1".
// For ollama the alias names the model instead of a key.
type ProviderRef struct {
	Raw      string
	Name     string
	KeyAlias string
}

// ParseProviderList reads a "|" or "," separated list. Names are lowercased
// and repeated entries are dropped; an empty list means the mock provider.
func ParseProviderList(raw string) []ProviderRef {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == '|' || r == ',' })
	out := make([]ProviderRef, 0, len(parts))
	seen := map[string]bool{}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		name, alias, _ := strings.Cut(p, ":")
		ref := ProviderRef{
			Raw:      p,
			Name:     strings.ToLower(strings.TrimSpace(name)),
			KeyAlias: strings.TrimSpace(alias),
		}
		key := ref.Name + ":" + ref.KeyAlias
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ref)
	}
	if len(out) == 0 {
		out = append(out, ProviderRef{Raw: "mock", Name: "mock"})
	}
	return out
}
