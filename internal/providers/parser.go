package providers

import "strings"

// ProviderRef names one configured provider. "openai:team" selects the
// openai provider with key alias "team".
type ProviderRef struct {
	Raw      string
	Name     string
	KeyAlias string
}

// ParseProviderList reads a "|"-separated provider chain, e.g.
// "openai|groq:backup". An empty chain falls back to the mock provider.
func ParseProviderList(raw string) []ProviderRef {
	var out []ProviderRef
	for _, p := range strings.Split(raw, "|") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		name, alias, _ := strings.Cut(p, ":")
		out = append(out, ProviderRef{
			Raw:      p,
			Name:     strings.ToLower(strings.TrimSpace(name)),
			KeyAlias: strings.TrimSpace(alias),
		})
	}
	if len(out) == 0 {
		return []ProviderRef{{Raw: "mock", Name: "mock"}}
	}
	return out
}
