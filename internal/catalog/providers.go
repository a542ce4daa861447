package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Provider describes one upstream game vendor: its logical id, the display
// names used upstream and downstream, and the on-page selector that switches
// the rendered catalog to that vendor.
type Provider struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	DisplayName string `yaml:"displayName" json:"displayName"`
	Image       string `yaml:"image" json:"image"`
	Selector    string `yaml:"selector" json:"selector"`
}

// defaultProviders mirrors the provider tabs currently exposed by the
// upstream mobile site. Selectors target the provider logo images.
var defaultProviders = []Provider{
	{
		ID:          "pg-soft",
		Name:        "PG Soft",
		DisplayName: "PG Soft",
		Image:       "https://cdn.eaeaea.click/img/sportsbook/assets/provider/PG-Soft.png",
		Selector:    `img[alt="PG Soft"]`,
	},
	{
		ID:          "pragmatic-play",
		Name:        "PragmaticPlay Slot",
		DisplayName: "Pragmatic Play",
		Image:       "https://cdn.eaeaea.click/img/sportsbook/provider/PMTS/PMTS_1697034113.png",
		Selector:    `img[alt="PragmaticPlay Slot"]`,
	},
	{
		ID:          "jili",
		Name:        "Jili",
		DisplayName: "Jili",
		Image:       "https://cdn.eaeaea.click/img/sportsbook/assets/provider/Jili.png",
		Selector:    `img[alt="Jili"]`,
	},
	{
		ID:          "microgaming",
		Name:        "Microgaming Slot",
		DisplayName: "Microgaming",
		Image:       "https://cdn.eaeaea.click/img/sportsbook/provider/MGS/MGS_1695290029.png",
		Selector:    `img[alt="Microgaming Slot"]`,
	},
}

// ProviderSet is the immutable provider catalog loaded at process start.
type ProviderSet struct {
	providers []Provider
	byID      map[string]Provider
	defaultID string
}

// LoadProviders builds the provider catalog. An empty path uses the
// compiled-in defaults; otherwise the YAML file at path replaces them.
func LoadProviders(path, defaultID string) (*ProviderSet, error) {
	providers := defaultProviders

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read providers file: %w", err)
		}
		var loaded []Provider
		if err := yaml.Unmarshal(data, &loaded); err != nil {
			return nil, fmt.Errorf("failed to parse providers file: %w", err)
		}
		if len(loaded) == 0 {
			return nil, fmt.Errorf("providers file %s defines no providers", path)
		}
		providers = loaded
	}

	byID := make(map[string]Provider, len(providers))
	for _, p := range providers {
		if p.ID == "" || p.Selector == "" {
			return nil, fmt.Errorf("provider %q must have an id and a selector", p.ID)
		}
		byID[p.ID] = p
	}

	if _, ok := byID[defaultID]; !ok {
		return nil, fmt.Errorf("default provider %q is not in the catalog", defaultID)
	}

	return &ProviderSet{
		providers: providers,
		byID:      byID,
		defaultID: defaultID,
	}, nil
}

// Get resolves a provider id. Unknown or empty ids fall back to the default
// provider rather than erroring.
func (s *ProviderSet) Get(id string) Provider {
	if p, ok := s.byID[id]; ok {
		return p
	}
	return s.byID[s.defaultID]
}

// Default returns the configured default provider.
func (s *ProviderSet) Default() Provider {
	return s.byID[s.defaultID]
}

// All returns the providers in catalog order.
func (s *ProviderSet) All() []Provider {
	out := make([]Provider, len(s.providers))
	copy(out, s.providers)
	return out
}
