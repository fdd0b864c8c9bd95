package router

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// VenueConfig represents a venue definition entry in YAML.
type VenueConfig struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	BaseURL string `yaml:"base_url"`
}

// RoutingConfig represents the top-level YAML structure: the venues to
// bring up and the symbol -> primary-venue table.
type RoutingConfig struct {
	Venues  []VenueConfig     `yaml:"venues"`
	Primary map[string]string `yaml:"primary"`
}

// LoadConfig reads the routing table from a YAML file.
func LoadConfig(path string) (*RoutingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg RoutingConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	names := make(map[string]struct{}, len(cfg.Venues))
	for _, v := range cfg.Venues {
		if v.Name == "" {
			return nil, fmt.Errorf("routing config: venue with empty name")
		}
		if _, dup := names[v.Name]; dup {
			return nil, fmt.Errorf("routing config: duplicate venue %s", v.Name)
		}
		names[v.Name] = struct{}{}
	}
	for symbol, venue := range cfg.Primary {
		if _, ok := names[venue]; !ok {
			return nil, fmt.Errorf("routing config: primary for %s names unknown venue %s", symbol, venue)
		}
	}

	return &cfg, nil
}
