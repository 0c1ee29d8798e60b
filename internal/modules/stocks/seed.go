package stocks

import (
	"fmt"
	"os"

	"github.com/aristath/stockwatch/internal/domain"
	"gopkg.in/yaml.v3"
)

// SeedEntry is one symbol in a seed file
type SeedEntry struct {
	Symbol string `yaml:"symbol"`
	Name   string `yaml:"name"`
	Sector string `yaml:"sector"`
}

type seedFile struct {
	Stocks []SeedEntry `yaml:"stocks"`
}

// LoadSeedFile reads a YAML seed file
func LoadSeedFile(path string) ([]SeedEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes seed YAML, normalizing symbols and dropping duplicates
func ParseSeed(data []byte) ([]SeedEntry, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	seen := make(map[string]bool, len(file.Stocks))
	entries := make([]SeedEntry, 0, len(file.Stocks))
	for i, e := range file.Stocks {
		e.Symbol = domain.NormalizeSymbol(e.Symbol)
		if e.Symbol == "" {
			return nil, domain.NewValidationError("seed entry %d has no symbol", i+1)
		}
		if seen[e.Symbol] {
			continue
		}
		seen[e.Symbol] = true
		entries = append(entries, e)
	}

	return entries, nil
}
