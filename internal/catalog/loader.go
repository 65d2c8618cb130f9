// Package catalog loads the pre-scraped competition catalog: countries,
// their tournaments, and tournament URLs. The catalog is produced out of
// band; the crawler only consumes it.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Tournament is one competition within a country.
type Tournament struct {
	Name string `json:"name" yaml:"name" validate:"required"`
	URL  string `json:"url" yaml:"url" validate:"required,url"`
}

// Country groups the tournaments hosted under one national section of the
// source site.
type Country struct {
	Name        string       `json:"name" yaml:"name" validate:"required"`
	Tournaments []Tournament `json:"tournaments" yaml:"tournaments" validate:"min=1,dive"`
}

// Catalog is the full competition list.
type Catalog struct {
	Countries []Country `json:"countries" yaml:"countries" validate:"min=1,dive"`
}

// Load reads a catalog from a JSON or YAML file (by extension) and validates
// every entry.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var catalog Catalog
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &catalog); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &catalog); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q (want .json, .yaml or .yml)", filepath.Ext(path))
	}

	if err := validator.New().Struct(&catalog); err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", path, err)
	}

	return &catalog, nil
}

// TournamentCount returns the total number of tournaments in the catalog.
func (c *Catalog) TournamentCount() int {
	count := 0
	for _, country := range c.Countries {
		count += len(country.Tournaments)
	}
	return count
}
