// Package seed holds the built-in M/D estimation catalog.
package seed

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/wemb-pms/pms-backend/internal/catalog/domain"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Load parses the embedded catalog.
func Load() (domain.Catalog, error) {
	return Parse(defaultsYAML)
}

// Parse reads a catalog document in the seed format.
func Parse(data []byte) (domain.Catalog, error) {
	var c domain.Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return domain.Catalog{}, fmt.Errorf("parse catalog seed: %w", err)
	}
	c.Normalize()
	return c, nil
}

// MustLoad is Load for package initialisation and tests.
func MustLoad() domain.Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}
