package analyzer

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"growth-analyzer/pkg/errors"
)

//go:embed schemes.yaml
var defaultCatalog []byte

// SchemeCatalog holds the scheme literals the reports filter on
type SchemeCatalog struct {
	Excluded        []string `yaml:"excluded"`
	PendingAllowed  []string `yaml:"pending_allowed"`
	SpecialMaturity []string `yaml:"special_maturity"`

	excluded        map[string]struct{}
	pendingAllowed  map[string]struct{}
	specialMaturity map[string]struct{}
}

// NormalizeScheme trims and upper-cases a scheme name for comparison
func NormalizeScheme(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// DefaultSchemeCatalog returns the catalog compiled into the binary
func DefaultSchemeCatalog() *SchemeCatalog {
	catalog, err := ParseSchemeCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("analyzer: embedded scheme catalog is invalid: %v", err))
	}
	return catalog
}

// LoadSchemeCatalog reads a catalog from a YAML file
func LoadSchemeCatalog(path string) (*SchemeCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		return nil, errors.FileError(errors.CodeFilePermission, path, err)
	}

	catalog, err := ParseSchemeCatalog(data)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "schemes_file", path, err)
	}
	return catalog, nil
}

// ParseSchemeCatalog decodes a YAML catalog
func ParseSchemeCatalog(data []byte) (*SchemeCatalog, error) {
	var catalog SchemeCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to decode scheme catalog: %w", err)
	}

	if len(catalog.PendingAllowed) == 0 {
		return nil, fmt.Errorf("scheme catalog lists no pending_allowed schemes")
	}

	catalog.excluded = toSet(catalog.Excluded)
	catalog.pendingAllowed = toSet(catalog.PendingAllowed)
	catalog.specialMaturity = toSet(catalog.SpecialMaturity)

	return &catalog, nil
}

// IsExcluded reports whether rows on this scheme are dropped from every report
func (c *SchemeCatalog) IsExcluded(scheme string) bool {
	_, ok := c.excluded[NormalizeScheme(scheme)]
	return ok
}

// IsPendingAllowed reports whether the scheme is part of the SS pending report
func (c *SchemeCatalog) IsPendingAllowed(scheme string) bool {
	_, ok := c.pendingAllowed[NormalizeScheme(scheme)]
	return ok
}

// IsSpecialMaturity reports whether the scheme matures on its stated maturity date
func (c *SchemeCatalog) IsSpecialMaturity(scheme string) bool {
	_, ok := c.specialMaturity[NormalizeScheme(scheme)]
	return ok
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[NormalizeScheme(name)] = struct{}{}
	}
	return set
}
