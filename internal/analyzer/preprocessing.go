package analyzer

import (
	"strings"

	"growth-analyzer/internal/models"
	"growth-analyzer/pkg/logger"
)

// SchemeColumn is the column every report filters schemes on
const SchemeColumn = "SCHEME NAME"

// SchemeFilter drops or keeps rows by scheme name. When the scheme column is
// absent both filters leave the table as it is.
type SchemeFilter struct {
	catalog *SchemeCatalog
	logger  logger.Logger
}

// NewSchemeFilter creates a filter over the given catalog
func NewSchemeFilter(catalog *SchemeCatalog) *SchemeFilter {
	if catalog == nil {
		catalog = DefaultSchemeCatalog()
	}

	return &SchemeFilter{
		catalog: catalog,
		logger:  logger.GetGlobalLogger().WithComponent("scheme_filter"),
	}
}

// Catalog returns the catalog the filter was built with
func (f *SchemeFilter) Catalog() *SchemeCatalog {
	return f.catalog
}

// ExcludeScheme drops rows whose scheme is on the excluded list
func (f *SchemeFilter) ExcludeScheme(t *models.Table, column string) *models.Table {
	if !t.HasColumn(column) {
		f.logger.WithField("column", column).Debug("Scheme column absent, exclusion skipped")
		return t
	}

	out := t.Filter(func(row models.Row) bool {
		return !f.catalog.IsExcluded(row.Get(column).String())
	})

	f.logger.WithFields(logger.Fields{
		"rows_in":  t.Len(),
		"rows_out": out.Len(),
	}).Debug("Excluded schemes removed")

	return out
}

// RestrictToSchemes keeps only rows whose scheme is on the pending allow-list
func (f *SchemeFilter) RestrictToSchemes(t *models.Table, column string) *models.Table {
	if !t.HasColumn(column) {
		f.logger.WithField("column", column).Debug("Scheme column absent, allow-list skipped")
		return t
	}

	out := t.Filter(func(row models.Row) bool {
		return f.catalog.IsPendingAllowed(row.Get(column).String())
	})

	f.logger.WithFields(logger.Fields{
		"rows_in":  t.Len(),
		"rows_out": out.Len(),
	}).Debug("Restricted to pending schemes")

	return out
}

// NormalizeHeaders trims and upper-cases every column name
func NormalizeHeaders(t *models.Table) *models.Table {
	return t.RenameColumns(func(name string) string {
		return strings.ToUpper(strings.TrimSpace(name))
	})
}
