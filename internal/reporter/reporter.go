// Package reporter renders analyzer results for people and for files.
//
// Supported output formats:
//   - Console: aligned table for terminal display
//   - JSON: the result with its table, for programmatic consumption
//   - CSV: header and rows, the format of the report backups
//   - XLSX: a single named worksheet, the download format
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(reporter.DefaultReportConfig())
//	err = generator.Write(result, reporter.FormatXLSX, file)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/xuri/excelize/v2"

	"growth-analyzer/internal/analyzer"
	"growth-analyzer/internal/models"
	"growth-analyzer/pkg/errors"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
	FormatXLSX    OutputFormat = "xlsx"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV, FormatXLSX:
		return true
	default:
		return false
	}
}

// Extension returns the file extension for the format, including the dot
func (f OutputFormat) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatCSV:
		return ".csv"
	case FormatXLSX:
		return ".xlsx"
	default:
		return ".txt"
	}
}

// ParseOutputFormat reads a format name case-insensitively
func ParseOutputFormat(s string) (OutputFormat, error) {
	f := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	if !f.IsValid() {
		return "", errors.ValidationError(errors.CodeInvalidOption, "output_format", s, nil).
			WithSuggestion("Use one of: console, json, csv, xlsx")
	}
	return f, nil
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format" mapstructure:"format"`

	// MaxConsoleRows caps the rows printed to a terminal; 0 prints all
	MaxConsoleRows int `json:"max_console_rows" mapstructure:"max_console_rows"`

	CSVDelimiter rune `json:"csv_delimiter" mapstructure:"csv_delimiter"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:         FormatConsole,
		MaxConsoleRows: 50,
		CSVDelimiter:   ',',
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}

	if c.MaxConsoleRows < 0 {
		return fmt.Errorf("max console rows cannot be negative, got %d", c.MaxConsoleRows)
	}

	if c.CSVDelimiter == 0 || c.CSVDelimiter == '"' || c.CSVDelimiter == '\n' {
		return fmt.Errorf("invalid CSV delimiter %q", c.CSVDelimiter)
	}

	return nil
}

// ReportGenerator renders results in the configured formats
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{
		config: config,
	}, nil
}

// GenerateReport writes the result in the configured format
func (rg *ReportGenerator) GenerateReport(result *analyzer.Result, writer io.Writer) error {
	return rg.Write(result, rg.config.Format, writer)
}

// Write renders the result in format to writer
func (rg *ReportGenerator) Write(result *analyzer.Result, format OutputFormat, writer io.Writer) error {
	if result == nil || result.Table == nil {
		return fmt.Errorf("report result cannot be nil")
	}

	switch format {
	case FormatConsole:
		return rg.generateConsoleReport(result, writer)
	case FormatJSON:
		return rg.generateJSONReport(result, writer)
	case FormatCSV:
		return rg.generateCSVReport(result.Table, writer)
	case FormatXLSX:
		return rg.generateXLSXReport(result, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// generateConsoleReport prints a titled, column-aligned table
func (rg *ReportGenerator) generateConsoleReport(result *analyzer.Result, writer io.Writer) error {
	fmt.Fprintf(writer, "%s\n", strings.ToUpper(result.SheetName))
	fmt.Fprintf(writer, "Generated: %s\n", result.GeneratedAt.Format(time.DateTime))
	fmt.Fprintf(writer, "Rows: %d\n\n", result.Table.Len())

	if result.Table.Len() == 0 {
		fmt.Fprintf(writer, "No rows.\n")
		return nil
	}

	records := result.Table.Records()
	limit := len(records) - 1
	if rg.config.MaxConsoleRows > 0 && limit > rg.config.MaxConsoleRows {
		limit = rg.config.MaxConsoleRows
	}

	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	for _, record := range records[:limit+1] {
		fmt.Fprintln(tw, strings.Join(record, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write console table: %w", err)
	}

	if more := len(records) - 1 - limit; more > 0 {
		fmt.Fprintf(writer, "... and %d more rows\n", more)
	}
	return nil
}

// generateJSONReport writes the result with its table as indented JSON
func (rg *ReportGenerator) generateJSONReport(result *analyzer.Result, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(result)
}

// generateCSVReport writes the header and every row
func (rg *ReportGenerator) generateCSVReport(table *models.Table, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter

	if err := csvWriter.WriteAll(table.Records()); err != nil {
		return fmt.Errorf("failed to write CSV report: %w", err)
	}
	return nil
}

// generateXLSXReport writes a workbook with one sheet named after the report.
// Numeric cells are stored as numbers so totals stay usable in a spreadsheet.
func (rg *ReportGenerator) generateXLSXReport(result *analyzer.Result, writer io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := result.SheetName
	if sheet == "" {
		sheet = "Report"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name worksheet %q: %w", sheet, err)
	}

	table := result.Table
	if err := setRow(f, sheet, 1, stringCells(table.Columns)); err != nil {
		return err
	}
	for i, row := range table.Rows {
		cells := make([]interface{}, len(table.Columns))
		for j, c := range table.Columns {
			cells[j] = cellValue(row.Get(c))
		}
		if err := setRow(f, sheet, i+2, cells); err != nil {
			return err
		}
	}

	if err := f.Write(writer); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

func stringCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

func cellValue(v models.Value) interface{} {
	switch v.Kind() {
	case models.KindNull:
		return nil
	case models.KindNumber:
		d, _ := v.Decimal()
		f, _ := d.Float64()
		return f
	default:
		return v.String()
	}
}
