// Package parsers loads loan-portfolio extracts into in-memory tables.
//
// The input format is chosen from the file extension:
//   - .xlsx: first worksheet, read with excelize
//   - .xls: first worksheet of a legacy BIFF workbook
//   - .csv: comma-separated text
//   - .tsv: tab-separated text
//
// The first row is the header. Blank rows are skipped and short rows are
// padded with nulls. Any other extension is rejected before the content is
// touched.
//
// Example usage:
//
//	reader := NewReader(nil)
//	table, err := reader.ReadFile("gold_march.xlsx")
package parsers

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"growth-analyzer/internal/models"
	"growth-analyzer/pkg/errors"
	"growth-analyzer/pkg/logger"
)

// Format identifies a supported input file format
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
)

// FormatFromName resolves the format from a file name's extension
func FormatFromName(name string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return FormatXLSX, true
	case ".xls":
		return FormatXLS, true
	case ".csv":
		return FormatCSV, true
	case ".tsv":
		return FormatTSV, true
	default:
		return "", false
	}
}

// ReadConfig holds configuration for reading input files
type ReadConfig struct {
	// MaxFileSize rejects larger inputs; 0 means unlimited
	MaxFileSize int64
	// SheetIndex selects the worksheet of a workbook
	SheetIndex int
}

// DefaultReadConfig returns a configuration with sensible defaults
func DefaultReadConfig() *ReadConfig {
	return &ReadConfig{
		MaxFileSize: 64 << 20,
		SheetIndex:  0,
	}
}

// Reader turns uploaded or local files into tables
type Reader struct {
	config *ReadConfig
	logger logger.Logger
}

// NewReader creates a new Reader with the given configuration
func NewReader(config *ReadConfig) *Reader {
	if config == nil {
		config = DefaultReadConfig()
	}

	return &Reader{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("reader"),
	}
}

// ReadFile reads the file at path
func (r *Reader) ReadFile(path string) (*models.Table, error) {
	if _, ok := FormatFromName(path); !ok {
		return nil, errors.FileError(errors.CodeUnsupportedFormat, path, nil)
	}

	file, err := os.Open(path)
	if err != nil {
		r.logger.WithError(err).WithField("file_path", path).Error("Failed to open input file")

		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, path, err)
		}
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	defer file.Close()

	return r.Read(file, path)
}

// Read reads content from src, using name only to pick the format and to
// label errors
func (r *Reader) Read(src io.Reader, name string) (*models.Table, error) {
	format, ok := FormatFromName(name)
	if !ok {
		r.logger.WithField("file_name", name).Warn("Rejected unsupported file format")
		return nil, errors.FileError(errors.CodeUnsupportedFormat, name, nil)
	}

	data, err := r.readAll(src, name)
	if err != nil {
		return nil, err
	}

	log := r.logger.WithFields(logger.Fields{
		"file_name": name,
		"format":    format,
		"bytes":     len(data),
	})
	log.Debug("Reading input file")

	var records [][]string
	switch format {
	case FormatXLSX:
		records, err = r.readXLSX(data, name)
	case FormatXLS:
		records, err = r.readXLS(data, name)
	case FormatCSV:
		records, err = r.readDelimited(data, name, ',')
	case FormatTSV:
		records, err = r.readDelimited(data, name, '\t')
	}
	if err != nil {
		log.WithError(err).Error("Failed to read input file")
		return nil, err
	}

	table, err := buildTable(records, name)
	if err != nil {
		return nil, err
	}

	log.WithFields(logger.Fields{
		"columns": len(table.Columns),
		"rows":    table.Len(),
	}).Info("Loaded input file")

	return table, nil
}

func (r *Reader) readAll(src io.Reader, name string) ([]byte, error) {
	if r.config.MaxFileSize > 0 {
		src = io.LimitReader(src, r.config.MaxFileSize+1)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(src); err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, name, err)
	}

	if r.config.MaxFileSize > 0 && int64(buf.Len()) > r.config.MaxFileSize {
		return nil, errors.ValidationError(
			errors.CodeInvalidOption,
			"file_size",
			fmt.Sprintf("%s exceeds %d bytes", name, r.config.MaxFileSize),
			nil,
		).WithSuggestion("split the extract into smaller files")
	}

	return buf.Bytes(), nil
}

// buildTable turns raw records into a table. The first non-blank record is the header.
func buildTable(records [][]string, name string) (*models.Table, error) {
	start := 0
	for start < len(records) && isBlankRecord(records[start]) {
		start++
	}
	if start == len(records) {
		return nil, errors.ValidationError(errors.CodeEmptyFile, name, "empty", nil)
	}

	headers := cleanHeaders(records[start])
	table := models.NewTable(headers...)

	for _, record := range records[start+1:] {
		if isBlankRecord(record) {
			continue
		}

		row := make(models.Row, len(headers))
		for i, header := range headers {
			if i < len(record) {
				row[header] = models.Text(record[i])
			} else {
				row[header] = models.Null()
			}
		}
		table.AddRow(row)
	}

	return table, nil
}

// cleanHeaders trims header names, labels blank ones by position and
// suffixes repeats so every column stays addressable
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	seen := make(map[string]int, len(headers))
	for i, header := range headers {
		name := strings.TrimSpace(header)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		cleaned[i] = name
	}
	return cleaned
}

// isBlankRecord checks if all fields in a record are empty or whitespace
func isBlankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
