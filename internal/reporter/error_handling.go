package reporter

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"growth-analyzer/internal/analyzer"
	"growth-analyzer/pkg/errors"
	"growth-analyzer/pkg/logger"
)

// SafeReportGenerator wraps ReportGenerator with logging, categorized errors
// and all-or-nothing file output
type SafeReportGenerator struct {
	*ReportGenerator
	logger logger.Logger
}

// NewSafeReportGenerator creates a new safe report generator with error handling
func NewSafeReportGenerator(config *ReportConfig, log logger.Logger) (*SafeReportGenerator, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	generator, err := NewReportGenerator(config)
	if err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"report_config",
			config,
			err,
		).WithSuggestion("Check the report configuration values")
	}

	return &SafeReportGenerator{
		ReportGenerator: generator,
		logger:          log.WithComponent("reporter"),
	}, nil
}

// GenerateReportSafely renders the result to writer. The report is rendered
// into memory first so a failure never leaves half a report on the writer.
func (srg *SafeReportGenerator) GenerateReportSafely(result *analyzer.Result, format OutputFormat, writer io.Writer) error {
	if err := srg.validateInputs(result, writer); err != nil {
		srg.logger.WithError(err).Error("Report generation failed: input validation")
		return err
	}

	log := srg.logger.WithFields(logger.Fields{
		"format": format,
		"report": result.Kind,
		"rows":   result.Table.Len(),
		"output": getWriterDescription(writer),
	})
	log.Debug("Starting report generation")

	var buf bytes.Buffer
	if err := srg.Write(result, format, &buf); err != nil {
		log.WithError(err).Error("Report generation failed")
		return srg.wrapGenerationError(err)
	}

	if _, err := buf.WriteTo(writer); err != nil {
		log.WithError(err).Error("Failed to write report")
		return srg.wrapGenerationError(err)
	}

	log.Debug("Report generation completed")
	return nil
}

// SaveReport writes the result to dir in format and returns the file path.
// xlsx and csv use the result's download and backup names. The file is
// written under a temporary name and renamed into place, so a failed save
// leaves no partial file behind.
func (srg *SafeReportGenerator) SaveReport(result *analyzer.Result, format OutputFormat, dir string) (string, error) {
	if err := srg.validateInputs(result, io.Discard); err != nil {
		return "", err
	}
	if format == FormatConsole {
		return "", errors.ValidationError(errors.CodeInvalidOption, "output_format", format, nil).
			WithSuggestion("Save reports as json, csv or xlsx")
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.FileError(errors.CodeFilePermission, dir, err)
	}

	path := filepath.Join(dir, ReportFileName(result, format))
	log := srg.logger.WithFields(logger.Fields{
		"report": result.Kind,
		"format": format,
		"path":   path,
	})

	tmp, err := os.CreateTemp(dir, ".report-*")
	if err != nil {
		log.WithError(err).Error("Failed to create report file")
		return "", errors.FileError(errors.CodeFilePermission, path, err)
	}
	defer os.Remove(tmp.Name())

	if err := srg.Write(result, format, tmp); err != nil {
		tmp.Close()
		log.WithError(err).Error("Failed to render report file")
		return "", srg.wrapGenerationError(err)
	}
	if err := tmp.Close(); err != nil {
		return "", srg.wrapGenerationError(err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		log.WithError(err).Error("Failed to move report into place")
		return "", errors.FileError(errors.CodeFilePermission, path, err)
	}

	log.Info("Report saved")
	return path, nil
}

// SaveBackup writes the CSV backup of results that keep one. It returns an
// empty path for results without a backup name.
func (srg *SafeReportGenerator) SaveBackup(result *analyzer.Result, dir string) (string, error) {
	if result == nil || result.BackupName == "" {
		return "", nil
	}
	return srg.SaveReport(result, FormatCSV, dir)
}

// ReportFileName returns the name a result is saved under in format
func ReportFileName(result *analyzer.Result, format OutputFormat) string {
	switch format {
	case FormatXLSX:
		return result.FileName
	case FormatCSV:
		return result.CSVName()
	default:
		base := result.FileName
		return base[:len(base)-len(filepath.Ext(base))] + format.Extension()
	}
}

// validateInputs validates the inputs for report generation
func (srg *SafeReportGenerator) validateInputs(result *analyzer.Result, writer io.Writer) error {
	if result == nil || result.Table == nil {
		return errors.StateError(errors.CodeNoResult, "report").
			WithSuggestion("Run a report before exporting it")
	}

	if writer == nil {
		return errors.ValidationError(
			errors.CodeInvalidOption,
			"writer",
			nil,
			nil,
		).WithSuggestion("Provide a valid output writer")
	}

	return nil
}

// wrapGenerationError wraps generation errors with context
func (srg *SafeReportGenerator) wrapGenerationError(err error) error {
	if analyzerErr, ok := errors.AsAnalyzerError(err); ok {
		return analyzerErr
	}

	return errors.InternalError(
		errors.CodeUnexpectedError,
		"report_generation",
		err,
	).WithSuggestion("Check the output destination and report format settings")
}

func getWriterDescription(writer io.Writer) string {
	switch w := writer.(type) {
	case *os.File:
		if w.Name() != "" {
			return fmt.Sprintf("file:%s", w.Name())
		}
		return "file:unnamed"
	default:
		return fmt.Sprintf("writer:%T", writer)
	}
}
