package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/viper"

	"growth-analyzer/pkg/errors"
	"growth-analyzer/pkg/logger"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
	out     io.Writer
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
		out:     os.Stderr,
	}
}

// HandleError prints err and returns the exit code for it
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	if analyzerErr, ok := errors.AsAnalyzerError(err); ok {
		if analyzerErr.IsWarning() {
			h.logger.WithError(err).Warn("Command stopped")
		} else {
			h.logger.WithError(err).Error("Command failed")
		}
		return h.handleAnalyzerError(analyzerErr)
	}

	h.logger.WithError(err).Error("Command failed")
	return h.handleGenericError(err)
}

// handleAnalyzerError prints the message, context and suggestion
func (h *CLIErrorHandler) handleAnalyzerError(err *errors.AnalyzerError) int {
	label := "Error"
	if err.IsWarning() {
		label = "Warning"
	}
	fmt.Fprintf(h.out, "%s: %s\n", label, err.Message)

	if gaps := errors.MissingColumns(err); len(gaps) > 0 {
		fmt.Fprintf(h.out, "\nMissing columns:\n")
		for _, gap := range gaps {
			fmt.Fprintf(h.out, "  %s: %s\n", gap.Input, strings.Join(gap.Columns, ", "))
		}
	} else if len(err.Context) > 0 {
		fmt.Fprintf(h.out, "\nContext:\n")
		keys := make([]string, 0, len(err.Context))
		for key := range err.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(h.out, "  %s: %v\n", key, err.Context[key])
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(h.out, "\nSuggestion: %s\n", err.Suggestion)
	}

	if help := h.getCategoryHelp(err.Category); help != "" {
		fmt.Fprintf(h.out, "\n%s\n", help)
	}

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(h.out, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

// handleGenericError handles errors that carry no category
func (h *CLIErrorHandler) handleGenericError(err error) int {
	if h.isFileNotFoundError(err) {
		fmt.Fprintf(h.out, "Error: File not found\n")
		fmt.Fprintf(h.out, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	}

	if h.isPermissionError(err) {
		fmt.Fprintf(h.out, "Error: Permission denied\n")
		fmt.Fprintf(h.out, "Suggestion: Check file permissions and ensure you have read access\n")
		return 2
	}

	if h.isDiskFullError(err) {
		fmt.Fprintf(h.out, "Error: Insufficient disk space\n")
		fmt.Fprintf(h.out, "Suggestion: Free up disk space and try again\n")
		return 2
	}

	fmt.Fprintf(h.out, "Error: %v\n", err)
	return 1
}

// getCategoryHelp returns category-specific help text
func (h *CLIErrorHandler) getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryFile:
		return `File error help:
• Reports read .csv, .tsv, .xls and .xlsx extracts
• Check the file path and that the file is readable
• Re-export the extract if the workbook does not open`

	case errors.CategoryParse:
		return `Parse error help:
• Check that the first row holds the column headers
• Save CSV files as UTF-8 or Windows-1252
• Remove merged title rows above the header`

	case errors.CategoryValidation:
		return `Validation error help:
• Column names are matched after trimming and upper-casing
• Dates are day-first: DD-MM-YYYY
• Use 'analyzer <report> --help' for the expected options`

	case errors.CategoryState:
		return `Run the reports in order: maturity before NPA`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Settings come from --config, .env and ANALYZER_ environment variables
• Secrets such as ANALYZER_PUBLISH_PASSWORD are never built in`

	case errors.CategoryPublish:
		return `Publish error help:
• Check the spreadsheet id and that the service account can edit it
• The report was not written to the remote sheet; retry once reachable`

	default:
		return ""
	}
}

// Error detection helpers

func (h *CLIErrorHandler) isFileNotFoundError(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "no such file or directory")
}

func (h *CLIErrorHandler) isPermissionError(err error) bool {
	return os.IsPermission(err) || strings.Contains(err.Error(), "permission denied")
}

func (h *CLIErrorHandler) isDiskFullError(err error) bool {
	if errors.Is(err, syscall.ENOSPC) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "no space left") ||
		strings.Contains(errStr, "disk full")
}
