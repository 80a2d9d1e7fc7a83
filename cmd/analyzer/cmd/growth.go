package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"growth-analyzer/internal/analyzer"
	"growth-analyzer/pkg/errors"
	"growth-analyzer/pkg/logger"
)

// Flags for the growth command
var (
	growthProduct         string
	growthMode            string
	growthOldFile         string
	growthNewFile         string
	growthIncludeBranches bool
	growthOutput          outputOptions
)

// growthCmd represents the growth command
var growthCmd = &cobra.Command{
	Use:   "growth",
	Short: "Compare two extracts and report the principal growth",
	Long: `Growth aggregates the outstanding principal of an older and a newer
extract per branch or per staff member and reports the difference.

Excluded schemes are dropped from both extracts before aggregation. Groups
present in only one extract are left out of the report.

Examples:
  # Branch-wise gold loan growth
  analyzer growth --product gold --mode branch --old feb.xlsx --new mar.xlsx

  # Staff-wise subdebt growth with the branch of each staff member
  analyzer growth --product subdebt --mode staff --old feb.xls --new mar.xls \
    --include-branches

  # Save as xlsx and publish to the remote spreadsheet
  analyzer growth --product gold --mode staff --old feb.csv --new mar.csv \
    --output-format xlsx --output-dir reports --publish --password "$ADMIN_PASSWORD"`,

	PreRunE: validateGrowthFlags,
	RunE:    runGrowth,
}

func init() {
	rootCmd.AddCommand(growthCmd)

	growthCmd.Flags().StringVarP(&growthProduct, "product", "p", "", "product: gold or subdebt (required)")
	growthCmd.Flags().StringVarP(&growthMode, "mode", "m", "", "grouping: branch or staff (required)")
	growthCmd.Flags().StringVar(&growthOldFile, "old", "", "older extract: csv, tsv, xls or xlsx (required)")
	growthCmd.Flags().StringVar(&growthNewFile, "new", "", "newer extract: csv, tsv, xls or xlsx (required)")
	growthCmd.Flags().BoolVar(&growthIncludeBranches, "include-branches", false, "staff-wise subdebt only: group by staff and branch")
	addOutputFlags(growthCmd, &growthOutput)

	growthCmd.MarkFlagRequired("product")
	growthCmd.MarkFlagRequired("mode")
	growthCmd.MarkFlagRequired("old")
	growthCmd.MarkFlagRequired("new")
}

func validateGrowthFlags(_ *cobra.Command, _ []string) error {
	if _, err := growthRequest(); err != nil {
		return err
	}
	if err := validateFileExists(growthOldFile, "old extract"); err != nil {
		return err
	}
	return validateFileExists(growthNewFile, "new extract")
}

func growthRequest() (analyzer.GrowthRequest, error) {
	return analyzer.GrowthRequest{
		Product:         analyzer.Product(growthProduct),
		Mode:            analyzer.Mode(growthMode),
		IncludeBranches: growthIncludeBranches,
	}.Normalize()
}

func runGrowth(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := logger.WithComponent("cli")

	req, err := growthRequest()
	if err != nil {
		return err
	}

	svc, err := newAnalyzer()
	if err != nil {
		return err
	}

	log.WithFields(logger.Fields{
		"report": req.String(),
		"old":    growthOldFile,
		"new":    growthNewFile,
	}).Debug("Starting growth report")

	oldTable, err := svc.LoadFile(growthOldFile)
	if err != nil {
		return err
	}
	newTable, err := svc.LoadFile(growthNewFile)
	if err != nil {
		return err
	}

	result, err := svc.Growth(ctx, oldTable, newTable, req)
	if err != nil {
		return err
	}

	return emit(ctx, cmd, &growthOutput, result)
}

// validateFileExists checks that path names a readable regular file
func validateFileExists(path, description string) error {
	if path == "" {
		return errors.ValidationError(errors.CodeInvalidOption, description, "", nil).
			WithSuggestion(fmt.Sprintf("Pass the path of the %s", description))
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.FileError(errors.CodeFileNotFound, path, err)
		}
		return errors.FileError(errors.CodeFilePermission, path, err)
	}
	if info.IsDir() {
		return errors.FileError(errors.CodeUnsupportedFormat, path, fmt.Errorf("%s is a directory, expected a file", description))
	}

	file, err := os.Open(path)
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, path, err)
	}
	return file.Close()
}
