package cmd

import (
	"github.com/spf13/cobra"

	"growth-analyzer/internal/analyzer"
	"growth-analyzer/internal/models"
	"growth-analyzer/pkg/errors"
	"growth-analyzer/pkg/logger"
)

// maturityFlags are shared by the maturity and npa commands
type maturityFlags struct {
	file        string
	currentDate string
	asOnDate    string
	threshold   int
	output      outputOptions
}

var (
	maturityArgs maturityFlags
	npaArgs      maturityFlags
)

// maturityCmd represents the maturity command
var maturityCmd = &cobra.Command{
	Use:   "maturity",
	Short: "List matured loans and count them per branch",
	Long: `Maturity computes each loan's maturity date from its sanction date and
tenure (or the recorded maturity date for the business gold schemes) and lists
the loans that matured on or before the as-on date, with the days from
maturity to the current date.

Two reports are produced: the loan list and the per-branch count.

Examples:
  analyzer maturity --file loans.xlsx --current-date 01-06-2024 --as-on 31-05-2024
  analyzer maturity --file loans.csv --current-date 01-06-2024 --as-on 31-05-2024 \
    --output-format xlsx --output-dir reports`,

	PreRunE: func(_ *cobra.Command, _ []string) error {
		_, err := maturityArgs.options()
		return err
	},
	RunE: runMaturity,
}

// npaCmd represents the npa command
var npaCmd = &cobra.Command{
	Use:   "npa",
	Short: "List matured loans past the NPA threshold",
	Long: `NPA runs the maturity derivation and keeps the matured loans whose days
from maturity to the current date exceed the threshold (90 days by default).

Examples:
  analyzer npa --file loans.xlsx --current-date 01-06-2024 --as-on 31-05-2024
  analyzer npa --file loans.xlsx --current-date 01-06-2024 --as-on 31-05-2024 \
    --threshold 180 --publish --password "$ADMIN_PASSWORD"`,

	PreRunE: func(_ *cobra.Command, _ []string) error {
		_, err := npaArgs.options()
		return err
	},
	RunE: runNPA,
}

func init() {
	rootCmd.AddCommand(maturityCmd)
	rootCmd.AddCommand(npaCmd)

	addMaturityFlags(maturityCmd, &maturityArgs)
	addMaturityFlags(npaCmd, &npaArgs)
}

func addMaturityFlags(c *cobra.Command, f *maturityFlags) {
	c.Flags().StringVar(&f.file, "file", "", "loan extract: csv, tsv, xls or xlsx (required)")
	c.Flags().StringVar(&f.currentDate, "current-date", "", "current date, DD-MM-YYYY (required)")
	c.Flags().StringVar(&f.asOnDate, "as-on", "", "as-on date, DD-MM-YYYY (required)")
	c.Flags().IntVar(&f.threshold, "threshold", 0, "NPA threshold in days past maturity (default from config: analyzer.npa_threshold_days)")
	addOutputFlags(c, &f.output)

	c.MarkFlagRequired("file")
	c.MarkFlagRequired("current-date")
	c.MarkFlagRequired("as-on")
}

// options parses the dates and checks the extract exists
func (f *maturityFlags) options() (analyzer.MaturityOptions, error) {
	var opts analyzer.MaturityOptions

	current, ok := models.ParseDate(f.currentDate)
	if !ok {
		return opts, errors.ValidationError(errors.CodeInvalidDate, "current-date", f.currentDate, nil)
	}
	asOn, ok := models.ParseDate(f.asOnDate)
	if !ok {
		return opts, errors.ValidationError(errors.CodeInvalidDate, "as-on", f.asOnDate, nil)
	}
	if f.threshold < 0 {
		return opts, errors.ValidationError(errors.CodeInvalidOption, "threshold", f.threshold, nil)
	}

	opts = analyzer.MaturityOptions{
		CurrentDate:      current,
		AsOnDate:         asOn,
		NPAThresholdDays: f.threshold,
	}
	if err := validateFileExists(f.file, "loan extract"); err != nil {
		return opts, err
	}
	return opts, nil
}

func runMaturity(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	opts, err := maturityArgs.options()
	if err != nil {
		return err
	}
	svc, err := newAnalyzer()
	if err != nil {
		return err
	}

	logger.WithComponent("cli").WithFields(logger.Fields{
		"file":         maturityArgs.file,
		"current_date": opts.CurrentDate.Format(models.DisplayDateLayout),
		"as_on_date":   opts.AsOnDate.Format(models.DisplayDateLayout),
	}).Debug("Starting maturity report")

	table, err := svc.LoadFile(maturityArgs.file)
	if err != nil {
		return err
	}

	run, err := svc.Maturity(ctx, table, opts)
	if err != nil {
		return err
	}

	return emit(ctx, cmd, &maturityArgs.output, run.Results()...)
}

func runNPA(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	opts, err := npaArgs.options()
	if err != nil {
		return err
	}
	svc, err := newAnalyzer()
	if err != nil {
		return err
	}

	logger.WithComponent("cli").WithFields(logger.Fields{
		"file":      npaArgs.file,
		"threshold": opts.NPAThresholdDays,
	}).Debug("Starting NPA report")

	table, err := svc.LoadFile(npaArgs.file)
	if err != nil {
		return err
	}

	result, err := svc.NPA(ctx, table, opts)
	if err != nil {
		return err
	}

	return emit(ctx, cmd, &npaArgs.output, result)
}
