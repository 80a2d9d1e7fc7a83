package cmd

import (
	"github.com/spf13/cobra"

	"growth-analyzer/pkg/logger"
)

// Flags for the pending command
var (
	pendingFile            string
	pendingCustomerProfile bool
	pendingOutput          outputOptions
)

// pendingCmd represents the pending command
var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Summarize overdue special loans per branch",
	Long: `Pending counts the loans of the allow-listed special schemes per branch
and how many of them are overdue (more than 30 days past due), with the
pending principal, pending interest and pending percentage.

With --customer-profile the overdue loans are listed per customer instead.

Examples:
  analyzer pending --file pending.xls
  analyzer pending --file pending.xlsx --customer-profile --output-format csv
  analyzer pending --file pending.csv --publish --password "$ADMIN_PASSWORD"`,

	PreRunE: func(_ *cobra.Command, _ []string) error {
		return validateFileExists(pendingFile, "pending extract")
	},
	RunE: runPending,
}

func init() {
	rootCmd.AddCommand(pendingCmd)

	pendingCmd.Flags().StringVar(&pendingFile, "file", "", "pending extract: csv, tsv, xls or xlsx (required)")
	pendingCmd.Flags().BoolVar(&pendingCustomerProfile, "customer-profile", false, "list overdue customers instead of the branch summary")
	addOutputFlags(pendingCmd, &pendingOutput)

	pendingCmd.MarkFlagRequired("file")
}

func runPending(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	svc, err := newAnalyzer()
	if err != nil {
		return err
	}

	logger.WithComponent("cli").WithFields(logger.Fields{
		"file":             pendingFile,
		"customer_profile": pendingCustomerProfile,
	}).Debug("Starting pending report")

	table, err := svc.LoadFile(pendingFile)
	if err != nil {
		return err
	}

	result, err := svc.Pending(ctx, table, pendingCustomerProfile)
	if err != nil {
		return err
	}

	return emit(ctx, cmd, &pendingOutput, result)
}
