package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"growth-analyzer/internal/analyzer"
	"growth-analyzer/internal/notify"
	"growth-analyzer/internal/publisher"
	"growth-analyzer/internal/reporter"
	"growth-analyzer/pkg/errors"
	"growth-analyzer/pkg/logger"
)

// outputOptions are the flags every report command shares
type outputOptions struct {
	dir      string
	format   string
	noBackup bool
	publish  bool
	password string
}

func addOutputFlags(c *cobra.Command, opts *outputOptions) {
	c.Flags().StringVarP(&opts.dir, "output-dir", "o", "", "directory for saved reports (default from config: output.dir)")
	c.Flags().StringVarP(&opts.format, "output-format", "f", "", "output format: console, json, csv, xlsx (default from config: output.format)")
	c.Flags().BoolVar(&opts.noBackup, "no-backup", false, "do not write the CSV backup")
	c.Flags().BoolVar(&opts.publish, "publish", false, "publish the report to the remote spreadsheet")
	c.Flags().StringVar(&opts.password, "password", "", "admin password required to publish")
}

// resolve fills unset flags from the loaded configuration
func (o *outputOptions) resolve() (reporter.OutputFormat, error) {
	if o.dir == "" {
		o.dir = appConfig.Output.Dir
	}
	if o.format == "" {
		o.format = appConfig.Output.Format
	}
	if !appConfig.Output.Backup {
		o.noBackup = true
	}
	if o.publish && o.password == "" {
		return "", errors.ValidationError(errors.CodeInvalidOption, "password", "", nil).
			WithSuggestion("Pass --password to publish")
	}
	return reporter.ParseOutputFormat(o.format)
}

func newAnalyzer() (*analyzer.Service, error) {
	return analyzer.NewService(appConfig.AnalyzerServiceConfig())
}

// emit renders or saves every result, writes the backup of the primary
// result and publishes it when asked
func emit(ctx context.Context, cmd *cobra.Command, opts *outputOptions, results ...*analyzer.Result) error {
	format, err := opts.resolve()
	if err != nil {
		return err
	}

	reports, err := reporter.NewSafeReportGenerator(appConfig.ReportConfig(format), nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, result := range results {
		if format == reporter.FormatConsole {
			if err := reports.GenerateReportSafely(result, format, out); err != nil {
				return err
			}
			fmt.Fprintln(out)
			continue
		}

		path, err := reports.SaveReport(result, format, opts.dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved %s (%d rows)\n", path, result.Table.Len())
	}

	primary := results[0]
	if !opts.noBackup {
		path, err := reports.SaveBackup(primary, opts.dir)
		if err != nil {
			return err
		}
		if path != "" {
			fmt.Fprintf(out, "Backup saved to %s\n", path)
		}
	}

	if opts.publish {
		event, err := publish(ctx, primary, opts.password)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Published %d rows to tab %s at %s\n",
			event.Rows, event.Tab, event.PublishedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// publish writes result to its remote tab and announces it on the broker
// when one is configured
func publish(ctx context.Context, result *analyzer.Result, password string) (*publisher.Event, error) {
	p, closeFn, err := newPublisher(ctx)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	return p.Publish(ctx, result.Table, result.Tab, password)
}

// newPublisher builds the spreadsheet publisher with its optional notifier
func newPublisher(ctx context.Context) (*publisher.Publisher, func(), error) {
	cfg := appConfig.Publish
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	client, err := publisher.NewGoogleSheets(ctx, &cfg)
	if err != nil {
		return nil, nil, err
	}

	var opts []publisher.Option
	closeFn := func() {}
	if appConfig.Notify.Enabled() {
		n, err := notify.Dial(&appConfig.Notify)
		if err != nil {
			// a broker outage must not block publishing
			logger.WithError(err).Warn("Publish notifications disabled")
		} else {
			opts = append(opts, publisher.WithNotifier(n))
			closeFn = func() {
				if err := n.Close(); err != nil {
					logger.WithError(err).Warn("Failed to close notifier")
				}
			}
		}
	}

	return publisher.New(client, &cfg, opts...), closeFn, nil
}
