package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"growth-analyzer/internal/api"
	"growth-analyzer/internal/archive"
	"growth-analyzer/internal/reporter"
	"growth-analyzer/internal/session"
	"growth-analyzer/pkg/logger"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the reports over HTTP",
	Long: `Serve starts the HTTP API. Operators create a session, upload extracts to
a report route and download or publish the result.

Publishing is enabled when publish.spreadsheet_id is configured. Uploaded
extracts are archived to S3 when archive.bucket is configured.

Examples:
  analyzer serve
  analyzer serve --addr :9090 --config analyzer.yaml`,

	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default from config: api.addr)")
	viper.BindPFlag("api.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := logger.WithComponent("serve")

	svc, err := newAnalyzer()
	if err != nil {
		return err
	}

	sessions, err := session.NewStore(&appConfig.Session)
	if err != nil {
		return err
	}
	if err := sessions.Start(); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), appConfig.API.ShutdownTimeout)
		defer cancel()
		sessions.Stop(stopCtx)
	}()

	reports, err := reporter.NewSafeReportGenerator(appConfig.ReportConfig(reporter.FormatXLSX), nil)
	if err != nil {
		return err
	}

	var opts []api.Option
	if appConfig.Publish.Enabled() {
		p, closeFn, err := newPublisher(ctx)
		if err != nil {
			return err
		}
		defer closeFn()
		opts = append(opts, api.WithPublisher(p))
	} else {
		log.Info("Publishing disabled: no spreadsheet configured")
	}

	if appConfig.Archive.Enabled() {
		a, err := archive.NewS3(ctx, &appConfig.Archive)
		if err != nil {
			return err
		}
		opts = append(opts, api.WithArchiver(a))
		log.WithField("bucket", appConfig.Archive.Bucket).Info("Archiving uploads")
	}

	server := api.New(&appConfig.API, svc, sessions, reports, opts...)
	return server.ListenAndServe(ctx)
}
