package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"growth-analyzer/cmd/analyzer/config"
	"growth-analyzer/pkg/errors"
	"growth-analyzer/pkg/logger"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"

	// appConfig is loaded before any subcommand runs
	appConfig *config.AppConfig
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "analyzer",
	Short: "Loan portfolio reporting tool",
	Long: `Analyzer builds the branch and staff reports for the gold loan and
subordinated debt portfolios from core-banking extracts (csv, tsv, xls, xlsx).

Reports:
  growth    compare two extracts and compute the growth of outstanding principal
  pending   summarize overdue special loans per branch
  maturity  list matured loans and count them per branch
  npa       list matured loans past the NPA threshold

Examples:
  analyzer growth --product gold --mode branch --old feb.xlsx --new mar.xlsx
  analyzer pending --file pending.xls --output-format xlsx --output-dir out
  analyzer maturity --file loans.xlsx --current-date 01-06-2024 --as-on 31-05-2024
  analyzer serve --addr :8080

Configuration is read from --config, a .env file and ANALYZER_ environment
variables (for example ANALYZER_PUBLISH_PASSWORD).`,
	Version:           getVersionString(),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

// Execute runs the root command until it finishes or the process is
// interrupted, and returns the process exit code
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return NewCLIErrorHandler().HandleError(err)
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text, json")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads .env, the config file and the environment, then sets up
// the global logger
func initConfig(_ *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	v := viper.GetViper()
	config.SetDefaults(v)
	config.BindEnv(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.ConfigurationError(errors.CodeInvalidConfig, "config", cfgFile, err)
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	log, err := logger.NewLogger(cfg.LoggerConfig(v.GetBool("verbose")))
	if err != nil {
		return err
	}
	logger.SetGlobalLogger(log)

	if v.GetBool("verbose") {
		log.WithField("config_file", v.ConfigFileUsed()).Debugf("Configuration: %s", cfg)
	}

	appConfig = cfg
	return nil
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
