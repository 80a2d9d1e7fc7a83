// Package config assembles the application configuration from defaults, an
// optional config file, a .env file and ANALYZER_ environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"growth-analyzer/internal/analyzer"
	"growth-analyzer/internal/api"
	"growth-analyzer/internal/archive"
	"growth-analyzer/internal/notify"
	"growth-analyzer/internal/parsers"
	"growth-analyzer/internal/publisher"
	"growth-analyzer/internal/reporter"
	"growth-analyzer/internal/session"
	"growth-analyzer/pkg/errors"
	"growth-analyzer/pkg/logger"
)

// EnvPrefix is prepended to every environment override
const EnvPrefix = "ANALYZER"

// AnalyzerConfig holds the report settings that can come from a config file
type AnalyzerConfig struct {
	SchemesFile      string `mapstructure:"schemes_file"`
	NPAThresholdDays int    `mapstructure:"npa_threshold_days"`
	MaxFileSize      int64  `mapstructure:"max_file_size"`
	SheetIndex       int    `mapstructure:"sheet_index"`
}

// OutputConfig controls where CLI reports are written
type OutputConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"`
	// Backup writes the CSV backup next to the report when the report has one
	Backup bool `mapstructure:"backup"`
}

// AppConfig is the full application configuration
type AppConfig struct {
	Analyzer AnalyzerConfig        `mapstructure:"analyzer"`
	Output   OutputConfig          `mapstructure:"output"`
	Report   reporter.ReportConfig `mapstructure:"report"`
	Publish  publisher.Config      `mapstructure:"publish"`
	Notify   notify.Config         `mapstructure:"notify"`
	Archive  archive.Config        `mapstructure:"archive"`
	Session  session.Config        `mapstructure:"session"`
	API      api.Config            `mapstructure:"api"`
	Log      logger.Config         `mapstructure:"log"`
}

// Default returns the configuration used when nothing is overridden
func Default() *AppConfig {
	return &AppConfig{
		Analyzer: AnalyzerConfig{
			NPAThresholdDays: analyzer.DefaultNPAThreshold,
			MaxFileSize:      parsers.DefaultReadConfig().MaxFileSize,
		},
		Output: OutputConfig{
			Dir:    ".",
			Format: string(reporter.FormatConsole),
			Backup: true,
		},
		Report:  *reporter.DefaultReportConfig(),
		Publish: *publisher.DefaultConfig(),
		Notify:  *notify.DefaultConfig(),
		Archive: *archive.DefaultConfig(),
		Session: *session.DefaultConfig(),
		API:     *api.DefaultConfig(),
		Log:     *logger.DefaultConfig(),
	}
}

// SetDefaults registers every key with v so environment variables can
// override keys that no config file sets
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("analyzer.schemes_file", d.Analyzer.SchemesFile)
	v.SetDefault("analyzer.npa_threshold_days", d.Analyzer.NPAThresholdDays)
	v.SetDefault("analyzer.max_file_size", d.Analyzer.MaxFileSize)
	v.SetDefault("analyzer.sheet_index", d.Analyzer.SheetIndex)

	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.backup", d.Output.Backup)

	v.SetDefault("report.max_console_rows", d.Report.MaxConsoleRows)

	v.SetDefault("publish.spreadsheet_id", d.Publish.SpreadsheetID)
	v.SetDefault("publish.credentials_file", d.Publish.CredentialsFile)
	v.SetDefault("publish.password", d.Publish.Password)
	v.SetDefault("publish.timeout", d.Publish.Timeout)

	v.SetDefault("notify.url", d.Notify.URL)
	v.SetDefault("notify.exchange", d.Notify.Exchange)

	v.SetDefault("archive.bucket", d.Archive.Bucket)
	v.SetDefault("archive.region", d.Archive.Region)
	v.SetDefault("archive.prefix", d.Archive.Prefix)

	v.SetDefault("session.ttl", d.Session.TTL)
	v.SetDefault("session.sweep_schedule", d.Session.SweepSchedule)
	v.SetDefault("session.time_zone", d.Session.TimeZone)

	v.SetDefault("api.addr", d.API.Addr)
	v.SetDefault("api.max_upload_bytes", d.API.MaxUploadBytes)
	v.SetDefault("api.read_timeout", d.API.ReadTimeout)
	v.SetDefault("api.write_timeout", d.API.WriteTimeout)
	v.SetDefault("api.shutdown_timeout", d.API.ShutdownTimeout)

	v.SetDefault("log.level", string(d.Log.Level))
	v.SetDefault("log.format", string(d.Log.Format))
	v.SetDefault("log.output", string(d.Log.Output))
	v.SetDefault("log.file", d.Log.File)
}

// BindEnv makes ANALYZER_PUBLISH_PASSWORD override publish.password and so on
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// LoadDotEnv loads the .env files that exist. Variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return errors.ConfigurationError(errors.CodeInvalidConfig, "dotenv", file, err)
		}
	}
	return nil
}

// Load decodes v into an AppConfig and validates it
func Load(v *viper.Viper) (*AppConfig, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "config", v.ConfigFileUsed(), err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the sections every command relies on. Publish, notify and
// archive are checked when they are used.
func (c *AppConfig) Validate() error {
	if c.Analyzer.NPAThresholdDays < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "analyzer.npa_threshold_days", c.Analyzer.NPAThresholdDays, nil)
	}
	if c.Analyzer.SheetIndex < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "analyzer.sheet_index", c.Analyzer.SheetIndex, nil)
	}
	if _, err := reporter.ParseOutputFormat(c.Output.Format); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "output.format", c.Output.Format, err)
	}
	if err := c.Report.Validate(); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "report", c.Report, err)
	}
	if err := c.Session.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "log", c.Log, err)
	}
	return nil
}

// AnalyzerServiceConfig builds the analyzer service configuration
func (c *AppConfig) AnalyzerServiceConfig() *analyzer.Config {
	cfg := analyzer.DefaultConfig()
	cfg.SchemesFile = c.Analyzer.SchemesFile
	cfg.NPAThresholdDays = c.Analyzer.NPAThresholdDays
	cfg.Read = &parsers.ReadConfig{
		MaxFileSize: c.Analyzer.MaxFileSize,
		SheetIndex:  c.Analyzer.SheetIndex,
	}
	return cfg
}

// ReportConfig returns the report configuration for format
func (c *AppConfig) ReportConfig(format reporter.OutputFormat) *reporter.ReportConfig {
	cfg := c.Report
	cfg.Format = format
	return &cfg
}

// LoggerConfig applies the verbose flag over the log section
func (c *AppConfig) LoggerConfig(verbose bool) *logger.Config {
	cfg := c.Log
	if verbose {
		cfg.Level = logger.DebugLevel
		cfg.CallerInfo = true
	}
	return &cfg
}

// String renders the configuration with secrets masked
func (c *AppConfig) String() string {
	masked := *c
	masked.Publish.Password = mask(c.Publish.Password)
	masked.Notify.URL = mask(c.Notify.URL)
	return fmt.Sprintf("%+v", masked)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "****"
}
