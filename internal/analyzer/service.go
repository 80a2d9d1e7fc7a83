// Package analyzer computes the portfolio reports.
//
// Each report follows the same path: the extract is loaded into a table,
// excluded schemes are dropped, and one of the report paths runs:
//   - growth: aggregate old and new extracts and compare them
//   - pending: summarize overdue loans per branch, or list them
//   - maturity: derive each loan's maturity and select the matured ones
//   - npa: select matured loans far enough past maturity
//
// Example usage:
//
//	svc, err := analyzer.NewService(analyzer.DefaultConfig())
//	oldTable, _ := svc.LoadFile("gold_feb.xlsx")
//	newTable, _ := svc.LoadFile("gold_mar.xlsx")
//	result, err := svc.Growth(ctx, oldTable, newTable, analyzer.GrowthRequest{
//		Product: analyzer.ProductGold,
//		Mode:    analyzer.ModeBranch,
//	})
package analyzer

import (
	"context"
	"io"
	"time"

	"growth-analyzer/internal/models"
	"growth-analyzer/internal/parsers"
	"growth-analyzer/pkg/errors"
	"growth-analyzer/pkg/logger"
)

// Config holds configuration options for the analyzer service
type Config struct {
	// SchemesFile replaces the built-in scheme catalog when set
	SchemesFile string
	// NPAThresholdDays is used when a request does not set its own
	NPAThresholdDays int
	Read             *parsers.ReadConfig
	// Now stamps results; tests pin it
	Now func() time.Time
}

// DefaultConfig returns a default configuration for the analyzer service
func DefaultConfig() *Config {
	return &Config{
		NPAThresholdDays: DefaultNPAThreshold,
		Read:             parsers.DefaultReadConfig(),
		Now:              time.Now,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.NPAThresholdDays < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "npa_threshold_days", c.NPAThresholdDays, nil)
	}
	return nil
}

// Service runs the reports
type Service struct {
	reader *parsers.Reader
	filter *SchemeFilter
	config *Config
	logger logger.Logger
}

// NewService creates a new analyzer service
func NewService(config *Config) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.NPAThresholdDays == 0 {
		config.NPAThresholdDays = DefaultNPAThreshold
	}

	log := logger.GetGlobalLogger().WithComponent("analyzer")

	catalog := DefaultSchemeCatalog()
	if config.SchemesFile != "" {
		loaded, err := LoadSchemeCatalog(config.SchemesFile)
		if err != nil {
			log.WithError(err).WithField("schemes_file", config.SchemesFile).Error("Failed to load scheme catalog")
			return nil, err
		}
		catalog = loaded
		log.WithField("schemes_file", config.SchemesFile).Info("Loaded scheme catalog")
	}

	return &Service{
		reader: parsers.NewReader(config.Read),
		filter: NewSchemeFilter(catalog),
		config: config,
		logger: log,
	}, nil
}

// Load reads an uploaded extract
func (s *Service) Load(src io.Reader, name string) (*models.Table, error) {
	return s.reader.Read(src, name)
}

// LoadFile reads an extract from disk
func (s *Service) LoadFile(path string) (*models.Table, error) {
	return s.reader.ReadFile(path)
}

// Growth compares two extracts of the same product
func (s *Service) Growth(ctx context.Context, oldTable, newTable *models.Table, req GrowthRequest) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logger.Fields{
		"report":           KindGrowth,
		"product":          req.Product,
		"mode":             req.Mode,
		"include_branches": req.IncludeBranches,
	})
	log.Info("Running growth report")

	oldTable = s.filter.ExcludeScheme(oldTable, SchemeColumn)
	newTable = s.filter.ExcludeScheme(newTable, SchemeColumn)

	table, err := CompareGrowth(oldTable, newTable, req)
	if err != nil {
		log.WithError(err).Warn("Growth report failed")
		return nil, err
	}

	result := NewGrowthResult(req, table, s.config.Now())
	log.WithFields(logger.Fields{
		"rows": table.Len(),
		"tab":  result.Tab,
	}).Info("Growth report generated")

	return result, nil
}

// Pending builds the SS pending branch summary, or with customerProfile the
// list of overdue loans
func (s *Service) Pending(ctx context.Context, t *models.Table, customerProfile bool) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logger.Fields{
		"report":           KindPendingSummary,
		"customer_profile": customerProfile,
	})
	log.Info("Running pending report")

	prepared, err := PreparePending(t, s.filter)
	if err != nil {
		log.WithError(err).Warn("Pending report failed")
		return nil, err
	}

	var result *Result
	if customerProfile {
		result = NewResult(KindPendingCustomers, PendingCustomers(prepared), s.config.Now())
	} else {
		result = NewResult(KindPendingSummary, SummarizePending(prepared), s.config.Now())
	}

	log.WithField("rows", result.Table.Len()).Info("Pending report generated")
	return result, nil
}

// MaturityRun is the outcome of a maturity report. Base and Options are kept
// so the NPA report can be derived from exactly the same inputs.
type MaturityRun struct {
	Base         *models.Table
	Options      MaturityOptions
	Detail       *Result
	Consolidated *Result
}

// Results returns the detail and consolidated results in display order
func (m *MaturityRun) Results() []*Result {
	return []*Result{m.Detail, m.Consolidated}
}

// Maturity derives maturities and selects loans matured by the as-on date
func (s *Service) Maturity(ctx context.Context, t *models.Table, opts MaturityOptions) (*MaturityRun, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, opts, err := s.prepareMaturity(t, opts)
	if err != nil {
		return nil, err
	}

	matured := DeriveMaturity(base, opts.AsOnDate)
	now := s.config.Now()
	run := &MaturityRun{
		Base:         base,
		Options:      opts,
		Detail:       NewResult(KindMaturity, matured, now),
		Consolidated: NewResult(KindMaturityConsolidated, ConsolidateMaturity(matured), now),
	}

	s.logger.WithFields(logger.Fields{
		"report":   KindMaturity,
		"base":     base.Len(),
		"matured":  matured.Len(),
		"branches": run.Consolidated.Table.Len(),
	}).Info("Maturity report generated")

	return run, nil
}

// NPA derives the NPA report directly from an extract
func (s *Service) NPA(ctx context.Context, t *models.Table, opts MaturityOptions) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, opts, err := s.prepareMaturity(t, opts)
	if err != nil {
		return nil, err
	}
	return s.NPAFromRun(&MaturityRun{Base: base, Options: opts}), nil
}

// NPAFromRun derives the NPA report from a completed maturity run
func (s *Service) NPAFromRun(run *MaturityRun) *Result {
	table := DeriveNPA(run.Base, run.Options)

	s.logger.WithFields(logger.Fields{
		"report":    KindNPA,
		"threshold": run.Options.NPAThresholdDays,
		"rows":      table.Len(),
	}).Info("NPA report generated")

	return NewResult(KindNPA, table, s.config.Now())
}

func (s *Service) prepareMaturity(t *models.Table, opts MaturityOptions) (*models.Table, MaturityOptions, error) {
	if opts.NPAThresholdDays == 0 {
		opts.NPAThresholdDays = s.config.NPAThresholdDays
	}
	if err := opts.Validate(); err != nil {
		return nil, opts, err
	}

	log := s.logger.WithFields(logger.Fields{
		"current_date": opts.CurrentDate.Format(models.DisplayDateLayout),
		"as_on_date":   opts.AsOnDate.Format(models.DisplayDateLayout),
	})
	log.Info("Preparing maturity base")

	base, err := PrepareMaturityBase(t, s.filter, opts.CurrentDate)
	if err != nil {
		log.WithError(err).Warn("Maturity preparation failed")
		return nil, opts, err
	}
	return base, opts, nil
}
