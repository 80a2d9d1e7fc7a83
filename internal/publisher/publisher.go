// Package publisher uploads finished reports to tabs of a shared remote
// spreadsheet.
//
// A publish is guarded by the admin password and replaces the whole tab:
// the tab is created if missing (1000 rows by 20 columns), cleared, stamped
// with "Last Updated:" in A1, and the report header and rows are written from
// A3. There is no rollback; a failure part way leaves the tab as far as it got.
package publisher

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"growth-analyzer/internal/models"
	"growth-analyzer/pkg/errors"
	"growth-analyzer/pkg/logger"
)

const (
	// TabRows and TabColumns size a newly created tab
	TabRows    = 1000
	TabColumns = 20

	stampLayout = "2006-01-02 15:04:05"
)

// SheetClient is the remote spreadsheet as the publisher sees it
type SheetClient interface {
	// EnsureTab creates the tab when the spreadsheet has none by that name
	EnsureTab(ctx context.Context, tab string) error
	// Clear empties every cell of the tab
	Clear(ctx context.Context, tab string) error
	// Write stores values starting at the A1-notation cell of the tab
	Write(ctx context.Context, tab, cell string, values [][]interface{}) error
}

// Event describes a completed publish
type Event struct {
	Tab           string    `json:"tab"`
	SpreadsheetID string    `json:"spreadsheet_id"`
	Rows          int       `json:"rows"`
	PublishedAt   time.Time `json:"published_at"`
}

// Notifier is told about every successful publish
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Config holds the remote spreadsheet settings
type Config struct {
	SpreadsheetID   string        `mapstructure:"spreadsheet_id"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	Password        string        `mapstructure:"password"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns a configuration with no spreadsheet set
func DefaultConfig() *Config {
	return &Config{Timeout: 60 * time.Second}
}

// Enabled reports whether a spreadsheet is configured at all
func (c *Config) Enabled() bool {
	return c != nil && c.SpreadsheetID != ""
}

// Validate checks the settings a publish needs
func (c *Config) Validate() error {
	if c.SpreadsheetID == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, "publish.spreadsheet_id", nil, nil)
	}
	if c.CredentialsFile == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, "publish.credentials_file", nil, nil)
	}
	if c.Password == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, "publish.password", nil, nil)
	}
	if c.Timeout < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "publish.timeout", c.Timeout, nil)
	}
	return nil
}

// Option configures a Publisher
type Option func(*Publisher)

// WithNotifier announces successful publishes
func WithNotifier(n Notifier) Option {
	return func(p *Publisher) {
		p.notifier = n
	}
}

// WithClock replaces the clock used for the "Last Updated" stamp
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

// Publisher writes report tables to remote tabs
type Publisher struct {
	client   SheetClient
	config   *Config
	notifier Notifier
	now      func() time.Time
	logger   logger.Logger
}

// New creates a publisher over client
func New(client SheetClient, config *Config, opts ...Option) *Publisher {
	if config == nil {
		config = DefaultConfig()
	}

	p := &Publisher{
		client: client,
		config: config,
		now:    time.Now,
		logger: logger.GetGlobalLogger().WithComponent("publisher"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Authorize compares password with the configured admin password in
// constant time
func (p *Publisher) Authorize(password string) error {
	if p.config.Password == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, "publish.password", nil, nil)
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(p.config.Password)) != 1 {
		return errors.AccessDenied()
	}
	return nil
}

// Publish replaces the contents of tab with the table
func (p *Publisher) Publish(ctx context.Context, table *models.Table, tab, password string) (*Event, error) {
	if err := p.Authorize(password); err != nil {
		p.logger.WithField("tab", tab).Warn("Publish rejected")
		return nil, err
	}
	if table == nil {
		return nil, errors.StateError(errors.CodeNoResult, "publish")
	}

	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	log := p.logger.WithFields(logger.Fields{
		"tab":  tab,
		"rows": table.Len(),
	})
	log.Info("Publishing report")

	at := p.now()
	steps := []struct {
		name string
		run  func() error
	}{
		{"ensure tab", func() error { return p.client.EnsureTab(ctx, tab) }},
		{"clear tab", func() error { return p.client.Clear(ctx, tab) }},
		{"write timestamp", func() error {
			return p.client.Write(ctx, tab, "A1", [][]interface{}{{"Last Updated:", at.Format(stampLayout)}})
		}},
		{"write rows", func() error { return p.client.Write(ctx, tab, "A3", Values(table)) }},
	}

	for _, step := range steps {
		if err := step.run(); err != nil {
			log.WithError(err).WithField("step", step.name).Error("Publish failed")
			return nil, errors.PublishError(errors.CodePublishFailed, tab, fmt.Errorf("%s: %w", step.name, err))
		}
	}

	event := &Event{
		Tab:           tab,
		SpreadsheetID: p.config.SpreadsheetID,
		Rows:          table.Len(),
		PublishedAt:   at,
	}
	log.Info("Report published")

	if p.notifier != nil {
		if err := p.notifier.Notify(ctx, *event); err != nil {
			log.WithError(err).Warn("Publish notification failed")
		}
	}

	return event, nil
}

// Values renders the header and rows as cell values. Numbers stay numeric
// and nulls become empty cells.
func Values(table *models.Table) [][]interface{} {
	values := make([][]interface{}, 0, table.Len()+1)

	header := make([]interface{}, len(table.Columns))
	for i, c := range table.Columns {
		header[i] = c
	}
	values = append(values, header)

	for _, row := range table.Rows {
		cells := make([]interface{}, len(table.Columns))
		for i, c := range table.Columns {
			v := row.Get(c)
			switch v.Kind() {
			case models.KindNull:
				cells[i] = ""
			case models.KindNumber:
				d, _ := v.Decimal()
				f, _ := d.Float64()
				cells[i] = f
			default:
				cells[i] = v.String()
			}
		}
		values = append(values, cells)
	}
	return values
}
