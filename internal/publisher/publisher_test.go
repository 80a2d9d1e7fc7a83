package publisher

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growth-analyzer/internal/models"
	"growth-analyzer/pkg/errors"
)

type fakeSheets struct {
	tabs   map[string][][]interface{}
	calls  []string
	failOn string
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{tabs: map[string][][]interface{}{"STAFF_GL": {{"stale"}}}}
}

func (f *fakeSheets) step(name string) error {
	f.calls = append(f.calls, name)
	if f.failOn == name {
		return stderrors.New("quota exceeded")
	}
	return nil
}

func (f *fakeSheets) EnsureTab(_ context.Context, tab string) error {
	if err := f.step("ensure"); err != nil {
		return err
	}
	if _, ok := f.tabs[tab]; !ok {
		f.tabs[tab] = nil
	}
	return nil
}

func (f *fakeSheets) Clear(_ context.Context, tab string) error {
	if err := f.step("clear"); err != nil {
		return err
	}
	f.tabs[tab] = nil
	return nil
}

func (f *fakeSheets) Write(_ context.Context, tab, cell string, values [][]interface{}) error {
	if err := f.step("write " + cell); err != nil {
		return err
	}
	if cell == "A3" {
		f.tabs[tab] = append(f.tabs[tab], []interface{}{})
	}
	f.tabs[tab] = append(f.tabs[tab], values...)
	return nil
}

type recordingNotifier struct {
	events []Event
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, event Event) error {
	r.events = append(r.events, event)
	return r.err
}

var publishedAt = time.Date(2024, 6, 1, 9, 30, 5, 0, time.UTC)

func testConfig() *Config {
	return &Config{
		SpreadsheetID:   "sheet-123",
		CredentialsFile: "credentials.json",
		Password:        "s3cret",
	}
}

func reportTable() *models.Table {
	table := models.NewTable("BRANCH NAME", "Growth", "Note")
	table.AddRow(models.Row{"BRANCH NAME": models.Text("A"), "Growth": models.Int(500)})
	return table
}

func TestPublish(t *testing.T) {
	client := newFakeSheets()
	notifier := &recordingNotifier{}
	p := New(client, testConfig(), WithClock(func() time.Time { return publishedAt }), WithNotifier(notifier))

	event, err := p.Publish(context.Background(), reportTable(), "BRANCH_GL", "s3cret")
	require.NoError(t, err)

	assert.Equal(t, []string{"ensure", "clear", "write A1", "write A3"}, client.calls)
	assert.Equal(t, [][]interface{}{
		{"Last Updated:", "2024-06-01 09:30:05"},
		{},
		{"BRANCH NAME", "Growth", "Note"},
		{"A", float64(500), ""},
	}, client.tabs["BRANCH_GL"])

	assert.Equal(t, &Event{Tab: "BRANCH_GL", SpreadsheetID: "sheet-123", Rows: 1, PublishedAt: publishedAt}, event)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, *event, notifier.events[0])
}

func TestPublishReplacesExistingTab(t *testing.T) {
	client := newFakeSheets()
	p := New(client, testConfig())

	_, err := p.Publish(context.Background(), reportTable(), "STAFF_GL", "s3cret")
	require.NoError(t, err)

	assert.NotContains(t, client.tabs["STAFF_GL"], []interface{}{"stale"})
}

func TestPublishWrongPassword(t *testing.T) {
	tests := []string{"", "S3CRET", "s3cret ", "s3cre"}

	for _, password := range tests {
		t.Run(password, func(t *testing.T) {
			client := newFakeSheets()
			p := New(client, testConfig())

			_, err := p.Publish(context.Background(), reportTable(), "BRANCH_GL", password)

			analyzerErr, ok := errors.AsAnalyzerError(err)
			require.True(t, ok)
			assert.Equal(t, errors.CategoryAuth, analyzerErr.Category)
			assert.Empty(t, client.calls, "nothing may reach the spreadsheet")
		})
	}
}

func TestPublishWithoutConfiguredPassword(t *testing.T) {
	config := testConfig()
	config.Password = ""
	p := New(newFakeSheets(), config)

	_, err := p.Publish(context.Background(), reportTable(), "BRANCH_GL", "")

	analyzerErr, ok := errors.AsAnalyzerError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeMissingConfig, analyzerErr.Code)
}

func TestPublishRemoteFailure(t *testing.T) {
	for _, step := range []string{"ensure", "clear", "write A1", "write A3"} {
		t.Run(step, func(t *testing.T) {
			client := newFakeSheets()
			client.failOn = step
			notifier := &recordingNotifier{}
			p := New(client, testConfig(), WithNotifier(notifier))

			_, err := p.Publish(context.Background(), reportTable(), "NPA_REPORT", "s3cret")

			analyzerErr, ok := errors.AsAnalyzerError(err)
			require.True(t, ok)
			assert.Equal(t, errors.CategoryPublish, analyzerErr.Category)
			assert.Contains(t, analyzerErr.Error(), "quota exceeded")
			assert.Equal(t, step, client.calls[len(client.calls)-1], "no step runs after a failure")
			assert.Empty(t, notifier.events)
		})
	}
}

func TestPublishIgnoresNotifierFailure(t *testing.T) {
	notifier := &recordingNotifier{err: stderrors.New("broker down")}
	p := New(newFakeSheets(), testConfig(), WithNotifier(notifier))

	_, err := p.Publish(context.Background(), reportTable(), "SS_PENDING", "s3cret")
	require.NoError(t, err)
	assert.Len(t, notifier.events, 1)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "complete", mutate: func(*Config) {}},
		{name: "no spreadsheet", mutate: func(c *Config) { c.SpreadsheetID = "" }, wantErr: true},
		{name: "no credentials", mutate: func(c *Config) { c.CredentialsFile = "" }, wantErr: true},
		{name: "no password", mutate: func(c *Config) { c.Password = "" }, wantErr: true},
		{name: "negative timeout", mutate: func(c *Config) { c.Timeout = -time.Second }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := testConfig()
			tt.mutate(config)
			if tt.wantErr {
				assert.Error(t, config.Validate())
			} else {
				assert.NoError(t, config.Validate())
			}
		})
	}

	var unset *Config
	assert.False(t, unset.Enabled())
	assert.True(t, testConfig().Enabled())
}

func TestQuoteTab(t *testing.T) {
	assert.Equal(t, "'BRANCH_GL'", quoteTab("BRANCH_GL"))
	assert.Equal(t, "'O''Brien'", quoteTab("O'Brien"))
}
