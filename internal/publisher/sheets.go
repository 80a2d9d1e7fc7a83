package publisher

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"growth-analyzer/pkg/errors"
)

// GoogleSheets is a SheetClient backed by the Sheets v4 API and a service
// account credentials file
type GoogleSheets struct {
	service       *sheets.Service
	spreadsheetID string
}

// NewGoogleSheets connects to the configured spreadsheet
func NewGoogleSheets(ctx context.Context, config *Config) (*GoogleSheets, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	service, err := sheets.NewService(ctx,
		option.WithCredentialsFile(config.CredentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, errors.PublishError(errors.CodeConnectionFailed, "spreadsheet", err)
	}

	return &GoogleSheets{
		service:       service,
		spreadsheetID: config.SpreadsheetID,
	}, nil
}

// EnsureTab adds the tab when the spreadsheet has no sheet with that title
func (g *GoogleSheets) EnsureTab(ctx context.Context, tab string) error {
	spreadsheet, err := g.service.Spreadsheets.Get(g.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return err
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == tab {
			return nil
		}
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: tab,
					GridProperties: &sheets.GridProperties{
						RowCount:    TabRows,
						ColumnCount: TabColumns,
					},
				},
			},
		}},
	}
	_, err = g.service.Spreadsheets.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do()
	return err
}

// Clear empties the tab
func (g *GoogleSheets) Clear(ctx context.Context, tab string) error {
	_, err := g.service.Spreadsheets.Values.
		Clear(g.spreadsheetID, quoteTab(tab), &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	return err
}

// Write stores values as entered, without formula or date interpretation
func (g *GoogleSheets) Write(ctx context.Context, tab, cell string, values [][]interface{}) error {
	_, err := g.service.Spreadsheets.Values.
		Update(g.spreadsheetID, quoteTab(tab)+"!"+cell, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// quoteTab renders a tab name for A1 notation
func quoteTab(tab string) string {
	return fmt.Sprintf("'%s'", strings.ReplaceAll(tab, "'", "''"))
}
