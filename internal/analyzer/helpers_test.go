package analyzer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"growth-analyzer/internal/models"
)

// table builds a table from a header and text rows; "" cells are null
func table(columns []string, rows ...[]string) *models.Table {
	t := models.NewTable(columns...)
	for _, cells := range rows {
		row := make(models.Row, len(columns))
		for i, c := range columns {
			if i < len(cells) {
				row[c] = models.Text(cells[i])
			}
		}
		t.AddRow(row)
	}
	return t
}

func column(t *models.Table, name string) []string {
	var out []string
	for _, row := range t.Rows {
		out = append(out, row.Get(name).String())
	}
	return out
}

func assertDecimal(t *testing.T, want string, v models.Value) {
	t.Helper()
	got, ok := v.Decimal()
	if assert.True(t, ok, "value %q is not numeric", v.String()) {
		assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
	}
}
