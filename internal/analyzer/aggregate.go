package analyzer

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"growth-analyzer/internal/models"
)

// GroupKey names the one or two columns whose combined values partition a table
type GroupKey []string

// Contains reports whether column is part of the key
func (k GroupKey) Contains(column string) bool {
	for _, c := range k {
		if c == column {
			return true
		}
	}
	return false
}

const keySeparator = "\x1f"

// keyOf returns the encoded key for row and whether every key cell is present
func (k GroupKey) keyOf(row models.Row) ([]string, string, bool) {
	parts := make([]string, len(k))
	for i, column := range k {
		v := row.Get(column)
		if v.IsNull() {
			return nil, "", false
		}
		parts[i] = v.Key()
	}
	return parts, strings.Join(parts, keySeparator), true
}

type group struct {
	parts []string
	sum   decimal.Decimal
}

// Aggregate sums valueCol per distinct key combination. Rows with a null key
// cell form no group. Values that are missing or not numeric count as zero.
// The result has columns key..., valueCol and is ordered by key ascending.
func Aggregate(t *models.Table, key GroupKey, valueCol string) *models.Table {
	groups := make(map[string]*group)
	var order []*group

	for _, row := range t.Rows {
		parts, encoded, ok := key.keyOf(row)
		if !ok {
			continue
		}

		g, exists := groups[encoded]
		if !exists {
			g = &group{parts: parts, sum: decimal.Zero}
			groups[encoded] = g
			order = append(order, g)
		}
		g.sum = g.sum.Add(row.Get(valueCol).DecimalOrZero())
	}

	sort.SliceStable(order, func(i, j int) bool {
		return compareKeyParts(order[i].parts, order[j].parts) < 0
	})

	columns := append(append([]string{}, key...), valueCol)
	out := models.NewTable(columns...)
	for _, g := range order {
		row := make(models.Row, len(columns))
		for i, column := range key {
			row[column] = models.Text(g.parts[i])
		}
		row[valueCol] = models.Number(g.sum)
		out.AddRow(row)
	}

	return out
}

// compareKeyParts orders keys column by column. Two numeric cells compare as
// numbers, anything else compares as text.
func compareKeyParts(a, b []string) int {
	for i := range a {
		if c := compareCell(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

func compareCell(a, b string) int {
	da, okA := models.ParseAmount(a)
	db, okB := models.ParseAmount(b)
	if okA && okB {
		return da.Cmp(db)
	}
	return strings.Compare(a, b)
}
