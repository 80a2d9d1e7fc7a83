package analyzer

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growth-analyzer/internal/models"
)

// extractGenerator builds reproducible synthetic extracts
type extractGenerator struct {
	rng      *rand.Rand
	branches []string
	start    time.Time
	end      time.Time
}

func newExtractGenerator(seed int64, branches int) *extractGenerator {
	g := &extractGenerator{
		rng:   rand.New(rand.NewSource(seed)),
		start: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		end:   time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC),
	}
	for i := 1; i <= branches; i++ {
		g.branches = append(g.branches, fmt.Sprintf("BR%03d", i))
	}
	return g
}

func (g *extractGenerator) branch(i int) string {
	if i < len(g.branches) {
		return g.branches[i]
	}
	return g.branches[g.rng.Intn(len(g.branches))]
}

// amount returns a two-decimal amount between 1,000 and 500,000
func (g *extractGenerator) amount() decimal.Decimal {
	paise := 100_000 + g.rng.Int63n(49_900_000)
	return decimal.New(paise, -2)
}

func (g *extractGenerator) date() time.Time {
	days := int(g.end.Sub(g.start).Hours() / 24)
	return g.start.AddDate(0, 0, g.rng.Intn(days+1))
}

func (g *extractGenerator) pick(options ...string) string {
	return options[g.rng.Intn(len(options))]
}

// goldExtract covers every branch at least once
func (g *extractGenerator) goldExtract(rows int) *models.Table {
	t := models.NewTable("BRANCH NAME", "CANVASSER ID", "SCHEME NAME", "PRINCIPAL OS")
	for i := 0; i < rows; i++ {
		t.AddRow(models.Row{
			"BRANCH NAME":  models.Text(g.branch(i)),
			"CANVASSER ID": models.Text(fmt.Sprintf("S%03d", g.rng.Intn(40))),
			"SCHEME NAME":  models.Text(g.pick("GOLD REGULAR", "GOLD SPECIAL", "GOLD NEW")),
			"PRINCIPAL OS": models.Number(g.amount()),
		})
	}
	return t
}

func (g *extractGenerator) loanExtract(rows int) *models.Table {
	t := models.NewTable(BranchColumn, CustomerIDColumn, SchemeColumn, SanctionedDateColumn, MaturityDateColumn, TenureColumn)
	for i := 0; i < rows; i++ {
		sanctioned := g.date()
		row := models.Row{
			BranchColumn:         models.Text(g.branch(i)),
			CustomerIDColumn:     models.Text(fmt.Sprintf("C%05d", i)),
			SchemeColumn:         models.Text(g.pick("GOLD REGULAR", "BUSINESS GOLD NEW-12", "GOLD NEW")),
			SanctionedDateColumn: models.Text(sanctioned.Format(models.DisplayDateLayout)),
			MaturityDateColumn:   models.Text(sanctioned.AddDate(1, 0, 0).Format(models.DisplayDateLayout)),
			TenureColumn:         models.Int(int64(g.pickInt(30, 90, 180, 365))),
		}
		if g.rng.Intn(20) == 0 {
			row[SanctionedDateColumn] = models.Null()
		}
		t.AddRow(row)
	}
	return t
}

func (g *extractGenerator) pickInt(options ...int) int {
	return options[g.rng.Intn(len(options))]
}

func (g *extractGenerator) pendingExtract(rows int) *models.Table {
	t := models.NewTable(PendingRequiredColumns...)
	for i := 0; i < rows; i++ {
		t.AddRow(models.Row{
			BranchColumn:       models.Text(g.branch(i)),
			DueDaysColumn:      models.Int(int64(g.rng.Intn(120))),
			SchemeColumn:       models.Text(g.pick("RCIL SPL@24", "GOLD REGULAR")),
			PrincipalColumn:    models.Number(g.amount()),
			InterestColumn:     models.Number(g.amount().Div(decimal.NewFromInt(100)).Round(2)),
			CustomerNameColumn: models.Text(fmt.Sprintf("Customer %d", i)),
			CustomerIDColumn:   models.Text(fmt.Sprintf("C%05d", i)),
		})
	}
	return t
}

func sumColumn(t *models.Table, column string) decimal.Decimal {
	total := decimal.Zero
	for _, row := range t.Rows {
		total = total.Add(row.Get(column).DecimalOrZero())
	}
	return total
}

func TestGeneratedGrowthBalances(t *testing.T) {
	for _, seed := range []int64{1, 7, 42} {
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			g := newExtractGenerator(seed, 12)
			oldTable := g.goldExtract(300)
			newTable := g.goldExtract(400)

			result, err := CompareGrowth(oldTable, newTable, GrowthRequest{Product: ProductGold, Mode: ModeBranch})
			require.NoError(t, err)

			assert.Equal(t, 12, result.Len())
			want := sumColumn(newTable, "PRINCIPAL OS").Sub(sumColumn(oldTable, "PRINCIPAL OS"))
			got := sumColumn(result, GrowthColumn)
			assert.True(t, want.Equal(got), "growth total %s, want %s", got, want)

			for i := 1; i < result.Len(); i++ {
				prev := result.Rows[i-1].Get(GrowthColumn).DecimalOrZero()
				cur := result.Rows[i].Get(GrowthColumn).DecimalOrZero()
				assert.False(t, cur.GreaterThan(prev), "rows must be ordered by growth, descending")
			}
		})
	}
}

func TestGeneratedNPAWithinMaturity(t *testing.T) {
	g := newExtractGenerator(11, 8)
	filter := NewSchemeFilter(DefaultSchemeCatalog())
	opts := MaturityOptions{
		CurrentDate: models.MustParseDate("01-06-2024"),
		AsOnDate:    models.MustParseDate("31-05-2024"),
	}
	require.NoError(t, opts.Validate())

	base, err := PrepareMaturityBase(g.loanExtract(500), filter, opts.CurrentDate)
	require.NoError(t, err)

	matured := make(map[string]bool)
	for _, row := range DeriveMaturity(base, opts.AsOnDate).Rows {
		matured[row.Get(CustomerIDColumn).String()] = true
	}

	npa := DeriveNPA(base, opts)
	require.NotZero(t, npa.Len())
	for _, row := range npa.Rows {
		id := row.Get(CustomerIDColumn).String()
		assert.True(t, matured[id], "NPA loan %s is not matured", id)

		days := row.Get(NPADaysColumn).DecimalOrZero()
		assert.True(t, days.GreaterThan(decimal.NewFromInt(int64(opts.NPAThresholdDays))),
			"loan %s is only %s days past maturity", id, days)
	}
}

func TestGeneratedPendingWithinTotals(t *testing.T) {
	g := newExtractGenerator(3, 10)
	prepared, err := PreparePending(g.pendingExtract(600), NewSchemeFilter(DefaultSchemeCatalog()))
	require.NoError(t, err)

	summary := SummarizePending(prepared)
	require.NotZero(t, summary.Len())

	var pending int64
	for _, row := range summary.Rows {
		total := row.Get("Total_Count").DecimalOrZero()
		count := row.Get("Pending_Count").DecimalOrZero()
		assert.False(t, count.GreaterThan(total), "branch %s", row.Get(BranchColumn))
		assert.False(t, row.Get("Pending_Amount").DecimalOrZero().GreaterThan(row.Get("Total_Amount").DecimalOrZero()))
		pending += count.IntPart()
	}

	assert.Equal(t, int64(PendingCustomers(prepared).Len()), pending)
}

func BenchmarkCompareGrowth(b *testing.B) {
	g := newExtractGenerator(99, 150)
	oldTable := g.goldExtract(20_000)
	newTable := g.goldExtract(20_000)
	req := GrowthRequest{Product: ProductGold, Mode: ModeStaff}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := CompareGrowth(oldTable, newTable, req); err != nil {
			b.Fatal(err)
		}
	}
}
