package analyzer

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"growth-analyzer/internal/models"
	"growth-analyzer/pkg/errors"
)

// Pending extract columns
const (
	DueDaysColumn      = "DUE DAYS"
	PrincipalColumn    = "PRINCIPAL OS"
	InterestColumn     = "INTEREST OS"
	CustomerNameColumn = "CUSTOMER NAME"
	CustomerIDColumn   = "CUSTOMER ID"
)

// OverdueDays is the due-days count a loan must exceed to be pending
const OverdueDays = 30

// PendingRequiredColumns must be present, after header normalization
var PendingRequiredColumns = []string{
	BranchColumn, DueDaysColumn, SchemeColumn, PrincipalColumn,
	InterestColumn, CustomerNameColumn, CustomerIDColumn,
}

// PendingSummaryColumns are the columns of the branch summary
var PendingSummaryColumns = []string{
	BranchColumn, "Total_Count", "Total_Amount", "Pending_Count",
	"Pending_Amount", "Pending_Interest", "Pending %",
}

// PendingCustomerColumns are the columns of the customer profile
var PendingCustomerColumns = []string{
	BranchColumn, CustomerNameColumn, CustomerIDColumn,
	PrincipalColumn, InterestColumn, DueDaysColumn,
}

// PreparePending normalizes headers, drops excluded schemes, checks the
// required columns and keeps only allow-listed schemes
func PreparePending(t *models.Table, filter *SchemeFilter) (*models.Table, error) {
	prepared := NormalizeHeaders(t)
	prepared = filter.ExcludeScheme(prepared, SchemeColumn)

	if missing := prepared.MissingColumns(PendingRequiredColumns...); len(missing) > 0 {
		return nil, errors.MissingColumnsError(errors.ColumnGap{Input: "file", Columns: missing})
	}

	return filter.RestrictToSchemes(prepared, SchemeColumn), nil
}

// IsOverdue reports whether the row's due days exceed the overdue limit
func IsOverdue(row models.Row) bool {
	days, ok := row.Get(DueDaysColumn).Decimal()
	return ok && days.GreaterThan(decimal.NewFromInt(OverdueDays))
}

type branchTotals struct {
	branch          string
	totalCount      int64
	totalAmount     decimal.Decimal
	pendingCount    int64
	pendingAmount   decimal.Decimal
	pendingInterest decimal.Decimal
}

// SummarizePending builds one row per branch, ordered by branch. Amounts are
// rounded to two places and the pending share to a whole percent.
func SummarizePending(t *models.Table) *models.Table {
	byBranch := make(map[string]*branchTotals)
	var branches []*branchTotals

	for _, row := range t.Rows {
		branch := row.Get(BranchColumn)
		if branch.IsNull() {
			continue
		}

		totals, ok := byBranch[branch.Key()]
		if !ok {
			totals = &branchTotals{branch: branch.Key()}
			byBranch[branch.Key()] = totals
			branches = append(branches, totals)
		}

		principal := row.Get(PrincipalColumn).DecimalOrZero()
		totals.totalCount++
		totals.totalAmount = totals.totalAmount.Add(principal)

		if IsOverdue(row) {
			totals.pendingCount++
			totals.pendingAmount = totals.pendingAmount.Add(principal)
			totals.pendingInterest = totals.pendingInterest.Add(row.Get(InterestColumn).DecimalOrZero())
		}
	}

	sortBranches(branches)

	out := models.NewTable(PendingSummaryColumns...)
	for _, b := range branches {
		out.AddRow(models.Row{
			BranchColumn:       models.Text(b.branch),
			"Total_Count":      models.Int(b.totalCount),
			"Total_Amount":     models.Fixed(b.totalAmount, 2),
			"Pending_Count":    models.Int(b.pendingCount),
			"Pending_Amount":   models.Fixed(b.pendingAmount, 2),
			"Pending_Interest": models.Fixed(b.pendingInterest, 2),
			"Pending %":        models.Text(PendingPercent(b.pendingCount, b.totalCount)),
		})
	}
	return out
}

// PendingPercent renders pending/total as a whole percentage such as "30%".
// Halves round to even. A branch with no loans is "0%".
func PendingPercent(pending, total int64) string {
	if total == 0 {
		return "0%"
	}
	pct := decimal.NewFromInt(pending).Mul(decimal.NewFromInt(100)).DivRound(decimal.NewFromInt(total), 8)
	return fmt.Sprintf("%d%%", pct.RoundBank(0).IntPart())
}

// PendingCustomers lists the overdue loans with their customer details
func PendingCustomers(t *models.Table) *models.Table {
	return t.Filter(IsOverdue).Select(PendingCustomerColumns...)
}

func sortBranches(branches []*branchTotals) {
	sort.SliceStable(branches, func(i, j int) bool {
		return compareCell(branches[i].branch, branches[j].branch) < 0
	})
}
