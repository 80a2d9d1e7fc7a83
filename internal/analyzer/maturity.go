package analyzer

import (
	"time"

	"github.com/shopspring/decimal"

	"growth-analyzer/internal/models"
	"growth-analyzer/pkg/errors"
)

// Maturity extract columns
const (
	BranchColumn         = "BRANCH NAME"
	SanctionedDateColumn = "SANCTIONED DATE"
	TenureColumn         = "TENURE OF THE LOAN"
	MaturityDateColumn   = "MATURITY DATE"

	CRMaturityColumn    = "CR_MATURITY"
	CurrentDateColumn   = "CURRENT_DATE"
	MaturityDaysColumn  = "Maturity"
	NPADaysColumn       = "NPA"
	MaturityCountColumn = "Maturity Count"
)

// DefaultNPAThreshold is the days past maturity after which a loan is NPA
const DefaultNPAThreshold = 90

// MaturitySourceColumns are the extract columns carried into maturity reports, in order
var MaturitySourceColumns = []string{
	"BRANCH NAME", "STATE", "NEW ACCOUNT NO", "CUSTOMER NAME", "CUSTOMER ID",
	"SCHEME NAME", "LOAN PURPOSE", "SANCTIONED DATE",
	"PRINCIPAL OS", "INTEREST OS", "MATURITY DATE", "TENURE OF THE LOAN",
}

// MaturityRequiredColumns must be present for maturity to be derived
var MaturityRequiredColumns = []string{
	SchemeColumn, SanctionedDateColumn, TenureColumn, MaturityDateColumn, BranchColumn,
}

// MaturityOptions holds the operator-chosen dates
type MaturityOptions struct {
	CurrentDate time.Time
	AsOnDate    time.Time
	// NPAThresholdDays is the days past maturity after which a loan is NPA
	NPAThresholdDays int
}

// Validate checks that both dates are set and fills the default threshold
func (o *MaturityOptions) Validate() error {
	if o.CurrentDate.IsZero() {
		return errors.ValidationError(errors.CodeInvalidDate, "current_date", "", nil)
	}
	if o.AsOnDate.IsZero() {
		return errors.ValidationError(errors.CodeInvalidDate, "as_on_date", "", nil)
	}
	if o.NPAThresholdDays < 0 {
		return errors.ValidationError(errors.CodeInvalidOption, "npa_threshold", o.NPAThresholdDays, nil)
	}
	if o.NPAThresholdDays == 0 {
		o.NPAThresholdDays = DefaultNPAThreshold
	}
	o.CurrentDate = models.DateOnly(o.CurrentDate)
	o.AsOnDate = models.DateOnly(o.AsOnDate)
	return nil
}

// PrepareMaturityBase keeps the maturity source columns, drops excluded
// schemes and adds CR_MATURITY, CURRENT_DATE and the days from maturity to
// the current date. A maturity that cannot be computed is null and so is its
// day count.
func PrepareMaturityBase(t *models.Table, filter *SchemeFilter, currentDate time.Time) (*models.Table, error) {
	if missing := t.MissingColumns(MaturityRequiredColumns...); len(missing) > 0 {
		return nil, errors.MissingColumnsError(errors.ColumnGap{Input: "file", Columns: missing})
	}

	base := t.Select(MaturitySourceColumns...)
	base = filter.ExcludeScheme(base, SchemeColumn)

	catalog := filter.Catalog()
	base = base.WithColumn(CRMaturityColumn, func(row models.Row) models.Value {
		maturity, ok := MaturityOf(row, catalog)
		if !ok {
			return models.Null()
		}
		return models.Text(maturity.Format(models.DisplayDateLayout))
	})

	current := models.DateOnly(currentDate)
	base = base.WithColumn(CurrentDateColumn, func(models.Row) models.Value {
		return models.Text(current.Format(models.DisplayDateLayout))
	})

	base = base.WithColumn(MaturityDaysColumn, func(row models.Row) models.Value {
		maturity, ok := row.Get(CRMaturityColumn).Time()
		if !ok {
			return models.Null()
		}
		return models.Int(models.DaysBetween(maturity, current))
	})

	return base, nil
}

// MaturityOf computes a loan's maturity. Special schemes mature on their
// stated maturity date; every other scheme matures tenure days after the
// sanctioned date. Dates are read day-first.
func MaturityOf(row models.Row, catalog *SchemeCatalog) (time.Time, bool) {
	if catalog.IsSpecialMaturity(row.Get(SchemeColumn).String()) {
		return row.Get(MaturityDateColumn).Time()
	}

	sanctioned, ok := row.Get(SanctionedDateColumn).Time()
	if !ok {
		return time.Time{}, false
	}
	tenure, ok := row.Get(TenureColumn).Decimal()
	if !ok {
		return time.Time{}, false
	}

	return sanctioned.AddDate(0, 0, int(tenure.IntPart())), true
}

// DeriveMaturity selects the rows of a prepared base whose maturity falls on
// or before asOn. Rows without a maturity are never selected.
func DeriveMaturity(base *models.Table, asOn time.Time) *models.Table {
	cutoff := models.DateOnly(asOn)
	return base.Filter(func(row models.Row) bool {
		maturity, ok := row.Get(CRMaturityColumn).Time()
		return ok && !maturity.After(cutoff)
	})
}

// ConsolidateMaturity counts matured loans per branch, ordered by branch
func ConsolidateMaturity(maturity *models.Table) *models.Table {
	counts := Aggregate(
		maturity.WithColumn(MaturityCountColumn, func(models.Row) models.Value { return models.Int(1) }),
		GroupKey{BranchColumn},
		MaturityCountColumn,
	)
	return counts
}

// SelectNPA keeps matured rows more than threshold days past maturity and
// renames the day count to NPA. Its rows are always a subset of maturity.
func SelectNPA(maturity *models.Table, threshold int) *models.Table {
	limit := decimal.NewFromInt(int64(threshold))
	npa := maturity.Filter(func(row models.Row) bool {
		days, ok := row.Get(MaturityDaysColumn).Decimal()
		return ok && days.GreaterThan(limit)
	})
	return npa.RenameColumn(MaturityDaysColumn, NPADaysColumn)
}

// DeriveNPA computes the NPA report from a prepared base and the same dates
// the maturity report uses
func DeriveNPA(base *models.Table, opts MaturityOptions) *models.Table {
	threshold := opts.NPAThresholdDays
	if threshold == 0 {
		threshold = DefaultNPAThreshold
	}
	return SelectNPA(DeriveMaturity(base, opts.AsOnDate), threshold)
}
