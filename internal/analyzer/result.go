package analyzer

import (
	"fmt"
	"strings"
	"time"

	"growth-analyzer/internal/models"
)

// ReportKind identifies which report produced a result
type ReportKind string

const (
	KindGrowth               ReportKind = "growth"
	KindPendingSummary       ReportKind = "pending"
	KindPendingCustomers     ReportKind = "pending_customers"
	KindMaturity             ReportKind = "maturity"
	KindMaturityConsolidated ReportKind = "maturity_consolidated"
	KindNPA                  ReportKind = "npa"
)

// Result is one finished report table with the names it is exported under
type Result struct {
	Kind ReportKind `json:"kind"`
	// SheetName is the worksheet name used in the xlsx download
	SheetName string `json:"sheet_name"`
	// FileName is the xlsx download name
	FileName string `json:"file_name"`
	// BackupName is the CSV backup name; empty when the report has no backup
	BackupName  string        `json:"backup_name,omitempty"`
	Tab         string        `json:"tab"`
	Table       *models.Table `json:"table"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// CSVName returns the name a CSV export of the result should carry
func (r *Result) CSVName() string {
	if r.BackupName != "" {
		return r.BackupName
	}
	return strings.TrimSuffix(r.FileName, ".xlsx") + ".csv"
}

func (r *Result) String() string {
	return fmt.Sprintf("Result{Kind: %s, Sheet: %q, Rows: %d}", r.Kind, r.SheetName, r.Table.Len())
}

// NewGrowthResult describes a growth comparison
func NewGrowthResult(req GrowthRequest, table *models.Table, at time.Time) *Result {
	title := req.Product.Title()
	return &Result{
		Kind:        KindGrowth,
		SheetName:   title + " Report",
		FileName:    strings.ToLower(title) + "_report.xlsx",
		BackupName:  fmt.Sprintf("%s_%s_Report.csv", title, req.Mode.Title()),
		Tab:         GrowthTab(req, table),
		Table:       table,
		GeneratedAt: at,
	}
}

// NewResult describes a non-growth report
func NewResult(kind ReportKind, table *models.Table, at time.Time) *Result {
	r := &Result{Kind: kind, Table: table, GeneratedAt: at, Tab: TabUnknown}
	switch kind {
	case KindPendingSummary:
		r.SheetName = "SS Pending Report"
		r.FileName = "ss_pending_report.xlsx"
		r.BackupName = "SS_Pending_Report.csv"
		r.Tab = TabPending
	case KindPendingCustomers:
		r.SheetName = "SS Pending Customers"
		r.FileName = "ss_pending_customers.xlsx"
	case KindMaturity:
		r.SheetName = "Maturity Report"
		r.FileName = "maturity_report.xlsx"
	case KindMaturityConsolidated:
		r.SheetName = "Maturity Consolidated"
		r.FileName = "maturity_consolidated.xlsx"
	case KindNPA:
		r.SheetName = "NPA Report"
		r.FileName = "npa_report.xlsx"
		r.Tab = TabNPA
	default:
		r.SheetName = "Report"
		r.FileName = "report.xlsx"
	}
	return r
}
