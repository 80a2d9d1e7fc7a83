package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"growth-analyzer/internal/models"
	"growth-analyzer/pkg/errors"
)

// Product selects which portfolio extract a growth report compares
type Product string

const (
	ProductGold    Product = "gold"
	ProductSubdebt Product = "subdebt"
)

// ParseProduct reads a product name case-insensitively
func ParseProduct(s string) (Product, error) {
	switch Product(strings.ToLower(strings.TrimSpace(s))) {
	case ProductGold:
		return ProductGold, nil
	case ProductSubdebt:
		return ProductSubdebt, nil
	default:
		return "", errors.ValidationError(errors.CodeInvalidOption, "product", s, nil).
			WithSuggestion("use 'gold' or 'subdebt'")
	}
}

// Title returns the display name used in sheet and file names
func (p Product) Title() string {
	switch p {
	case ProductGold:
		return "Gold"
	case ProductSubdebt:
		return "Subdebt"
	default:
		return string(p)
	}
}

// Mode selects branch-wise or staff-wise grouping
type Mode string

const (
	ModeBranch Mode = "branch"
	ModeStaff  Mode = "staff"
)

// ParseMode reads a mode such as "branch", "Branch-wise" or "staff"
func ParseMode(s string) (Mode, error) {
	normalized := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "-wise")
	switch Mode(normalized) {
	case ModeBranch:
		return ModeBranch, nil
	case ModeStaff:
		return ModeStaff, nil
	default:
		return "", errors.ValidationError(errors.CodeInvalidOption, "mode", s, nil).
			WithSuggestion("use 'branch' or 'staff'")
	}
}

// Title returns the display name used in backup file names
func (m Mode) Title() string {
	switch m {
	case ModeBranch:
		return "Branch-wise"
	case ModeStaff:
		return "Staff-wise"
	default:
		return string(m)
	}
}

// ColumnProfile names the columns a product's extract uses
type ColumnProfile struct {
	Value     string
	Staff     string
	Branch    string
	StaffName string
}

// Required returns the columns both inputs must carry
func (p ColumnProfile) Required() []string {
	return []string{p.Value, p.Staff, p.Branch}
}

// ProfileFor returns the column profile of a product
func ProfileFor(product Product) ColumnProfile {
	if product == ProductSubdebt {
		return ColumnProfile{
			Value:     "Deposit Amount",
			Staff:     "Canvassed By",
			Branch:    "Branch Name",
			StaffName: "Canvasser Name",
		}
	}
	return ColumnProfile{
		Value:  "PRINCIPAL OS",
		Staff:  "CANVASSER ID",
		Branch: "BRANCH NAME",
	}
}

// GrowthColumn holds new minus old per key
const GrowthColumn = "Growth"

// GrowthRequest describes one growth comparison
type GrowthRequest struct {
	Product Product
	Mode    Mode
	// IncludeBranches extends the staff-wise subdebt key with the branch column
	IncludeBranches bool
}

// Normalize checks the product and mode and returns them in canonical form
func (r GrowthRequest) Normalize() (GrowthRequest, error) {
	product, err := ParseProduct(string(r.Product))
	if err != nil {
		return r, err
	}
	mode, err := ParseMode(string(r.Mode))
	if err != nil {
		return r, err
	}
	r.Product = product
	r.Mode = mode
	return r, nil
}

// includeBranches is only honoured for the staff-wise subdebt report
func (r GrowthRequest) includeBranches() bool {
	return r.IncludeBranches && r.Product == ProductSubdebt && r.Mode == ModeStaff
}

// Key returns the grouping key for the request
func (r GrowthRequest) Key() GroupKey {
	profile := ProfileFor(r.Product)
	switch {
	case r.Mode == ModeBranch:
		return GroupKey{profile.Branch}
	case r.Product == ProductSubdebt && !r.IncludeBranches:
		return GroupKey{profile.Staff}
	default:
		return GroupKey{profile.Staff, profile.Branch}
	}
}

// CompareGrowth aggregates both extracts on the request's key, inner-joins new
// against old and adds Growth = new - old. Rows are ordered by Growth
// descending; equal growth keeps the order of the new extract's groups.
func CompareGrowth(oldTable, newTable *models.Table, req GrowthRequest) (*models.Table, error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}

	profile := ProfileFor(req.Product)
	missingOld := oldTable.MissingColumns(profile.Required()...)
	missingNew := newTable.MissingColumns(profile.Required()...)
	if len(missingOld) > 0 || len(missingNew) > 0 {
		return nil, errors.MissingColumnsError(
			errors.ColumnGap{Input: "old file", Columns: missingOld},
			errors.ColumnGap{Input: "new file", Columns: missingNew},
		)
	}

	key := req.Key()
	oldGroups := Aggregate(oldTable, key, profile.Value)
	newGroups := Aggregate(newTable, key, profile.Value)

	oldByKey := make(map[string]models.Row, oldGroups.Len())
	for _, row := range oldGroups.Rows {
		_, encoded, _ := key.keyOf(row)
		oldByKey[encoded] = row
	}

	newCol := profile.Value + "_New"
	oldCol := profile.Value + "_Old"
	columns := append(append([]string{}, key...), newCol, oldCol, GrowthColumn)

	merged := models.NewTable(columns...)
	for _, row := range newGroups.Rows {
		_, encoded, _ := key.keyOf(row)
		oldRow, ok := oldByKey[encoded]
		if !ok {
			continue
		}

		newValue := row.Get(profile.Value).DecimalOrZero()
		oldValue := oldRow.Get(profile.Value).DecimalOrZero()

		joined := make(models.Row, len(columns))
		for _, c := range key {
			joined[c] = row.Get(c)
		}
		joined[newCol] = models.Number(newValue)
		joined[oldCol] = models.Number(oldValue)
		joined[GrowthColumn] = models.Number(newValue.Sub(oldValue))
		merged.AddRow(joined)
	}

	if profile.StaffName != "" && newTable.HasColumn(profile.StaffName) && key.Contains(profile.Staff) {
		merged = joinStaffNames(merged, newTable, profile)
	}

	merged = orderGrowthColumns(merged, profile, req)

	sort.SliceStable(merged.Rows, func(i, j int) bool {
		gi := merged.Rows[i].Get(GrowthColumn).DecimalOrZero()
		gj := merged.Rows[j].Get(GrowthColumn).DecimalOrZero()
		return gi.GreaterThan(gj)
	})

	return merged, nil
}

// joinStaffNames left-joins the distinct (staff, name) pairs of the source
// extract. A staff id listed under several names yields one row per name.
func joinStaffNames(merged, source *models.Table, profile ColumnProfile) *models.Table {
	names := make(map[string][]models.Value)
	seen := make(map[string]bool)
	for _, row := range source.Rows {
		staff := row.Get(profile.Staff)
		if staff.IsNull() {
			continue
		}
		name := row.Get(profile.StaffName)
		pair := staff.Key() + keySeparator + name.Key() + keySeparator + name.Kind().String()
		if seen[pair] {
			continue
		}
		seen[pair] = true
		names[staff.Key()] = append(names[staff.Key()], name)
	}

	out := models.NewTable(append(append([]string{}, merged.Columns...), profile.StaffName)...)
	for _, row := range merged.Rows {
		matches := names[row.Get(profile.Staff).Key()]
		if len(matches) == 0 {
			next := row.Clone()
			next[profile.StaffName] = models.Null()
			out.AddRow(next)
			continue
		}
		for _, name := range matches {
			next := row.Clone()
			next[profile.StaffName] = name
			out.AddRow(next)
		}
	}
	return out
}

// orderGrowthColumns puts staff, staff name and (when shown) branch first,
// then the remaining columns in their current order
func orderGrowthColumns(t *models.Table, profile ColumnProfile, req GrowthRequest) *models.Table {
	var order []string
	if t.HasColumn(profile.Staff) {
		order = append(order, profile.Staff)
	}
	if profile.StaffName != "" && t.HasColumn(profile.StaffName) {
		order = append(order, profile.StaffName)
	}
	if t.HasColumn(profile.Branch) && (req.includeBranches() || req.Mode == ModeBranch) {
		order = append(order, profile.Branch)
	}

	placed := make(map[string]bool, len(order))
	for _, c := range order {
		placed[c] = true
	}
	for _, c := range t.Columns {
		if !placed[c] {
			order = append(order, c)
		}
	}

	return t.Select(order...)
}

// GrowthTab returns the remote tab a growth result is published to. Staff-wise
// subdebt results that carry the branch column go to the branch tab.
func GrowthTab(req GrowthRequest, result *models.Table) string {
	switch req.Product {
	case ProductGold:
		if req.Mode == ModeBranch {
			return TabBranchGold
		}
		return TabStaffGold
	case ProductSubdebt:
		if req.Mode == ModeBranch {
			return TabBranchSubdebt
		}
		if result != nil && result.HasColumn(ProfileFor(ProductSubdebt).Branch) {
			return TabBranchSubdebt
		}
		return TabStaffSubdebt
	default:
		return TabUnknown
	}
}

// Remote tab names
const (
	TabBranchGold    = "BRANCH_GL"
	TabStaffGold     = "STAFF_GL"
	TabBranchSubdebt = "BRANCH_SD"
	TabStaffSubdebt  = "STAFF_SD"
	TabPending       = "SS_PENDING"
	TabNPA           = "NPA_REPORT"
	TabUnknown       = "UNKNOWN"
)

func (r GrowthRequest) String() string {
	return fmt.Sprintf("%s %s", r.Product.Title(), r.Mode.Title())
}
