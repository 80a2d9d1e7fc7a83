package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Kind identifies what a cell Value holds
type Kind int

const (
	// KindNull is an absent or blank cell
	KindNull Kind = iota
	// KindText is a cell kept as the text found in the source file
	KindText
	// KindNumber is a numeric cell
	KindNumber
	// KindDate is a calendar date cell
	KindDate
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "null"
	}
}

// DisplayDateLayout is the day-first layout used for every rendered date
const DisplayDateLayout = "02-01-2006"

// Value is a single table cell. The zero Value is null.
type Value struct {
	kind Kind
	text string
	num  decimal.Decimal
	date time.Time
	// places > 0 renders num with that many decimals
	places int32
}

// Null returns the null Value
func Null() Value {
	return Value{}
}

// Text returns a text Value. Blank text is null.
func Text(s string) Value {
	if strings.TrimSpace(s) == "" {
		return Value{}
	}
	return Value{kind: KindText, text: s}
}

// Number returns a numeric Value
func Number(d decimal.Decimal) Value {
	return Value{kind: KindNumber, num: d}
}

// Fixed returns a numeric Value rounded half-even to places decimals and
// rendered with exactly that many, so 3000 shows as "3000.00"
func Fixed(d decimal.Decimal, places int32) Value {
	return Value{kind: KindNumber, num: d.RoundBank(places), places: places}
}

// Int returns a numeric Value from an integer
func Int(n int64) Value {
	return Number(decimal.NewFromInt(n))
}

// Date returns a date Value
func Date(t time.Time) Value {
	return Value{kind: KindDate, date: t}
}

// Kind returns what the Value holds
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the Value is null
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// String renders the Value for display and export. Null renders empty.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return v.numberString()
	case KindDate:
		return v.date.Format(DisplayDateLayout)
	default:
		return ""
	}
}

// Key returns the trimmed text used when the Value takes part in a grouping key
func (v Value) Key() string {
	return strings.TrimSpace(v.String())
}

// Decimal converts the Value to a number. Text is parsed with thousands
// separators removed. The second result is false when no number can be read.
func (v Value) Decimal() (decimal.Decimal, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindText:
		return ParseAmount(v.text)
	default:
		return decimal.Zero, false
	}
}

// DecimalOrZero converts the Value to a number, treating anything unreadable as zero
func (v Value) DecimalOrZero() decimal.Decimal {
	d, ok := v.Decimal()
	if !ok {
		return decimal.Zero
	}
	return d
}

// Time converts the Value to a date. Text is parsed day-first.
func (v Value) Time() (time.Time, bool) {
	switch v.kind {
	case KindDate:
		return v.date, true
	case KindText:
		return ParseDate(v.text)
	case KindNumber:
		f, _ := v.num.Float64()
		return fromExcelSerial(f)
	default:
		return time.Time{}, false
	}
}

// Equal compares two Values by kind and content
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.text == other.text
	case KindNumber:
		return v.num.Equal(other.num)
	case KindDate:
		return v.date.Equal(other.date)
	default:
		return true
	}
}

// MarshalJSON renders numbers as JSON numbers and null as null
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindNumber:
		return []byte(v.numberString()), nil
	default:
		return json.Marshal(v.String())
	}
}

func (v Value) numberString() string {
	if v.places > 0 {
		return v.num.StringFixed(v.places)
	}
	return v.num.String()
}

// ParseAmount reads a number such as "1,23,456.50" or " 1500 "
func ParseAmount(s string) (decimal.Decimal, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if cleaned == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// dayFirstLayouts are tried in order; numeric forms are always read day before month
var dayFirstLayouts = []string{
	"2-1-2006",
	"2/1/2006",
	"2.1.2006",
	"2-1-2006 15:04:05",
	"2/1/2006 15:04:05",
	"2-1-2006 15:04",
	"2/1/2006 15:04",
	"2-Jan-2006",
	"2 Jan 2006",
	"2-January-2006",
	"2 January 2006",
	"2-1-06",
	"2/1/06",
	"2-Jan-06",
	"2006-1-2",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/1/2",
}

// Excel serials inside this window (1954 to 2119) are accepted as dates
const (
	minExcelSerial = 20000
	maxExcelSerial = 80000
)

// ParseDate reads a date day-first. A bare number in the Excel serial range is
// read as a spreadsheet date. The result is truncated to midnight UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOnly(t), true
		}
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromExcelSerial(f)
	}

	return time.Time{}, false
}

// MustParseDate is ParseDate for literals known to be valid
func MustParseDate(s string) time.Time {
	t, ok := ParseDate(s)
	if !ok {
		panic(fmt.Sprintf("models: invalid date literal %q", s))
	}
	return t
}

// DateOnly drops the clock part of t and moves it to UTC
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of days from start to end. It works on
// Unix seconds so spans beyond the range of time.Duration stay exact.
func DaysBetween(start, end time.Time) int64 {
	return (DateOnly(end).Unix() - DateOnly(start).Unix()) / secondsPerDay
}

const secondsPerDay = 24 * 60 * 60

func fromExcelSerial(f float64) (time.Time, bool) {
	if f < minExcelSerial || f > maxExcelSerial {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return time.Time{}, false
	}
	return DateOnly(t), true
}
