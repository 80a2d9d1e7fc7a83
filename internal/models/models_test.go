package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestValue_Kind(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		kind  Kind
	}{
		{"zero value", Value{}, KindNull},
		{"blank text", Text("   "), KindNull},
		{"text", Text("GOLD"), KindText},
		{"number", Int(5), KindNumber},
		{"date", Date(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)), KindDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.Kind(); got != tt.kind {
				t.Errorf("Kind() = %v, want %v", got, tt.kind)
			}
		})
	}
}

func TestValue_Decimal(t *testing.T) {
	tests := []struct {
		name   string
		value  Value
		want   string
		wantOK bool
	}{
		{"plain text", Text("1500"), "1500", true},
		{"thousands separators", Text("1,23,456.50"), "123456.5", true},
		{"padded", Text("  42 "), "42", true},
		{"number", Number(decimal.RequireFromString("10.25")), "10.25", true},
		{"not a number", Text("N/A"), "0", false},
		{"null", Null(), "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.value.Decimal()
			if ok != tt.wantOK {
				t.Fatalf("Decimal() ok = %v, want %v", ok, tt.wantOK)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Decimal() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input  string
		want   time.Time
		wantOK bool
	}{
		{"05-03-2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"5/3/2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"13-01-2024", time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC), true},
		{"05-03-2024 10:30:00", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"05-Mar-2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"2024-03-05T00:00:00Z", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"45356", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"365", time.Time{}, false},
		{"31-02-2024", time.Time{}, false},
		{"not a date", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDaysBetween(t *testing.T) {
	start := MustParseDate("01-01-2024")
	end := MustParseDate("01-03-2024")

	if got := DaysBetween(start, end); got != 60 {
		t.Errorf("DaysBetween() = %d, want 60", got)
	}
	if got := DaysBetween(end, start); got != -60 {
		t.Errorf("DaysBetween() reversed = %d, want -60", got)
	}

	// a mistyped year puts maturity centuries away
	old := MustParseDate("11-01-1700")
	current := MustParseDate("01-06-2024")
	want := int64(118480)
	if got := DaysBetween(old, current); got != want {
		t.Errorf("DaysBetween() over 300 years = %d, want %d", got, want)
	}
	if got := DaysBetween(current, old); got != -want {
		t.Errorf("DaysBetween() over 300 years reversed = %d, want %d", got, -want)
	}
}

func TestValue_MarshalJSON(t *testing.T) {
	row := map[string]Value{
		"amount": Int(1500),
		"name":   Text("A"),
		"empty":  Null(),
		"date":   Date(MustParseDate("05-03-2024")),
		"fixed":  Fixed(decimal.NewFromInt(3000), 2),
	}

	data, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `{"amount":1500,"date":"05-03-2024","empty":null,"fixed":3000.00,"name":"A"}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}
