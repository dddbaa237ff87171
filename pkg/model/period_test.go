package model

import (
	"testing"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		year    int
		quarter int
		wantErr bool
	}{
		{name: "first quarter", input: "2025Q1", year: 2025, quarter: 1},
		{name: "fourth quarter", input: "1999Q4", year: 1999, quarter: 4},
		{name: "lowercase q", input: "2025q2", year: 2025, quarter: 2},
		{name: "quarter zero", input: "2025Q0", wantErr: true},
		{name: "quarter five", input: "2025Q5", wantErr: true},
		{name: "short year", input: "25Q1", wantErr: true},
		{name: "missing quarter", input: "2025", wantErr: true},
		{name: "trailing garbage", input: "2025Q1x", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePeriod(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParsePeriod(%q) = %v, want error", tt.input, p)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePeriod(%q) error: %v", tt.input, err)
			}
			if p.Year() != tt.year || p.Quarter() != tt.quarter {
				t.Errorf("ParsePeriod(%q) = %dQ%d, want %dQ%d",
					tt.input, p.Year(), p.Quarter(), tt.year, tt.quarter)
			}
		})
	}
}

func TestPeriodString(t *testing.T) {
	tests := []struct {
		year    int
		quarter int
		want    string
	}{
		{2025, 1, "2025Q1"},
		{2030, 4, "2030Q4"},
		{999, 2, "0999Q2"},
	}
	for _, tt := range tests {
		got := NewPeriod(tt.year, tt.quarter).String()
		if got != tt.want {
			t.Errorf("NewPeriod(%d, %d).String() = %q, want %q",
				tt.year, tt.quarter, got, tt.want)
		}
	}
}

func TestPeriodArithmetic(t *testing.T) {
	p := MustParsePeriod("2025Q1")

	if got := p.Next().String(); got != "2025Q2" {
		t.Errorf("Next() = %s, want 2025Q2", got)
	}
	if got := p.Prev().String(); got != "2024Q4" {
		t.Errorf("Prev() = %s, want 2024Q4", got)
	}
	if got := p.Add(4).String(); got != "2026Q1" {
		t.Errorf("Add(4) = %s, want 2026Q1", got)
	}
	if got := p.Add(-5).String(); got != "2023Q4" {
		t.Errorf("Add(-5) = %s, want 2023Q4", got)
	}
	if got := p.Add(7).Sub(p); got != 7 {
		t.Errorf("Sub = %d, want 7", got)
	}
	if !p.Before(p.Next()) || p.After(p.Next()) {
		t.Error("ordering across a year-quarter boundary is wrong")
	}
}

func TestPeriodTextRoundTrip(t *testing.T) {
	p := MustParsePeriod("2027Q3")
	text, err := p.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	var back Period
	if err := back.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText(%q): %v", text, err)
	}
	if back != p {
		t.Errorf("round trip = %s, want %s", back, p)
	}
}

func TestPeriodRange(t *testing.T) {
	start := MustParsePeriod("2024Q3")
	end := MustParsePeriod("2025Q2")

	got := PeriodRange(start, end)
	want := []string{"2024Q3", "2024Q4", "2025Q1", "2025Q2"}
	if len(got) != len(want) {
		t.Fatalf("PeriodRange returned %d periods, want %d", len(got), len(want))
	}
	for i, p := range got {
		if p.String() != want[i] {
			t.Errorf("PeriodRange[%d] = %s, want %s", i, p, want[i])
		}
	}

	if got := PeriodRange(end, start); got != nil {
		t.Errorf("PeriodRange(end, start) = %v, want nil", got)
	}
	if got := PeriodRange(start, start); len(got) != 1 {
		t.Errorf("single-quarter range has %d periods, want 1", len(got))
	}
}
