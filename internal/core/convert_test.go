package core

import (
	"math"
	"testing"
)

func TestCleanCell(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  S100  ", "S100"},
		{`"S100"`, "S100"},
		{"'S100'", "S100"},
		{`="S100"`, "S100"},
		{"=S100", "S100"},
		{`" S100 "`, "S100"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := CleanCell(tt.input); got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseMarksStrict(t *testing.T) {
	tests := []struct {
		input string
		want  int
		ok    bool
	}{
		{"85", 85, true},
		{" 0 ", 0, true},
		{"-1", -1, true},
		{"85.0", 85, true},
		{"1e2", 100, true},
		{"85.5", 0, false},
		{"7x", 0, false},
		{"", 0, false},
		{"NaN", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseMarksStrict(tt.input)
			if ok != tt.ok || (ok && got != tt.want) {
				t.Errorf("ParseMarksStrict(%q) = %d, %v; want %d, %v", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseMarksLenient(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"85", 85},
		{"85.9", 85},
		{"42abc", 42},
		{"-3 marks", -3},
		{"+7", 7},
		{"abc", 0},
		{"-", 0},
		{"", 0},
		{"99999999999999999999", math.MaxInt},
		{"-99999999999999999999", math.MinInt},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseMarksLenient(tt.input); got != tt.want {
				t.Errorf("ParseMarksLenient(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestToRemarks(t *testing.T) {
	tests := []struct {
		input string
		want  *string
	}{
		{"", nil},
		{"   ", nil},
		{`""`, nil},
		{"Good work", strPtr("Good work")},
		{`"Good work"`, strPtr("Good work")},
		{`""quoted""`, strPtr(`"quoted"`)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ToRemarks(tt.input)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("ToRemarks(%q) = %q, want nil", tt.input, *got)
			case tt.want != nil && (got == nil || *got != *tt.want):
				t.Errorf("ToRemarks(%q) = %v, want %q", tt.input, got, *tt.want)
			}
		})
	}
}

func strPtr(s string) *string { return &s }
