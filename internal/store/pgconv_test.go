package store

import (
	"testing"
	"time"
)

func TestPgUUIDRoundTrip(t *testing.T) {
	const id = "3f2b8c1e-6d4a-4b7e-9a55-0c1d2e3f4a5b"

	u, err := toPgUUID(id)
	if err != nil {
		t.Fatalf("toPgUUID() error = %v", err)
	}
	if got := fromPgUUID(u); got != id {
		t.Errorf("fromPgUUID() = %q, want %q", got, id)
	}

	if _, err := toPgUUID("not-a-uuid"); err == nil {
		t.Error("toPgUUID(not-a-uuid) succeeded")
	}
}

func TestToPgNumeric(t *testing.T) {
	tests := []struct {
		name  string
		in    *float64
		valid bool
		want  float64
	}{
		{"nil is NULL", nil, false, 0},
		{"whole", ptr(85.0), true, 85},
		{"two places", ptr(66.67), true, 66.67},
		{"rounded to two places", ptr(33.3333), true, 33.33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := toPgNumeric(tt.in)
			if err != nil {
				t.Fatalf("toPgNumeric() error = %v", err)
			}
			if n.Valid != tt.valid {
				t.Fatalf("Valid = %v, want %v", n.Valid, tt.valid)
			}
			got := fromPgNumeric(n)
			if !tt.valid {
				if got != nil {
					t.Errorf("fromPgNumeric() = %v, want nil", *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Errorf("fromPgNumeric() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPgTextAndTime(t *testing.T) {
	if txt := toPgText(nil); txt.Valid {
		t.Error("toPgText(nil) is valid")
	}
	s := "ok"
	if got := fromPgText(toPgText(&s)); got == nil || *got != "ok" {
		t.Errorf("text round trip = %v", got)
	}

	if ts := toPgTimestamptz(time.Time{}); ts.Valid {
		t.Error("zero time should be NULL")
	}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if got := fromPgTimestamptz(toPgTimestamptz(now)); got == nil || !got.Equal(now) {
		t.Errorf("time round trip = %v", got)
	}
}

func ptr[T any](v T) *T { return &v }
