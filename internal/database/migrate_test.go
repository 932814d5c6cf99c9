package database

import (
	"strings"
	"testing"
)

func TestMigrations_Embedded(t *testing.T) {
	migrations, err := Migrations()
	if err != nil {
		t.Fatalf("Migrations() error = %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("no migrations embedded")
	}
	if migrations[0].Version != "0001_init" {
		t.Errorf("first version = %q, want 0001_init", migrations[0].Version)
	}

	for i := 1; i < len(migrations); i++ {
		if migrations[i-1].Version >= migrations[i].Version {
			t.Errorf("migrations out of order: %s before %s", migrations[i-1].Version, migrations[i].Version)
		}
	}
}

func TestMigrations_ResultUniqueness(t *testing.T) {
	migrations, err := Migrations()
	if err != nil {
		t.Fatal(err)
	}
	schema := migrations[0].SQL

	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS exam_results",
		"UNIQUE (exam_id, student_id)",
		"REFERENCES exams (id)",
		"REFERENCES students (id)",
	} {
		if !strings.Contains(schema, want) {
			t.Errorf("0001_init.sql missing %q", want)
		}
	}
}

func TestUpsertQueryTargetsUniqueKey(t *testing.T) {
	if !strings.Contains(upsertExamResult, "ON CONFLICT (exam_id, student_id) DO UPDATE") {
		t.Error("UpsertExamResult must resolve conflicts on (exam_id, student_id)")
	}
	if strings.Contains(upsertExamResult, "submitted_at   = EXCLUDED") {
		t.Error("updates must keep the original submitted_at")
	}
}
