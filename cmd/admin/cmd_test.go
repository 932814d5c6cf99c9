package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/markupload/internal/auth"
	"github.com/JonMunkholm/markupload/internal/core"
	"github.com/JonMunkholm/markupload/internal/store"
)

func newTestCLI(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()
	st, err := store.OpenSQLite(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	var out bytes.Buffer
	return &commandLine{
		store:    st,
		service:  core.NewService(st, st, core.ServiceOptions{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}),
		verifier: auth.NewVerifier("cli-test-secret-cli-test-secret", "", ""),
		out:      &out,
	}, &out
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCommandLine_Workflow(t *testing.T) {
	cli, out := newTestCLI(t)
	ctx := context.Background()

	if err := cli.run(ctx, []string{"admin", "createexam", "-title", "Chemistry", "-max", "50"}); err != nil {
		t.Fatalf("createexam: %v", err)
	}
	var exam core.Exam
	if err := json.Unmarshal(out.Bytes(), &exam); err != nil || exam.ID == "" || exam.MaxMarks != 50 {
		t.Fatalf("createexam output = %s (%v)", out.String(), err)
	}

	out.Reset()
	roster := writeFile(t, "roster.csv", "enrollment_no,name\nC1,Marie\nC2,Rosalind\n")
	if err := cli.run(ctx, []string{"admin", "addstudents", "-exam", exam.ID, "-file", roster}); err != nil {
		t.Fatalf("addstudents: %v", err)
	}
	if !strings.Contains(out.String(), `"added": 2`) {
		t.Errorf("addstudents output = %s", out.String())
	}

	out.Reset()
	marks := writeFile(t, "marks.csv", "enrollment_no,marks\nC1,45\nC2,60\n")
	if err := cli.run(ctx, []string{"admin", "upload", "-exam", exam.ID, "-examiner", "cli", "-file", marks}); err != nil {
		t.Fatalf("upload: %v", err)
	}
	var status core.UploadStatus
	if err := json.Unmarshal(out.Bytes(), &status); err != nil {
		t.Fatalf("upload output = %s", out.String())
	}
	if status.Successful != 1 || status.Failed != 1 {
		t.Errorf("status = %+v", status)
	}

	out.Reset()
	if err := cli.run(ctx, []string{"admin", "results", "-exam", exam.ID}); err != nil {
		t.Fatalf("results: %v", err)
	}
	var results []core.ExamResult
	json.Unmarshal(out.Bytes(), &results)
	if len(results) != 1 || results[0].MarksObtained != 45 || results[0].ExaminerID != "cli" {
		t.Errorf("results = %+v", results)
	}
}

func TestCommandLine_Token(t *testing.T) {
	cli, out := newTestCLI(t)
	if err := cli.run(context.Background(), []string{"admin", "token", "-user", "u-9", "-role", "admin"}); err != nil {
		t.Fatalf("token: %v", err)
	}
	id, err := cli.verifier.Verify(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if id.UserID != "u-9" || id.Role != "admin" {
		t.Errorf("identity = %+v", id)
	}
}

func TestCommandLine_Usage(t *testing.T) {
	cli, _ := newTestCLI(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no command", []string{"admin"}},
		{"unknown command", []string{"admin", "dropall"}},
		{"missing title", []string{"admin", "createexam"}},
		{"missing exam", []string{"admin", "upload", "-file", "x.csv"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(context.Background(), tt.args); !errors.Is(err, errHelp) {
				t.Errorf("run() error = %v, want errHelp", err)
			}
		})
	}

	err := cli.run(context.Background(), []string{"admin", "addstudents", "-exam", "missing", "-file", "x.csv"})
	if !errors.Is(err, core.ErrExamNotFound) {
		t.Errorf("addstudents unknown exam error = %v", err)
	}
}
