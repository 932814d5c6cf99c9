package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/JonMunkholm/markupload/internal/core"
)

func TestUploadSummary(t *testing.T) {
	tests := []struct {
		name    string
		params  SummaryParams
		want    []string
		notWant []string
	}{
		{
			name: "clean",
			params: SummaryParams{
				FileName: "marks.csv",
				Status:   core.UploadStatus{Total: 2, Successful: 2, Inserted: 2},
			},
			want:    []string{`<div class="upload-summary upload-summary--success" id="upload-summary">`, "marks.csv", "<dt>Inserted</dt><dd>2</dd>"},
			notWant: []string{"upload-summary__errors"},
		},
		{
			name: "row errors are escaped",
			params: SummaryParams{
				Status: core.UploadStatus{Total: 1, Failed: 1},
				Errors: []string{`Row 2 (<b>S1</b>): student not found: <b>S1</b>`},
			},
			want:    []string{"upload-summary--warning", "&lt;b&gt;S1&lt;/b&gt;"},
			notWant: []string{"<b>S1</b>"},
		},
		{
			name:    "file error",
			params:  SummaryParams{Error: "csv file is empty"},
			want:    []string{"upload-summary--error", "csv file is empty"},
			notWant: []string{"<dl"},
		},
		{
			name:   "cancelled",
			params: SummaryParams{Status: core.UploadStatus{Total: 5, Processed: 2, Successful: 2, Cancelled: true}},
			want:   []string{"Upload was cancelled"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := UploadSummary(tt.params).Render(context.Background(), &buf); err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			out := buf.String()
			for _, s := range tt.want {
				if !strings.Contains(out, s) {
					t.Errorf("output missing %q:\n%s", s, out)
				}
			}
			for _, s := range tt.notWant {
				if strings.Contains(out, s) {
					t.Errorf("output should not contain %q:\n%s", s, out)
				}
			}
		})
	}
}

func TestErrorAlert(t *testing.T) {
	var buf bytes.Buffer
	if err := ErrorAlert("Exam not found", "Check the exam and try again", "EXM001").Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	out := buf.String()
	for _, s := range []string{`role="alert"`, "Exam not found", "Check the exam", "EXM001"} {
		if !strings.Contains(out, s) {
			t.Errorf("output missing %q: %s", s, out)
		}
	}
}
