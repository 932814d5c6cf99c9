// Package templates renders the HTMX fragments returned to browser clients.
// Components live in .templ files; run `templ generate` after editing them.
package templates

import "github.com/JonMunkholm/markupload/internal/core"

// SummaryParams is the data behind the upload summary fragment.
type SummaryParams struct {
	FileName string
	Status   core.UploadStatus
	Errors   []string // already truncated for display
	Error    string   // file-level failure
}

// summaryTone picks the modifier class of the summary box.
func summaryTone(p SummaryParams) string {
	switch {
	case p.Error != "":
		return "error"
	case p.Status.Cancelled, p.Status.Failed > 0:
		return "warning"
	}
	return "success"
}

type summaryCount struct {
	label string
	value int
}

func summaryCounts(s core.UploadStatus) []summaryCount {
	return []summaryCount{
		{"Total", s.Total},
		{"Successful", s.Successful},
		{"Failed", s.Failed},
		{"Inserted", s.Inserted},
		{"Updated", s.Updated},
	}
}
