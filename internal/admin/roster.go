// Package admin provides operator tasks that sit outside the upload flow:
// creating exams and loading their class lists.
package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/JonMunkholm/markupload/internal/core"
)

// ImportTimeout bounds a whole roster import.
const ImportTimeout = 2 * time.Minute

// RosterWriter creates and enrolls students.
type RosterWriter interface {
	AddStudent(ctx context.Context, examID, enrollmentNumber, displayName string) (core.Student, error)
}

// ImportResult reports a roster import. Errors use the same
// "Row <line> (<enrollment>): <reason>" shape as mark uploads.
type ImportResult struct {
	Added  int      `json:"added"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors"`
}

var (
	rosterEnrollmentHeaders = []string{"enrollment_no", "enrollment_number", "enrollmentno", "enrollment", "student_id"}
	rosterNameHeaders       = []string{"display_name", "name", "student_name", "full_name"}
)

// ImportRoster enrolls every student listed in a class-list CSV. The file
// needs an enrollment column; a name column is optional. Rows are applied
// one at a time and a failing row does not stop the rest.
func ImportRoster(ctx context.Context, w RosterWriter, examID string, r io.Reader) (ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("read roster: %w", err)
	}
	cr := core.NewCSVReader(data)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return ImportResult{}, core.ErrEmptyFile
	}
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: %w", core.ErrInvalidCSV, err)
	}

	enrollCol := headerIndex(header, rosterEnrollmentHeaders)
	if enrollCol < 0 {
		return ImportResult{}, &core.MissingColumnError{Missing: []string{"enrollment_no"}}
	}
	nameCol := headerIndex(header, rosterNameHeaders)

	ctx, cancel := context.WithTimeout(ctx, ImportTimeout)
	defer cancel()

	result := ImportResult{Errors: []string{}}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, fmt.Errorf("%w: %w", core.ErrInvalidCSV, err)
		}
		line, _ := cr.FieldPos(0)

		enrollment := field(record, enrollCol)
		if enrollment == "" {
			continue
		}

		if _, err := w.AddStudent(ctx, examID, enrollment, field(record, nameCol)); err != nil {
			result.Failed++
			result.Errors = append(result.Errors,
				fmt.Sprintf("Row %d (%s): %s", line, enrollment, core.ClassifyWriteError(err)))
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			continue
		}
		result.Added++
	}
	return result, nil
}

func headerIndex(header []string, names []string) int {
	for i, h := range header {
		h = strings.ToLower(core.CleanCell(h))
		for _, n := range names {
			if h == n {
				return i
			}
		}
	}
	return -1
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return core.CleanCell(record[i])
}
