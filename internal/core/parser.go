package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrEmptyFile is returned when a marks file has no non-empty lines.
var ErrEmptyFile = errors.New("csv file is empty")

// ErrInvalidCSV wraps reader errors for files that are not CSV at all.
var ErrInvalidCSV = errors.New("invalid csv")

// MissingColumnError is a file-level error: a required header is absent.
type MissingColumnError struct {
	Missing []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required column(s): %s", strings.Join(e.Missing, ", "))
}

// Header synonyms, matched case-insensitively after trimming and unquoting.
var (
	enrollmentHeaders = []string{"enrollment_no", "enrollmentno", "enrollment", "student_id"}
	marksHeaders      = []string{"marks", "marks_obtained", "score"}
	remarksHeaders    = []string{"remarks", "comments", "feedback"}
)

// ParseOptions controls how marks cells are interpreted.
type ParseOptions struct {
	// LenientMarks reads the leading integer of a marks cell and treats
	// anything else as 0, instead of failing the row.
	LenientMarks bool
}

// ParseStats counts data lines by outcome. Emitted + Skipped == DataLines.
type ParseStats struct {
	DataLines int `json:"data_lines"`
	Emitted   int `json:"emitted"`
	Skipped   int `json:"skipped"`
}

// columnIndex holds resolved column positions; -1 means absent.
type columnIndex struct {
	enrollment int
	marks      int
	remarks    int
}

// NewCSVReader returns a tolerant reader over an uploaded file: the BOM is
// dropped, invalid UTF-8 is replaced and rows may have any width.
func NewCSVReader(data []byte) *csv.Reader {
	data = bytes.TrimPrefix(data, utf8BOM)
	data = sanitizeUTF8(data)

	r := csv.NewReader(bytes.NewReader(data))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	return r
}

// ParseMarksCSV turns raw file bytes into candidate rows.
//
// The first non-empty line is the header. Data rows missing an enrollment
// number or marks, including rows of empty cells, are skipped and counted. A file-level problem (no header,
// missing required column, malformed CSV) returns an error and no rows.
func ParseMarksCSV(data []byte, opts ParseOptions) ([]CsvRow, ParseStats, error) {
	var stats ParseStats

	r := NewCSVReader(data)

	var (
		cols   columnIndex
		header bool
		rows   []CsvRow
	)

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ParseStats{}, fmt.Errorf("%w: %w", ErrInvalidCSV, err)
		}
		if !header && isEmptyRow(record) {
			continue
		}
		// A blank line is not a data line; a row of empty cells (",,") is.
		if header && len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		if !header {
			cols, err = resolveColumns(record)
			if err != nil {
				return nil, ParseStats{}, err
			}
			header = true
			continue
		}

		line, _ := r.FieldPos(0)
		stats.DataLines++

		enrollment := CleanCell(cell(record, cols.enrollment))
		marksRaw := strings.TrimSpace(cell(record, cols.marks))
		if enrollment == "" || marksRaw == "" {
			stats.Skipped++
			continue
		}

		row := CsvRow{
			Line:             line,
			EnrollmentNumber: enrollment,
			MarksRaw:         marksRaw,
		}
		if opts.LenientMarks {
			row.Marks = ParseMarksLenient(marksRaw)
			row.MarksValid = true
		} else {
			row.Marks, row.MarksValid = ParseMarksStrict(marksRaw)
		}
		if cols.remarks >= 0 {
			row.Remarks = ToRemarks(cell(record, cols.remarks))
		}

		rows = append(rows, row)
		stats.Emitted++
	}

	if !header {
		return nil, ParseStats{}, ErrEmptyFile
	}

	return rows, stats, nil
}

// resolveColumns maps header cells to column positions. The first column
// matching any synonym wins.
func resolveColumns(header []string) (columnIndex, error) {
	cols := columnIndex{
		enrollment: findColumn(header, enrollmentHeaders),
		marks:      findColumn(header, marksHeaders),
		remarks:    findColumn(header, remarksHeaders),
	}

	var missing []string
	if cols.enrollment < 0 {
		missing = append(missing, "enrollment_no")
	}
	if cols.marks < 0 {
		missing = append(missing, "marks")
	}
	if len(missing) > 0 {
		return cols, &MissingColumnError{Missing: missing}
	}

	return cols, nil
}

func findColumn(header []string, names []string) int {
	for i, h := range header {
		h = strings.ToLower(CleanCell(h))
		for _, name := range names {
			if h == name {
				return i
			}
		}
	}
	return -1
}

// cell returns record[i], or "" when the row is too short.
func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}
