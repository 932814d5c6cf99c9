package core

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
)

// SampleHeader is the header row of the downloadable template. Uploads
// using it parse without any synonym lookup.
var SampleHeader = []string{"enrollment_no", "marks", "remarks"}

const (
	sampleRealStudents = 3
	sampleMinRows      = 3
)

var sampleRemarks = []string{"Good work", "Needs improvement", "Excellent"}

// SampleCSV builds a template file: up to three real students with example
// marks, padded with STU001-style placeholders to at least three rows.
func SampleCSV(students []Student, maxMarks int) []byte {
	if maxMarks <= 0 {
		maxMarks = 100
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(SampleHeader)

	rows := 0
	for _, s := range students {
		if rows == sampleRealStudents {
			break
		}
		if s.EnrollmentNumber == "" {
			continue
		}
		_ = w.Write(sampleRow(s.EnrollmentNumber, rows, maxMarks))
		rows++
	}
	for rows < sampleMinRows {
		_ = w.Write(sampleRow(fmt.Sprintf("STU%03d", rows+1), rows, maxMarks))
		rows++
	}

	w.Flush()
	return buf.Bytes()
}

// sampleRow spreads example marks across the exam's range.
func sampleRow(enrollment string, i, maxMarks int) []string {
	marks := maxMarks * (85 - 10*i) / 100
	return []string{enrollment, strconv.Itoa(marks), sampleRemarks[i%len(sampleRemarks)]}
}
