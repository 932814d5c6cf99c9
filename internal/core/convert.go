package core

// convert.go turns raw CSV cells into typed values.
//
// Spreadsheet exports are messy: stray whitespace, Excel formula prefixes
// (="S100"), quotes that survive the CSV reader, and marks written as
// "85.0". These helpers normalize all of that before validation.

import (
	"bytes"
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// utf8BOM is prepended by Excel and other Windows tools.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}

// stripQuotePair removes one pair of surrounding double quotes.
func stripQuotePair(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// ToRemarks converts a remarks cell to a nullable string.
func ToRemarks(s string) *string {
	s = strings.TrimSpace(stripQuotePair(strings.TrimSpace(s)))
	if s == "" {
		return nil
	}
	return &s
}

// ParseMarksStrict accepts integers and integral decimals ("85", "85.0").
func ParseMarksStrict(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// ParseMarksLenient reads the leading integer of s, the way a browser's
// parseInt does, and falls back to 0 when there is none. Values too large
// for an int saturate instead of wrapping to 0.
func ParseMarksLenient(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if errors.Is(err, strconv.ErrRange) {
		// Too many digits: keep the sign so the range check still rejects it.
		if s[0] == '-' {
			return math.MinInt
		}
		return math.MaxInt
	}
	if err != nil {
		return 0
	}
	return n
}

// normalizeEnrollment trims and lowercases an enrollment number.
func normalizeEnrollment(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// removeWhitespace drops every Unicode whitespace rune from s.
func removeWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// sanitizeUTF8 replaces invalid UTF-8 sequences with U+FFFD.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune(utf8.RuneError)
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}

// isEmptyRow reports whether every cell of row is blank.
func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
