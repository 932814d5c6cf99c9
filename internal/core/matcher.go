package core

import "fmt"

// StudentNotFoundError reports a row whose enrollment number matched no student.
type StudentNotFoundError struct {
	EnrollmentNumber string
}

func (e *StudentNotFoundError) Error() string {
	return fmt.Sprintf("student not found: %s", e.EnrollmentNumber)
}

// matchKey holds the two normalized forms of a stored enrollment number.
type matchKey struct {
	trimmed string // trim + lowercase
	compact string // lowercase with all whitespace removed
}

// StudentMatcher resolves CSV enrollment numbers to students.
//
// Keys are computed once at construction. Students are tried in list order
// and the first match wins; duplicates in the roster are not detected.
type StudentMatcher struct {
	students []Student
	keys     []matchKey
}

// NewStudentMatcher builds a matcher over students.
func NewStudentMatcher(students []Student) *StudentMatcher {
	m := &StudentMatcher{
		students: students,
		keys:     make([]matchKey, len(students)),
	}
	for i, s := range students {
		trimmed := normalizeEnrollment(s.EnrollmentNumber)
		m.keys[i] = matchKey{
			trimmed: trimmed,
			compact: removeWhitespace(trimmed),
		}
	}
	return m
}

// Match returns the first student whose enrollment number matches raw.
//
// A student matches when either side, with whitespace removed, equals the
// other side trimmed and lowercased, or both trimmed forms are equal.
func (m *StudentMatcher) Match(raw string) (Student, error) {
	trimmed := normalizeEnrollment(raw)
	compact := removeWhitespace(trimmed)

	for i, k := range m.keys {
		if trimmed == k.trimmed || compact == k.trimmed || trimmed == k.compact {
			return m.students[i], nil
		}
	}

	return Student{}, &StudentNotFoundError{EnrollmentNumber: raw}
}

// Len returns the number of students the matcher knows about.
func (m *StudentMatcher) Len() int {
	return len(m.students)
}
