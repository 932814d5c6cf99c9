package core

import (
	"context"
	"fmt"
	"time"
)

// PlanWrite decides whether a row inserts a new result or updates the
// existing one, and builds the fields to write.
//
// The classification is advisory: stores apply the write as an atomic
// upsert, so a concurrent insert between FindResult and UpsertResult still
// leaves a single row. Percentage is nil on this path; callers that want it
// stored set it on the returned plan.
func PlanWrite(ctx context.Context, store ResultStore, exam Exam, student Student, row CsvRow, examinerID string, now time.Time) (WritePlan, error) {
	existing, err := store.FindResult(ctx, exam.ID, student.ID)
	if err != nil {
		return WritePlan{}, fmt.Errorf("find result: %w", err)
	}

	plan := WritePlan{
		Op: OpInsert,
		Write: ResultWrite{
			ExamID:        exam.ID,
			StudentID:     student.ID,
			MarksObtained: row.Marks,
			Remarks:       row.Remarks,
			Status:        StatusGraded,
			ExaminerID:    examinerID,
			At:            now,
		},
	}
	if existing != nil {
		plan.Op = OpUpdate
		plan.ResultID = existing.ID
	}

	return plan, nil
}
