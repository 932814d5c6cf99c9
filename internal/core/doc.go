// Package core provides the business logic for exam mark uploads.
//
// This package has no UI or transport dependencies. Web handlers, tests and
// command-line tools all drive it through [Service].
//
// # Upload Flow
//
// A marks file moves through five stages:
//
//  1. [ParseMarksCSV] resolves the header by synonym and extracts rows.
//     Rows without an enrollment number or marks are skipped and counted.
//  2. [ValidateRow] checks 0 <= marks <= Exam.MaxMarks.
//  3. [StudentMatcher] resolves the enrollment number, tolerating case and
//     stray whitespace on either side.
//  4. [PlanWrite] classifies the write as an insert or an update.
//  5. [Executor] applies rows one at a time and accumulates an
//     [UploadStatus]. A failed row never stops the batch or undoes earlier
//     rows.
//
// File-level problems (empty file, missing columns, invalid inputs) abort
// before any write. Row-level problems end up in UploadStatus.Errors as
// "Row <line> (<enrollment>): <reason>".
//
// # Asynchronous Uploads
//
// [Service.StartUpload] runs a batch in the background under an
// [UploadLimiter]. Progress is broadcast to [Service.SubscribeProgress]
// listeners and the final [UploadResult] stays available for a retention
// period after the batch ends.
//
// # Error Handling
//
// Store rejections are classified by [ClassifyWriteError] into reference,
// duplicate and schema errors. File and request errors map to coded user
// messages through [MapError].
package core
