// Package core provides the business logic for cleaning tabular datasets.
//
// This package holds all domain logic independent of any UI or transport
// layer. The CLI and the HTTP server both drive it through [Pipeline].
//
// # Pipeline
//
// A run passes a [Table] through five stages in fixed order:
//
//  1. Load: [Loader] reads a delimited text file (or the first sheet of an
//     .xlsx workbook). The first record is the header.
//  2. Deduplicate: [Deduplicate] keeps the first occurrence of each record.
//  3. Normalize: [NormalizeCells] applies fill-if-empty ([Sentinel]),
//     strip-leading-zeros and remove-whitespace to every cell.
//  4. Combine: [CombineColumns] replaces "Mo Sold" and "Yr Sold" with
//     "Date When Sold" as "month/year".
//  5. Write: [Writer] writes header and records to the destination.
//
// Usage:
//
//	p := core.NewPipeline(core.WithDelimiter(';'))
//	report, err := p.Run(ctx, "data.csv", "applied_changes_data.csv")
//
// # Error Handling
//
// Load and write failures are [*StageError] values of kind [ErrIO] or
// [ErrFormat]. Technical errors are mapped to user-friendly messages with a
// support code using [MapError].
//
// # Run History
//
// When a database is configured, every run report is stored in the clean_runs
// table by [PgRunRecorder].
package core
