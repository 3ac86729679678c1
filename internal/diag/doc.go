// Package diag defines the parse-diagnostic model shared by the front ends and
// the driver.
//
// # Purpose
//
//   - Provide deterministic data structures for problems found while turning
//     markup, script and style text into models.
//   - Offer light-weight utilities (Reporter, Bag) that let front ends emit
//     diagnostics without coupling to concrete storage or formatting layers.
//
// Accessibility findings are not diagnostics; they live in internal/issue. The
// two share Severity so the report layer can treat them uniformly.
//
// # Data model
//
// Diagnostic is the central record. It contains:
//
//   - Severity – tri-level enum (Info, Warning, Error) defined in severity.go.
//   - Code – compact numeric identifier (see codes.go) with stable string form.
//   - Message – human oriented text; keep it short and actionable.
//   - Primary span – the canonical source.Span pointing to the problem.
//   - Notes – optional secondary spans/messages for additional context.
//
// # Emitting diagnostics
//
// Front ends construct a ReportBuilder via NewReportBuilder (or the helpers
// ReportError/ReportWarning/ReportInfo), chain WithNote and call Emit. When no
// notes are needed, Reporter.Report may be called directly. NewBagReporter
// aggregates into a Bag, which supports sorting and deduplication.
package diag
