// Package dialect decides which front end reads a source: markup, script or
// style. The extension decides when it is known; otherwise content evidence
// is scored and the strongest dialect wins.
package dialect
