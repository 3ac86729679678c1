// Package selector parses the simple compound selectors used by merge.
//
// A compound is a run of simple selectors with no combinator between them:
// a type or universal selector, #id, .class, [attr] / [attr="v"], pseudo
// classes and at most one pseudo element. Selectors that contain a
// combinator are rejected with ErrCombinator; callers keep the raw text but
// never match it against elements.
//
// Every compound reduces to a list of canonical parts ("#id", ".cls", "tag",
// `[name="v"]`). An element exposes the same vocabulary through Candidates,
// and a compound matches an element iff every one of its parts is a member of
// the element's candidate set.
package selector
