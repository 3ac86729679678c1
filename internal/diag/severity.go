package diag

import (
	"fmt"
	"strings"
)

// Severity defines the importance of a diagnostic or issue.
type Severity uint8

const (
	// SevInfo is for informational diagnostics.
	SevInfo Severity = iota
	// SevWarning is for warning diagnostics.
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Lower returns the lower-case label used by json and sarif output.
func (s Severity) Lower() string {
	switch s {
	case SevError:
		return "error"
	case SevWarning:
		return "warning"
	default:
		return "info"
	}
}

// Downgrade lowers the severity by steps, stopping at SevInfo.
func (s Severity) Downgrade(steps int) Severity {
	for ; steps > 0 && s > SevInfo; steps-- {
		s--
	}
	return s
}

// ParseSeverity accepts the labels produced by String and Lower.
func ParseSeverity(v string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "info", "note":
		return SevInfo, nil
	case "warning", "warn":
		return SevWarning, nil
	case "error":
		return SevError, nil
	}
	return SevInfo, fmt.Errorf("unknown severity %q", v)
}
