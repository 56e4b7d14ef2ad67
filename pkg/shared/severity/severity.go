// Package severity provides the canonical diagnostic severity scale shared
// by the normalizer, the presentation adapters, and the results API client.
//
// IMPORTANT: These levels are part of the editor-facing contract. Any change
// must be coordinated with every front end that consumes them.
package severity

import "strings"

// Level represents a canonical diagnostic severity.
type Level string

const (
	// Error - the finding must be fixed before the contract ships.
	Error Level = "error"

	// Warning - likely problem, should be reviewed.
	Warning Level = "warning"

	// Information - informational finding, no direct security impact.
	Information Level = "information"

	// Hint - lowest level; used for unrecognized or absent SARIF levels so
	// that a custom detector with a novel level never renders as an error.
	Hint Level = "hint"
)

// AllLevels returns all severity levels in order of priority (highest first).
func AllLevels() []Level {
	return []Level{Error, Warning, Information, Hint}
}

// String returns the string representation of the severity level.
func (l Level) String() string {
	return string(l)
}

// Priority returns the numeric priority of the severity level.
// Higher numbers = higher priority.
func (l Level) Priority() int {
	switch l {
	case Error:
		return 4
	case Warning:
		return 3
	case Information:
		return 2
	case Hint:
		return 1
	default:
		return 0
	}
}

// IsAtLeast returns true if this severity is at least as high as the other.
func (l Level) IsAtLeast(other Level) bool {
	return l.Priority() >= other.Priority()
}

// FromSARIFLevel maps a SARIF result level to a canonical severity.
// The mapping is total: every input produces exactly one level.
//
//	error   -> Error
//	warning -> Warning
//	note    -> Information
//	anything else (including "none", "" and unknown values) -> Hint
func FromSARIFLevel(level string) Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		return Error
	case "warning":
		return Warning
	case "note":
		return Information
	default:
		return Hint
	}
}

// FromString normalizes threshold strings from config and the command line.
// Accepts the canonical names plus the common aliases the original CLI took.
func FromString(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "critical", "high":
		return Error
	case "warning", "warn", "medium":
		return Warning
	case "information", "info", "note", "low":
		return Information
	default:
		return Hint
	}
}

// Compare returns:
//
//	-1 if a < b (a is lower severity)
//	 0 if a == b
//	+1 if a > b (a is higher severity)
func Compare(a, b Level) int {
	pa, pb := a.Priority(), b.Priority()
	switch {
	case pa < pb:
		return -1
	case pa > pb:
		return 1
	default:
		return 0
	}
}

// Counts tracks findings by severity level.
type Counts struct {
	Error       int `json:"error"`
	Warning     int `json:"warning"`
	Information int `json:"information"`
	Hint        int `json:"hint"`
	Total       int `json:"total"`
}

// Increment increases the count for the given severity.
func (c *Counts) Increment(level Level) {
	c.Total++
	switch level {
	case Error:
		c.Error++
	case Warning:
		c.Warning++
	case Information:
		c.Information++
	default:
		c.Hint++
	}
}

// Highest returns the highest severity level that has a non-zero count.
// Returns Hint when the counts are empty.
func (c *Counts) Highest() Level {
	if c.Error > 0 {
		return Error
	}
	if c.Warning > 0 {
		return Warning
	}
	if c.Information > 0 {
		return Information
	}
	return Hint
}

// AtOrAbove returns the number of findings at or above the given level.
func (c *Counts) AtOrAbove(min Level) int {
	n := 0
	for _, l := range AllLevels() {
		if !l.IsAtLeast(min) {
			break
		}
		switch l {
		case Error:
			n += c.Error
		case Warning:
			n += c.Warning
		case Information:
			n += c.Information
		case Hint:
			n += c.Hint
		}
	}
	return n
}
