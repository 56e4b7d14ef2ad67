// Package finding defines the canonical, adapter-agnostic representation of
// a scan finding. Every presentation adapter, the history store, and the
// results API client consume this model; none of them re-parse SARIF.
package finding

import (
	"fmt"
	"sort"

	"github.com/blocksecops/editor-sdk/pkg/shared/severity"
)

// Finding is one reported issue bound to exactly one source location.
//
// Lines and columns are 1-based; converting to an editor's native base
// (LSP is 0-based, quickfix is 1-based) is the adapter's job.
type Finding struct {
	// RuleID identifies the detector that produced the finding.
	RuleID string `json:"rule_id"`

	// Severity is one of the four canonical levels.
	Severity severity.Level `json:"severity"`

	// Message is the display text, already resolved through the fallback
	// chain (result message -> rule short description -> rule ID).
	Message string `json:"message"`

	// Path is the normalized file path with any file:// scheme stripped.
	// Never empty for an emitted finding.
	Path string `json:"path"`

	StartLine   int `json:"start_line"`
	StartColumn int `json:"start_column"`
	EndLine     int `json:"end_line"`
	EndColumn   int `json:"end_column"`

	// Tool is the name of the driver that reported the finding, when known.
	Tool string `json:"tool,omitempty"`
}

// Valid reports whether the finding satisfies the output invariants:
// non-empty path and a well-ordered, positive range.
func (f *Finding) Valid() bool {
	if f.Path == "" {
		return false
	}
	if f.StartLine < 1 || f.StartColumn < 1 {
		return false
	}
	if f.EndLine < f.StartLine {
		return false
	}
	if f.EndLine == f.StartLine && f.EndColumn < f.StartColumn {
		return false
	}
	return true
}

// String renders the finding in the conventional file:line:col form.
func (f *Finding) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s [%s]",
		f.Path, f.StartLine, f.StartColumn, f.Severity, f.Message, f.RuleID)
}

// Sort orders findings deterministically: by path, then start position,
// then descending severity, then rule ID. Normalize output is already in
// report order; Sort is for adapters that need stable grouped display.
func Sort(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := &findings[i], &findings[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		if a.StartColumn != b.StartColumn {
			return a.StartColumn < b.StartColumn
		}
		if c := severity.Compare(a.Severity, b.Severity); c != 0 {
			return c > 0
		}
		return a.RuleID < b.RuleID
	})
}

// Summary aggregates a result set for status bars and the results API.
type Summary struct {
	Counts severity.Counts `json:"counts"`

	// Files is the number of distinct files with at least one finding.
	Files int `json:"files"`
}

// Summarize computes a Summary over the given findings.
func Summarize(findings []Finding) Summary {
	var s Summary
	seen := make(map[string]struct{})
	for i := range findings {
		s.Counts.Increment(findings[i].Severity)
		seen[findings[i].Path] = struct{}{}
	}
	s.Files = len(seen)
	return s
}
