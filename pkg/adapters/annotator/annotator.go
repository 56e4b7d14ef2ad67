// Package annotator renders canonical findings for the IntelliJ external
// annotator. The plugin consumes one JSON document per annotated file and
// maps Severity onto HighlightSeverity; the names here follow the
// platform's constants.
package annotator

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blocksecops/editor-sdk/pkg/core"
	"github.com/blocksecops/editor-sdk/pkg/finding"
	"github.com/blocksecops/editor-sdk/pkg/shared/severity"
)

// HighlightSeverity names per the IntelliJ platform.
const (
	HighlightError       = "ERROR"
	HighlightWarning     = "WARNING"
	HighlightWeakWarning = "WEAK_WARNING"
	HighlightInformation = "INFORMATION"
)

// Annotation is one editor annotation. Positions stay 1-based; the
// plugin converts to document offsets against the live buffer.
type Annotation struct {
	StartLine   int    `json:"startLine"`
	StartColumn int    `json:"startColumn"`
	EndLine     int    `json:"endLine"`
	EndColumn   int    `json:"endColumn"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	Tooltip     string `json:"tooltip"`
	RuleID      string `json:"ruleId"`
}

// FileAnnotations groups the annotations of one file.
type FileAnnotations struct {
	Path        string       `json:"path"`
	Annotations []Annotation `json:"annotations"`
}

// Publisher implements session.Publisher over an apply callback (the
// plugin's AnnotationHolder bridge).
type Publisher struct {
	apply func(files []FileAnnotations)

	mu      sync.Mutex
	applied map[string]struct{} // scope keys with active annotations
}

// NewPublisher creates a Publisher around the plugin's annotation bridge.
func NewPublisher(apply func(files []FileAnnotations)) *Publisher {
	return &Publisher{
		apply:   apply,
		applied: make(map[string]struct{}),
	}
}

// Clear removes the scope's annotations by applying an empty set.
func (p *Publisher) Clear(scope core.Scope) {
	p.mu.Lock()
	delete(p.applied, scope.Key())
	p.mu.Unlock()
	p.apply([]FileAnnotations{})
}

// Apply replaces the scope's annotations with the new findings.
func (p *Publisher) Apply(scope core.Scope, findings []finding.Finding) error {
	p.mu.Lock()
	p.applied[scope.Key()] = struct{}{}
	p.mu.Unlock()
	p.apply(Group(findings))
	return nil
}

// Group converts findings into per-file annotation groups, preserving
// input order of both files and annotations.
func Group(findings []finding.Finding) []FileAnnotations {
	index := make(map[string]int)
	var files []FileAnnotations
	for i := range findings {
		f := &findings[i]
		pos, ok := index[f.Path]
		if !ok {
			pos = len(files)
			index[f.Path] = pos
			files = append(files, FileAnnotations{Path: f.Path})
		}
		files[pos].Annotations = append(files[pos].Annotations, Annotation{
			StartLine:   f.StartLine,
			StartColumn: f.StartColumn,
			EndLine:     f.EndLine,
			EndColumn:   f.EndColumn,
			Severity:    MapSeverity(f.Severity),
			Message:     f.Message,
			Tooltip:     Tooltip(f),
			RuleID:      f.RuleID,
		})
	}
	return files
}

// MapSeverity maps a canonical severity to a HighlightSeverity name.
func MapSeverity(level severity.Level) string {
	switch level {
	case severity.Error:
		return HighlightError
	case severity.Warning:
		return HighlightWarning
	case severity.Information:
		return HighlightWeakWarning
	default:
		return HighlightInformation
	}
}

// Tooltip renders the hover tooltip HTML for a finding.
func Tooltip(f *finding.Finding) string {
	return fmt.Sprintf("<b>%s</b><br>%s<br><i>Rule: %s</i>",
		strings.ToUpper(f.Severity.String()), f.Message, f.RuleID)
}
