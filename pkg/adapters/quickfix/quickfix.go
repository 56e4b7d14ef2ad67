// Package quickfix renders canonical findings as Vim quickfix lines
// (matching errorformat %f:%l:%c:%t:%m), the shape the Vim and Neovim
// plugins load with setqflist(). Quickfix positions are 1-based, same
// as the canonical model, so no base conversion happens here.
package quickfix

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blocksecops/editor-sdk/pkg/core"
	"github.com/blocksecops/editor-sdk/pkg/finding"
	"github.com/blocksecops/editor-sdk/pkg/shared/severity"
)

// Errorformat is the Vim errorformat matching Format output.
const Errorformat = `%f:%l:%c:%t:%m`

// Publisher implements session.Publisher by replacing the quickfix list
// through a setter callback (the plugin's setqflist bridge).
type Publisher struct {
	set func(lines []string)

	mu      sync.Mutex
	current map[string][]string // scope key -> lines
}

// NewPublisher creates a Publisher around the plugin's list setter.
func NewPublisher(set func(lines []string)) *Publisher {
	return &Publisher{
		set:     set,
		current: make(map[string][]string),
	}
}

// Clear empties the quickfix list for the scope.
func (p *Publisher) Clear(scope core.Scope) {
	p.mu.Lock()
	delete(p.current, scope.Key())
	p.mu.Unlock()
	p.set([]string{})
}

// Apply replaces the quickfix list with the new findings. An empty set
// leaves the list empty, the no-issues state.
func (p *Publisher) Apply(scope core.Scope, findings []finding.Finding) error {
	lines := Format(findings)
	p.mu.Lock()
	p.current[scope.Key()] = lines
	p.mu.Unlock()
	p.set(lines)
	return nil
}

// Format renders findings as quickfix lines, one per finding, in input
// order.
func Format(findings []finding.Finding) []string {
	lines := make([]string, 0, len(findings))
	for i := range findings {
		lines = append(lines, Line(&findings[i]))
	}
	return lines
}

// Line renders one finding as a quickfix line.
func Line(f *finding.Finding) string {
	return fmt.Sprintf("%s:%d:%d:%s:%s [%s]",
		f.Path, f.StartLine, f.StartColumn, typeChar(f.Severity), sanitize(f.Message), f.RuleID)
}

// typeChar maps a severity to the single-character quickfix type.
func typeChar(level severity.Level) string {
	switch level {
	case severity.Error:
		return "E"
	case severity.Warning:
		return "W"
	case severity.Information:
		return "I"
	default:
		return "N"
	}
}

// sanitize keeps messages on one line so they cannot break the
// errorformat.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", "")
}
