// Package lsp renders canonical findings as Language Server Protocol
// publishDiagnostics notifications, the shape the VS Code extension and
// Neovim's LSP shim consume. Positions are converted to LSP's 0-based
// convention here; the normalizer stays 1-based.
package lsp

import (
	"sync"

	"github.com/blocksecops/editor-sdk/pkg/core"
	"github.com/blocksecops/editor-sdk/pkg/finding"
	"github.com/blocksecops/editor-sdk/pkg/shared/severity"
)

// Diagnostic severity constants per the LSP specification.
const (
	SeverityError       = 1
	SeverityWarning     = 2
	SeverityInformation = 3
	SeverityHint        = 4
)

// Position is a 0-based line/character pair.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a start/end position pair.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Diagnostic is one LSP diagnostic.
type Diagnostic struct {
	Range    Range  `json:"range"`
	Severity int    `json:"severity"`
	Code     string `json:"code,omitempty"`
	Source   string `json:"source"`
	Message  string `json:"message"`
}

// PublishDiagnosticsParams is the payload of a
// textDocument/publishDiagnostics notification.
type PublishDiagnosticsParams struct {
	URI         string       `json:"uri"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// Source is the diagnostic source tag shown next to each squiggle.
const Source = "blocksecops"

// Publisher implements session.Publisher over a notification sink.
//
// It remembers which URIs it last published per scope so that Clear can
// send the empty-diagnostics notification LSP requires to remove stale
// squiggles; simply not re-sending a URI would leave its old markers up.
type Publisher struct {
	sink func(PublishDiagnosticsParams)

	mu        sync.Mutex
	published map[string][]string // scope key -> URIs with active diagnostics
}

// NewPublisher creates a Publisher that emits notifications through sink.
func NewPublisher(sink func(PublishDiagnosticsParams)) *Publisher {
	return &Publisher{
		sink:      sink,
		published: make(map[string][]string),
	}
}

// Clear sends empty diagnostics for every URI previously published under
// the scope.
func (p *Publisher) Clear(scope core.Scope) {
	p.mu.Lock()
	uris := p.published[scope.Key()]
	delete(p.published, scope.Key())
	p.mu.Unlock()

	for _, uri := range uris {
		p.sink(PublishDiagnosticsParams{URI: uri, Diagnostics: []Diagnostic{}})
	}
}

// Apply groups findings by file and sends one notification per URI. An
// empty set is valid and leaves the scope clear.
func (p *Publisher) Apply(scope core.Scope, findings []finding.Finding) error {
	byURI := make(map[string][]Diagnostic)
	var order []string
	for i := range findings {
		uri := FileURI(findings[i].Path)
		if _, seen := byURI[uri]; !seen {
			order = append(order, uri)
		}
		byURI[uri] = append(byURI[uri], ToDiagnostic(&findings[i]))
	}

	for _, uri := range order {
		p.sink(PublishDiagnosticsParams{URI: uri, Diagnostics: byURI[uri]})
	}

	p.mu.Lock()
	p.published[scope.Key()] = order
	p.mu.Unlock()
	return nil
}

// ToDiagnostic converts one canonical finding to an LSP diagnostic,
// shifting to 0-based positions.
func ToDiagnostic(f *finding.Finding) Diagnostic {
	return Diagnostic{
		Range: Range{
			Start: Position{Line: f.StartLine - 1, Character: f.StartColumn - 1},
			End:   Position{Line: f.EndLine - 1, Character: f.EndColumn - 1},
		},
		Severity: MapSeverity(f.Severity),
		Code:     f.RuleID,
		Source:   Source,
		Message:  f.Message,
	}
}

// MapSeverity maps a canonical severity to an LSP DiagnosticSeverity.
func MapSeverity(level severity.Level) int {
	switch level {
	case severity.Error:
		return SeverityError
	case severity.Warning:
		return SeverityWarning
	case severity.Information:
		return SeverityInformation
	default:
		return SeverityHint
	}
}

// FileURI renders a path as a file:// URI. Relative paths are passed
// through untouched; the editor resolves them against the workspace.
func FileURI(path string) string {
	if len(path) > 0 && path[0] == '/' {
		return "file://" + path
	}
	return path
}
