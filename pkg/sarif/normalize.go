package sarif

import (
	"strings"

	sdkerrors "github.com/blocksecops/editor-sdk/pkg/errors"
	"github.com/blocksecops/editor-sdk/pkg/finding"
	"github.com/blocksecops/editor-sdk/pkg/shared/severity"
)

const (
	// EndOfLineColumn is the sentinel end column used when a region omits
	// endColumn. The normalizer never sees the live document buffer, so
	// true line lengths are unknowable here; adapters clamp to the real
	// line end when they render.
	EndOfLineColumn = 999

	// UnknownRuleID is substituted when a result carries no ruleId.
	UnknownRuleID = "unknown"
)

// NormalizeOptions control filtering during normalization.
type NormalizeOptions struct {
	// FileFilter, when non-empty, retains a finding only if its normalized
	// path equals the filter OR the filter ends with the finding's path.
	// The ends-with fallback matches an absolute open-file path against
	// the repo-relative paths the scanner reports for single-file scans.
	FileFilter string
}

// NormalizeResult carries the emitted findings plus drop accounting, so
// callers can log and assert "findings before filter" vs "after drop".
type NormalizeResult struct {
	Findings []finding.Finding

	// ResultsSeen is the number of raw results across all runs.
	ResultsSeen int

	// DroppedNoLocation counts results with a missing or empty locations
	// array.
	DroppedNoLocation int

	// DroppedNoArtifact counts individual locations without a resolvable
	// artifact URI.
	DroppedNoArtifact int

	// FilteredOut counts locations excluded by the file filter.
	FilteredOut int
}

// Summary returns the per-severity counts of the emitted findings.
func (r *NormalizeResult) Summary() finding.Summary {
	return finding.Summarize(r.Findings)
}

// Normalize flattens a report into canonical findings, in report order.
//
// Every location of a multi-location result is expanded into its own
// finding (expand-all); dropping trailing locations silently is the bug
// this package exists to retire. Results with no locations are dropped
// and counted. A malformed individual result never fails the batch.
func Normalize(report *Report, opts *NormalizeOptions) *NormalizeResult {
	res := &NormalizeResult{}
	if report == nil {
		return res
	}
	if opts == nil {
		opts = &NormalizeOptions{}
	}

	for _, run := range report.Runs {
		// Rule index for message fallback. Unknown rule IDs are expected
		// for custom detectors and must not fail the lookup.
		ruleIndex := make(map[string]*Rule, len(run.Tool.Driver.Rules))
		for i := range run.Tool.Driver.Rules {
			rule := &run.Tool.Driver.Rules[i]
			ruleIndex[rule.ID] = rule
		}

		for _, result := range run.Results {
			res.ResultsSeen++

			if len(result.Locations) == 0 {
				res.DroppedNoLocation++
				continue
			}

			ruleID := result.RuleID
			if ruleID == "" {
				ruleID = UnknownRuleID
			}

			message := resolveMessage(&result, ruleIndex)
			sev := severity.FromSARIFLevel(result.Level)

			for _, loc := range result.Locations {
				path := NormalizePath(loc.PhysicalLocation.ArtifactLocation.URI)
				if path == "" {
					res.DroppedNoArtifact++
					continue
				}
				if !matchesFilter(path, opts.FileFilter) {
					res.FilteredOut++
					continue
				}

				startLine, startCol, endLine, endCol := resolveRegion(loc.PhysicalLocation.Region)

				res.Findings = append(res.Findings, finding.Finding{
					RuleID:      ruleID,
					Severity:    sev,
					Message:     message,
					Path:        path,
					StartLine:   startLine,
					StartColumn: startCol,
					EndLine:     endLine,
					EndColumn:   endCol,
					Tool:        run.Tool.Driver.Name,
				})
			}
		}
	}

	return res
}

// ParseAndNormalize combines Parse and Normalize behind the exit-code
// gate: exit codes 0 and 1 are parseable (0 usually means zero findings,
// but a tool reporting findings alongside exit 0 is still honored); any
// other code is a tool failure whose output must not be parsed.
func ParseAndNormalize(data []byte, exitCode int, opts *NormalizeOptions) (*NormalizeResult, error) {
	if exitCode != 0 && exitCode != 1 {
		return nil, sdkerrors.E(sdkerrors.KindToolFailed, "sarif.ParseAndNormalize", "scanner exited abnormally; output not parsed")
	}
	report, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Normalize(report, opts), nil
}

// NormalizePath strips a file:// scheme prefix from an artifact URI.
// Comparison and emission both use the stripped form.
func NormalizePath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

// resolveMessage applies the fallback chain: result message text, then
// the rule's short description, then the rule ID itself.
func resolveMessage(result *Result, ruleIndex map[string]*Rule) string {
	if result.Message.Text != "" {
		return result.Message.Text
	}
	if rule, ok := ruleIndex[result.RuleID]; ok && rule.ShortDescription.Text != "" {
		return rule.ShortDescription.Text
	}
	if result.RuleID != "" {
		return result.RuleID
	}
	return UnknownRuleID
}

// matchesFilter implements the exact-or-ends-with path filter. A no-match
// on both strategies excludes the finding without error.
func matchesFilter(path, filter string) bool {
	if filter == "" {
		return true
	}
	filter = NormalizePath(filter)
	return path == filter || strings.HasSuffix(filter, path)
}

// resolveRegion applies region defaulting. A nil region defaults the same
// way as an empty one: line 1, column 1, to end of line. The returned
// range is always well ordered.
func resolveRegion(region *Region) (startLine, startCol, endLine, endCol int) {
	var r Region
	if region != nil {
		r = *region
	}

	startLine = r.StartLine
	if startLine < 1 {
		startLine = 1
	}
	startCol = r.StartColumn
	if startCol < 1 {
		startCol = 1
	}
	endLine = r.EndLine
	if endLine < startLine {
		endLine = startLine
	}
	endCol = r.EndColumn
	if endCol < 1 {
		endCol = EndOfLineColumn
	}
	if endLine == startLine && endCol < startCol {
		endCol = startCol
	}
	return startLine, startCol, endLine, endCol
}
