// Package sarif parses blocksecops scanner output and normalizes it into
// canonical findings. Parse and Normalize are pure: no I/O, no shared
// state, safe to call concurrently from overlapping scans.
//
// The same normalizer backs every editor front end; the per-editor SARIF
// parsers it replaces had each grown their own bugs (first-location-only
// expansion, inconsistent file filtering, 0- vs 1-based columns).
package sarif

import (
	"bytes"
	"encoding/json"

	sdkerrors "github.com/blocksecops/editor-sdk/pkg/errors"
)

// Parse decodes raw scanner output into a Report.
//
// Invalid JSON yields errors.ErrMalformedJSON. A top-level value without a
// structurally present runs key yields errors.ErrMissingRuns. An empty
// runs array is not an error; it parses to a report with zero findings.
func Parse(data []byte) (*Report, error) {
	if !json.Valid(data) {
		return nil, sdkerrors.E(sdkerrors.KindMalformedReport, "sarif.Parse", "output is not valid JSON")
	}

	// A valid top-level value that is not an object, or an object without
	// a runs key, is structurally missing runs rather than malformed.
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, sdkerrors.E(sdkerrors.KindMissingRuns, "sarif.Parse", "top-level value is not a SARIF document", err)
	}
	if _, ok := top["runs"]; !ok {
		return nil, sdkerrors.E(sdkerrors.KindMissingRuns, "sarif.Parse", "SARIF document has no runs")
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, sdkerrors.E(sdkerrors.KindMalformedReport, "sarif.Parse", "output is not a SARIF document", err)
	}
	return &report, nil
}

// CanParse reports whether the data looks like a SARIF document. Used by
// front ends to sniff scanner output before committing to a full parse.
func CanParse(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	return bytes.Contains(data, []byte(`"runs"`)) &&
		(bytes.Contains(data, []byte(`"$schema"`)) || bytes.Contains(data, []byte(`"version"`)))
}
