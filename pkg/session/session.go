// Package session coordinates scans per scope and owns the presentation
// contract. It guarantees that only the most recently started scan for a
// scope may publish, that publishers always clear before applying, and
// that a tool failure never erases the previous good diagnostics.
package session

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/blocksecops/editor-sdk/pkg/core"
	sdkerrors "github.com/blocksecops/editor-sdk/pkg/errors"
	"github.com/blocksecops/editor-sdk/pkg/finding"
	"github.com/blocksecops/editor-sdk/pkg/invoker"
	"github.com/blocksecops/editor-sdk/pkg/metrics"
	"github.com/blocksecops/editor-sdk/pkg/sarif"
	"github.com/blocksecops/editor-sdk/pkg/shared/severity"
)

// Publisher is the presentation adapter contract. On each new result set
// the session clears the previous markers for the scope, then applies
// the new set - full replace, never incremental patching. An empty set
// is a valid apply: the adapter shows its no-issues state.
type Publisher interface {
	// Clear removes all previously displayed markers for the scope.
	Clear(scope core.Scope)

	// Apply displays the findings for the scope. The slice may be empty.
	Apply(scope core.Scope, findings []finding.Finding) error
}

// Runner abstracts the scan invoker for testing.
type Runner interface {
	Run(ctx context.Context, target string) (*invoker.Result, error)
}

var _ Runner = (*invoker.Invoker)(nil)

// Outcome describes one completed scan attempt.
type Outcome struct {
	ScanID   string
	Scope    core.Scope
	Trigger  core.Trigger
	ExitCode int

	// Findings is the published set (post threshold filter). Nil when
	// the outcome was stale or failed.
	Findings []finding.Finding
	Summary  finding.Summary

	// Stale is true when a newer scan for the scope superseded this one
	// and the result was discarded without publishing.
	Stale bool

	// ParseFailed is true when the scanner output was not valid SARIF.
	// Recovered locally: an empty set was published and the failure
	// logged, never propagated as a crash.
	ParseFailed bool

	// RawOutput is the scanner stdout, retained for the history store.
	RawOutput []byte
}

// Config configures a Coordinator.
type Config struct {
	// SeverityThreshold hides findings below this level. Zero value
	// (Hint) shows everything.
	SeverityThreshold severity.Level

	// ScanOnSave enables OnFileSaved triggers.
	ScanOnSave bool

	// SaveScansPerSecond throttles save-triggered scans (default 1/s
	// with a burst of 1). Manual scans are never throttled.
	SaveScansPerSecond float64

	// MaxConcurrentScans bounds ScanAll fan-out (default 4).
	MaxConcurrentScans int
}

// Coordinator runs scans and routes results to the publisher.
//
// The normalizer it calls is pure and reentrant; the only shared state
// here is the per-scope generation table, so concurrent scans of
// different scopes never contend beyond a map lookup.
type Coordinator struct {
	runner    Runner
	publisher Publisher
	logger    core.Logger
	collector *metrics.Collector
	cfg       Config

	saveLimiter *rate.Limiter

	mu     sync.Mutex
	scopes map[string]*scopeState
}

type scopeState struct {
	// generation increments every time a scan starts for the scope. A
	// completed scan publishes only if its generation is still current.
	generation uint64

	// publishMu serializes the check-and-publish step so two completing
	// scans for one scope cannot interleave Clear and Apply.
	publishMu sync.Mutex
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(runner Runner, publisher Publisher, cfg Config, logger core.Logger, collector *metrics.Collector) *Coordinator {
	perSecond := cfg.SaveScansPerSecond
	if perSecond <= 0 {
		perSecond = 1
	}
	if cfg.MaxConcurrentScans <= 0 {
		cfg.MaxConcurrentScans = 4
	}
	return &Coordinator{
		runner:      runner,
		publisher:   publisher,
		logger:      core.LoggerOrNop(logger),
		collector:   collector,
		cfg:         cfg,
		saveLimiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		scopes:      make(map[string]*scopeState),
	}
}

func (c *Coordinator) state(scope core.Scope) *scopeState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.scopes[scope.Key()]
	if !ok {
		st = &scopeState{}
		c.scopes[scope.Key()] = st
	}
	return st
}

// Scan runs one scan for the scope and publishes the result unless a
// newer scan superseded it.
//
// Invocation failures (non-{0,1} exit, missing binary, timeout) return
// an error and leave the previously displayed findings untouched, so a
// transient failure never erases valid state.
func (c *Coordinator) Scan(ctx context.Context, scope core.Scope, trigger core.Trigger) (*Outcome, error) {
	st := c.state(scope)

	c.mu.Lock()
	st.generation++
	gen := st.generation
	c.mu.Unlock()

	outcome := &Outcome{Scope: scope, Trigger: trigger}

	result, err := c.runner.Run(ctx, scope.Path)
	if result != nil {
		outcome.ScanID = result.ScanID
		outcome.ExitCode = result.ExitCode
		outcome.RawOutput = result.Stdout
		c.collector.RecordScan(string(trigger), outcomeLabel(err), result.Duration)
	}
	if err != nil {
		c.logger.Error("scan of %s failed: %v", scope.Path, err)
		return outcome, err
	}

	opts := &sarif.NormalizeOptions{}
	if !scope.Workspace {
		opts.FileFilter = scope.Path
	}

	res, err := sarif.ParseAndNormalize(result.Stdout, result.ExitCode, opts)
	if err != nil {
		// Malformed output is recovered locally: publish an empty set,
		// log, count, and report success with ParseFailed set.
		c.logger.Warn("scan of %s produced unparseable output: %v", scope.Path, err)
		c.collector.RecordParseFailure()
		outcome.ParseFailed = true
		res = &sarif.NormalizeResult{}
	}

	c.collector.RecordDropped(metrics.DropReasonNoLocation, res.DroppedNoLocation)
	c.collector.RecordDropped(metrics.DropReasonNoArtifact, res.DroppedNoArtifact)
	c.collector.RecordDropped(metrics.DropReasonFiltered, res.FilteredOut)

	published := applyThreshold(res.Findings, c.cfg.SeverityThreshold)
	outcome.Findings = published
	outcome.Summary = finding.Summarize(published)
	c.collector.RecordFindings(outcome.Summary.Counts)

	st.publishMu.Lock()
	defer st.publishMu.Unlock()

	c.mu.Lock()
	current := st.generation == gen
	c.mu.Unlock()

	if !current {
		c.logger.Debug("discarding stale scan %s for %s", outcome.ScanID, scope.Key())
		c.collector.RecordStaleDiscard()
		outcome.Stale = true
		outcome.Findings = nil
		return outcome, nil
	}

	c.publisher.Clear(scope)
	if err := c.publisher.Apply(scope, published); err != nil {
		return outcome, sdkerrors.Wrap(err, "session.Scan")
	}
	return outcome, nil
}

// OnFileSaved triggers a rate-limited scan for a saved file. Returns
// false when scan-on-save is disabled or the trigger was throttled.
func (c *Coordinator) OnFileSaved(ctx context.Context, path string) (bool, <-chan *Outcome) {
	if !c.cfg.ScanOnSave {
		return false, nil
	}
	if !c.saveLimiter.Allow() {
		c.logger.Debug("save-triggered scan of %s throttled", path)
		return false, nil
	}

	done := make(chan *Outcome, 1)
	go func() {
		outcome, err := c.Scan(ctx, core.FileScope(path), core.TriggerSave)
		if err != nil && outcome == nil {
			outcome = &Outcome{Scope: core.FileScope(path), Trigger: core.TriggerSave}
		}
		done <- outcome
	}()
	return true, done
}

// ScanAll scans multiple scopes concurrently with bounded parallelism,
// for front ends that scan every open file at once. The first
// invocation error cancels the remaining scans.
func (c *Coordinator) ScanAll(ctx context.Context, scopes []core.Scope, trigger core.Trigger) ([]*Outcome, error) {
	outcomes := make([]*Outcome, len(scopes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.MaxConcurrentScans)

	for i, scope := range scopes {
		g.Go(func() error {
			outcome, err := c.Scan(gctx, scope, trigger)
			outcomes[i] = outcome
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

func applyThreshold(findings []finding.Finding, min severity.Level) []finding.Finding {
	if min == "" || min == severity.Hint {
		if findings == nil {
			return []finding.Finding{}
		}
		return findings
	}
	kept := make([]finding.Finding, 0, len(findings))
	for _, f := range findings {
		if f.Severity.IsAtLeast(min) {
			kept = append(kept, f)
		}
	}
	return kept
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return sdkerrors.GetKind(err).String()
}
