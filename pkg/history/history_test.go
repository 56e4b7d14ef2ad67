package history

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/blocksecops/editor-sdk/pkg/core"
	"github.com/blocksecops/editor-sdk/pkg/finding"
	"github.com/blocksecops/editor-sdk/pkg/shared/severity"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRecord(scopeKey string) *Record {
	return &Record{
		ScopeKey: scopeKey,
		Target:   "/c.sol",
		Trigger:  core.TriggerManual,
		ExitCode: 1,
		Findings: []finding.Finding{
			{
				RuleID:      "REENTRANCY-001",
				Severity:    severity.Error,
				Message:     "Reentrancy risk",
				Path:        "/c.sol",
				StartLine:   10,
				StartColumn: 1,
				EndLine:     10,
				EndColumn:   999,
				Tool:        "blocksecops",
			},
		},
		RawSARIF: []byte(`{"version":"2.1.0","runs":[]}`),
	}
}

func TestSaveAndLatest(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := sampleRecord("file:/c.sol")
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if rec.ID == "" {
		t.Error("Save should assign an ID")
	}

	got, err := store.Latest(ctx, "file:/c.sol")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got == nil {
		t.Fatal("Latest returned nil for saved scope")
	}
	if got.ID != rec.ID || got.Target != "/c.sol" || got.ExitCode != 1 {
		t.Errorf("record = %+v", got)
	}
	if len(got.Findings) != 1 || got.Findings[0].RuleID != "REENTRANCY-001" {
		t.Errorf("findings = %+v", got.Findings)
	}
	if !bytes.Equal(got.RawSARIF, rec.RawSARIF) {
		t.Errorf("raw output round-trip failed: %q", got.RawSARIF)
	}
	if got.Summary.Counts.Error != 1 {
		t.Errorf("summary = %+v", got.Summary)
	}
}

func TestLatest_UnknownScope(t *testing.T) {
	store := openTestStore(t)

	got, err := store.Latest(context.Background(), "file:/never-scanned.sol")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unknown scope, got %+v", got)
	}
}

func TestRecent_NewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		rec := sampleRecord("file:/c.sol")
		rec.ExitCode = i
		rec.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := store.Save(ctx, rec); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	records, err := store.Recent(ctx, "file:/c.sol", 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ExitCode != 2 || records[1].ExitCode != 1 {
		t.Errorf("order = %d, %d; want newest first", records[0].ExitCode, records[1].ExitCode)
	}
}

func TestPrune(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	old := sampleRecord("file:/old.sol")
	old.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	if err := store.Save(ctx, old); err != nil {
		t.Fatalf("Save: %v", err)
	}
	fresh := sampleRecord("file:/fresh.sol")
	if err := store.Save(ctx, fresh); err != nil {
		t.Fatalf("Save: %v", err)
	}

	deleted, err := store.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	if got, _ := store.Latest(ctx, "file:/old.sol"); got != nil {
		t.Error("pruned record still present")
	}
	if got, _ := store.Latest(ctx, "file:/fresh.sol"); got == nil {
		t.Error("fresh record was pruned")
	}
}

func TestGetStats(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, sampleRecord("file:/a.sol")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(ctx, sampleRecord("file:/b.sol")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	stats, err := store.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalScans != 2 || stats.TotalFindings != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.StorageBytes == 0 {
		t.Error("expected nonzero storage bytes for compressed blobs")
	}
}

func TestCompressRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte(`{"ruleId":"REENTRANCY-001"}`), 100)

	packed, err := compress(data)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if len(packed) >= len(data) {
		t.Errorf("repetitive JSON should shrink: %d >= %d", len(packed), len(data))
	}

	unpacked, err := decompress(packed)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(unpacked, data) {
		t.Error("round-trip mismatch")
	}
}
