package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/blocksecops/editor-sdk/pkg/finding"
	"github.com/blocksecops/editor-sdk/pkg/shared/severity"
)

func TestScanSourceValid(t *testing.T) {
	for _, src := range []ScanSource{SourceCLI, SourceVSCode, SourceJetBrains, SourceNeovim, SourceVim} {
		if !src.Valid() {
			t.Errorf("%q should be valid", src)
		}
	}
	if ScanSource("emacs").Valid() {
		t.Error("unknown source should be invalid")
	}
}

func TestCreateScan(t *testing.T) {
	var gotAuth, gotPath string
	var gotReq CreateScanRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(ScanRecord{
			ID:         "scan-123",
			Target:     gotReq.Target,
			ScanSource: gotReq.ScanSource,
			Status:     "created",
		})
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithAPIKey("secret"))
	rec, err := c.CreateScan(context.Background(), &CreateScanRequest{
		Target:     "/work/contracts",
		ScanSource: SourceVSCode,
	})
	if err != nil {
		t.Fatalf("CreateScan: %v", err)
	}

	if gotPath != "/api/v1/scans" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("auth = %q", gotAuth)
	}
	if gotReq.ScanSource != SourceVSCode {
		t.Errorf("scan_source = %q", gotReq.ScanSource)
	}
	if rec.ID != "scan-123" || rec.Status != "created" {
		t.Errorf("record = %+v", rec)
	}
}

func TestCreateScan_InvalidSource(t *testing.T) {
	c := New(WithBaseURL("http://unused.invalid"))
	_, err := c.CreateScan(context.Background(), &CreateScanRequest{
		Target:     "/c.sol",
		ScanSource: "emacs",
	})
	if err == nil {
		t.Fatal("expected error for invalid scan_source")
	}
}

func TestSubmitFindings(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var req SubmitFindingsRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(SubmitResult{
			ScanID:   "scan-123",
			Accepted: len(req.Findings),
			Status:   "completed",
		})
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL))
	findings := []finding.Finding{
		{RuleID: "R1", Severity: severity.Error, Message: "m", Path: "/c.sol", StartLine: 1, StartColumn: 1},
	}
	result, err := c.SubmitFindings(context.Background(), "scan-123", &SubmitFindingsRequest{
		ExitCode: 1,
		Findings: findings,
		Summary:  finding.Summarize(findings),
	})
	if err != nil {
		t.Fatalf("SubmitFindings: %v", err)
	}

	if gotPath != "/api/v1/scans/scan-123/findings" {
		t.Errorf("path = %q", gotPath)
	}
	if result.Accepted != 1 || result.Status != "completed" {
		t.Errorf("result = %+v", result)
	}
}

func TestDoRequest_NoRetryOnClientError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithRetries(3, time.Millisecond))
	err := c.TestConnection(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("4xx should not be retried, got %d calls", calls)
	}

	httpErr, ok := IsHTTPError(err)
	if !ok || httpErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("err = %v", err)
	}
}

func TestDoRequest_RetriesServerError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithRetries(3, time.Millisecond))
	if err := c.TestConnection(context.Background()); err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}
