package export

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vanderheijden86/chipview/pkg/api"
)

// estimateAndExportServer serves a fixed estimate and a CSV body.
func estimateAndExportServer(t *testing.T, count int64, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "-estimate"):
			fmt.Fprintf(w, `{"total_count": %d, "estimated_csv_bytes": %d}`, count, count*100)
		default:
			w.Header().Set("Content-Length", fmt.Sprint(len(body)))
			w.Write([]byte(body))
		}
	}))
}

func newTestCoordinator(t *testing.T, srv *httptest.Server) (*Coordinator, string) {
	t.Helper()
	dir := t.TempDir()
	var client *api.Client
	if srv != nil {
		client = testClient(t, srv)
	}
	coord := NewCoordinator(Options{Client: client, OutputDir: dir})
	return coord, dir
}

// waitFor drains events until a StateEvent with the wanted state arrives.
func waitFor(t *testing.T, coord *Coordinator, want State) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-coord.Events():
			if se, ok := ev.(StateEvent); ok && se.State == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %v (current: %v)", want, coord.State())
		}
	}
}

func TestCoordinatorHappyPath(t *testing.T) {
	body := csvBody(20)
	srv := estimateAndExportServer(t, 20, body)
	defer srv.Close()

	coord, dir := newTestCoordinator(t, srv)

	id, err := coord.Initiate(streamingConfig())
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if id == 0 {
		t.Fatal("session id must be non-zero")
	}

	waitFor(t, coord, StateAwaitingConfirmation)
	snap, ok := coord.Snapshot()
	if !ok || snap.Estimate.Count != 20 {
		t.Fatalf("snapshot after estimate = %+v, %v", snap, ok)
	}

	if err := coord.Confirm(RankRange{1, 20}); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	waitFor(t, coord, StateCompleted)

	snap, _ = coord.Snapshot()
	if snap.OutputPath == "" {
		t.Fatal("completed session has no output path")
	}
	data, err := os.ReadFile(snap.OutputPath)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if string(data) != body {
		t.Errorf("artifact differs from stream (%d vs %d bytes)", len(data), len(body))
	}

	// No partial file left behind.
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".partial-") {
			t.Errorf("partial file %s survived completion", e.Name())
		}
	}

	coord.Acknowledge()
	if coord.State() != StateIdle {
		t.Errorf("state after Acknowledge = %v", coord.State())
	}
}

func TestCoordinatorRejectsConcurrentExports(t *testing.T) {
	srv := estimateAndExportServer(t, 10, csvBody(10))
	defer srv.Close()

	coord, _ := newTestCoordinator(t, srv)
	if _, err := coord.Initiate(streamingConfig()); err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	if _, err := coord.Initiate(streamingConfig()); !errors.Is(err, ErrExportActive) {
		t.Fatalf("second Initiate err = %v, want ErrExportActive", err)
	}

	// The original session is unaffected and still completes.
	waitFor(t, coord, StateAwaitingConfirmation)
	if err := coord.Confirm(FullRange(10)); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	waitFor(t, coord, StateCompleted)
}

func TestCoordinatorEstimateFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "db offline", http.StatusInternalServerError)
	}))
	defer srv.Close()

	coord, dir := newTestCoordinator(t, srv)
	if _, err := coord.Initiate(streamingConfig()); err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	waitFor(t, coord, StateFailed)

	snap, _ := coord.Snapshot()
	var eerr *EstimationError
	if !errors.As(snap.Err, &eerr) {
		t.Fatalf("session err = %v, want *EstimationError", snap.Err)
	}

	// Failure before confirmation: nothing was ever written.
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("output dir not empty after estimate failure: %v", entries)
	}

	// Confirm on a failed session is rejected.
	if err := coord.Confirm(RankRange{1, 10}); err == nil {
		t.Error("Confirm after failure should error")
	}
}

func TestCoordinatorEmptyEstimate(t *testing.T) {
	srv := estimateAndExportServer(t, 0, "")
	defer srv.Close()

	coord, _ := newTestCoordinator(t, srv)
	if _, err := coord.Initiate(streamingConfig()); err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	waitFor(t, coord, StateEmpty)

	// Empty is terminal; Acknowledge returns to idle.
	coord.Acknowledge()
	if coord.State() != StateIdle {
		t.Errorf("state = %v, want idle", coord.State())
	}
}

func TestCoordinatorConfirmClampsRange(t *testing.T) {
	body := csvBody(10)
	srv := estimateAndExportServer(t, 5000, body)
	defer srv.Close()

	coord, _ := newTestCoordinator(t, srv)
	coord.Initiate(streamingConfig())
	waitFor(t, coord, StateAwaitingConfirmation)

	if err := coord.Confirm(RankRange{4990, 5100}); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	snap, _ := coord.Snapshot()
	if snap.Range != (RankRange{4990, 5000}) {
		t.Errorf("clamped range = %+v, want {4990 5000}", snap.Range)
	}
	waitFor(t, coord, StateCompleted)
}

func TestCoordinatorConfirmEmptyRange(t *testing.T) {
	srv := estimateAndExportServer(t, 100, "")
	defer srv.Close()

	coord, _ := newTestCoordinator(t, srv)
	coord.Initiate(streamingConfig())
	waitFor(t, coord, StateAwaitingConfirmation)

	if err := coord.Confirm(RankRange{200, 300}); !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("Confirm err = %v, want ErrNothingToExport", err)
	}
	if coord.State() != StateEmpty {
		t.Errorf("state = %v, want empty", coord.State())
	}
}

func TestCoordinatorCancelAwaitingConfirmation(t *testing.T) {
	srv := estimateAndExportServer(t, 10, "")
	defer srv.Close()

	coord, _ := newTestCoordinator(t, srv)
	coord.Initiate(streamingConfig())
	waitFor(t, coord, StateAwaitingConfirmation)

	// Nothing has happened yet, so cancellation goes straight back to idle.
	coord.Cancel()
	waitFor(t, coord, StateIdle)
	if coord.State() != StateIdle {
		t.Errorf("state = %v, want idle", coord.State())
	}

	// A fresh export can start immediately.
	if _, err := coord.Initiate(streamingConfig()); err != nil {
		t.Errorf("Initiate after cancel: %v", err)
	}
}

func TestCoordinatorCancelMidExport(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "-estimate") {
			fmt.Fprint(w, `{"total_count": 1000, "estimated_csv_bytes": 100000}`)
			return
		}
		w.(http.Flusher).Flush()
		w.Write([]byte("label,total_value,count,avg_value\nApex,1,1,1\n"))
		w.(http.Flusher).Flush()
		<-release
	}))
	defer srv.Close()
	defer close(release)

	coord, dir := newTestCoordinator(t, srv)
	coord.Initiate(streamingConfig())
	waitFor(t, coord, StateAwaitingConfirmation)
	if err := coord.Confirm(RankRange{1, 1000}); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	waitFor(t, coord, StateExporting)

	coord.Cancel()
	waitFor(t, coord, StateCancelled)

	// Cancellation leaves no file, partial or final.
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("output dir not empty after cancel: %v", entries)
	}

	// Cancel on a terminal session is a no-op.
	coord.Cancel()
	if coord.State() != StateCancelled {
		t.Errorf("state after second Cancel = %v", coord.State())
	}
}

func TestCoordinatorRetryAfterFailure(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	body := csvBody(5)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "transient", http.StatusServiceUnavailable)
			return
		}
		if strings.HasSuffix(r.URL.Path, "-estimate") {
			fmt.Fprint(w, `{"total_count": 5, "estimated_csv_bytes": 500}`)
			return
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		w.Write([]byte(body))
	}))
	defer srv.Close()

	coord, _ := newTestCoordinator(t, srv)
	coord.Initiate(streamingConfig())
	waitFor(t, coord, StateFailed)

	// Retry restarts from the estimate step with the same config.
	fail.Store(false)
	if _, err := coord.Retry(); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	waitFor(t, coord, StateAwaitingConfirmation)
	if err := coord.Confirm(FullRange(5)); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	waitFor(t, coord, StateCompleted)
}

func TestCoordinatorRetryRequiresFailure(t *testing.T) {
	coord := NewCoordinator(Options{})
	if _, err := coord.Retry(); err == nil {
		t.Error("Retry on idle coordinator should error")
	}
}

func TestCoordinatorClientSideFlow(t *testing.T) {
	coord, dir := newTestCoordinator(t, nil)

	cfg := clientConfig(threeRows())
	if _, err := coord.Initiate(cfg); err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	waitFor(t, coord, StateAwaitingConfirmation)

	snap, _ := coord.Snapshot()
	if snap.Estimate.Count != 3 || snap.Estimate.Bytes != 300 {
		t.Errorf("client-side estimate = %+v", snap.Estimate)
	}

	if err := coord.Confirm(RankRange{1, 2}); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	waitFor(t, coord, StateCompleted)

	snap, _ = coord.Snapshot()
	data, err := os.ReadFile(snap.OutputPath)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if strings.Count(string(data), "\n") != 3 {
		t.Errorf("want header + 2 rows, got %q", data)
	}
	if filepath.Dir(snap.OutputPath) != dir {
		t.Errorf("artifact outside output dir: %s", snap.OutputPath)
	}
}

func TestCoordinatorInitiateValidates(t *testing.T) {
	coord := NewCoordinator(Options{})
	if _, err := coord.Initiate(&Config{Strategy: "bogus", DataSource: "x"}); err == nil {
		t.Error("bogus strategy should fail validation")
	}
	if _, err := coord.Initiate(&Config{Strategy: StrategyClientSide, DataSource: "x"}); err == nil {
		t.Error("client-side config without rows should fail validation")
	}
}
