package export

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/chipview/pkg/api"
	"github.com/vanderheijden86/chipview/pkg/model"
)

func testClient(t *testing.T, srv *httptest.Server) *api.Client {
	t.Helper()
	c, err := api.NewClient(api.ClientConfig{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func csvBody(rows int) string {
	var sb strings.Builder
	sb.WriteString("label,total_value,count,avg_value\n")
	for i := 1; i <= rows; i++ {
		fmt.Fprintf(&sb, "Contractor %d,%d,1,%d\n", i, i*1000, i*1000)
	}
	return sb.String()
}

func streamingConfig() *Config {
	return &Config{
		Strategy:    StrategyStreaming,
		DataSource:  "contracts",
		BytesPerRow: 100,
	}
}

func TestStreamingRunDeclaredLength(t *testing.T) {
	body := csvBody(50)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/contracts/chip-export" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(body))
	}))
	defer srv.Close()

	sink := NewBufferSink(t.TempDir(), "out.csv")
	var events []Progress
	err := NewStreamingExporter(testClient(t, srv)).Run(context.Background(), streamingConfig(),
		RankRange{1, 50}, model.Estimate{Count: 50, Bytes: 9999}, sink,
		func(p Progress) { events = append(events, p) })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := string(sink.Bytes()); got != body {
		t.Errorf("sink content differs: %d bytes vs %d", len(got), len(body))
	}

	if len(events) == 0 {
		t.Fatal("no progress events")
	}
	final := events[len(events)-1]
	if final.Approximate {
		t.Error("declared Content-Length must not be marked approximate")
	}
	if final.BytesDone != int64(len(body)) || final.BytesTotal != int64(len(body)) {
		t.Errorf("final progress = %+v", final)
	}
	if final.RowsDone != 50 {
		t.Errorf("final RowsDone = %d, want 50", final.RowsDone)
	}

	var prev int64
	for _, p := range events {
		if p.BytesDone < prev {
			t.Fatalf("progress went backwards: %d after %d", p.BytesDone, prev)
		}
		prev = p.BytesDone
	}
}

func TestStreamingRunNoContentLengthUsesEstimate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Flushing before the body is complete forces chunked encoding, the
		// backend's normal streaming behavior.
		w.Header().Set("Content-Type", "text/csv")
		flusher := w.(http.Flusher)
		w.Write([]byte("label,total_value,count,avg_value\n"))
		flusher.Flush()
		w.Write([]byte("Apex,100,1,100\n"))
	}))
	defer srv.Close()

	sink := NewBufferSink(t.TempDir(), "out.csv")
	var events []Progress
	err := NewStreamingExporter(testClient(t, srv)).Run(context.Background(), streamingConfig(),
		RankRange{1, 1}, model.Estimate{Count: 1, Bytes: 500}, sink,
		func(p Progress) { events = append(events, p) })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	final := events[len(events)-1]
	if !final.Approximate {
		t.Error("estimate-scaled progress must be approximate")
	}
	if final.BytesTotal != 500 {
		t.Errorf("BytesTotal = %d, want estimate fallback 500", final.BytesTotal)
	}
	if final.BytesDone > final.BytesTotal {
		t.Errorf("BytesDone %d exceeds total %d", final.BytesDone, final.BytesTotal)
	}
}

func TestStreamingRunNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "bad filters"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	sink := NewBufferSink(t.TempDir(), "out.csv")
	err := NewStreamingExporter(testClient(t, srv)).Run(context.Background(), streamingConfig(),
		RankRange{1, 10}, model.Estimate{}, sink, func(Progress) {})

	var nerr *NetworkError
	if !errors.As(err, &nerr) {
		t.Fatalf("err = %v, want *NetworkError", err)
	}
	if nerr.Status != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", nerr.Status)
	}
	if _, err := sink.Commit(); err == nil {
		t.Error("sink should be discarded on failure")
	}
}

func TestStreamingRunCancelMidStream(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write([]byte("label,total_value,count,avg_value\n"))
		flusher.Flush()
		<-release // hold the stream open until the client goes away
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	sink := NewBufferSink(t.TempDir(), "out.csv")
	err := NewStreamingExporter(testClient(t, srv)).Run(ctx, streamingConfig(),
		RankRange{1, 100}, model.Estimate{Bytes: 10000}, sink, func(Progress) {})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if _, cerr := sink.Commit(); cerr == nil {
		t.Error("sink should be discarded on cancellation")
	}
}

func TestStreamingRunShortRead(t *testing.T) {
	body := csvBody(10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Declare more than will be sent, then cut the connection.
		w.Header().Set("Content-Length", fmt.Sprint(len(body)+1000))
		w.Write([]byte(body))
		if hj, ok := w.(http.Hijacker); ok {
			conn, _, _ := hj.Hijack()
			conn.Close()
		}
	}))
	defer srv.Close()

	sink := NewBufferSink(t.TempDir(), "out.csv")
	err := NewStreamingExporter(testClient(t, srv)).Run(context.Background(), streamingConfig(),
		RankRange{1, 10}, model.Estimate{}, sink, func(Progress) {})

	var nerr *NetworkError
	if !errors.As(err, &nerr) {
		t.Fatalf("err = %v, want *NetworkError for short read", err)
	}
}

func TestStreamingRunAggregatedEndpoint(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("label,total_value,count,avg_value\n"))
	}))
	defer srv.Close()

	cfg := streamingConfig()
	cfg.DataSource = "aggregated"
	cfg.Dimension = model.ByContractor

	sink := NewBufferSink(t.TempDir(), "out.csv")
	if err := NewStreamingExporter(testClient(t, srv)).Run(context.Background(), cfg,
		RankRange{1, 1}, model.Estimate{Bytes: 100}, sink, func(Progress) {}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gotPath != "/api/v1/contracts/chip-export-aggregated" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestDataRows(t *testing.T) {
	if got := dataRows(0); got != 0 {
		t.Errorf("dataRows(0) = %d", got)
	}
	if got := dataRows(1); got != 0 {
		t.Errorf("dataRows(1) = %d (header only)", got)
	}
	if got := dataRows(51); got != 50 {
		t.Errorf("dataRows(51) = %d", got)
	}
}
