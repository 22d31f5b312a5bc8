package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/vanderheijden86/chipview/pkg/api"
	"github.com/vanderheijden86/chipview/pkg/debug"
	"github.com/vanderheijden86/chipview/pkg/metrics"
	"github.com/vanderheijden86/chipview/pkg/model"
)

// streamChunkSize is the read granularity. Cancellation is checked at each
// chunk boundary.
const streamChunkSize = 32 << 10

// StreamingExporter executes a network-streamed export: it opens a
// cancellable request, reads the body incrementally, forwards chunks to the
// sink and reports throttled progress. The whole payload is never held in
// memory.
type StreamingExporter struct {
	client   *api.Client
	throttle *progressThrottle
}

// NewStreamingExporter creates an exporter using client for transfers.
func NewStreamingExporter(client *api.Client) *StreamingExporter {
	return &StreamingExporter{
		client:   client,
		throttle: newProgressThrottle(defaultProgressInterval),
	}
}

// Run transfers the rng slice of cfg's dataset into sink. est scales progress
// when the server omits Content-Length. Returns nil on success, ErrCancelled
// when ctx was cancelled, or a *NetworkError otherwise. The sink is discarded
// on every non-nil return; on success it is left uncommitted for the caller,
// so the artifact appears only as the final side effect of a completed
// session.
func (e *StreamingExporter) Run(ctx context.Context, cfg *Config, rng RankRange, est model.Estimate, sink Sink, onProgress func(Progress)) error {
	defer metrics.Timer(metrics.StreamingDuration)()

	stream, err := e.open(ctx, cfg, rng)
	if err != nil {
		sink.Discard()
		if ctx.Err() != nil {
			return ErrCancelled
		}
		var se *api.StatusError
		if errors.As(err, &se) {
			return &NetworkError{Status: se.Code, Err: err}
		}
		return &NetworkError{Err: err}
	}
	defer stream.Body.Close()

	total := stream.ContentLength
	approx := false
	if total <= 0 {
		// Django streams without Content-Length; fall back to the estimate
		// and mark everything approximate.
		total = est.Bytes
		approx = true
	}
	debug.Log("streaming %s: total=%d approx=%v", cfg.DataSource, total, approx)

	var (
		bytesDone int64
		newlines  int64
		buf       = make([]byte, streamChunkSize)
	)

	emit := func(final bool) {
		if !final && !e.throttle.ready() {
			return
		}
		p := Progress{
			BytesDone:   bytesDone,
			BytesTotal:  total,
			RowsDone:    dataRows(newlines),
			Approximate: approx,
		}
		// Progress never exceeds the declared or estimated total.
		if total > 0 && p.BytesDone > total {
			p.BytesDone = total
		}
		onProgress(p)
	}

	for {
		if err := ctx.Err(); err != nil {
			sink.Discard()
			return ErrCancelled
		}

		n, err := stream.Body.Read(buf)
		if n > 0 {
			if _, werr := sink.Write(buf[:n]); werr != nil {
				sink.Discard()
				return &NetworkError{Err: fmt.Errorf("writing output: %w", werr)}
			}
			bytesDone += int64(n)
			newlines += int64(bytes.Count(buf[:n], []byte{'\n'}))
			metrics.BytesStreamed.Add(int64(n))
			emit(false)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			sink.Discard()
			if ctx.Err() != nil {
				return ErrCancelled
			}
			return &NetworkError{Err: fmt.Errorf("reading stream: %w", err)}
		}
	}

	// A declared size that was never reached means the transfer was cut
	// short; treat it as a failure, not a small success.
	if stream.ContentLength > 0 && bytesDone < stream.ContentLength {
		sink.Discard()
		return &NetworkError{Err: fmt.Errorf("stream ended after %d of %d bytes", bytesDone, stream.ContentLength)}
	}

	metrics.RowsExported.Add(dataRows(newlines))
	emit(true)
	return nil
}

func (e *StreamingExporter) open(ctx context.Context, cfg *Config, rng RankRange) (*api.ExportStream, error) {
	if cfg.Dimension != "" {
		return e.client.OpenAggregatedExport(ctx, cfg.Filters, cfg.Dimension, rng.Start, rng.End)
	}
	return e.client.OpenExport(ctx, cfg.Filters, rng.Start, rng.End)
}

// dataRows converts seen newline count to completed data rows (the first
// line is the header).
func dataRows(newlines int64) int64 {
	if newlines <= 0 {
		return 0
	}
	return newlines - 1
}
