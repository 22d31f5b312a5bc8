package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/vanderheijden86/chipview/pkg/metrics"
	"github.com/vanderheijden86/chipview/pkg/model"
)

// ClientSideExporter serializes an already-resident collection without any
// network round-trip. The work is synchronous CPU; it is wrapped in the same
// run contract as streaming for uniformity, and its progress is synthetic:
// every event carries Approximate so the UI can label it distinctly.
type ClientSideExporter struct{}

// NewClientSideExporter creates the in-process executor.
func NewClientSideExporter() *ClientSideExporter {
	return &ClientSideExporter{}
}

// Run slices cfg.Rows to rng, runs the processor and writes the result to
// sink. Cancellation is honored only before the processor starts; the
// serialization itself is assumed fast enough not to need mid-flight aborts.
// A panicking or erroring processor maps to *SerializationError.
func (e *ClientSideExporter) Run(ctx context.Context, cfg *Config, rng RankRange, est model.Estimate, sink Sink, onProgress func(Progress)) (err error) {
	defer metrics.Timer(metrics.ClientDuration)()

	if cerr := ctx.Err(); cerr != nil {
		sink.Discard()
		return ErrCancelled
	}

	defer func() {
		if r := recover(); r != nil {
			sink.Discard()
			err = &SerializationError{Err: fmt.Errorf("data processor panicked: %v", r)}
		}
	}()

	onProgress(Progress{BytesTotal: est.Bytes, Approximate: true})

	text, perr := cfg.Processor(cfg.Rows, rng.Start, rng.End)
	if perr != nil {
		sink.Discard()
		return &SerializationError{Err: perr}
	}

	if _, werr := sink.Write([]byte(text)); werr != nil {
		sink.Discard()
		return &SerializationError{Err: fmt.Errorf("writing output: %w", werr)}
	}

	rows := rng.Rows()
	metrics.RowsExported.Add(rows)
	onProgress(Progress{
		BytesDone:   int64(len(text)),
		BytesTotal:  int64(len(text)),
		RowsDone:    rows,
		Approximate: true,
	})
	return nil
}

// SliceProcessor is the default DataProcessor: header row plus one record per
// rank, serialized with the shared CSV helpers so output is byte-identical to
// the streaming path. Ranks are 1-based inclusive; the slice is half-open
// zero-based internally.
func SliceProcessor(rows ResidentData, startRank, endRank int64) (string, error) {
	n := int64(rows.Len())
	if startRank < 1 || endRank < startRank || endRank > n {
		return "", fmt.Errorf("rank range [%d,%d] outside resident data of %d rows", startRank, endRank, n)
	}

	var sb strings.Builder
	sb.WriteString(FormatRow(rows.Header()))
	for i := startRank - 1; i < endRank; i++ {
		sb.WriteString(FormatRow(rows.Record(int(i))))
	}
	return sb.String(), nil
}
