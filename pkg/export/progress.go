package export

import "time"

// Progress is one progress report for a session. Events for a session are
// delivered in non-decreasing byte/row order and never after that session's
// terminal event.
type Progress struct {
	SessionID uint64
	// BytesDone never exceeds BytesTotal when a total is known.
	BytesDone  int64
	BytesTotal int64 // <= 0 means unknown
	RowsDone   int64
	// Approximate is true when BytesTotal came from the pre-flight estimate
	// rather than a server size header, or when progress is synthetic
	// (client-side strategy). The UI must not present it as a precise
	// percentage.
	Approximate bool
}

// Fraction returns completion in [0,1], or -1 when no total is known.
func (p Progress) Fraction() float64 {
	if p.BytesTotal <= 0 {
		return -1
	}
	f := float64(p.BytesDone) / float64(p.BytesTotal)
	if f > 1 {
		f = 1
	}
	return f
}

// defaultProgressInterval is the minimum gap between progress emissions.
// Chunks arrive far faster than a terminal repaints; emitting every chunk
// just thrashes the UI.
const defaultProgressInterval = 100 * time.Millisecond

// progressThrottle rate-limits emissions. The zero value is not usable; use
// newProgressThrottle.
type progressThrottle struct {
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

func newProgressThrottle(interval time.Duration) *progressThrottle {
	if interval <= 0 {
		interval = defaultProgressInterval
	}
	return &progressThrottle{interval: interval, now: time.Now}
}

// ready reports whether enough time has passed to emit another event, and
// marks the emission time when it has.
func (t *progressThrottle) ready() bool {
	n := t.now()
	if !t.last.IsZero() && n.Sub(t.last) < t.interval {
		return false
	}
	t.last = n
	return true
}
