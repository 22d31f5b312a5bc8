package export

import (
	"context"

	"github.com/vanderheijden86/chipview/pkg/model"
)

// State is the coordinator lifecycle position.
type State int

const (
	StateIdle State = iota
	StateEstimating
	StateAwaitingConfirmation
	StateExporting
	StateCompleted
	StateCancelled
	StateFailed
	// StateEmpty is the terminal "nothing to export" outcome reached when a
	// valid estimate (or clamping) leaves zero rows. Exporting is never
	// entered.
	StateEmpty
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEstimating:
		return "estimating"
	case StateAwaitingConfirmation:
		return "awaiting-confirmation"
	case StateExporting:
		return "exporting"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	case StateEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends a session.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateCancelled, StateFailed, StateEmpty:
		return true
	}
	return false
}

// Session is the run-time record of one export. Exactly one non-idle session
// exists at a time; a terminal session is discarded, never reused.
type Session struct {
	ID       uint64
	Config   *Config
	State    State
	Estimate model.Estimate
	Range    RankRange

	BytesDone   int64
	BytesTotal  int64
	RowsDone    int64
	Approximate bool

	// OutputPath is set only on StateCompleted.
	OutputPath string
	// Err is set on StateFailed.
	Err error

	cancel context.CancelFunc
}

// abort signals the session's cancellation token. Idempotent: cancelling
// twice, or a session with no token yet, is a no-op.
func (s *Session) abort() {
	if s != nil && s.cancel != nil {
		s.cancel()
	}
}
