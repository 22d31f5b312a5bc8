// Package export implements chipview's unified export subsystem: one
// contract (estimate, confirm, execute with live progress, cancel anywhere)
// over two execution strategies: true network streaming for
// server-materialized result sets, and in-process generation from data
// already resident in memory.
package export

import (
	"fmt"
	"time"

	"github.com/vanderheijden86/chipview/pkg/model"
)

// Strategy selects how an export executes.
type Strategy string

const (
	// StrategyStreaming reads a server-materialized CSV byte stream.
	StrategyStreaming Strategy = "streaming"
	// StrategyClientSide serializes rows already resident in memory.
	StrategyClientSide Strategy = "client-side"
)

// ResidentData is a read-only view over an already-loaded collection that a
// client-side export can slice. Implementations must not be mutated while an
// export is running; other code may still be reading them concurrently.
type ResidentData interface {
	Len() int
	Header() []string
	Record(i int) []string
}

// DataProcessor turns a rank-range slice of resident rows into CSV text,
// header included. It must be pure: no side effects, no mutation of rows.
// startRank and endRank are the original 1-based inclusive bounds.
type DataProcessor func(rows ResidentData, startRank, endRank int64) (string, error)

// Config is an immutable descriptor of one exportable data source. Build one
// through the constructors below and treat it as read-only; a fresh Config is
// created per user action, never cached across searches.
type Config struct {
	Strategy   Strategy
	DataSource string // semantic dataset tag, e.g. "contracts"

	// Filters is forwarded verbatim to whichever collaborator needs it.
	Filters   model.ChipFilters
	Dimension model.Dimension // aggregated datasets only

	// Client-side strategy.
	Rows      ResidentData
	Processor DataProcessor

	// BytesPerRow is the heuristic used when no authoritative size exists.
	BytesPerRow int

	// Scope qualifies the filename (a dimension, an entity name, ...).
	Scope string
}

// Validate reports structural problems before any work starts.
func (c *Config) Validate() error {
	switch c.Strategy {
	case StrategyStreaming:
		// endpoints are fixed per dataset; nothing else required
	case StrategyClientSide:
		if c.Rows == nil {
			return &ValidationError{Msg: "client-side export has no resident data"}
		}
		if c.Processor == nil {
			return &ValidationError{Msg: "client-side export has no data processor"}
		}
	default:
		return &ValidationError{Msg: fmt.Sprintf("unknown export strategy %q", c.Strategy)}
	}
	if c.DataSource == "" {
		return &ValidationError{Msg: "export config has no data source tag"}
	}
	return nil
}

// Filename produces the download filename for a confirm happening at now.
// Generated at confirm time, not config-creation time, so repeated exports of
// the same config don't collide.
func (c *Config) Filename(now time.Time) string {
	scope := c.Scope
	if scope == "" {
		scope = "all"
	}
	return fmt.Sprintf("%s-%s-%s.csv", c.DataSource, scope, now.Format("20060102-150405"))
}

// NewContractsExport describes a streaming export of filtered contract rows.
func NewContractsExport(filters model.ChipFilters, bytesPerRow int) *Config {
	return &Config{
		Strategy:    StrategyStreaming,
		DataSource:  "contracts",
		Filters:     filters.Clone(),
		BytesPerRow: bytesPerRow,
		Scope:       "filtered",
	}
}

// NewAggregatedExport describes a streaming export of server-side aggregates
// along dim.
func NewAggregatedExport(filters model.ChipFilters, dim model.Dimension, bytesPerRow int) *Config {
	return &Config{
		Strategy:    StrategyStreaming,
		DataSource:  "aggregated",
		Filters:     filters.Clone(),
		Dimension:   dim,
		BytesPerRow: bytesPerRow,
		Scope:       dim.Scope(),
	}
}

// NewAnalyticsExport describes a client-side export of the resident analytics
// table (already loaded for the charts).
func NewAnalyticsExport(rows ResidentData, dim model.Dimension, bytesPerRow int) *Config {
	return &Config{
		Strategy:    StrategyClientSide,
		DataSource:  "analytics-summary",
		Dimension:   dim,
		Rows:        rows,
		Processor:   SliceProcessor,
		BytesPerRow: bytesPerRow,
		Scope:       dim.Scope(),
	}
}

// NewDrilldownExport describes a client-side export of an entity drill-down's
// resident rows.
func NewDrilldownExport(rows ResidentData, entity string, bytesPerRow int) *Config {
	return &Config{
		Strategy:    StrategyClientSide,
		DataSource:  "entity-drilldown",
		Rows:        rows,
		Processor:   SliceProcessor,
		BytesPerRow: bytesPerRow,
		Scope:       slugify(entity),
	}
}

// slugify reduces an entity name to a filename-safe token.
func slugify(s string) string {
	out := make([]rune, 0, len(s))
	lastDash := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
			lastDash = false
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
			lastDash = false
		default:
			if !lastDash {
				out = append(out, '-')
				lastDash = true
			}
		}
	}
	for len(out) > 0 && out[len(out)-1] == '-' {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return "entity"
	}
	return string(out)
}
