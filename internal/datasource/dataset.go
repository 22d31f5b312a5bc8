// Package datasource materializes and caches the resident datasets that
// client-side exports slice: pages fetched from the contracts API, held
// read-only in memory, optionally snapshotted to a local SQLite database so
// a restart (or an offline session) can reload them without the network.
package datasource

import (
	"time"

	"github.com/vanderheijden86/chipview/pkg/export"
	"github.com/vanderheijden86/chipview/pkg/model"
)

// ContractSet is a resident collection of contract rows. It implements
// export.ResidentData and is read-only once built.
type ContractSet struct {
	rows      []model.Contract
	FetchedAt time.Time
}

// NewContractSet wraps rows. The slice is owned by the set afterwards.
func NewContractSet(rows []model.Contract, fetchedAt time.Time) *ContractSet {
	return &ContractSet{rows: rows, FetchedAt: fetchedAt}
}

func (s *ContractSet) Len() int { return len(s.rows) }

func (s *ContractSet) Header() []string { return model.ContractColumns }

func (s *ContractSet) Record(i int) []string {
	return export.ContractFields(s.rows[i])
}

// Amounts exposes contract values for the confirmation summary.
func (s *ContractSet) Amounts() []float64 {
	out := make([]float64, len(s.rows))
	for i, r := range s.rows {
		out[i] = r.ContractAmount
	}
	return out
}

// Rows returns the underlying rows for display. Callers must not mutate.
func (s *ContractSet) Rows() []model.Contract { return s.rows }

// AggregateSet is a resident collection of aggregated analytics rows.
type AggregateSet struct {
	rows      []model.AggregateRow
	Dimension model.Dimension
	FetchedAt time.Time
}

// NewAggregateSet wraps rows for the given dimension.
func NewAggregateSet(rows []model.AggregateRow, dim model.Dimension, fetchedAt time.Time) *AggregateSet {
	return &AggregateSet{rows: rows, Dimension: dim, FetchedAt: fetchedAt}
}

func (s *AggregateSet) Len() int { return len(s.rows) }

func (s *AggregateSet) Header() []string { return model.AggregateColumns }

func (s *AggregateSet) Record(i int) []string {
	return export.AggregateFields(s.rows[i])
}

// Amounts exposes total values for the confirmation summary.
func (s *AggregateSet) Amounts() []float64 {
	out := make([]float64, len(s.rows))
	for i, r := range s.rows {
		out[i] = r.TotalValue
	}
	return out
}

// Rows returns the underlying rows for display. Callers must not mutate.
func (s *AggregateSet) Rows() []model.AggregateRow { return s.rows }

var (
	_ export.ResidentData   = (*ContractSet)(nil)
	_ export.ResidentData   = (*AggregateSet)(nil)
	_ export.AmountProvider = (*ContractSet)(nil)
	_ export.AmountProvider = (*AggregateSet)(nil)
)
