package datasource

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/chipview/pkg/api"
	"github.com/vanderheijden86/chipview/pkg/debug"
	"github.com/vanderheijden86/chipview/pkg/metrics"
	"github.com/vanderheijden86/chipview/pkg/model"
)

// maxParallelPages bounds concurrent page fetches so a large materialization
// doesn't hammer the backend.
const maxParallelPages = 4

// maxResidentRows caps how much data a client-side dataset may hold. Beyond
// this the streaming strategy is the right tool; refusing here keeps memory
// bounded.
const maxResidentRows = 200_000

// Loader materializes resident datasets from the contracts API.
type Loader struct {
	client   *api.Client
	pageSize int
}

// NewLoader creates a Loader. pageSize <= 0 uses the backend's own export
// page size (1000).
func NewLoader(client *api.Client, pageSize int) *Loader {
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &Loader{client: client, pageSize: pageSize}
}

// LoadAggregates fetches every aggregated row for the filters along dim.
// The first page establishes the total; remaining pages are fetched in
// parallel and reassembled in rank order.
func (l *Loader) LoadAggregates(ctx context.Context, filters model.ChipFilters, dim model.Dimension) (*AggregateSet, error) {
	defer metrics.Timer(metrics.DatasetLoad)()

	first, pg, err := l.client.ChipAggregates(ctx, filters, dim, 1, l.pageSize)
	if err != nil {
		return nil, fmt.Errorf("loading aggregates page 1: %w", err)
	}
	if pg.TotalCount > maxResidentRows {
		return nil, fmt.Errorf("result set of %d rows is too large to hold resident; use a streaming export", pg.TotalCount)
	}

	pages, err := fetchRemaining(ctx, pg, func(ctx context.Context, page int) (int, []model.AggregateRow, error) {
		rows, _, err := l.client.ChipAggregates(ctx, filters, dim, page, l.pageSize)
		return page, rows, err
	})
	if err != nil {
		return nil, err
	}

	rows := assemblePages(first, pages)
	debug.Log("loaded %d aggregate rows (%s)", len(rows), dim)
	return NewAggregateSet(rows, dim, time.Now()), nil
}

// LoadContracts fetches every contract row for the filters, newest award
// first, matching the ordering the streaming export uses so rank ranges mean
// the same thing on both paths.
func (l *Loader) LoadContracts(ctx context.Context, filters model.ChipFilters) (*ContractSet, error) {
	defer metrics.Timer(metrics.DatasetLoad)()

	first, pg, err := l.client.ChipSearch(ctx, filters, 1, l.pageSize)
	if err != nil {
		return nil, fmt.Errorf("loading contracts page 1: %w", err)
	}
	if pg.TotalCount > maxResidentRows {
		return nil, fmt.Errorf("result set of %d rows is too large to hold resident; use a streaming export", pg.TotalCount)
	}

	pages, err := fetchRemaining(ctx, pg, func(ctx context.Context, page int) (int, []model.Contract, error) {
		rows, _, err := l.client.ChipSearch(ctx, filters, page, l.pageSize)
		return page, rows, err
	})
	if err != nil {
		return nil, err
	}

	rows := assemblePages(first, pages)
	debug.Log("loaded %d contract rows", len(rows))
	return NewContractSet(rows, time.Now()), nil
}

// fetchRemaining pulls pages 2..TotalPages with bounded parallelism.
func fetchRemaining[T any](ctx context.Context, pg model.Pagination, fetch func(context.Context, int) (int, []T, error)) (map[int][]T, error) {
	if pg.TotalPages <= 1 {
		return nil, nil
	}

	var mu sync.Mutex
	pages := make(map[int][]T, pg.TotalPages-1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelPages)
	for page := 2; page <= pg.TotalPages; page++ {
		g.Go(func() error {
			n, rows, err := fetch(gctx, page)
			if err != nil {
				return fmt.Errorf("loading page %d: %w", page, err)
			}
			mu.Lock()
			pages[n] = rows
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}

// assemblePages stitches the first page and the out-of-order remainder back
// into rank order.
func assemblePages[T any](first []T, pages map[int][]T) []T {
	if len(pages) == 0 {
		return first
	}
	nums := make([]int, 0, len(pages))
	for n := range pages {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	out := first
	for _, n := range nums {
		out = append(out, pages[n]...)
	}
	return out
}
