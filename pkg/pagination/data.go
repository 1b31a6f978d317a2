package pagination

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/apicore/pkg/request"
	"github.com/Sternrassler/apicore/pkg/transport"
)

// State is the traversal state of Data.
type State int

const (
	// StateUnresolved means no strategy is locked yet.
	StateUnresolved State = iota

	// StateLocked means one strategy governs all further pages.
	StateLocked

	// StateExhausted is terminal.
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateLocked:
		return "locked"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Extractor returns the items of a wrapped page.
type Extractor[T any] func(page any) []T

// Data is one lazy traversal over a paginated endpoint. It is not safe for
// concurrent use; All, Pages and Clone hand out independent traversals.
type Data[T any] struct {
	caller     Caller
	extract    Extractor[T]
	strategies []Strategy

	initial *request.Builder
	last    *request.Builder

	state  State
	locked int

	lastResponse *transport.Response
	page         any
	items        []T
	index        int
	pageSize     int

	logger zerolog.Logger
}

// New returns a traversal over caller. The caller's strategies are cloned.
func New[T any](caller Caller, extract Extractor[T]) (*Data[T], error) {
	if caller == nil {
		return nil, ErrMissingCaller
	}
	if extract == nil {
		return nil, ErrMissingExtractor
	}
	return &Data[T]{
		caller:     caller,
		extract:    extract,
		strategies: cloneAll(caller.Strategies()),
		initial:    caller.RequestBuilder(),
		locked:     -1,
		logger:     log.With().Str("component", "pagination").Logger(),
	}, nil
}

// LastResponse returns the response of the last fetched page, or nil before the first page.
func (d *Data[T]) LastResponse() *transport.Response {
	if d.last == nil {
		return nil
	}
	return d.lastResponse
}

// RequestBuilder returns the builder of the last fetched page, or the initial builder.
func (d *Data[T]) RequestBuilder() *request.Builder {
	if d.last == nil {
		return d.initial
	}
	return d.last
}

// PageSize returns the item count of the last non-empty page.
func (d *Data[T]) PageSize() int {
	return d.pageSize
}

// State returns the traversal state.
func (d *Data[T]) State() State {
	return d.state
}

// LockedStrategy returns the governing strategy, or nil while unresolved.
func (d *Data[T]) LockedStrategy() Strategy {
	if d.locked < 0 {
		return nil
	}
	return d.strategies[d.locked]
}

// Page returns the current wrapped page.
func (d *Data[T]) Page() any {
	return d.page
}

// Next returns the next item, fetching the next page when the current one
// is consumed. It returns ErrExhausted once the traversal is over.
func (d *Data[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if d.index < len(d.items) {
		item := d.items[d.index]
		d.index++
		return item, nil
	}

	items, err := d.advance(ctx)
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, ErrExhausted
	}
	d.index = 1
	return items[0], nil
}

// All returns the items of a fresh traversal from the first page.
func (d *Data[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		traversal := d.Clone()
		for {
			item, err := traversal.Next(ctx)
			if errors.Is(err, ErrExhausted) {
				return
			}
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

// Pages returns the non-empty wrapped pages of a fresh traversal from the first page.
func (d *Data[T]) Pages(ctx context.Context) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		traversal := d.Clone()
		for {
			items, err := traversal.advance(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if len(items) == 0 {
				return
			}
			if !yield(traversal.page, nil) {
				return
			}
		}
	}
}

// Clone returns an independent traversal reset to the first page.
func (d *Data[T]) Clone() *Data[T] {
	clone, _ := New(d.caller.CloneWith(d.initial), d.extract)
	return clone
}

// advance fetches the next page and replaces the buffer. An empty result
// moves the traversal to StateExhausted.
func (d *Data[T]) advance(ctx context.Context) ([]T, error) {
	if d.state == StateExhausted {
		return nil, nil
	}

	page, ok, err := d.fetchNextPage(ctx)
	if err != nil {
		return nil, err
	}

	var items []T
	if ok {
		items = d.extract(page)
	}
	if len(items) == 0 {
		d.exhaust()
		return nil, nil
	}

	d.page = page
	d.items = items
	d.index = 0
	d.pageSize = len(items)
	return items, nil
}

func (d *Data[T]) fetchNextPage(ctx context.Context) (any, bool, error) {
	if d.state == StateLocked {
		return d.execute(ctx, d.strategies[d.locked])
	}

	for _, s := range d.strategies {
		page, ok, err := d.execute(ctx, s)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}
		d.lock()
		return page, true, nil
	}
	return nil, false, nil
}

// execute applies s and runs the resulting request. ok is false when s
// cannot continue or the call produced no result.
func (d *Data[T]) execute(ctx context.Context, s Strategy) (any, bool, error) {
	b, err := s.Apply(d)
	if err != nil {
		return nil, false, fmt.Errorf("apply %s pagination: %w", s.Name(), err)
	}
	if b == nil {
		d.logger.Debug().Str("strategy", s.Name()).Msg("Strategy cannot continue")
		return nil, false, nil
	}

	resp, result, err := d.caller.CloneWith(b).Do(ctx)
	if err != nil {
		return nil, false, err
	}

	d.last = b
	d.lastResponse = resp
	PagesFetched.WithLabelValues(s.Name()).Inc()

	page := s.ApplyMetadataWrapper(result)
	return page, page != nil, nil
}

// lock fixes the first strategy that accepts the last response.
func (d *Data[T]) lock() {
	for i, s := range d.strategies {
		if s.IsApplicable(d.LastResponse()) {
			d.state = StateLocked
			d.locked = i
			StrategyLocks.WithLabelValues(s.Name()).Inc()
			d.logger.Debug().Str("strategy", s.Name()).Msg("Locked pagination strategy")
			return
		}
	}
}

func (d *Data[T]) exhaust() {
	if d.state == StateExhausted {
		return
	}
	d.state = StateExhausted
	d.items = nil
	d.index = 0
	TraversalsCompleted.Inc()
	d.logger.Debug().Int("last_page_size", d.pageSize).Msg("Pagination exhausted")
}
