package pagination

import (
	"context"
	"iter"
)

// Iterable is the caller-facing view of a paginated result. Each call to
// All or Pages starts a new traversal from the first page.
type Iterable[T any] struct {
	data *Data[T]
}

// NewIterable wraps data.
func NewIterable[T any](data *Data[T]) *Iterable[T] {
	return &Iterable[T]{data: data}
}

// All yields every item across all pages.
func (it *Iterable[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return it.data.All(ctx)
}

// Pages yields every non-empty wrapped page.
func (it *Iterable[T]) Pages(ctx context.Context) iter.Seq2[any, error] {
	return it.data.Pages(ctx)
}

// Collect drains a fresh traversal. On error it returns the items read so far.
func (it *Iterable[T]) Collect(ctx context.Context) ([]T, error) {
	var items []T
	for item, err := range it.data.All(ctx) {
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Data returns the underlying traversal.
func (it *Iterable[T]) Data() *Data[T] {
	return it.data
}
