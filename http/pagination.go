package http

import "context"

// PageFetcher fetches the page of items starting at offset.
// It returns the items and the total number of items the server reports,
// or -1 when the total is unknown.
type PageFetcher[T any] func(ctx context.Context, offset int) (items []T, total int, err error)

// PageIterator walks offset/limit paginated results.
// Pages are fetched lazily, one at a time, on the caller's goroutine.
type PageIterator[T any] struct {
	fetch   PageFetcher[T]
	offset  int
	buffer  []T
	done    bool
	err     error
	total   int
	fetched int
	size    int
}

// NewPageIterator creates a new iterator with the given fetch function.
func NewPageIterator[T any](fetch PageFetcher[T]) *PageIterator[T] {
	return &PageIterator[T]{
		fetch: fetch,
		total: -1,
	}
}

// WithPageSize sets the number of items the fetcher requests per page.
// A page shorter than n ends iteration, so a server that ignores the offset
// cannot keep it going forever.
func (p *PageIterator[T]) WithPageSize(n int) *PageIterator[T] {
	p.size = n
	return p
}

// Next returns the next item from the iterator.
// When iteration is complete, returns (zero, false, nil).
func (p *PageIterator[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T

	if p.err != nil {
		return zero, false, p.err
	}

	if len(p.buffer) == 0 && !p.done {
		items, total, err := p.fetch(ctx, p.offset)
		if err != nil {
			p.err = err
			return zero, false, err
		}
		p.buffer = items
		p.total = total
		p.offset += len(items)
		// An empty or short page ends iteration even if the total disagrees.
		p.done = len(items) == 0 ||
			(p.size > 0 && len(items) < p.size) ||
			(total >= 0 && p.offset >= total)
	}

	if len(p.buffer) == 0 {
		return zero, false, nil
	}

	item := p.buffer[0]
	p.buffer = p.buffer[1:]
	p.fetched++

	return item, true, nil
}

// All collects all items from the iterator into a slice.
func (p *PageIterator[T]) All(ctx context.Context) ([]T, error) {
	var all []T
	for {
		item, ok, err := p.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return all, nil
		}
		all = append(all, item)
	}
}

// Take returns up to n items from the iterator.
func (p *PageIterator[T]) Take(ctx context.Context, n int) ([]T, error) {
	var items []T
	for len(items) < n {
		item, ok, err := p.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		items = append(items, item)
	}
	return items, nil
}

// ForEach calls fn for each item in the iterator.
// If fn returns an error, iteration stops and that error is returned.
func (p *PageIterator[T]) ForEach(ctx context.Context, fn func(T) error) error {
	for {
		item, ok, err := p.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := fn(item); err != nil {
			return err
		}
	}
}

// Total returns the total reported by the last fetched page, or -1 if unknown.
func (p *PageIterator[T]) Total() int {
	return p.total
}

// Fetched returns the number of items returned so far.
func (p *PageIterator[T]) Fetched() int {
	return p.fetched
}
