package transport

import (
	"context"
	"strconv"

	"github.com/goliatone/go-pubsub-rest/core"
)

// ItemHandler post-processes each item of a page when the caller
// materializes it, typically to decode message payloads.
type ItemHandler[T any] func(item *T)

// PaginatedRequestBuilder wraps a RequestBuilder to produce a lazy
// sequence of pages, each page's request derived from the rel="next"
// Link header of the previous response.
type PaginatedRequestBuilder[T any] struct {
	inner   *RequestBuilder
	handler ItemHandler[T]
}

// NewPaginatedRequest wraps a built-up RequestBuilder for pagination over
// items of type T.
func NewPaginatedRequest[T any](inner *RequestBuilder, handler ItemHandler[T]) *PaginatedRequestBuilder[T] {
	return &PaginatedRequestBuilder[T]{inner: inner, handler: handler}
}

// Start restricts the query to items at or after the given interval.
func (b *PaginatedRequestBuilder[T]) Start(interval string) *PaginatedRequestBuilder[T] {
	return b.Param("start", interval)
}

// End restricts the query to items at or before the given interval.
func (b *PaginatedRequestBuilder[T]) End(interval string) *PaginatedRequestBuilder[T] {
	return b.Param("end", interval)
}

// Forwards orders results oldest first.
func (b *PaginatedRequestBuilder[T]) Forwards() *PaginatedRequestBuilder[T] {
	return b.Param("direction", "forwards")
}

// Backwards orders results newest first.
func (b *PaginatedRequestBuilder[T]) Backwards() *PaginatedRequestBuilder[T] {
	return b.Param("direction", "backwards")
}

// Limit caps the number of items per page.
func (b *PaginatedRequestBuilder[T]) Limit(limit uint) *PaginatedRequestBuilder[T] {
	return b.Param("limit", strconv.FormatUint(uint64(limit), 10))
}

// Param adds a query parameter to the underlying request.
func (b *PaginatedRequestBuilder[T]) Param(key string, value string) *PaginatedRequestBuilder[T] {
	b.inner.Param(key, value)
	return b
}

// Params adds a set of query parameters to the underlying request.
func (b *PaginatedRequestBuilder[T]) Params(params map[string]string) *PaginatedRequestBuilder[T] {
	b.inner.Params(params)
	return b
}

// Pages returns the lazy page sequence. Nothing is sent until the first
// call to Next; a consumer that stops pulling leaves remaining pages
// unfetched.
func (b *PaginatedRequestBuilder[T]) Pages(ctx context.Context) *Pages[T] {
	pages := &Pages[T]{handler: b.handler}
	req, err := b.inner.build(ctx)
	if err != nil {
		pages.nextErr = err
	} else {
		pages.next = req
	}
	return pages
}

// Send fetches the first page of the sequence.
func (b *PaginatedRequestBuilder[T]) Send(ctx context.Context) (*PaginatedResult[T], error) {
	pages := b.Pages(ctx)
	if !pages.Next(ctx) {
		if err := pages.Err(); err != nil {
			return nil, err
		}
		return nil, core.NewError(core.ErrCodeServerError, "Unexpected error retrieving first page")
	}
	return pages.Page(), nil
}

// Pages iterates a paginated response one page at a time. The sequence
// yields zero or more pages and terminates after at most one error,
// reported by Err once Next returns false.
type Pages[T any] struct {
	next    *Request
	nextErr error
	handler ItemHandler[T]
	current *PaginatedResult[T]
	err     error
	done    bool
}

// Next fetches the next page, returning false when the sequence is
// exhausted or a terminal error occurred.
func (p *Pages[T]) Next(ctx context.Context) bool {
	if p.done {
		return false
	}
	if p.nextErr != nil {
		p.err = p.nextErr
		p.done = true
		return false
	}
	if p.next == nil {
		p.done = true
		return false
	}

	req := p.next
	p.next = nil

	// Clone before sending so the follow-up request keeps the same
	// headers and auth after the original is consumed.
	derived, cloneErr := req.clone()

	res, err := req.send(ctx)
	if err != nil {
		p.err = err
		p.done = true
		return false
	}
	p.current = &PaginatedResult[T]{res: res, handler: p.handler}

	if link, ok := nextLink(res.Header()); ok {
		if cloneErr != nil {
			p.nextErr = cloneErr
		} else {
			derived.inner.URL.RawQuery = link.Params
			p.next = derived
		}
	}
	return true
}

// Page returns the page fetched by the last successful call to Next.
func (p *Pages[T]) Page() *PaginatedResult[T] {
	return p.current
}

// Err returns the terminal error of the sequence, if any.
func (p *Pages[T]) Err() error {
	return p.err
}

// PaginatedResult is a single page of items.
type PaginatedResult[T any] struct {
	res     *Response
	handler ItemHandler[T]
}

// Items decodes the page body into its item list, running each item
// through the configured handler.
func (r *PaginatedResult[T]) Items() ([]T, error) {
	var items []T
	if err := r.res.Decode(&items); err != nil {
		return nil, err
	}
	if r.handler != nil {
		for i := range items {
			r.handler(&items[i])
		}
	}
	return items, nil
}

// Response exposes the underlying page response.
func (r *PaginatedResult[T]) Response() *Response {
	return r.res
}
