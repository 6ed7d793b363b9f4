// Package paging walks paged list endpoints.
//
// Pages are fetched one at a time, starting at page 1, and handed to the
// consumer before the next page is requested. The walk ends when the consumer
// stops it, when the last page has been seen, or when a fetch fails. A failed
// fetch is treated as "no more data" and is never retried here.
package paging

import (
	"context"
	"iter"
)

// Page is one page of a paged listing.
type Page[T any] struct {
	Items       []T
	CurrentPage int
	TotalPages  int
}

// FetchFunc fetches the given 1-based page. It returns false if the page
// could not be fetched for any reason.
type FetchFunc[T any] func(ctx context.Context, page int) (Page[T], bool)

// Pages returns a finite, restartable sequence over the pages produced by
// fetch. Breaking out of the range loop stops further fetches.
func Pages[T any](ctx context.Context, fetch FetchFunc[T]) iter.Seq[Page[T]] {
	return func(yield func(Page[T]) bool) {
		for n := 1; ; n++ {
			if ctx.Err() != nil {
				return
			}
			page, ok := fetch(ctx, n)
			if !ok {
				return
			}
			if !yield(page) {
				return
			}
			// The local counter is authoritative so a panel that keeps
			// reporting the same current_page cannot loop us forever.
			if n >= page.TotalPages {
				return
			}
		}
	}
}

// Walk hands every page to done until done returns true or the pages run out.
func Walk[T any](ctx context.Context, fetch FetchFunc[T], done func(Page[T]) bool) {
	for page := range Pages(ctx, fetch) {
		if done(page) {
			return
		}
	}
}

// Find returns the first item for which match returns true. No page after the
// one holding the match is fetched.
func Find[T any](ctx context.Context, fetch FetchFunc[T], match func(T) bool) (T, bool) {
	var (
		found T
		ok    bool
	)
	Walk(ctx, fetch, func(page Page[T]) bool {
		for _, item := range page.Items {
			if match(item) {
				found, ok = item, true
				return true
			}
		}
		return false
	})
	return found, ok
}
