package cities

import (
	"context"
	"errors"
	"fmt"
)

// DefaultPageSize matches the listing page size of the public dataset.
const DefaultPageSize = 15

// PagedSource yields ordered, fixed-size pages of cities. Index is zero based.
type PagedSource interface {
	FetchPage(ctx context.Context, index int) (Page, error)
	PageSize() int
}

// TransportError reports a failed page fetch. The page index is kept so the
// caller can retry the same page.
type TransportError struct {
	Page       int
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetching page %d: HTTP %d: %v", e.Page, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetching page %d: %v", e.Page, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err wraps a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// SourceFunc adapts a function to PagedSource.
type SourceFunc struct {
	Size  int
	Fetch func(ctx context.Context, index int) (Page, error)
}

func (f SourceFunc) FetchPage(ctx context.Context, index int) (Page, error) {
	return f.Fetch(ctx, index)
}

func (f SourceFunc) PageSize() int {
	if f.Size <= 0 {
		return DefaultPageSize
	}
	return f.Size
}

// NewPage builds a Page and derives Last from the page size.
func NewPage(index int, records []City, pageSize int) Page {
	return Page{Index: index, Records: records, Last: len(records) < pageSize}
}
