package query

import "slices"

// PageRequest requests a page of a slice query. State is the opaque paging
// state returned with the previous page, nil for the first page.
type PageRequest struct {
	Size  int
	State []byte
}

// FirstPage requests the first page of size rows.
func FirstPage(size int) PageRequest { return PageRequest{Size: size} }

// Unpaged requests all rows.
func Unpaged() PageRequest { return PageRequest{} }

// IsPaged reports whether a page size is set.
func (p PageRequest) IsPaged() bool { return p.Size > 0 }

// IsFirst reports whether the request is for the first page.
func (p PageRequest) IsFirst() bool { return len(p.State) == 0 }

// WithState returns the request continuing at state.
func (p PageRequest) WithState(state []byte) PageRequest {
	p.State = slices.Clone(state)
	return p
}

// Slice is a page of results carrying the paging state of the next page.
type Slice[T any] struct {
	content []T
	request PageRequest
	next    []byte
}

// NewSlice returns a slice of content read for request. next is the paging
// state reported by the driver, empty on the last page.
func NewSlice[T any](content []T, request PageRequest, next []byte) Slice[T] {
	return Slice[T]{content: content, request: request, next: slices.Clone(next)}
}

// Content returns the entities of the page.
func (s Slice[T]) Content() []T { return s.content }

// Len returns the number of entities in the page.
func (s Slice[T]) Len() int { return len(s.content) }

// Request returns the request that produced the page.
func (s Slice[T]) Request() PageRequest { return s.request }

// HasNext reports whether more rows are available.
func (s Slice[T]) HasNext() bool { return len(s.next) > 0 }

// NextPage returns the request for the next page. It is the zero
// PageRequest when HasNext is false.
func (s Slice[T]) NextPage() PageRequest {
	if !s.HasNext() {
		return PageRequest{}
	}
	return PageRequest{Size: s.request.Size, State: slices.Clone(s.next)}
}
