package listctl

import (
	"errors"

	"github.com/pders01/citycast/internal/cities"
)

var (
	// ErrAlreadyLoading is returned when a fetch is requested while one is in flight.
	ErrAlreadyLoading = errors.New("a page fetch is already in flight")
	// ErrExhausted is returned once the source has reported its last page.
	ErrExhausted = errors.New("no more pages")
)

// State holds the accumulated records and the pagination cursor. It is not
// safe for concurrent use; Controller serialises access to it.
type State struct {
	records  []cities.City
	nextPage int
	loading  bool
	hasMore  bool
}

func NewState() *State {
	return &State{hasMore: true}
}

// BeginLoad marks a fetch as in flight and returns the page index to fetch.
func (s *State) BeginLoad() (int, error) {
	if s.loading {
		return 0, ErrAlreadyLoading
	}
	if !s.hasMore {
		return 0, ErrExhausted
	}
	s.loading = true
	return s.nextPage, nil
}

// AppendPage adds a fetched page in arrival order and advances the cursor.
func (s *State) AppendPage(records []cities.City, last bool) {
	s.records = append(s.records, records...)
	s.nextPage++
	if last {
		s.hasMore = false
	}
	s.loading = false
}

// FailLoad ends a fetch without advancing the cursor, so the next BeginLoad
// returns the same index.
func (s *State) FailLoad() {
	s.loading = false
}

// Records returns a copy of the accumulated records.
func (s *State) Records() []cities.City {
	out := make([]cities.City, len(s.records))
	copy(out, s.records)
	return out
}

func (s *State) Len() int      { return len(s.records) }
func (s *State) NextPage() int { return s.nextPage }
func (s *State) Loading() bool { return s.loading }
func (s *State) HasMore() bool { return s.hasMore }
