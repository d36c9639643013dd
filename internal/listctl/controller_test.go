package listctl

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/citycast/internal/cities"
)

// scriptedSource serves pages from a map and fails indexes listed in failures
// until their failure count runs out.
type scriptedSource struct {
	size     int
	pages    map[int][]cities.City
	mu       sync.Mutex
	failures map[int]int
	calls    []int
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	block    chan struct{}
}

func (s *scriptedSource) PageSize() int { return s.size }

func (s *scriptedSource) FetchPage(ctx context.Context, index int) (cities.Page, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		seen := s.maxSeen.Load()
		if n <= seen || s.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	s.mu.Lock()
	s.calls = append(s.calls, index)
	fail := s.failures[index] > 0
	if fail {
		s.failures[index]--
	}
	s.mu.Unlock()

	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return cities.Page{}, &cities.TransportError{Page: index, Err: ctx.Err()}
		}
	}
	if fail {
		return cities.Page{}, &cities.TransportError{Page: index, StatusCode: 503, Err: errors.New("unavailable")}
	}
	return cities.NewPage(index, s.pages[index], s.size), nil
}

func (s *scriptedSource) Calls() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.calls...)
}

func twoPageSource() *scriptedSource {
	return &scriptedSource{
		size:     2,
		pages:    map[int][]cities.City{0: named("A", "B"), 1: named("C")},
		failures: map[int]int{},
	}
}

func TestController_LoadsUntilExhausted(t *testing.T) {
	src := twoPageSource()
	c := NewController(src, Options{})
	ctx := context.Background()

	assert.Equal(t, PhaseIdle, c.Phase())

	require.NoError(t, c.LoadMore(ctx))
	assert.Equal(t, PhaseIdle, c.Phase())
	assert.Equal(t, 1, c.NextPage())

	require.NoError(t, c.LoadMore(ctx))
	assert.Equal(t, []string{"A", "B", "C"}, names(c.Records()))
	assert.False(t, c.HasMore())
	assert.Equal(t, PhaseExhausted, c.Phase())

	assert.ErrorIs(t, c.LoadMore(ctx), ErrExhausted)
	assert.Equal(t, []int{0, 1}, src.Calls(), "no call is issued once exhausted")
}

func TestController_FailureThenRetry(t *testing.T) {
	src := twoPageSource()
	src.failures[1] = 1
	c := NewController(src, Options{})
	ctx := context.Background()

	require.NoError(t, c.LoadMore(ctx))
	err := c.LoadMore(ctx)
	require.Error(t, err)
	assert.True(t, cities.IsTransportError(err))

	assert.Equal(t, PhaseError, c.Phase())
	assert.Equal(t, 1, c.NextPage())
	assert.Equal(t, []string{"A", "B"}, names(c.Records()))
	assert.Equal(t, []string{"A", "B"}, names(c.View()), "partial results stay visible")
	assert.Error(t, c.Err())

	require.NoError(t, c.Retry(ctx))
	assert.Equal(t, []int{0, 1, 1}, src.Calls(), "retry fetches the same index")
	assert.NoError(t, c.Err())
	assert.Equal(t, PhaseExhausted, c.Phase())
	assert.Equal(t, []string{"A", "B", "C"}, names(c.View()))
}

func TestController_RetryRequiresFailure(t *testing.T) {
	c := NewController(twoPageSource(), Options{})
	assert.ErrorIs(t, c.Retry(context.Background()), ErrNotFailed)

	_, err := c.StartRetry()
	assert.ErrorIs(t, err, ErrNotFailed)
}

func TestController_SingleFetchInFlight(t *testing.T) {
	src := twoPageSource()
	src.block = make(chan struct{})
	c := NewController(src, Options{})

	ticket, err := c.StartLoad()
	require.NoError(t, err)
	assert.Equal(t, PhaseLoading, c.Phase())

	_, err = c.StartLoad()
	assert.ErrorIs(t, err, ErrAlreadyLoading)
	assert.ErrorIs(t, c.LoadMore(context.Background()), ErrAlreadyLoading)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.LoadMore(context.Background())
		}()
	}
	wg.Wait()

	done := make(chan struct{})
	go func() {
		page, err := c.Fetch(ticket)
		c.Complete(ticket, page, err)
		close(done)
	}()
	close(src.block)
	<-done

	assert.Equal(t, int32(1), src.maxSeen.Load())
	assert.Equal(t, []int{0}, src.Calls())
	assert.Equal(t, 1, c.NextPage())
}

func TestController_CancelDiscardsLateResult(t *testing.T) {
	src := twoPageSource()
	c := NewController(src, Options{})

	ticket, err := c.StartLoad()
	require.NoError(t, err)

	c.Cancel()
	assert.False(t, c.Loading(), "cancel must not leave the controller stuck loading")
	assert.Equal(t, PhaseIdle, c.Phase())

	applied := c.Complete(ticket, cities.NewPage(0, named("late"), 2), nil)
	assert.False(t, applied)
	assert.Empty(t, c.Records())
	assert.Equal(t, 0, c.NextPage())

	// The next load reuses the abandoned index.
	next, err := c.StartLoad()
	require.NoError(t, err)
	assert.Equal(t, 0, next.Page)
	assert.False(t, c.Complete(ticket, cities.Page{}, nil), "old ticket stays stale")
	assert.True(t, c.Complete(next, cities.NewPage(0, named("A", "B"), 2), nil))
	assert.Equal(t, []string{"A", "B"}, names(c.View()))
}

func TestController_TimeoutMovesToError(t *testing.T) {
	src := twoPageSource()
	src.block = make(chan struct{})
	defer close(src.block)
	c := NewController(src, Options{FetchTimeout: 20 * time.Millisecond})

	err := c.LoadMore(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, PhaseError, c.Phase())
	assert.False(t, c.Loading())
	assert.Equal(t, 0, c.NextPage())
}

// hangingSource ignores its context entirely.
type hangingSource struct{ release chan struct{} }

func (h hangingSource) PageSize() int { return 2 }

func (h hangingSource) FetchPage(context.Context, int) (cities.Page, error) {
	<-h.release
	return cities.Page{}, nil
}

func TestController_TimeoutWithUncooperativeSource(t *testing.T) {
	src := hangingSource{release: make(chan struct{})}
	defer close(src.release)
	c := NewController(src, Options{FetchTimeout: 20 * time.Millisecond})

	err := c.LoadMore(context.Background())
	require.Error(t, err)
	assert.True(t, cities.IsTransportError(err))
	assert.Equal(t, PhaseError, c.Phase())
}

func TestController_SearchAndSortDoNotFetch(t *testing.T) {
	src := &scriptedSource{
		size:     3,
		pages:    map[int][]cities.City{0: named("Paris", "Anchorage", "Santander")},
		failures: map[int]int{},
	}
	c := NewController(src, Options{})
	require.NoError(t, c.LoadMore(context.Background()))

	c.SetSearchTerm("an")
	assert.Equal(t, []string{"Anchorage", "Santander"}, names(c.View()))

	spec := c.SetSort(SortName)
	assert.Equal(t, SortSpec{Key: SortName}, spec)
	assert.Equal(t, []string{"Anchorage", "Santander"}, names(c.View()))

	spec = c.SetSort(SortName)
	assert.Equal(t, Descending, spec.Direction)
	assert.Equal(t, []string{"Santander", "Anchorage"}, names(c.View()))

	c.SetSearchTerm("")
	assert.Equal(t, []string{"Santander", "Paris", "Anchorage"}, names(c.View()))

	c.ClearSort()
	assert.Equal(t, []string{"Paris", "Anchorage", "Santander"}, names(c.View()))

	assert.Equal(t, []int{0}, src.Calls())
	assert.Equal(t, 1, c.NextPage())
}

func TestController_SearchDuringLoad(t *testing.T) {
	src := twoPageSource()
	c := NewController(src, Options{})
	require.NoError(t, c.LoadMore(context.Background()))

	ticket, err := c.StartLoad()
	require.NoError(t, err)

	c.SetSearchTerm("b")
	assert.Equal(t, []string{"B"}, names(c.View()))
	assert.Equal(t, PhaseLoading, c.Phase())

	assert.True(t, c.Complete(ticket, cities.NewPage(1, named("Bb"), 2), nil))
	assert.Equal(t, []string{"B", "Bb"}, names(c.View()), "new records pass through the active filter")
}

func TestController_Select(t *testing.T) {
	var selected []string
	c := NewController(twoPageSource(), Options{
		OnCitySelected: func(city cities.City) { selected = append(selected, city.Name) },
	})
	require.NoError(t, c.LoadMore(context.Background()))
	c.SetSort(SortName)
	c.SetSort(SortName)

	city, ok := c.Select(0)
	require.True(t, ok)
	assert.Equal(t, "B", city.Name)

	_, ok = c.Select(5)
	assert.False(t, ok)
	assert.Equal(t, []string{"B"}, selected)
}

func TestController_Subscribe(t *testing.T) {
	c := NewController(twoPageSource(), Options{})

	var phases []Phase
	unsubscribe := c.Subscribe(func(s Snapshot) { phases = append(phases, s.Phase) })

	require.NoError(t, c.LoadMore(context.Background()))
	require.NoError(t, c.LoadMore(context.Background()))
	assert.Equal(t, []Phase{PhaseLoading, PhaseIdle, PhaseLoading, PhaseExhausted}, phases)

	unsubscribe()
	c.SetSearchTerm("a")
	assert.Len(t, phases, 4)
}

func TestController_SnapshotIsolation(t *testing.T) {
	c := NewController(twoPageSource(), Options{})
	require.NoError(t, c.LoadMore(context.Background()))

	snap := c.Snapshot()
	snap.View[0].Name = "mutated"
	assert.Equal(t, "A", c.View()[0].Name)
	assert.Equal(t, 2, snap.Total)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "loading", PhaseLoading.String())
	assert.Equal(t, "exhausted", PhaseExhausted.String())
	assert.Equal(t, "error", PhaseError.String())
}
