package listctl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pders01/citycast/internal/cities"
	"github.com/pders01/citycast/internal/debuglog"
)

// DefaultFetchTimeout bounds a single page fetch.
const DefaultFetchTimeout = 20 * time.Second

// ErrNotFailed is returned by retry operations when the last fetch did not fail.
var ErrNotFailed = errors.New("no failed fetch to retry")

// Phase is the controller's pagination state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseExhausted
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseExhausted:
		return "exhausted"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Ticket identifies one issued fetch. A ticket outlived by Cancel is stale and
// its completion is discarded.
type Ticket struct {
	Page int

	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc
}

// Snapshot is the observable state handed to subscribers.
type Snapshot struct {
	Phase    Phase
	View     []cities.City
	Total    int
	NextPage int
	HasMore  bool
	Err      error
	Sort     SortSpec
	Term     string
}

type Options struct {
	FetchTimeout time.Duration
	// OnCitySelected is called by Select with the chosen row.
	OnCitySelected func(cities.City)
}

// Controller drives pagination against a PagedSource and derives the view
// from the accumulated records, the search term and the sort spec.
type Controller struct {
	source  cities.PagedSource
	timeout time.Duration

	mu       sync.Mutex
	state    *State
	term     string
	sort     SortSpec
	view     []cities.City
	err      error
	gen      uint64
	inflight context.CancelFunc
	onSelect func(cities.City)

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

func NewController(source cities.PagedSource, opts Options) *Controller {
	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Controller{
		source:   source,
		timeout:  timeout,
		state:    NewState(),
		view:     []cities.City{},
		onSelect: opts.OnCitySelected,
		subs:     make(map[int]func(Snapshot)),
	}
}

// StartLoad reserves the next page for fetching. The returned ticket must be
// passed to Fetch and then to Complete.
func (c *Controller) StartLoad() (Ticket, error) {
	return c.start(context.Background())
}

// StartRetry is StartLoad restricted to the Error phase.
func (c *Controller) StartRetry() (Ticket, error) {
	if c.Phase() != PhaseError {
		return Ticket{}, ErrNotFailed
	}
	return c.start(context.Background())
}

func (c *Controller) start(parent context.Context) (Ticket, error) {
	c.mu.Lock()
	page, err := c.state.BeginLoad()
	if err != nil {
		c.mu.Unlock()
		debuglog.Debugf("load request ignored: %v", err)
		return Ticket{}, err
	}

	ctx, cancel := context.WithTimeout(parent, c.timeout)
	c.gen++
	c.inflight = cancel
	t := Ticket{Page: page, gen: c.gen, ctx: ctx, cancel: cancel}
	c.mu.Unlock()

	debuglog.WithFields(map[string]any{"page": page}).Debugf("page load started")
	c.notify()
	return t, nil
}

// Fetch performs the source call for a ticket. It returns once the source
// answers or the ticket's deadline passes, whichever comes first. Fetch does
// not touch controller state and may run on any goroutine.
func (c *Controller) Fetch(t Ticket) (cities.Page, error) {
	if t.ctx == nil {
		return cities.Page{}, errors.New("fetch with an unissued ticket")
	}

	type result struct {
		page cities.Page
		err  error
	}
	done := make(chan result, 1)
	go func() {
		page, err := c.source.FetchPage(t.ctx, t.Page)
		done <- result{page, err}
	}()

	select {
	case r := <-done:
		return r.page, r.err
	case <-t.ctx.Done():
		return cities.Page{}, &cities.TransportError{Page: t.Page, Err: t.ctx.Err()}
	}
}

// Complete applies the outcome of a fetch. It reports false when the ticket
// is stale and the outcome was discarded.
func (c *Controller) Complete(t Ticket, page cities.Page, fetchErr error) bool {
	if t.cancel != nil {
		defer t.cancel()
	}

	c.mu.Lock()
	if t.gen == 0 || t.gen != c.gen || !c.state.Loading() {
		c.mu.Unlock()
		debuglog.WithFields(map[string]any{"page": t.Page}).Debugf("discarding stale page result")
		return false
	}
	c.inflight = nil

	log := debuglog.WithFields(map[string]any{"page": t.Page})
	if fetchErr != nil {
		c.state.FailLoad()
		c.err = fetchErr
		log.Warnf("page load failed: %v", fetchErr)
	} else {
		c.state.AppendPage(page.Records, page.Last)
		c.err = nil
		c.recompute()
		log.Infof("page loaded: %d records, last=%t", len(page.Records), page.Last)
	}
	c.mu.Unlock()

	c.notify()
	return true
}

// LoadMore fetches the next page synchronously.
func (c *Controller) LoadMore(ctx context.Context) error {
	t, err := c.start(ctx)
	if err != nil {
		return err
	}
	page, err := c.Fetch(t)
	c.Complete(t, page, err)
	return err
}

// Retry refetches the page whose fetch failed.
func (c *Controller) Retry(ctx context.Context) error {
	if c.Phase() != PhaseError {
		return ErrNotFailed
	}
	return c.LoadMore(ctx)
}

// Cancel abandons the in-flight fetch. Its result, if it still arrives, is
// discarded and the page index is left unchanged.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if !c.state.Loading() {
		c.mu.Unlock()
		return
	}
	c.gen++
	if c.inflight != nil {
		c.inflight()
		c.inflight = nil
	}
	c.state.FailLoad()
	c.mu.Unlock()

	debuglog.Debugf("in-flight page load cancelled")
	c.notify()
}

// SetSearchTerm changes the filter. It never affects pagination.
func (c *Controller) SetSearchTerm(term string) {
	c.mu.Lock()
	if term == c.term {
		c.mu.Unlock()
		return
	}
	c.term = term
	c.recompute()
	c.mu.Unlock()
	c.notify()
}

// SetSort requests a sort on key, toggling direction when key is already the
// ascending sort key.
func (c *Controller) SetSort(key SortKey) SortSpec {
	c.mu.Lock()
	c.sort = ToggleSort(c.sort, key)
	spec := c.sort
	c.recompute()
	c.mu.Unlock()
	c.notify()
	return spec
}

// ClearSort returns the view to arrival order.
func (c *Controller) ClearSort() {
	c.mu.Lock()
	c.sort = SortSpec{}
	c.recompute()
	c.mu.Unlock()
	c.notify()
}

// Select reports the city at index in the current view to the selection
// callback.
func (c *Controller) Select(index int) (cities.City, bool) {
	c.mu.Lock()
	if index < 0 || index >= len(c.view) {
		c.mu.Unlock()
		return cities.City{}, false
	}
	city := c.view[index]
	onSelect := c.onSelect
	c.mu.Unlock()

	debuglog.WithFields(map[string]any{"city": city.Key()}).Infof("city selected")
	if onSelect != nil {
		onSelect(city)
	}
	return city, true
}

// Subscribe registers fn to receive a snapshot after every transition. The
// returned function removes the subscription.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Controller) notify() {
	c.subMu.Lock()
	if len(c.subs) == 0 {
		c.subMu.Unlock()
		return
	}
	fns := make([]func(Snapshot), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	snap := c.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}

// recompute must be called with mu held.
func (c *Controller) recompute() {
	c.view = Compute(c.state.records, c.term, c.sort)
}

func (c *Controller) phaseLocked() Phase {
	switch {
	case c.state.Loading():
		return PhaseLoading
	case c.err != nil:
		return PhaseError
	case !c.state.HasMore():
		return PhaseExhausted
	default:
		return PhaseIdle
	}
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Phase:    c.phaseLocked(),
		View:     c.viewLocked(),
		Total:    c.state.Len(),
		NextPage: c.state.NextPage(),
		HasMore:  c.state.HasMore(),
		Err:      c.err,
		Sort:     c.sort,
		Term:     c.term,
	}
}

func (c *Controller) viewLocked() []cities.City {
	out := make([]cities.City, len(c.view))
	copy(out, c.view)
	return out
}

// View returns the filtered and sorted records.
func (c *Controller) View() []cities.City {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Records returns every accumulated record in arrival order.
func (c *Controller) Records() []cities.City {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Records()
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phaseLocked()
}

func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Loading()
}

func (c *Controller) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.HasMore()
}

func (c *Controller) NextPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.NextPage()
}

// Err returns the error of the last failed fetch, cleared by a successful one.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Controller) Sort() SortSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sort
}

func (c *Controller) SearchTerm() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.term
}
