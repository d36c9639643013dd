package listctl

// DefaultThreshold is the distance, in rows, from the bottom of the content
// at which the trigger fires.
const DefaultThreshold = 3

// Viewport describes the visible window over the scrollable content.
type Viewport struct {
	Offset        int
	Height        int
	ContentHeight int
}

// NearBottom reports whether the window reaches within threshold of the end.
func (v Viewport) NearBottom(threshold int) bool {
	return v.Offset+v.Height >= v.ContentHeight-threshold
}

// Trigger turns viewport observations into load-more requests. It fires at
// most once per qualifying position and stays quiet while a load is running
// or the source is exhausted.
type Trigger struct {
	Threshold int

	fired bool
	last  Viewport
}

func NewTrigger(threshold int) *Trigger {
	if threshold < 0 {
		threshold = DefaultThreshold
	}
	return &Trigger{Threshold: threshold}
}

// Observe records a viewport position and reports whether a load should be
// requested.
func (t *Trigger) Observe(v Viewport, loading, hasMore bool) bool {
	if loading || !hasMore {
		return false
	}
	if !v.NearBottom(t.Threshold) {
		return false
	}
	if t.fired && t.last == v {
		return false
	}
	t.fired = true
	t.last = v
	return true
}

// Reset forgets the last fired position.
func (t *Trigger) Reset() {
	t.fired = false
	t.last = Viewport{}
}
