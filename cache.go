package pumped

// cacheState tracks where a single executor's resolution sits in its
// lifecycle within one graph owner (a Scope or a Pod).
type cacheState int

const (
	stateNone cacheState = iota
	statePending
	stateResolved
	stateRejected
)

// cacheEntry is the cache's unit of storage: a tagged union over
// none/pending/resolved/rejected. While pending, done is open; resolve
// closes it so concurrent callers waiting on the same executor wake
// together instead of each re-running the factory.
type cacheEntry struct {
	state cacheState
	value any
	err   error
	done  chan struct{}
}

func newPendingEntry() *cacheEntry {
	return &cacheEntry{state: statePending, done: make(chan struct{})}
}

func (e *cacheEntry) settleResolved(value any) {
	e.value = value
	e.state = stateResolved
	close(e.done)
}

func (e *cacheEntry) settleRejected(err error) {
	e.err = err
	e.state = stateRejected
	close(e.done)
}

// snapshot copies the settled value/error pair; callers in a child pod use
// this to seed their own independent entry rather than sharing the pointer
// (and therefore the cleanup ownership) of the parent's entry.
func (e *cacheEntry) snapshot() *cacheEntry {
	return &cacheEntry{state: e.state, value: e.value, err: e.err, done: closedChan}
}

var closedChan = makeClosedChan()

func makeClosedChan() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}
