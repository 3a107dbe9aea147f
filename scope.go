package pumped

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// ChangeEvent is published to a scope's change subscribers whenever an
// executor resolves, updates, or releases.
type ChangeEvent struct {
	Kind     string // "resolve" | "update" | "release"
	Executor AnyExecutor
	Value    any
}

// graphState is the mutable state shared by the resolution algorithm,
// embedded by both Scope and Pod. A Pod's graphState only ever holds
// entries for executors resolved within that pod; anything inherited from
// an ancestor is copied in on first read (see resolveIn's parent lookup).
type graphState struct {
	mu            sync.Mutex
	cache         map[AnyExecutor]*cacheEntry
	cleanups      map[AnyExecutor][]cleanupEntry
	reactiveGraph *ReactiveGraph
	extensions    []Extension
	disposed      bool

	updateSubs map[AnyExecutor][]func(any)
	changeSubs []func(ChangeEvent)
	errorSubs  []func(err error, op *Operation)
}

func newGraphState() *graphState {
	return &graphState{
		cache:         make(map[AnyExecutor]*cacheEntry),
		cleanups:      make(map[AnyExecutor][]cleanupEntry),
		reactiveGraph: NewReactiveGraph(),
		updateSubs:    make(map[AnyExecutor][]func(any)),
	}
}

func (g *graphState) notifyChange(event ChangeEvent) {
	for _, fn := range g.changeSubs {
		fn(event)
	}
}

func (g *graphState) notifyError(err error, op *Operation) {
	for _, ext := range g.extensions {
		ext.OnError(err, op)
	}
	for _, fn := range g.errorSubs {
		fn(err, op)
	}
}

// Scope is the root owner of an executor dependency graph: it holds the
// resolution cache, the reactive edge graph, registered extensions, and a
// tag store used for scope-scoped configuration. A scope is safe for
// concurrent use.
type Scope struct {
	gs       *graphState
	store    *Store
	execTree *ExecutionTree
	pools    *PoolManager

	podsMu sync.Mutex
	pods   []*Pod

	seq int64
}

// ScopeOption configures a Scope at construction time.
type ScopeOption func(*Scope)

// WithExtension registers an extension, in call order, to the scope.
// Extensions registered first are outermost in the Wrap chain.
func WithExtension(ext Extension) ScopeOption {
	return func(s *Scope) {
		s.gs.extensions = append(s.gs.extensions, ext)
	}
}

// WithScopeTag seeds the scope's tag store with a value at construction.
func WithScopeTag[T any](tag Tag[T], value T) ScopeOption {
	return func(s *Scope) {
		if _, err := tag.Set(s.store, value); err != nil {
			panic(err)
		}
	}
}

// WithPreset pre-populates an executor's cache entry before any resolution
// happens, short-circuiting its factory entirely.
func WithPreset(p PresetValue) ScopeOption {
	return func(s *Scope) {
		applyPreset(s, p)
	}
}

func applyPreset(owner graphOwner, p PresetValue) {
	gs := owner.graphState()
	if p.isValue {
		entry := &cacheEntry{state: stateResolved, value: p.value, done: closedChan}
		gs.cache[p.executor] = entry
		return
	}
	v, err := owner.resolve(p.replacement, nil)
	entry := &cacheEntry{done: closedChan}
	if err != nil {
		entry.state = stateRejected
		entry.err = err
	} else {
		entry.state = stateResolved
		entry.value = v
	}
	gs.cache[p.executor] = entry
}

// NewScope creates a scope, runs Init on every registered extension, and
// returns an error if any extension's Init fails.
func NewScope(opts ...ScopeOption) (*Scope, error) {
	s := &Scope{gs: newGraphState(), store: NewStore()}
	s.execTree = NewExecutionTree(1024)
	s.pools = newPoolManager()
	for _, opt := range opts {
		opt(s)
	}
	for _, ext := range s.gs.extensions {
		if err := ext.Init(s); err != nil {
			return nil, fmt.Errorf("extension %q init: %w", ext.Name(), err)
		}
	}
	return s, nil
}

func (s *Scope) graphState() *graphState { return s.gs }
func (s *Scope) rootScope() *Scope        { return s }

func (s *Scope) parentLookup(exec AnyExecutor) (*cacheEntry, bool) { return nil, false }

func (s *Scope) resolve(exec AnyExecutor, path []AnyExecutor) (any, error) {
	return resolveIn(s, exec, path)
}

// Metas implements MetaContainer so Tag.Get/Find/Some work directly against
// a *Scope (scope-level tags come from its seeded Store, via WithScopeTag).
func (s *Scope) Metas() []AnyTagged { return s.store.entries() }

// GetTag retrieves the value of a tag (any Tag[T]) set on the scope via
// WithScopeTag/SetScopeTag.
func (s *Scope) GetTag(tag any) (any, bool) {
	if t, ok := tag.(interface{ Key() Symbol }); ok {
		return s.store.get(t.Key())
	}
	return nil, false
}

// SetScopeTag sets a tag directly on the scope's store, after construction.
func SetScopeTag[T any](s *Scope, tag Tag[T], value T) error {
	_, err := tag.Set(s.store, value)
	return err
}

// Resolve resolves exec within owner (a *Scope or *Pod), memoizing the
// result in the owner's cache.
func Resolve[T any](owner graphOwner, exec *Executor[T]) (T, error) {
	v, err := owner.resolve(exec, nil)
	if err != nil {
		var zero T
		return zero, err
	}
	return SafeTypeAssertion[T](v)
}

// Update replaces exec's cached value, runs its existing cleanups, and
// reactively re-produces every dependent that reached exec via a reactive
// dependency edge. If exec's entry is currently pending (mid-resolution),
// Update blocks until that resolution settles before applying, so a
// factory in flight is never raced against its own replacement. The whole
// update runs inside the extensions' Wrap chain as an OpUpdate operation.
func Update[T any](owner graphOwner, exec *Executor[T], value T) error {
	op := &Operation{Kind: OpUpdate, Executor: exec, Owner: owner}
	_, err := runExtensions(context.Background(), owner.graphState().reversedExtensions(), op, func() (any, error) {
		return nil, applyUpdate(owner, exec, value)
	})
	return err
}

func applyUpdate[T any](owner graphOwner, exec *Executor[T], value T) error {
	gs := owner.graphState()
	gs.mu.Lock()
	if gs.disposed {
		gs.mu.Unlock()
		return newScopeDisposedError("update")
	}
	if entry, ok := gs.cache[exec]; ok && entry.state == statePending {
		done := entry.done
		gs.mu.Unlock()
		<-done
		gs.mu.Lock()
	}
	runExecutorCleanups(gs, exec, "reactive")
	gs.cache[exec] = &cacheEntry{state: stateResolved, value: value, done: closedChan}
	subs := append([]func(any){}, gs.updateSubs[exec]...)
	gs.mu.Unlock()

	for _, fn := range subs {
		fn(value)
	}

	propagateReactive(owner, gs, exec, make(map[AnyExecutor]bool))

	gs.notifyChange(ChangeEvent{Kind: "update", Executor: exec, Value: value})
	return nil
}

// propagateReactive re-produces exec's reactive dependents in the order
// their edges were recorded (insertion order, via ReactiveGraph's
// appendUnique), recursing fully into each dependent's own dependents
// before moving to the next sibling. This guarantees dependent i is evicted,
// re-resolved and has its own subtree re-produced strictly before dependent
// i+1 starts, matching the order Derive wired the reactive edges in. seen
// guards against visiting a diamond-shaped dependent twice.
func propagateReactive(owner graphOwner, gs *graphState, exec AnyExecutor, seen map[AnyExecutor]bool) {
	for _, dep := range gs.reactiveGraph.GetDirectDependents(exec) {
		if seen[dep] {
			continue
		}
		seen[dep] = true

		gs.mu.Lock()
		runExecutorCleanups(gs, dep, "reactive")
		delete(gs.cache, dep)
		gs.mu.Unlock()

		if _, err := owner.resolve(dep, nil); err != nil {
			gs.notifyError(err, &Operation{Kind: OpUpdate, Executor: dep, Owner: owner})
		}
		propagateReactive(owner, gs, dep, seen)
	}
}

func sortExecutorsByName(execs []AnyExecutor) {
	sort.SliceStable(execs, func(i, j int) bool { return execs[i].Name() < execs[j].Name() })
}

// Release evicts exec's cache entry (if any) and runs its cleanups, then
// releases each reactive dependent of exec the same way and drops those
// reactive edges, without disposing the owning scope/pod. A subsequent
// Resolve re-runs the factory.
func Release(owner graphOwner, exec AnyExecutor) error {
	gs := owner.graphState()
	gs.mu.Lock()
	if gs.disposed {
		gs.mu.Unlock()
		return newScopeDisposedError("release")
	}
	runExecutorCleanups(gs, exec, "release")
	delete(gs.cache, exec)
	gs.mu.Unlock()
	for _, dep := range gs.reactiveGraph.GetDirectDependents(exec) {
		gs.reactiveGraph.RemoveDependency(dep, exec)
		if err := Release(owner, dep); err != nil {
			return err
		}
	}
	gs.notifyChange(ChangeEvent{Kind: "release", Executor: exec})
	return nil
}

func runExecutorCleanups(gs *graphState, exec AnyExecutor, reason string) {
	entries := gs.cleanups[exec]
	delete(gs.cleanups, exec)
	for i := len(entries) - 1; i >= 0; i-- {
		if err := entries[i].fn(); err != nil {
			cerr := &CleanupError{ExecutorID: exec, Err: err, Context: reason}
			handled := false
			for _, ext := range gs.extensions {
				if ext.OnCleanupError(cerr) {
					handled = true
				}
			}
			if !handled {
				gs.notifyError(cerr, &Operation{Kind: OpUpdate, Executor: exec})
			}
		}
	}
}

// OnChange registers a callback invoked on every resolve/update/release
// across the scope.
func (s *Scope) OnChange(fn func(ChangeEvent)) error {
	s.gs.mu.Lock()
	defer s.gs.mu.Unlock()
	if s.gs.disposed {
		return newScopeDisposedError("on-change")
	}
	s.gs.changeSubs = append(s.gs.changeSubs, fn)
	return nil
}

// OnUpdate registers a callback invoked whenever exec specifically updates.
func OnUpdate[T any](s *Scope, exec *Executor[T], fn func(T)) error {
	s.gs.mu.Lock()
	defer s.gs.mu.Unlock()
	if s.gs.disposed {
		return newScopeDisposedError("on-update")
	}
	s.gs.updateSubs[exec] = append(s.gs.updateSubs[exec], func(v any) {
		typed, _ := v.(T)
		fn(typed)
	})
	return nil
}

// OnError registers a callback invoked whenever a resolution, update, or
// cleanup in this scope fails and is not otherwise handled by an
// extension's OnCleanupError.
func (s *Scope) OnError(fn func(err error, op *Operation)) error {
	s.gs.mu.Lock()
	defer s.gs.mu.Unlock()
	if s.gs.disposed {
		return newScopeDisposedError("on-error")
	}
	s.gs.errorSubs = append(s.gs.errorSubs, fn)
	return nil
}

// UseExtension attaches an extension after construction, running Init
// immediately.
func (s *Scope) UseExtension(ext Extension) error {
	s.gs.mu.Lock()
	if s.gs.disposed {
		s.gs.mu.Unlock()
		return newScopeDisposedError("use-extension")
	}
	s.gs.extensions = append(s.gs.extensions, ext)
	s.gs.mu.Unlock()
	return ext.Init(s)
}

// reversedExtensions returns a defensive copy of the registered extension
// list in registration order (runExtensions itself walks it back to front).
func (gs *graphState) reversedExtensions() []Extension {
	out := make([]Extension, len(gs.extensions))
	copy(out, gs.extensions)
	return out
}

// Pod derives a child pod from the scope, see pod.go.
func (s *Scope) Pod(opts ...PodOption) (*Pod, error) {
	s.gs.mu.Lock()
	disposed := s.gs.disposed
	s.gs.mu.Unlock()
	if disposed {
		return nil, newScopeDisposedError("pod")
	}
	return newPod(s, s, opts...), nil
}

// ExecutionTree exposes the scope's bounded flow execution history, used
// by flow.Execute/ctx.Exec and readable for debugging/testing.
func (s *Scope) ExecutionTree() *ExecutionTree { return s.execTree }

// ExportDependencyGraph returns a snapshot of the reactive dependency graph
// (producer -> reactive dependents), for debug extensions to render.
func (s *Scope) ExportDependencyGraph() map[AnyExecutor][]AnyExecutor {
	return s.gs.reactiveGraph.Export()
}

func (s *Scope) nextExecutionID() int64 {
	s.seq++
	return s.seq
}

// Dispose disposes every child pod, then releases every cached executor in
// this scope (cleanups for a single executor run LIFO; cross-executor
// order is sorted by name for determinism), then notifies extensions.
func (s *Scope) Dispose(ctx context.Context) error {
	s.podsMu.Lock()
	pods := append([]*Pod{}, s.pods...)
	s.podsMu.Unlock()
	for i := len(pods) - 1; i >= 0; i-- {
		if err := pods[i].Dispose(ctx); err != nil {
			return err
		}
	}

	s.gs.mu.Lock()
	s.gs.disposed = true
	execs := make([]AnyExecutor, 0, len(s.gs.cache))
	for e := range s.gs.cache {
		execs = append(execs, e)
	}
	sortExecutorsByName(execs)
	for _, e := range execs {
		runExecutorCleanups(s.gs, e, "dispose")
	}
	s.gs.cache = make(map[AnyExecutor]*cacheEntry)
	s.gs.mu.Unlock()

	for _, ext := range s.gs.extensions {
		if err := ext.Dispose(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scope) registerChildPod(p *Pod) {
	s.podsMu.Lock()
	s.pods = append(s.pods, p)
	s.podsMu.Unlock()
}
