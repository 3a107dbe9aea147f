package pumped

import "sync"

// graphOwner is implemented by *Scope and *Pod: anything that can own a
// resolution cache and answer dependency resolution requests. Its methods
// are unexported so only this package can provide implementations.
type graphOwner interface {
	graphState() *graphState
	rootScope() *Scope
	resolve(exec AnyExecutor, path []AnyExecutor) (any, error)
}

type cleanupEntry struct {
	fn func() error
}

// ResolveCtx is passed to every executor factory. It exposes the owning
// scope/pod's tags, lets the factory register cleanup callbacks that run
// (in LIFO order) when the executor is released, updated away, or the
// owner is disposed, and carries the identity of the executor currently
// being resolved for error reporting.
type ResolveCtx struct {
	owner      graphOwner
	executorID AnyExecutor
	path       []AnyExecutor

	mu       sync.Mutex
	cleanups []cleanupEntry
}

// OnCleanup registers fn to run when this resolution's owner releases,
// re-resolves, or disposes the executor currently being factored. Cleanups
// for a single executor run in reverse registration order (LIFO).
func (ctx *ResolveCtx) OnCleanup(fn func() error) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.cleanups = append(ctx.cleanups, cleanupEntry{fn: fn})
}

// Scope returns the root scope that ultimately owns this resolution, even
// when the immediate owner is a pod.
func (ctx *ResolveCtx) Scope() *Scope { return ctx.owner.rootScope() }

// Pod returns the pod this resolution is running in, and false if it is
// running directly in a scope.
func (ctx *ResolveCtx) Pod() (*Pod, bool) {
	if p, ok := ctx.owner.(*Pod); ok {
		return p, true
	}
	return nil, false
}

// ExecutorName returns the display name of the executor currently being
// resolved, for use in factory-authored error/log messages.
func (ctx *ResolveCtx) ExecutorName() string {
	if ctx.executorID == nil {
		return ""
	}
	return ctx.executorID.Name()
}

func (ctx *ResolveCtx) takeCleanups() []cleanupEntry {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	out := ctx.cleanups
	ctx.cleanups = nil
	return out
}

// GetTag retrieves a typed tag value from the owning scope's tag store.
func GetTag[T any](ctx *ResolveCtx, tag Tag[T]) (T, error) {
	return tag.Get(ctx.Scope())
}

// GetTagOrDefault retrieves a typed tag value, falling back to def when
// absent (ignoring any default configured on the tag itself).
func GetTagOrDefault[T any](ctx *ResolveCtx, tag Tag[T], def T) T {
	if v, ok := tag.Find(ctx.Scope()); ok {
		return v
	}
	return def
}
