package pumped

import (
	"context"
	"errors"
)

// namesOf renders a resolution path (tracked by executor identity, so
// unnamed executors never collide) into display names for error messages.
func namesOf(path []AnyExecutor) []string {
	names := make([]string, len(path))
	for i, e := range path {
		names[i] = e.Name()
	}
	return names
}

// resolveIn implements the resolution algorithm shared by Scope and Pod:
// cycle detection against the in-flight path, cache lookup (resolved /
// rejected / pending), hierarchical copy-on-read through a pod's parent
// chain, and first-resolution factory execution.
func resolveIn(owner graphOwner, exec AnyExecutor, path []AnyExecutor) (any, error) {
	for _, p := range path {
		if p == exec {
			return nil, newCycleError(namesOf(append(append([]AnyExecutor{}, path...), exec)))
		}
	}

	gs := owner.graphState()
	gs.mu.Lock()
	if gs.disposed {
		gs.mu.Unlock()
		return nil, newScopeDisposedError("resolve")
	}
	if entry, ok := gs.cache[exec]; ok {
		return waitOrReturn(gs, entry)
	}

	if parentOwner, ok := owner.(interface {
		parentLookup(AnyExecutor) (*cacheEntry, bool)
	}); ok {
		if parentEntry, found := parentOwner.parentLookup(exec); found {
			seeded := parentEntry.snapshot()
			gs.cache[exec] = seeded
			gs.mu.Unlock()
			return seeded.value, seeded.err
		}
	}

	pending := newPendingEntry()
	gs.cache[exec] = pending
	gs.mu.Unlock()

	nextPath := append(append([]AnyExecutor{}, path...), exec)
	value, err := runFactory(owner, exec, nextPath)

	gs.mu.Lock()
	if err != nil {
		pending.settleRejected(err)
		gs.mu.Unlock()
		gs.notifyError(err, &Operation{Kind: OpResolve, Executor: exec, Owner: owner})
		return nil, err
	}
	pending.settleResolved(value)
	gs.mu.Unlock()

	gs.notifyChange(ChangeEvent{Kind: "resolve", Executor: exec, Value: value})
	return value, nil
}

// waitOrReturn must be called with gs.mu held; it releases the lock before
// returning or blocking.
func waitOrReturn(gs *graphState, entry *cacheEntry) (any, error) {
	switch entry.state {
	case stateResolved:
		gs.mu.Unlock()
		return entry.value, nil
	case stateRejected:
		gs.mu.Unlock()
		return nil, entry.err
	default:
		done := entry.done
		gs.mu.Unlock()
		<-done
		return entry.value, entry.err
	}
}

func runFactory(owner graphOwner, exec AnyExecutor, path []AnyExecutor) (any, error) {
	pools := owner.rootScope().pools
	ctx := pools.acquireResolveCtx(owner, exec, path)
	defer func() {
		cleanups := ctx.takeCleanups()
		if len(cleanups) > 0 {
			gs := owner.graphState()
			gs.mu.Lock()
			gs.cleanups[exec] = append(gs.cleanups[exec], cleanups...)
			gs.mu.Unlock()
		}
		pools.releaseResolveCtx(ctx)
	}()

	op := &Operation{Kind: OpResolve, Executor: exec, Owner: owner}
	exts := owner.graphState().reversedExtensions()
	return runExtensions(context.Background(), exts, op, func() (result any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = newFactoryError(exec.Name(), namesOf(path), panicToError(r))
			}
		}()
		v, ferr := exec.ResolveFactory(ctx)
		var enhanced *EnhancedError
		if ferr != nil && !errors.As(ferr, &enhanced) {
			ferr = newFactoryError(exec.Name(), namesOf(path), ferr)
		}
		return v, ferr
	})
}

// Dep is a typed dependency descriptor produced by Executor.Reactive /
// .Lazy / .Static, carrying both the producer executor and the mode its
// consumer wants it resolved in.
type Dep[T any] struct {
	executor *Executor[T]
	mode     DependencyMode
}

func (d Dep[T]) GetExecutor() AnyExecutor { return d.executor }
func (d Dep[T]) GetMode() DependencyMode  { return d.mode }

// newAccessor builds a *Accessor[T] for this dependency's producer, erased
// to any. resolveDep type-asserts the result back to its own generic slot,
// which for a .Lazy()/.Static() dependency is *Accessor[T] rather than T
// itself — the indirection lets resolveDep deliver an accessor without ever
// needing to spell out the producer's type, which it doesn't have.
func (d Dep[T]) newAccessor(owner graphOwner) any { return NewAccessor(owner, d.executor) }

// accessorDependency is implemented by Dep[T]; resolveDep uses it to build
// a .Lazy()/.Static() dependency's delivered Accessor without resolving
// the producer first.
type accessorDependency interface {
	newAccessor(owner graphOwner) any
}

// resolveDep resolves a single typed dependency for a Derive-generated
// factory. The delivered shape depends on the mode the dependency was
// declared with:
//
//   - base / .Reactive(): the producer's value, resolved eagerly (recording
//     a reactive edge for .Reactive()).
//   - .Lazy(): a *Accessor[P], with the producer left unresolved — the
//     factory triggers resolution itself by calling the accessor's Get().
//   - .Static(): a *Accessor[P], with the producer resolved eagerly so its
//     value is already readable through the accessor without blocking.
//
// A factory declaring the wrong slot type for .Lazy()/.Static() (anything
// other than *Accessor[P]) fails at first resolution with a dependency-wiring
// error, rather than silently receiving a value it never asked for.
func resolveDep[T any](ctx *ResolveCtx, dep Dependency) (T, error) {
	switch dep.GetMode() {
	case ModeLazy, ModeStatic:
		return resolveAccessorDep[T](ctx, dep)
	default:
		return resolveValueDep[T](ctx, dep)
	}
}

func resolveAccessorDep[T any](ctx *ResolveCtx, dep Dependency) (T, error) {
	var zero T
	maker, ok := dep.(accessorDependency)
	if !ok {
		return zero, &EnhancedError{
			Code: CodeInternal, Kind: KindInternal, Category: CategorySystem,
			Context: ErrorContext{ExecutorName: ctx.ExecutorName(), ResolutionStage: "dependency-wiring"},
		}
	}
	typed, ok := maker.newAccessor(ctx.owner).(T)
	if !ok {
		return zero, &EnhancedError{
			Code: CodeInternal, Kind: KindInternal, Category: CategorySystem,
			Context: ErrorContext{ExecutorName: ctx.ExecutorName(), ResolutionStage: "dependency-wiring"},
		}
	}
	if dep.GetMode() == ModeStatic {
		if _, err := resolveIn(ctx.owner, dep.GetExecutor(), ctx.path); err != nil {
			return typed, newDependencyResolutionError(ctx.ExecutorName(), namesOf(ctx.path), err)
		}
	}
	return typed, nil
}

func resolveValueDep[T any](ctx *ResolveCtx, dep Dependency) (T, error) {
	execT, ok := dep.GetExecutor().(*Executor[T])
	if !ok {
		var zero T
		return zero, &EnhancedError{
			Code: CodeInternal, Kind: KindInternal, Category: CategorySystem,
			Context: ErrorContext{ExecutorName: ctx.ExecutorName(), ResolutionStage: "dependency-wiring"},
		}
	}
	value, err := resolveIn(ctx.owner, execT, ctx.path)
	if err != nil {
		var zero T
		return zero, newDependencyResolutionError(ctx.ExecutorName(), namesOf(ctx.path), err)
	}
	typed, terr := SafeTypeAssertion[T](value)
	if terr != nil {
		return typed, terr
	}
	if dep.GetMode() == ModeReactive {
		ctx.owner.graphState().reactiveGraph.AddDependency(ctx.executorID, execT)
	}
	return typed, nil
}
