package pumped

import (
	"context"
	"sync"
)

// Pod is a child scope used to sandbox a single flow execution (or any
// other scoped unit of work): it has its own resolution cache layered on
// top of its parent's, so resolving the same executor twice inside one pod
// returns the same value, while two sibling pods derived from the same
// scope never see each other's results. A value resolved in an ancestor is
// copied into the pod's own cache on first read; the ancestor retains sole
// ownership of that value's cleanup.
type Pod struct {
	gs          *graphState
	scope       *Scope
	parentOwner graphOwner
	store       *Store

	mu       sync.Mutex
	children []*Pod
	disposed bool
}

// PodOption configures a Pod at construction time.
type PodOption func(*Pod)

// WithPodTag seeds the pod's own tag store with a value, visible via
// Tag.Get/Find against the pod without affecting its parent.
func WithPodTag[T any](tag Tag[T], value T) PodOption {
	return func(p *Pod) {
		if _, err := tag.Set(p.store, value); err != nil {
			panic(err)
		}
	}
}

// WithPodExtension attaches an extension scoped to this pod and its
// descendants, layered after (innermost relative to) extensions inherited
// from the parent.
func WithPodExtension(ext Extension) PodOption {
	return func(p *Pod) {
		p.gs.extensions = append(p.gs.extensions, ext)
	}
}

// WithPodPreset pre-populates an executor's cache entry local to this pod.
func WithPodPreset(preset PresetValue) PodOption {
	return func(p *Pod) {
		applyPreset(p, preset)
	}
}

func newPod(scope *Scope, parent graphOwner, opts ...PodOption) *Pod {
	gs := newGraphState()
	gs.extensions = append(gs.extensions, parent.graphState().extensions...)
	p := &Pod{gs: gs, scope: scope, parentOwner: parent, store: NewStore()}
	for _, opt := range opts {
		opt(p)
	}
	if parentPod, ok := parent.(*Pod); ok {
		parentPod.mu.Lock()
		parentPod.children = append(parentPod.children, p)
		parentPod.mu.Unlock()
	} else {
		scope.registerChildPod(p)
	}
	return p
}

// Pod derives a nested child pod from this pod.
func (p *Pod) Pod(opts ...PodOption) (*Pod, error) {
	p.gs.mu.Lock()
	disposed := p.gs.disposed
	p.gs.mu.Unlock()
	if disposed {
		return nil, newScopeDisposedError("pod")
	}
	return newPod(p.scope, p, opts...), nil
}

func (p *Pod) graphState() *graphState { return p.gs }
func (p *Pod) rootScope() *Scope        { return p.scope }

func (p *Pod) resolve(exec AnyExecutor, path []AnyExecutor) (any, error) {
	return resolveIn(p, exec, path)
}

// parentLookup walks the pod's ancestor chain (stopping at the root scope)
// looking for an already-settled cache entry, waiting out any pending
// resolution it encounters along the way.
func (p *Pod) parentLookup(exec AnyExecutor) (*cacheEntry, bool) {
	var owner graphOwner = p.parentOwner
	for owner != nil {
		gs := owner.graphState()
		gs.mu.Lock()
		entry, ok := gs.cache[exec]
		gs.mu.Unlock()
		if ok {
			if entry.state == statePending {
				<-entry.done
			}
			if entry.state != statePending {
				return entry, true
			}
		}
		if next, ok := owner.(*Pod); ok {
			owner = next.parentOwner
			continue
		}
		owner = nil
	}
	return nil, false
}

// Metas implements MetaContainer against the pod's own tag store.
func (p *Pod) Metas() []AnyTagged { return p.store.entries() }

// Release evicts and re-runs cleanups for exec within this pod only; it
// never touches a value resolved in an ancestor.
func (p *Pod) Release(exec AnyExecutor) error { return Release(p, exec) }

// Dispose releases every executor cached directly in this pod (LIFO
// cleanups, name-ordered across executors) and disposes every descendant
// pod first.
func (p *Pod) Dispose(ctx context.Context) error {
	p.mu.Lock()
	kids := append([]*Pod{}, p.children...)
	p.disposed = true
	p.mu.Unlock()

	for i := len(kids) - 1; i >= 0; i-- {
		if err := kids[i].Dispose(ctx); err != nil {
			return err
		}
	}

	p.gs.mu.Lock()
	p.gs.disposed = true
	execs := make([]AnyExecutor, 0, len(p.gs.cache))
	for e := range p.gs.cache {
		execs = append(execs, e)
	}
	sortExecutorsByName(execs)
	for _, e := range execs {
		runExecutorCleanups(p.gs, e, "dispose")
	}
	p.gs.cache = make(map[AnyExecutor]*cacheEntry)
	p.gs.mu.Unlock()
	return nil
}
