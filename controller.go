package pumped

// Controller is the accessor handed to consumers that declared a .Lazy()
// or .Static() dependency: it exposes the full lifecycle of a single
// executor's cached value (get, peek, update, release, reload) without
// giving the caller direct access to the owning scope/pod.
type Controller[T any] struct {
	executor *Executor[T]
	owner    graphOwner
}

// Accessor is Controller under the name the dependency-mode glossary uses:
// what a .Lazy() or .Static() dependency delivers to a Derive factory,
// instead of the produced value a base/.Reactive() dependency delivers.
type Accessor[T any] = Controller[T]

// NewController wraps exec for manual lifecycle control against owner (a
// *Scope or *Pod), the same mechanism Lazy/Static dependencies use
// internally.
func NewController[T any](owner graphOwner, exec *Executor[T]) *Controller[T] {
	return &Controller[T]{executor: exec, owner: owner}
}

// NewAccessor is NewController under the dependency-mode glossary's name.
func NewAccessor[T any](owner graphOwner, exec *Executor[T]) *Accessor[T] {
	return NewController(owner, exec)
}

// Get resolves (or returns the cached value for) the executor.
func (c *Controller[T]) Get() (T, error) {
	return Resolve(c.owner, c.executor)
}

// Peek returns the cached value without triggering resolution.
func (c *Controller[T]) Peek() (T, bool) {
	gs := c.owner.graphState()
	gs.mu.Lock()
	entry, ok := gs.cache[c.executor]
	gs.mu.Unlock()
	if !ok || entry.state != stateResolved {
		var zero T
		return zero, false
	}
	typed, err := SafeTypeAssertion[T](entry.value)
	if err != nil {
		var zero T
		return zero, false
	}
	return typed, true
}

// Update replaces the cached value and propagates to reactive dependents.
func (c *Controller[T]) Update(value T) error {
	return Update(c.owner, c.executor, value)
}

// Set is an alias for Update, matching the factory-side mutation call.
func (c *Controller[T]) Set(value T) error { return c.Update(value) }

// Release evicts the cached value and runs its cleanups.
func (c *Controller[T]) Release() {
	Release(c.owner, c.executor)
}

// Reload releases and immediately re-resolves the executor.
func (c *Controller[T]) Reload() (T, error) {
	c.Release()
	return c.Get()
}

// IsCached reports whether the executor currently has a resolved entry.
func (c *Controller[T]) IsCached() bool {
	gs := c.owner.graphState()
	gs.mu.Lock()
	defer gs.mu.Unlock()
	entry, ok := gs.cache[c.executor]
	return ok && entry.state == stateResolved
}

// Subscribe registers fn to run on every subsequent Update of the
// underlying executor, scoped to this accessor's owner.
func (c *Controller[T]) Subscribe(fn func(T)) error {
	gs := c.owner.graphState()
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if gs.disposed {
		return newScopeDisposedError("subscribe")
	}
	gs.updateSubs[c.executor] = append(gs.updateSubs[c.executor], func(v any) {
		typed, _ := v.(T)
		fn(typed)
	})
	return nil
}
