package pumped

import "sync"

// nameTag is the well-known meta key carrying a human-readable executor
// name, consulted by Name() when WithName was never applied directly.
var nameTag = NewTag[string]("pumped.executor.name")

// DependencyMode is the relationship a consumer declares toward a producer
// executor: base (the default, consumer receives the produced value
// directly), lazy (consumer receives an accessor, resolution deferred),
// reactive (consumer receives the produced value and is re-run whenever the
// producer updates), or static (consumer receives an accessor, but
// resolution is triggered eagerly).
type DependencyMode int

const (
	ModeDefault DependencyMode = iota
	ModeLazy
	ModeReactive
	ModeStatic
)

func (m DependencyMode) String() string {
	switch m {
	case ModeLazy:
		return "lazy"
	case ModeReactive:
		return "reactive"
	case ModeStatic:
		return "static"
	default:
		return "base"
	}
}

// Dependency pairs an executor with the mode a consumer wants it resolved
// in. An *Executor[T] is itself a Dependency in ModeDefault; its
// .Lazy()/.Reactive()/.Static() methods return the wrapped variants.
type Dependency interface {
	GetExecutor() AnyExecutor
	GetMode() DependencyMode
}

// AnyExecutor is the type-erased view of an *Executor[T], used anywhere
// executors of differing result types must be tracked together: dependency
// lists, the reactive graph, caches, error context.
type AnyExecutor interface {
	GetDeps() []Dependency
	Metas() []AnyTagged
	Name() string
	ResolveFactory(ctx *ResolveCtx) (any, error)

	addMeta(t AnyTagged)
	setName(name string)
}

// Executor is an immutable description of a computation: a factory, its
// dependency spec, and an ordered meta list. Executors are identified by
// reference — two Provide/Derive calls with identical arguments are still
// distinct executors.
type Executor[T any] struct {
	mu      sync.Mutex
	factory func(*ResolveCtx) (T, error)
	deps    []Dependency
	metas   []AnyTagged
	name    string

}

func (e *Executor[T]) GetDeps() []Dependency { return e.deps }
func (e *Executor[T]) Metas() []AnyTagged    { return e.metas }

func (e *Executor[T]) Name() string {
	if e.name != "" {
		return e.name
	}
	if name, ok := nameTag.Find(e); ok {
		return name
	}
	return ""
}

func (e *Executor[T]) addMeta(t AnyTagged) { e.metas = append(e.metas, t) }
func (e *Executor[T]) setName(name string) { e.name = name }

// ResolveFactory invokes the executor's factory with the given resolve
// context. Factories built by Derive1..Derive9, DeriveSlice and DeriveMap
// resolve their declared dependencies through ctx themselves before calling
// the user-supplied function.
func (e *Executor[T]) ResolveFactory(ctx *ResolveCtx) (any, error) {
	return e.factory(ctx)
}

// GetExecutor / GetMode make *Executor[T] itself satisfy Dependency in
// ModeDefault, so it can be passed directly wherever a Dependency is
// expected.
func (e *Executor[T]) GetExecutor() AnyExecutor  { return e }
func (e *Executor[T]) GetMode() DependencyMode   { return ModeDefault }

// Lazy marks this executor as a deferred dependency when passed to a
// Derive call: the consumer's factory receives a *Accessor[T], and the
// producer is not resolved until that factory calls the accessor's Get().
func (e *Executor[T]) Lazy() Dep[T] { return Dep[T]{executor: e, mode: ModeLazy} }

// Reactive marks this executor as a reactive dependency: the consumer is
// re-produced whenever e updates.
func (e *Executor[T]) Reactive() Dep[T] { return Dep[T]{executor: e, mode: ModeReactive} }

// Static marks this executor as an eagerly-resolved dependency delivered as
// an accessor rather than a raw value: like Lazy, the consumer's factory
// receives a *Accessor[T], but resolution runs immediately instead of
// waiting for the consumer to call Get().
func (e *Executor[T]) Static() Dep[T] { return Dep[T]{executor: e, mode: ModeStatic} }

// ExecutorOption configures an executor at construction time.
type ExecutorOption func(AnyExecutor)

// WithMeta attaches a tagged meta value to the executor being constructed.
func WithMeta[T any](tag Tag[T], value T) ExecutorOption {
	return func(e AnyExecutor) {
		tagged, err := tag.Set(nil, value)
		if err != nil {
			panic(err)
		}
		e.addMeta(tagged)
	}
}

// WithName sets the executor's display name, used in error messages. When it
// is unset, Name() falls back to the nameTag meta value.
func WithName(name string) ExecutorOption {
	return func(e AnyExecutor) { e.setName(name) }
}

// Provide creates a zero-dependency executor.
func Provide[T any](factory func(*ResolveCtx) (T, error), opts ...ExecutorOption) *Executor[T] {
	exec := &Executor[T]{factory: factory}
	for _, opt := range opts {
		opt(exec)
	}
	return exec
}

// PresetValue is the opaque return of Preset/PresetExecutor, accepted by
// WithPreset when constructing a Scope or Pod.
type PresetValue struct {
	executor    AnyExecutor
	value       any
	replacement AnyExecutor
	isValue     bool
}

// Preset pre-populates an executor's cache entry with a concrete value.
func Preset[T any](executor *Executor[T], value T) PresetValue {
	return PresetValue{executor: executor, value: value, isValue: true}
}

// PresetExecutor pre-populates an executor's cache entry by resolving a
// different executor of the same result type in its place.
func PresetExecutor[T any](executor *Executor[T], replacement *Executor[T]) PresetValue {
	return PresetValue{executor: executor, replacement: replacement, isValue: false}
}
