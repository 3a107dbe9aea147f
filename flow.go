package pumped

import (
	"context"
	"sync"
	"time"
)

// AnyFlow is the type-erased view of a *Flow[In, Out], used by extensions
// and the execution tree where In/Out differ across a call graph.
type AnyFlow interface {
	Name() string
	InputSchema() AnySchema
	OutputSchema() AnySchema
}

// FlowHandler is the user-authored body of a flow: given an execution
// context and validated input, produce an output or fail.
type FlowHandler[In, Out any] func(ctx *ExecutionCtx, input In) (Out, error)

// Flow is an immutable flow definition: a handler plus optional input and
// output schemas, a timeout, a retry budget, and tags.
type Flow[In, Out any] struct {
	name    string
	handler FlowHandler[In, Out]
	input   AnySchema
	output  AnySchema
	timeout time.Duration
	retry   int
	metas   []AnyTagged
}

func (f *Flow[In, Out]) Name() string          { return f.name }
func (f *Flow[In, Out]) InputSchema() AnySchema  { return f.input }
func (f *Flow[In, Out]) OutputSchema() AnySchema { return f.output }
func (f *Flow[In, Out]) Metas() []AnyTagged      { return f.metas }

type flowConfig struct {
	name    string
	input   AnySchema
	output  AnySchema
	timeout time.Duration
	retry   int
	metas   []AnyTagged
}

// FlowOption configures a Flow at definition time.
type FlowOption func(*flowConfig)

func WithFlowName(name string) FlowOption {
	return func(c *flowConfig) { c.name = name }
}

func WithFlowTimeout(d time.Duration) FlowOption {
	return func(c *flowConfig) { c.timeout = d }
}

// WithFlowRetry sets how many additional attempts a failed flow run gets,
// beyond the first, before its error is returned to the caller.
func WithFlowRetry(attempts int) FlowOption {
	return func(c *flowConfig) { c.retry = attempts }
}

func WithFlowInputSchema[In any](schema Schema[In]) FlowOption {
	return func(c *flowConfig) { c.input = EraseSchema(schema) }
}

func WithFlowOutputSchema[Out any](schema Schema[Out]) FlowOption {
	return func(c *flowConfig) { c.output = EraseSchema(schema) }
}

func WithFlowTag[T any](tag Tag[T], value T) FlowOption {
	return func(c *flowConfig) {
		tagged, err := tag.Set(nil, value)
		if err != nil {
			panic(err)
		}
		c.metas = append(c.metas, tagged)
	}
}

// DefineFlow declares a flow. The handler is not run until Execute or Exec
// is called against it inside a scope or an existing flow execution.
func DefineFlow[In, Out any](handler FlowHandler[In, Out], opts ...FlowOption) *Flow[In, Out] {
	cfg := &flowConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Flow[In, Out]{
		name: cfg.name, handler: handler, input: cfg.input, output: cfg.output,
		timeout: cfg.timeout, retry: cfg.retry, metas: cfg.metas,
	}
}

type journalEntry struct {
	value any
	err   error
}

// ExecutionCtx is passed to every flow handler. It carries the pod the
// flow runs in (so Resolve/Derive executors are sandboxed per execution),
// a cancellable context for the handler's deadline, a per-execution data
// store, and the journal backing Run's at-most-once effect semantics.
type ExecutionCtx struct {
	id       int64
	parent   *ExecutionCtx
	pod      *Pod
	goCtx    context.Context
	cancel   context.CancelFunc
	flowName string

	mu      sync.Mutex
	journal map[string]*journalEntry
	data    *Store
}

// Context returns the cancellable context backing this execution's
// deadline/timeout.
func (ctx *ExecutionCtx) Context() context.Context { return ctx.goCtx }

// Pod returns the pod this execution's dependency resolutions are
// sandboxed in.
func (ctx *ExecutionCtx) Pod() *Pod { return ctx.pod }

// FlowName returns the name of the flow this execution is running.
func (ctx *ExecutionCtx) FlowName() string { return ctx.flowName }

// Parent returns the execution context that spawned this one via Exec, and
// false at the root of an execution tree.
func (ctx *ExecutionCtx) Parent() (*ExecutionCtx, bool) {
	if ctx.parent == nil {
		return nil, false
	}
	return ctx.parent, true
}

// Set stores a value in this execution's own data store.
func (ctx *ExecutionCtx) Set(key Symbol, value any) { ctx.data.set(key, value) }

// Get looks up a value set on this execution only (not its ancestors).
func (ctx *ExecutionCtx) Get(key Symbol) (any, bool) { return ctx.data.get(key) }

// GetFromParent walks up the execution chain (this context first) looking
// for key.
func (ctx *ExecutionCtx) GetFromParent(key Symbol) (any, bool) {
	for c := ctx; c != nil; c = c.parent {
		if v, ok := c.data.get(key); ok {
			return v, true
		}
	}
	return nil, false
}

// GetFromScope retrieves a typed tag from the scope backing this
// execution's pod.
func GetFromScope[T any](ctx *ExecutionCtx, tag Tag[T]) (T, error) {
	return tag.Get(ctx.pod.rootScope())
}

// Run executes fn at most once per (execution, key) pair: subsequent calls
// with the same key, within the same execution, return the first call's
// recorded result without re-running fn. This is the journal primitive
// flows use to make an effect idempotent across retries.
func Run[T any](ctx *ExecutionCtx, key string, fn func() (T, error)) (T, error) {
	ctx.mu.Lock()
	if entry, ok := ctx.journal[key]; ok {
		ctx.mu.Unlock()
		return journalValue[T](entry)
	}
	ctx.mu.Unlock()

	op := &Operation{Kind: OpJournal, Owner: ctx.pod, FlowName: ctx.flowName, JournalKey: key}
	exts := ctx.pod.graphState().reversedExtensions()
	result, err := runExtensions(ctx.goCtx, exts, op, func() (any, error) {
		return fn()
	})

	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if existing, ok := ctx.journal[key]; ok {
		return journalValue[T](existing)
	}
	entry := &journalEntry{value: result, err: err}
	ctx.journal[key] = entry
	return journalValue[T](entry)
}

func journalValue[T any](e *journalEntry) (T, error) {
	if e.err != nil {
		var zero T
		return zero, e.err
	}
	return SafeTypeAssertion[T](e.value)
}

// Execute runs flow against input in a fresh pod derived from scope,
// returning a promise the caller awaits for the result. This is the entry
// point for top-level flow execution.
func Execute[In, Out any](scope *Scope, flow *Flow[In, Out], input In) *FlowPromise[Out] {
	pod, err := scope.Pod()
	if err != nil {
		return RejectedPromise[Out](nil, err)
	}
	return executeFlow(nil, pod, flow, input)
}

// Exec runs a sub-flow from inside an existing flow execution, sandboxed
// in a fresh pod derived from the current one, so the sub-flow's
// resolutions never leak into the parent's pod.
func Exec[In, Out any](parent *ExecutionCtx, flow *Flow[In, Out], input In) *FlowPromise[Out] {
	pod, err := parent.pod.Pod()
	if err != nil {
		return RejectedPromise[Out](parent, err)
	}
	return executeFlow(parent, pod, flow, input)
}

// executeFlow validates input and starts the execution tree node and
// extension chain synchronously, then hands the handler's attempt loop off
// to a FlowPromise so the caller can overlap it with other work. The
// execution's ExecutionCtx isn't returned to the pool here: a caller can
// still hold and dereference the promise's Ctx() after Await(), and
// recycling the context underneath that reference would race.
func executeFlow[In, Out any](parent *ExecutionCtx, pod *Pod, flow *Flow[In, Out], input In) *FlowPromise[Out] {
	if flow.input != nil {
		validated, issues := flow.input.ValidateAny(input)
		if len(issues) > 0 {
			return RejectedPromise[Out](parent, &FlowValidationError{FlowName: flow.Name(), Slot: "input", Issues: issues})
		}
		if typed, ok := validated.(In); ok {
			input = typed
		}
	}

	goCtx := context.Background()
	cancel := context.CancelFunc(func() {})
	if flow.timeout > 0 {
		goCtx, cancel = context.WithTimeout(goCtx, flow.timeout)
	}

	scope := pod.rootScope()
	execCtx := scope.pools.acquireExecutionCtx(parent, pod, goCtx, cancel, flow.Name())
	execCtx.id = scope.nextExecutionID()
	var parentID int64
	if parent != nil {
		parentID = parent.id
	}
	node := scope.execTree.addNode(execCtx.id, parentID, flow.Name())

	exts := pod.graphState().reversedExtensions()
	for _, ext := range exts {
		if err := ext.OnFlowStart(execCtx, flow); err != nil {
			cancel()
			scope.execTree.setStatus(node, StatusFailed, err)
			return RejectedPromise[Out](execCtx, err)
		}
	}

	return NewFlowPromise(execCtx, func() (Out, error) {
		defer cancel()
		var zero Out

		attempts := flow.retry + 1
		var resultAny any
		var err error
		op := &Operation{Kind: OpFlowRun, Owner: pod, FlowName: flow.Name()}
		for attempt := 0; attempt < attempts; attempt++ {
			resultAny, err = runExtensions(goCtx, exts, op, func() (any, error) {
				return runFlowHandler(execCtx, flow, input, exts)
			})
			if err == nil {
				break
			}
		}

		for _, ext := range exts {
			_ = ext.OnFlowEnd(execCtx, resultAny, err)
		}

		if err != nil {
			scope.execTree.setStatus(node, StatusFailed, err)
			return zero, err
		}

		typed, terr := SafeTypeAssertion[Out](resultAny)
		if terr != nil {
			scope.execTree.setStatus(node, StatusFailed, terr)
			return zero, terr
		}
		if flow.output != nil {
			validated, issues := flow.output.ValidateAny(typed)
			if len(issues) > 0 {
				verr := &FlowValidationError{FlowName: flow.Name(), Slot: "output", Issues: issues}
				scope.execTree.setStatus(node, StatusFailed, verr)
				return zero, verr
			}
			if v, ok := validated.(Out); ok {
				typed = v
			}
		}
		scope.execTree.setStatus(node, StatusCompleted, nil)
		return typed, nil
	})
}

func runFlowHandler[In, Out any](execCtx *ExecutionCtx, flow *Flow[In, Out], input In, exts []Extension) (result any, err error) {
	done := make(chan struct{})
	var out Out
	go func() {
		defer func() {
			if r := recover(); r != nil {
				err = newFactoryError(flow.Name(), nil, panicToError(r))
				for _, ext := range exts {
					_ = ext.OnFlowPanic(execCtx, r, nil)
				}
			}
			close(done)
		}()
		out, err = flow.handler(execCtx, input)
	}()

	select {
	case <-done:
		return out, err
	case <-execCtx.goCtx.Done():
		return nil, execCtx.goCtx.Err()
	}
}

// Parallel runs every thunk concurrently and returns as soon as one of them
// fails, with that thunk's error (fail-fast); otherwise it waits for all of
// them and returns their results in thunk order. Thunks still running after
// a failure are not cancelled; their results are discarded.
func Parallel[T any](ctx *ExecutionCtx, thunks ...func() (T, error)) ([]T, error) {
	op := &Operation{Kind: OpFlowParallel, Owner: ctx.pod, FlowName: ctx.flowName}
	exts := ctx.pod.graphState().reversedExtensions()
	resultAny, err := runExtensions(ctx.goCtx, exts, op, func() (any, error) {
		results := make([]T, len(thunks))
		errs := make([]error, len(thunks))
		done := make(chan int, len(thunks))
		for i, t := range thunks {
			go func(i int, t func() (T, error)) {
				results[i], errs[i] = t()
				done <- i
			}(i, t)
		}
		for range thunks {
			if i := <-done; errs[i] != nil {
				return nil, errs[i]
			}
		}
		return results, nil
	})
	if err != nil {
		return nil, err
	}
	typed, _ := resultAny.([]T)
	return typed, nil
}

// SettledResult is one thunk's outcome from ParallelSettled: exactly one
// of Value/Err is meaningful, discriminated by Ok.
type SettledResult[T any] struct {
	Value T
	Err   error
	Ok    bool
}

// ParallelSettled runs every thunk concurrently and waits for all of them,
// collecting each one's outcome rather than failing fast. The returned
// promise is itself the subject of the fulfilled/rejected/partition-style
// helpers (see ParallelSettledPromise), not just its awaited results.
func ParallelSettled[T any](ctx *ExecutionCtx, thunks ...func() (T, error)) *ParallelSettledPromise[T] {
	op := &Operation{Kind: OpFlowParallelSettled, Owner: ctx.pod, FlowName: ctx.flowName}
	exts := ctx.pod.graphState().reversedExtensions()
	inner := NewFlowPromise(ctx, func() ([]SettledResult[T], error) {
		resultAny, _ := runExtensions(ctx.goCtx, exts, op, func() (any, error) {
			results := make([]SettledResult[T], len(thunks))
			done := make(chan int, len(thunks))
			for i, t := range thunks {
				go func(i int, t func() (T, error)) {
					v, err := t()
					if err != nil {
						results[i] = SettledResult[T]{Err: err, Ok: false}
					} else {
						results[i] = SettledResult[T]{Value: v, Ok: true}
					}
					done <- i
				}(i, t)
			}
			for range thunks {
				<-done
			}
			return results, nil
		})
		typed, _ := resultAny.([]SettledResult[T])
		return typed, nil
	})
	return &ParallelSettledPromise[T]{inner}
}
