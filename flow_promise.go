package pumped

// FlowPromise wraps an async computation kicked off within a flow
// execution: a thenable in the sense that Map/AndThen compose further
// work onto it without blocking the caller, while Await blocks until the
// underlying goroutine settles.
type FlowPromise[T any] struct {
	ctx  *ExecutionCtx
	done chan struct{}
	value T
	err   error
}

// NewFlowPromise starts fn on its own goroutine and returns a handle to
// its eventual result.
func NewFlowPromise[T any](ctx *ExecutionCtx, fn func() (T, error)) *FlowPromise[T] {
	p := &FlowPromise[T]{ctx: ctx, done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.value, p.err = fn()
	}()
	return p
}

// ResolvedPromise returns an already-settled promise, useful for
// composing Map/AndThen chains from a plain value.
func ResolvedPromise[T any](ctx *ExecutionCtx, value T) *FlowPromise[T] {
	p := &FlowPromise[T]{ctx: ctx, done: make(chan struct{}), value: value}
	close(p.done)
	return p
}

// RejectedPromise returns an already-failed promise.
func RejectedPromise[T any](ctx *ExecutionCtx, err error) *FlowPromise[T] {
	p := &FlowPromise[T]{ctx: ctx, done: make(chan struct{}), err: err}
	close(p.done)
	return p
}

// Await blocks until the promise settles and returns its value/error.
func (p *FlowPromise[T]) Await() (T, error) {
	<-p.done
	return p.value, p.err
}

// Ctx returns the execution context the promise was spawned from.
func (p *FlowPromise[T]) Ctx() *ExecutionCtx { return p.ctx }

// MapPromise transforms a settled value, short-circuiting on error.
func MapPromise[T, R any](p *FlowPromise[T], fn func(T) (R, error)) *FlowPromise[R] {
	return NewFlowPromise(p.ctx, func() (R, error) {
		v, err := p.Await()
		if err != nil {
			var zero R
			return zero, err
		}
		return fn(v)
	})
}

// MapErrorPromise transforms a settled error, leaving a successful value
// untouched.
func MapErrorPromise[T any](p *FlowPromise[T], fn func(error) error) *FlowPromise[T] {
	return NewFlowPromise(p.ctx, func() (T, error) {
		v, err := p.Await()
		if err != nil {
			return v, fn(err)
		}
		return v, nil
	})
}

// AndThenPromise chains a second promise-returning step onto a settled
// value ("switch" composition).
func AndThenPromise[T, R any](p *FlowPromise[T], fn func(T) *FlowPromise[R]) *FlowPromise[R] {
	return NewFlowPromise(p.ctx, func() (R, error) {
		v, err := p.Await()
		if err != nil {
			var zero R
			return zero, err
		}
		return fn(v).Await()
	})
}

// InDetails awaits p and reports its outcome as a SettledResult instead of
// a (value, error) pair, for callers that want to inspect success/failure
// without an early return.
func InDetails[T any](p *FlowPromise[T]) SettledResult[T] {
	v, err := p.Await()
	if err != nil {
		return SettledResult[T]{Err: err}
	}
	return SettledResult[T]{Value: v, Ok: true}
}

// AllFlowPromises awaits every promise and fails fast on the first error.
func AllFlowPromises[T any](promises ...*FlowPromise[T]) *FlowPromise[[]T] {
	var ctx *ExecutionCtx
	if len(promises) > 0 {
		ctx = promises[0].ctx
	}
	return NewFlowPromise(ctx, func() ([]T, error) {
		out := make([]T, len(promises))
		for i, p := range promises {
			v, err := p.Await()
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	})
}

// AllSettledFlowPromises awaits every promise and collects every outcome,
// never failing fast.
func AllSettledFlowPromises[T any](promises ...*FlowPromise[T]) *FlowPromise[[]SettledResult[T]] {
	var ctx *ExecutionCtx
	if len(promises) > 0 {
		ctx = promises[0].ctx
	}
	return NewFlowPromise(ctx, func() ([]SettledResult[T], error) {
		out := make([]SettledResult[T], len(promises))
		for i, p := range promises {
			out[i] = InDetails(p)
		}
		return out, nil
	})
}

// RaceFlowPromises settles with whichever promise finishes first.
func RaceFlowPromises[T any](promises ...*FlowPromise[T]) *FlowPromise[T] {
	var ctx *ExecutionCtx
	if len(promises) > 0 {
		ctx = promises[0].ctx
	}
	return NewFlowPromise(ctx, func() (T, error) {
		type outcome struct {
			v   T
			err error
		}
		ch := make(chan outcome, len(promises))
		for _, p := range promises {
			go func(p *FlowPromise[T]) {
				v, err := p.Await()
				ch <- outcome{v, err}
			}(p)
		}
		first := <-ch
		return first.v, first.err
	})
}

// FulfilledValues extracts the successful values out of a settled-results
// slice, in order, dropping rejections.
func FulfilledValues[T any](results []SettledResult[T]) []T {
	var out []T
	for _, r := range results {
		if r.Ok {
			out = append(out, r.Value)
		}
	}
	return out
}

// RejectedErrors extracts the errors out of a settled-results slice, in
// order, dropping fulfillments.
func RejectedErrors[T any](results []SettledResult[T]) []error {
	var out []error
	for _, r := range results {
		if !r.Ok {
			out = append(out, r.Err)
		}
	}
	return out
}

// PartitionSettled splits a settled-results slice into its fulfilled
// values and rejection errors.
func PartitionSettled[T any](results []SettledResult[T]) (fulfilled []T, rejected []error) {
	return FulfilledValues(results), RejectedErrors(results)
}

// AssertAllFulfilled returns every value if every result fulfilled, or the
// first rejection's error otherwise.
func AssertAllFulfilled[T any](results []SettledResult[T]) ([]T, error) {
	fulfilled, rejected := PartitionSettled(results)
	if len(rejected) > 0 {
		return nil, rejected[0]
	}
	return fulfilled, nil
}

// FindFulfilled returns the first fulfilled value matching pred.
func FindFulfilled[T any](results []SettledResult[T], pred func(T) bool) (T, bool) {
	for _, r := range results {
		if r.Ok && pred(r.Value) {
			return r.Value, true
		}
	}
	var zero T
	return zero, false
}

// ParallelSettledStats summarizes a ParallelSettled run.
type ParallelSettledStats struct {
	Total     int
	Succeeded int
	Failed    int
}

// ParallelSettledPromise is what ParallelSettled returns: a promise over
// the full settled-results slice, plus the FP-style chain helpers the
// results slice alone doesn't carry. Each helper awaits the underlying
// promise before applying its projection, so they block the same way
// Await does.
type ParallelSettledPromise[T any] struct {
	*FlowPromise[[]SettledResult[T]]
}

// Stats reports how many thunks fulfilled versus rejected.
func (p *ParallelSettledPromise[T]) Stats() ParallelSettledStats {
	results, _ := p.Await()
	stats := ParallelSettledStats{Total: len(results)}
	for _, r := range results {
		if r.Ok {
			stats.Succeeded++
		} else {
			stats.Failed++
		}
	}
	return stats
}

// Fulfilled returns every successfully settled value, in order.
func (p *ParallelSettledPromise[T]) Fulfilled() []T {
	results, _ := p.Await()
	return FulfilledValues(results)
}

// Rejected returns every rejection error, in order.
func (p *ParallelSettledPromise[T]) Rejected() []error {
	results, _ := p.Await()
	return RejectedErrors(results)
}

// Partition splits the settled results into fulfilled values and
// rejection errors.
func (p *ParallelSettledPromise[T]) Partition() (fulfilled []T, rejected []error) {
	results, _ := p.Await()
	return PartitionSettled(results)
}

// FirstFulfilled returns the first value that fulfilled, if any.
func (p *ParallelSettledPromise[T]) FirstFulfilled() (T, bool) {
	results, _ := p.Await()
	for _, r := range results {
		if r.Ok {
			return r.Value, true
		}
	}
	var zero T
	return zero, false
}

// FirstRejected returns the first rejection error, if any.
func (p *ParallelSettledPromise[T]) FirstRejected() (error, bool) {
	results, _ := p.Await()
	for _, r := range results {
		if !r.Ok {
			return r.Err, true
		}
	}
	return nil, false
}

// FindFulfilled returns the first fulfilled value matching pred.
func (p *ParallelSettledPromise[T]) FindFulfilled(pred func(T) bool) (T, bool) {
	results, _ := p.Await()
	return FindFulfilled(results, pred)
}

// MapFulfilled applies fn to every fulfilled value, dropping rejections.
func (p *ParallelSettledPromise[T]) MapFulfilled(fn func(T) T) []T {
	results, _ := p.Await()
	vals := FulfilledValues(results)
	out := make([]T, len(vals))
	for i, v := range vals {
		out[i] = fn(v)
	}
	return out
}

// AssertAllFulfilled returns every value if every thunk fulfilled, or the
// first rejection's error otherwise.
func (p *ParallelSettledPromise[T]) AssertAllFulfilled() ([]T, error) {
	results, _ := p.Await()
	return AssertAllFulfilled(results)
}
