package pumped

import "context"

// Extension hooks into every significant operation a scope or pod performs:
// resolution, update, flow execution (including sub-flows and parallel
// compositions), and journal entries. Extensions are folded right-to-left
// over reversed registration order, so the first-registered extension is
// outermost and sees the final result.
type Extension interface {
	Name() string
	Order() int

	// Init is called once, when the extension is attached to a scope
	// through NewScope's WithExtension or Scope.UseExtension. Pods never
	// call it, including for extensions they inherit or add themselves.
	Init(scope *Scope) error

	// Wrap intercepts a single operation. Implementations must call next()
	// exactly once (or not at all, to short-circuit) and may inspect or
	// transform its result.
	Wrap(ctx context.Context, next func() (any, error), op *Operation) (any, error)

	OnError(err error, op *Operation)
	// OnCleanupError observes a failed cleanup callback. Returning true
	// marks the error as handled, so it is not passed on to OnError.
	OnCleanupError(err *CleanupError) bool

	OnFlowStart(execCtx *ExecutionCtx, flow AnyFlow) error
	OnFlowEnd(execCtx *ExecutionCtx, result any, err error) error
	OnFlowPanic(execCtx *ExecutionCtx, recovered any, stack []byte) error

	Dispose(scope *Scope) error
}

// BaseExtension implements every Extension method as a no-op / pass-through,
// so concrete extensions only need to override what they care about.
type BaseExtension struct {
	ExtensionName string
}

func NewBaseExtension(name string) BaseExtension {
	return BaseExtension{ExtensionName: name}
}

func (e *BaseExtension) Name() string { return e.ExtensionName }
func (e *BaseExtension) Order() int   { return 100 }

func (e *BaseExtension) Init(scope *Scope) error { return nil }

func (e *BaseExtension) Wrap(ctx context.Context, next func() (any, error), op *Operation) (any, error) {
	return next()
}

func (e *BaseExtension) OnError(err error, op *Operation)         {}
func (e *BaseExtension) OnCleanupError(err *CleanupError) bool    { return false }

func (e *BaseExtension) OnFlowStart(execCtx *ExecutionCtx, flow AnyFlow) error { return nil }
func (e *BaseExtension) OnFlowEnd(execCtx *ExecutionCtx, result any, err error) error {
	return nil
}
func (e *BaseExtension) OnFlowPanic(execCtx *ExecutionCtx, recovered any, stack []byte) error {
	return nil
}

func (e *BaseExtension) Dispose(scope *Scope) error { return nil }

// Operation describes the operation an extension's Wrap/OnError call is
// observing. Owner is a *Scope or a *Pod, except for a failed cleanup
// reported through OnError, where it is nil; external extensions that
// need the root scope should use RootScope rather than type-asserting
// directly, since pods are not exported for construction outside this
// package.
type Operation struct {
	Kind       OperationKind
	Executor   AnyExecutor
	Owner      any
	FlowName   string
	JournalKey string
}

// RootScope resolves Owner down to the scope that ultimately backs it.
func (op *Operation) RootScope() *Scope {
	switch o := op.Owner.(type) {
	case *Scope:
		return o
	case *Pod:
		return o.rootScope()
	default:
		return nil
	}
}

// OperationKind names the kind of operation an Extension is wrapping.
type OperationKind string

const (
	OpResolve              OperationKind = "resolve"
	OpUpdate               OperationKind = "update"
	OpFlowRun              OperationKind = "flow-run"
	OpFlowExec             OperationKind = "flow-exec"
	OpFlowParallel         OperationKind = "flow-parallel"
	OpFlowParallelSettled  OperationKind = "flow-parallel-settled"
	OpJournal              OperationKind = "journal"
)

// runExtensions folds exts right-to-left (reverse registration order) into
// a single wrapped call, then invokes it. The innermost next is base.
func runExtensions(ctx context.Context, exts []Extension, op *Operation, base func() (any, error)) (any, error) {
	next := base
	for i := len(exts) - 1; i >= 0; i-- {
		ext := exts[i]
		prevNext := next
		next = func() (any, error) {
			return ext.Wrap(ctx, prevNext, op)
		}
	}
	return next()
}
