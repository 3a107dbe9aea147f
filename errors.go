package pumped

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Code identifies the precise failure mode of an EnhancedError.
type Code string

const (
	CodeFactoryThrew               Code = "FACTORY_THREW"
	CodeFactoryAsync               Code = "FACTORY_ASYNC"
	CodeFactoryGenerator           Code = "FACTORY_GENERATOR"
	CodeDependencyCycle            Code = "DEPENDENCY_CYCLE"
	CodeDependencyResolutionFailed Code = "DEPENDENCY_RESOLUTION_FAILED"
	CodeValidationFailed           Code = "VALIDATION_FAILED"
	CodeScopeDisposed              Code = "SCOPE_DISPOSED"
	CodeTagNotFound                Code = "TAG_NOT_FOUND"
	CodeInternal                   Code = "INTERNAL"
)

// Kind groups related codes into a coarser failure category.
type Kind string

const (
	KindFactoryExecution     Kind = "FactoryExecution"
	KindDependencyResolution Kind = "DependencyResolution"
	KindExecutorResolution   Kind = "ExecutorResolution"
	KindScopeDisposed        Kind = "ScopeDisposed"
	KindValidation           Kind = "Validation"
	KindTagNotFound          Kind = "TagNotFound"
	KindInternal             Kind = "Internal"
)

// Category distinguishes errors callers can act on from ones indicating a
// defect in the runtime itself.
type Category string

const (
	CategoryUser   Category = "USER_ERROR"
	CategorySystem Category = "SYSTEM_ERROR"
)

// ErrorContext carries the diagnostic detail attached to every EnhancedError.
type ErrorContext struct {
	ExecutorName    string
	DependencyChain []string
	ResolutionStage string
	Extras          map[string]any
	CauseStack      []byte
}

// EnhancedError is the structured error executor resolution reports its
// failures as: a factory's returned error or panic, a failed dependency, a
// dependency cycle, a disposed scope, a missing tag, or a failed tag
// validation. Cause holds the underlying error; a recovered panic value that
// is not an error becomes an error carrying its printed form. Errors
// returned by a flow handler, and flow timeouts, reach the caller unwrapped;
// flow schema failures are FlowValidationError and cleanup failures are
// CleanupError.
type EnhancedError struct {
	Code     Code
	Kind     Kind
	Category Category
	Context  ErrorContext
	Cause    error
}

func (e *EnhancedError) Error() string {
	var b strings.Builder
	if e.Context.ExecutorName != "" {
		fmt.Fprintf(&b, "%s: ", e.Context.ExecutorName)
	}
	if e.Cause != nil {
		b.WriteString(e.Cause.Error())
	} else {
		b.WriteString(string(e.Code))
	}
	if len(e.Context.DependencyChain) > 0 {
		fmt.Fprintf(&b, " (dependency chain: %s)", strings.Join(e.Context.DependencyChain, " -> "))
	}
	return b.String()
}

func (e *EnhancedError) Unwrap() error { return e.Cause }

func newFactoryError(name string, chain []string, cause error) *EnhancedError {
	return &EnhancedError{
		Code:     CodeFactoryThrew,
		Kind:     KindFactoryExecution,
		Category: CategoryUser,
		Context: ErrorContext{
			ExecutorName:    name,
			DependencyChain: chain,
			ResolutionStage: "factory",
			CauseStack:      debug.Stack(),
		},
		Cause: cause,
	}
}

func newDependencyResolutionError(name string, chain []string, cause error) *EnhancedError {
	return &EnhancedError{
		Code:     CodeDependencyResolutionFailed,
		Kind:     KindDependencyResolution,
		Category: CategoryUser,
		Context: ErrorContext{
			ExecutorName:    name,
			DependencyChain: chain,
			ResolutionStage: "dependency",
		},
		Cause: cause,
	}
}

func newCycleError(chain []string) *EnhancedError {
	return &EnhancedError{
		Code:     CodeDependencyCycle,
		Kind:     KindDependencyResolution,
		Category: CategoryUser,
		Context: ErrorContext{
			DependencyChain: chain,
			ResolutionStage: "cycle-detection",
		},
		Cause: fmt.Errorf("dependency cycle detected: %s", strings.Join(chain, " -> ")),
	}
}

func newScopeDisposedError(op string) *EnhancedError {
	return &EnhancedError{
		Code:     CodeScopeDisposed,
		Kind:     KindScopeDisposed,
		Category: CategoryUser,
		Context: ErrorContext{
			ResolutionStage: op,
		},
		Cause: fmt.Errorf("scope is disposed: cannot %s", op),
	}
}

func newTagNotFoundError(key Symbol) *EnhancedError {
	return &EnhancedError{
		Code:     CodeTagNotFound,
		Kind:     KindTagNotFound,
		Category: CategoryUser,
		Context: ErrorContext{
			ResolutionStage: "tag-lookup",
			Extras:          map[string]any{"tag": key.String()},
		},
		Cause: fmt.Errorf("tag %q not found", key.String()),
	}
}

func newValidationError(subject string, issues []Issue) *EnhancedError {
	msgs := make([]string, len(issues))
	for i, issue := range issues {
		if len(issue.Path) > 0 {
			msgs[i] = fmt.Sprintf("%s at %s", issue.Message, strings.Join(issue.Path, "."))
		} else {
			msgs[i] = issue.Message
		}
	}
	return &EnhancedError{
		Code:     CodeValidationFailed,
		Kind:     KindValidation,
		Category: CategoryUser,
		Context: ErrorContext{
			ExecutorName:    subject,
			ResolutionStage: "validation",
			Extras:          map[string]any{"issues": issues},
		},
		Cause: fmt.Errorf("validation failed for %s: %s", subject, strings.Join(msgs, "; ")),
	}
}

// FlowValidationError reports an input or output schema mismatch at a flow
// boundary.
type FlowValidationError struct {
	FlowName string
	Slot     string // "input" | "output"
	Issues   []Issue
}

func (e *FlowValidationError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		msgs[i] = issue.Message
	}
	return fmt.Sprintf("flow %q: %s validation failed: %s", e.FlowName, e.Slot, strings.Join(msgs, "; "))
}

// CleanupError reports a factory-registered cleanup callback that returned
// an error. Cleanup errors are swallowed by the scope (subsequent cleanups
// still run) and surfaced only through error callbacks / extensions.
type CleanupError struct {
	ExecutorID AnyExecutor
	Err        error
	Context    string // "reactive" | "release" | "dispose"
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("cleanup error during %s: %v", e.Context, e.Err)
}

func (e *CleanupError) Unwrap() error { return e.Err }

// panicToError normalizes a recovered panic value into an error, preserving
// an existing error as-is rather than re-wrapping it.
func panicToError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}

// SafeTypeAssertion performs a type assertion with a structured error
// instead of a panic, used at the boundary where an any-typed cache value
// is coerced back to its static type.
func SafeTypeAssertion[T any](value any) (T, error) {
	if value == nil {
		var zero T
		return zero, nil
	}
	typed, ok := value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("type assertion error: expected %T, got %T (value: %v)", zero, value, value)
	}
	return typed, nil
}
