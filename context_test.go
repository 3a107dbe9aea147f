package pumped

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// TestGracefulShutdown_UpdateCleanupOrder verifies that reactively replacing
// a producer's value runs the producer's cleanup and each reactive
// dependent's cleanup exactly once, and that the dependents re-resolve
// against the new value.
func TestGracefulShutdown_UpdateCleanupOrder(t *testing.T) {
	scope, _ := NewScope()

	var mu sync.Mutex
	cleanupCalls := []string{}

	root := Provide(func(ctx *ResolveCtx) (int, error) {
		ctx.OnCleanup(func() error {
			mu.Lock()
			cleanupCalls = append(cleanupCalls, "root")
			mu.Unlock()
			return nil
		})
		return 0, nil
	})

	dep1 := Derive1(root.Reactive(), func(ctx *ResolveCtx, val int) (int, error) {
		ctx.OnCleanup(func() error {
			mu.Lock()
			cleanupCalls = append(cleanupCalls, "dep1")
			mu.Unlock()
			return nil
		})
		return val + 1, nil
	})

	dep2 := Derive1(root.Reactive(), func(ctx *ResolveCtx, val int) (int, error) {
		ctx.OnCleanup(func() error {
			mu.Lock()
			cleanupCalls = append(cleanupCalls, "dep2")
			mu.Unlock()
			return nil
		})
		return val + 2, nil
	})

	if _, err := Resolve(scope, root); err != nil {
		t.Fatalf("failed to resolve root: %v", err)
	}
	if _, err := Resolve(scope, dep1); err != nil {
		t.Fatalf("failed to resolve dep1: %v", err)
	}
	if _, err := Resolve(scope, dep2); err != nil {
		t.Fatalf("failed to resolve dep2: %v", err)
	}

	if err := Update(scope, root, 10); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(cleanupCalls) != 3 {
		t.Fatalf("expected 3 cleanups (root + 2 dependents), got %v", cleanupCalls)
	}

	v1, err := Resolve(scope, dep1)
	if err != nil || v1 != 11 {
		t.Errorf("expected dep1 to re-resolve to 11, got %d (%v)", v1, err)
	}
	v2, err := Resolve(scope, dep2)
	if err != nil || v2 != 12 {
		t.Errorf("expected dep2 to re-resolve to 12, got %d (%v)", v2, err)
	}
}

// TestFlowTimeout_ExpiresDuringHandler verifies a flow's own timeout budget
// surfaces as a context.DeadlineExceeded from the handler's own context.
func TestFlowTimeout_ExpiresDuringHandler(t *testing.T) {
	scope, _ := NewScope()
	defer scope.Dispose(context.Background())

	flow := DefineFlow(func(execCtx *ExecutionCtx, _ struct{}) (int, error) {
		select {
		case <-time.After(100 * time.Millisecond):
			return 42, nil
		case <-execCtx.Context().Done():
			return 0, execCtx.Context().Err()
		}
	}, WithFlowTimeout(10*time.Millisecond))

	_, err := Execute(scope, flow, struct{}{}).Await()
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got: %v", err)
	}

	roots := scope.ExecutionTree().GetRoots()
	if len(roots) != 1 {
		t.Fatalf("expected 1 root execution, got %d", len(roots))
	}
	if roots[0].Status != StatusFailed {
		t.Errorf("expected status failed after timeout, got %v", roots[0].Status)
	}
}

// TestFlowTimeout_DependencyResolutionOutlivesHandlerBudget verifies a slow
// dependency resolved inside a flow still respects the flow's own timeout.
func TestFlowTimeout_DependencyResolutionOutlivesHandlerBudget(t *testing.T) {
	scope, _ := NewScope()
	defer scope.Dispose(context.Background())

	slowDep := Provide(func(ctx *ResolveCtx) (int, error) {
		time.Sleep(100 * time.Millisecond)
		return 42, nil
	})

	flow := DefineFlow(func(execCtx *ExecutionCtx, _ struct{}) (int, error) {
		done := make(chan struct{})
		var val int
		var err error
		go func() {
			val, err = Resolve(execCtx.Pod(), slowDep)
			close(done)
		}()
		select {
		case <-done:
			return val * 2, err
		case <-execCtx.Context().Done():
			return 0, execCtx.Context().Err()
		}
	}, WithFlowTimeout(10*time.Millisecond))

	_, err := Execute(scope, flow, struct{}{}).Await()
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got: %v", err)
	}
}

// TestFlowRetry_SucceedsWithinBudget verifies a flow that fails on its first
// attempts recovers within its configured retry budget.
func TestFlowRetry_SucceedsWithinBudget(t *testing.T) {
	scope, _ := NewScope()
	defer scope.Dispose(context.Background())

	attempts := 0
	flow := DefineFlow(func(execCtx *ExecutionCtx, _ struct{}) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("transient failure")
		}
		return attempts, nil
	}, WithFlowRetry(2))

	result, err := Execute(scope, flow, struct{}{}).Await()
	if err != nil {
		t.Fatalf("expected success within retry budget, got: %v", err)
	}
	if result != 3 {
		t.Errorf("expected 3 attempts before success, got %d", result)
	}
}

// TestFlowRetry_ExhaustsBudget verifies a flow that always fails surfaces
// its last attempt's error once the retry budget is spent.
func TestFlowRetry_ExhaustsBudget(t *testing.T) {
	scope, _ := NewScope()
	defer scope.Dispose(context.Background())

	attempts := 0
	boom := errors.New("persistent failure")
	flow := DefineFlow(func(execCtx *ExecutionCtx, _ struct{}) (int, error) {
		attempts++
		return 0, boom
	}, WithFlowRetry(2))

	_, err := Execute(scope, flow, struct{}{}).Await()
	if !errors.Is(err, boom) {
		t.Errorf("expected persistent failure to surface, got: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 total attempts (1 + 2 retries), got %d", attempts)
	}
}

// TestFrameworkEnforcesScopeDisposed verifies a disposed scope refuses
// further resolution and update calls outright.
func TestFrameworkEnforcesScopeDisposed(t *testing.T) {
	scope, _ := NewScope()

	root := Provide(func(ctx *ResolveCtx) (int, error) { return 0, nil })
	if _, err := Resolve(scope, root); err != nil {
		t.Fatalf("resolve before dispose: %v", err)
	}

	if err := scope.Dispose(context.Background()); err != nil {
		t.Fatalf("dispose: %v", err)
	}

	if _, err := Resolve(scope, root); err == nil {
		t.Error("expected resolve against a disposed scope to fail")
	}
	if err := Update(scope, root, 5); err == nil {
		t.Error("expected update against a disposed scope to fail")
	}
}
