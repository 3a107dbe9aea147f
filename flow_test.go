package pumped

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBasicFlowExecution(t *testing.T) {
	scope, _ := NewScope()
	defer scope.Dispose(context.Background())

	dbConfig := Provide(func(ctx *ResolveCtx) (string, error) {
		return "localhost:5432", nil
	})

	fetchUser := DefineFlow(func(execCtx *ExecutionCtx, _ struct{}) (string, error) {
		dbHost, err := Resolve(execCtx.Pod(), dbConfig)
		if err != nil {
			return "", err
		}
		return "user-from-" + dbHost, nil
	}, WithFlowName("fetchUser"))

	result, err := Execute(scope, fetchUser, struct{}{}).Await()
	if err != nil {
		t.Fatalf("flow execution failed: %v", err)
	}
	if result != "user-from-localhost:5432" {
		t.Errorf("expected 'user-from-localhost:5432', got %q", result)
	}

	roots := scope.ExecutionTree().GetRoots()
	if len(roots) != 1 {
		t.Errorf("expected 1 root execution, got %d", len(roots))
	}
	if roots[0].Status != StatusCompleted {
		t.Errorf("expected status completed, got %v", roots[0].Status)
	}
}

func TestSubFlowExecution(t *testing.T) {
	scope, _ := NewScope()
	defer scope.Dispose(context.Background())

	doubler := Provide(func(ctx *ResolveCtx) (int, error) { return 42, nil })
	step1 := DefineFlow(func(execCtx *ExecutionCtx, _ struct{}) (int, error) {
		val, err := Resolve(execCtx.Pod(), doubler)
		if err != nil {
			return 0, err
		}
		return val * 2, nil
	}, WithFlowName("step1"))

	base := Provide(func(ctx *ResolveCtx) (int, error) { return 10, nil })
	step2 := DefineFlow(func(execCtx *ExecutionCtx, _ struct{}) (int, error) {
		result1, err := Exec(execCtx, step1, struct{}{}).Await()
		if err != nil {
			return 0, err
		}
		val, err := Resolve(execCtx.Pod(), base)
		if err != nil {
			return 0, err
		}
		return result1 + val, nil
	}, WithFlowName("step2"))

	result, err := Execute(scope, step2, struct{}{}).Await()
	if err != nil {
		t.Fatalf("flow execution failed: %v", err)
	}

	expected := (42 * 2) + 10
	if result != expected {
		t.Errorf("expected %d, got %d", expected, result)
	}

	roots := scope.ExecutionTree().GetRoots()
	if len(roots) != 1 {
		t.Errorf("expected 1 root execution, got %d", len(roots))
	}
	children := scope.ExecutionTree().GetChildren(roots[0].ID)
	if len(children) != 1 {
		t.Errorf("expected 1 child execution, got %d", len(children))
	}
}

func TestFlowPanicRecovery(t *testing.T) {
	scope, _ := NewScope()
	defer scope.Dispose(context.Background())

	panicFlow := DefineFlow(func(execCtx *ExecutionCtx, _ struct{}) (string, error) {
		panic("test panic")
	}, WithFlowName("panicFlow"))

	_, err := Execute(scope, panicFlow, struct{}{}).Await()
	if err == nil {
		t.Fatal("expected error from panic, got nil")
	}

	roots := scope.ExecutionTree().GetRoots()
	if len(roots) != 1 {
		t.Fatalf("expected 1 root execution, got %d", len(roots))
	}
	if roots[0].Status != StatusFailed {
		t.Errorf("expected status failed, got %v", roots[0].Status)
	}
	if roots[0].Error == nil {
		t.Error("expected execution node to carry the panic-derived error")
	}
}

func TestExecutionContextTagLookup(t *testing.T) {
	scope, _ := NewScope()
	defer scope.Dispose(context.Background())

	customTag := NewTag[string]("custom.tag")

	parentFlow := DefineFlow(func(execCtx *ExecutionCtx, _ struct{}) (string, error) {
		execCtx.Set(customTag.Key(), "parent-value")

		childFlow := DefineFlow(func(childCtx *ExecutionCtx, _ struct{}) (string, error) {
			if _, ok := childCtx.Get(customTag.Key()); ok {
				t.Error("child should not have its own value")
			}

			parentVal, ok := childCtx.GetFromParent(customTag.Key())
			if !ok {
				t.Fatal("child should find parent value via GetFromParent")
			}
			if parentVal.(string) != "parent-value" {
				t.Errorf("expected 'parent-value', got %q", parentVal)
			}
			return "ok", nil
		}, WithFlowName("childFlow"))

		_, err := Exec(execCtx, childFlow, struct{}{}).Await()
		return "ok", err
	}, WithFlowName("parentFlow"))

	if _, err := Execute(scope, parentFlow, struct{}{}).Await(); err != nil {
		t.Fatalf("flow execution failed: %v", err)
	}
}

func TestFlowCancellation(t *testing.T) {
	scope, _ := NewScope()
	defer scope.Dispose(context.Background())

	slowFlow := DefineFlow(func(execCtx *ExecutionCtx, _ struct{}) (string, error) {
		select {
		case <-time.After(100 * time.Millisecond):
			return "result", nil
		case <-execCtx.Context().Done():
			return "", execCtx.Context().Err()
		}
	}, WithFlowName("slowFlow"), WithFlowTimeout(10*time.Millisecond))

	_, err := Execute(scope, slowFlow, struct{}{}).Await()
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}

	roots := scope.ExecutionTree().GetRoots()
	if len(roots) != 1 {
		t.Fatalf("expected 1 root execution, got %d", len(roots))
	}
	if roots[0].Status != StatusFailed {
		t.Errorf("expected status failed after timeout, got %v", roots[0].Status)
	}
}

func TestFlowRunJournalsAtMostOnce(t *testing.T) {
	scope, _ := NewScope()
	defer scope.Dispose(context.Background())

	calls := 0
	flow := DefineFlow(func(execCtx *ExecutionCtx, _ struct{}) (int, error) {
		first, err := Run(execCtx, "side-effect", func() (int, error) {
			calls++
			return calls, nil
		})
		if err != nil {
			return 0, err
		}
		second, err := Run(execCtx, "side-effect", func() (int, error) {
			calls++
			return calls, nil
		})
		if err != nil {
			return 0, err
		}
		return first + second, nil
	}, WithFlowName("journaled"))

	result, err := Execute(scope, flow, struct{}{}).Await()
	if err != nil {
		t.Fatalf("flow execution failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected journaled effect to run exactly once, ran %d times", calls)
	}
	if result != 2 {
		t.Errorf("expected both Run calls to return the same journaled value (1+1=2), got %d", result)
	}
}

func TestParallelFailsFast(t *testing.T) {
	scope, _ := NewScope()
	defer scope.Dispose(context.Background())

	boom := errors.New("boom")
	flow := DefineFlow(func(execCtx *ExecutionCtx, _ struct{}) ([]int, error) {
		return Parallel(execCtx,
			func() (int, error) { return 1, nil },
			func() (int, error) { return 0, boom },
		)
	}, WithFlowName("parallel"))

	_, err := Execute(scope, flow, struct{}{}).Await()
	if !errors.Is(err, boom) {
		t.Errorf("expected boom error to propagate, got %v", err)
	}
}

func TestParallelSettledCollectsEveryOutcome(t *testing.T) {
	scope, _ := NewScope()
	defer scope.Dispose(context.Background())

	boom := errors.New("boom")
	flow := DefineFlow(func(execCtx *ExecutionCtx, _ struct{}) ([]SettledResult[int], error) {
		return ParallelSettled(execCtx,
			func() (int, error) { return 1, nil },
			func() (int, error) { return 0, boom },
		).Await()
	}, WithFlowName("settled"))

	results, err := Execute(scope, flow, struct{}{}).Await()
	if err != nil {
		t.Fatalf("flow execution failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 settled results, got %d", len(results))
	}
	if !results[0].Ok || results[0].Value != 1 {
		t.Errorf("expected first result to be Ok=1, got %+v", results[0])
	}
	if results[1].Ok || !errors.Is(results[1].Err, boom) {
		t.Errorf("expected second result to carry boom error, got %+v", results[1])
	}
}

func TestParallelSettledPromiseChainHelpers(t *testing.T) {
	scope, _ := NewScope()
	defer scope.Dispose(context.Background())

	boom := errors.New("boom")
	var stats ParallelSettledStats
	var fulfilled []int
	var rejected []error
	var firstErr error

	flow := DefineFlow(func(execCtx *ExecutionCtx, _ struct{}) (int, error) {
		promise := ParallelSettled(execCtx,
			func() (int, error) { return 1, nil },
			func() (int, error) { return 0, boom },
			func() (int, error) { return 3, nil },
		)
		stats = promise.Stats()
		fulfilled = promise.Fulfilled()
		rejected = promise.Rejected()
		firstErr, _ = promise.FirstRejected()
		first, ok := promise.FirstFulfilled()
		if !ok {
			t.Error("expected at least one fulfilled value")
		}
		return first, nil
	}, WithFlowName("settled-chain"))

	if _, err := Execute(scope, flow, struct{}{}).Await(); err != nil {
		t.Fatalf("flow execution failed: %v", err)
	}

	if stats.Total != 3 || stats.Succeeded != 2 || stats.Failed != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if len(fulfilled) != 2 {
		t.Errorf("expected 2 fulfilled values, got %v", fulfilled)
	}
	if len(rejected) != 1 || !errors.Is(rejected[0], boom) {
		t.Errorf("expected 1 rejection carrying boom, got %v", rejected)
	}
	if !errors.Is(firstErr, boom) {
		t.Errorf("expected FirstRejected to surface boom, got %v", firstErr)
	}
}
