package pumped

import (
	"context"
	"sync"
)

// PoolManager recycles the short-lived allocations the resolver and flow
// engine make on every call: ResolveCtx/ExecutionCtx shells and their
// cleanup/journal backing storage. Each scope owns one.
type PoolManager struct {
	resolveCtxPool   sync.Pool
	executionCtxPool sync.Pool
	cleanupPool      sync.Pool

	metrics PoolMetrics
}

// PoolMetrics tracks pool hit/miss counts, exposed for tests and debug
// extensions that want to reason about allocation pressure.
type PoolMetrics struct {
	mu                 sync.RWMutex
	resolveCtxHits     uint64
	resolveCtxMisses   uint64
	executionCtxHits   uint64
	executionCtxMisses uint64
	cleanupHits        uint64
	cleanupMisses      uint64
}

func newPoolManager() *PoolManager {
	return &PoolManager{}
}

// NewPoolManager creates a standalone pool manager, for callers that want
// to share one across multiple scopes.
func NewPoolManager() *PoolManager { return newPoolManager() }

func (pm *PoolManager) acquireResolveCtx(owner graphOwner, executorID AnyExecutor, path []AnyExecutor) *ResolveCtx {
	ctx, ok := pm.resolveCtxPool.Get().(*ResolveCtx)
	pm.metrics.mu.Lock()
	if ok {
		pm.metrics.resolveCtxHits++
	} else {
		pm.metrics.resolveCtxMisses++
	}
	pm.metrics.mu.Unlock()
	if !ok {
		ctx = &ResolveCtx{cleanups: make([]cleanupEntry, 0, 8)}
	}
	ctx.owner = owner
	ctx.executorID = executorID
	ctx.path = path
	ctx.cleanups = ctx.cleanups[:0]
	return ctx
}

func (pm *PoolManager) releaseResolveCtx(ctx *ResolveCtx) {
	if ctx == nil {
		return
	}
	ctx.owner = nil
	ctx.executorID = nil
	ctx.path = nil
	ctx.cleanups = ctx.cleanups[:0]
	pm.resolveCtxPool.Put(ctx)
}

func (pm *PoolManager) acquireExecutionCtx(parent *ExecutionCtx, pod *Pod, goCtx context.Context, cancel context.CancelFunc, flowName string) *ExecutionCtx {
	execCtx, ok := pm.executionCtxPool.Get().(*ExecutionCtx)
	pm.metrics.mu.Lock()
	if ok {
		pm.metrics.executionCtxHits++
	} else {
		pm.metrics.executionCtxMisses++
	}
	pm.metrics.mu.Unlock()
	if !ok {
		execCtx = &ExecutionCtx{journal: make(map[string]*journalEntry, 8)}
	}
	execCtx.parent = parent
	execCtx.pod = pod
	execCtx.goCtx = goCtx
	execCtx.cancel = cancel
	execCtx.flowName = flowName
	execCtx.data = NewStore()
	for k := range execCtx.journal {
		delete(execCtx.journal, k)
	}
	return execCtx
}

func (pm *PoolManager) releaseExecutionCtx(execCtx *ExecutionCtx) {
	if execCtx == nil {
		return
	}
	execCtx.parent = nil
	execCtx.pod = nil
	execCtx.goCtx = nil
	execCtx.cancel = nil
	execCtx.data = nil
	pm.executionCtxPool.Put(execCtx)
}

func (pm *PoolManager) acquireCleanupSlice() []cleanupEntry {
	slice, ok := pm.cleanupPool.Get().([]cleanupEntry)
	pm.metrics.mu.Lock()
	if ok {
		pm.metrics.cleanupHits++
	} else {
		pm.metrics.cleanupMisses++
	}
	pm.metrics.mu.Unlock()
	if !ok {
		return make([]cleanupEntry, 0, 8)
	}
	return slice[:0]
}

func (pm *PoolManager) releaseCleanupSlice(slice []cleanupEntry) {
	if slice == nil {
		return
	}
	pm.cleanupPool.Put(slice[:0])
}

// GetMetrics returns a copy of the current pool hit/miss counters.
func (pm *PoolManager) GetMetrics() PoolMetrics {
	pm.metrics.mu.RLock()
	defer pm.metrics.mu.RUnlock()
	return PoolMetrics{
		resolveCtxHits: pm.metrics.resolveCtxHits, resolveCtxMisses: pm.metrics.resolveCtxMisses,
		executionCtxHits: pm.metrics.executionCtxHits, executionCtxMisses: pm.metrics.executionCtxMisses,
		cleanupHits: pm.metrics.cleanupHits, cleanupMisses: pm.metrics.cleanupMisses,
	}
}

func (pm *PoolManager) ResetMetrics() {
	pm.metrics.mu.Lock()
	defer pm.metrics.mu.Unlock()
	pm.metrics = PoolMetrics{}
}

var globalPoolManager = newPoolManager()

// GetGlobalPoolManager returns a process-wide pool manager, for executors
// constructed without going through a specific scope's pools.
func GetGlobalPoolManager() *PoolManager { return globalPoolManager }
