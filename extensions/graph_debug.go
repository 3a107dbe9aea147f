package extensions

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/m1gwings/treedrawer/tree"
	pumped "github.com/pumped-fn/pumped-runtime"
)

// GraphDebugExtension renders the reactive dependency graph and the flow
// execution tree as a tree diagram whenever the scope reports an error
// through OnError (such as a failed resolution), and logs the rendering
// through slog. A flow panic is logged with its value, stack and flow name,
// without a rendering.
//
// Usage:
//
//	handler := extensions.NewHumanHandler(os.Stdout, slog.LevelError)
//	ext := extensions.NewGraphDebugExtension(handler)
//
//	handler := slog.NewJSONHandler(os.Stdout, nil)
//	ext := extensions.NewGraphDebugExtension(handler)
//
//	ext := extensions.NewGraphDebugExtension(extensions.NewSilentHandler())
type GraphDebugExtension struct {
	pumped.BaseExtension

	resolvedExecutors map[pumped.AnyExecutor]bool
	failedExecutors   map[pumped.AnyExecutor]error
	logger            *slog.Logger
}

func NewGraphDebugExtension(logHandler slog.Handler) *GraphDebugExtension {
	return &GraphDebugExtension{
		BaseExtension:     pumped.NewBaseExtension("graph-debug"),
		resolvedExecutors: make(map[pumped.AnyExecutor]bool),
		failedExecutors:   make(map[pumped.AnyExecutor]error),
		logger:            slog.New(logHandler),
	}
}

func (e *GraphDebugExtension) Wrap(ctx context.Context, next func() (any, error), op *pumped.Operation) (any, error) {
	result, err := next()

	if op.Kind == pumped.OpResolve {
		if err == nil {
			e.resolvedExecutors[op.Executor] = true
		} else {
			e.failedExecutors[op.Executor] = err
		}
	}

	return result, err
}

func (e *GraphDebugExtension) OnError(err error, op *pumped.Operation) {
	scope := op.RootScope()
	if scope == nil {
		e.logger.Error("Dependency Resolution Error", "error", err.Error())
		return
	}
	execName := e.getExecutorName(op.Executor)
	graphOutput := e.formatDependencyGraph(scope, op.Executor, err)

	e.logger.Error("Dependency Resolution Error",
		"executor", execName,
		"error", err.Error(),
		"operation", string(op.Kind),
		"dependency_graph", graphOutput,
	)
}

func (e *GraphDebugExtension) OnFlowPanic(execCtx *pumped.ExecutionCtx, recovered any, stack []byte) error {
	attrs := []any{
		"panic", fmt.Sprintf("%v", recovered),
		"stack_trace", string(stack),
		"flow", execCtx.FlowName(),
	}
	e.logger.Error("Flow Panic", attrs...)
	return nil
}

func (e *GraphDebugExtension) tryFormatHorizontalTree(graph map[pumped.AnyExecutor][]pumped.AnyExecutor, failedExecutor pumped.AnyExecutor) string {
	parents := make(map[pumped.AnyExecutor][]pumped.AnyExecutor)
	allNodes := make(map[pumped.AnyExecutor]bool)

	for parent, children := range graph {
		allNodes[parent] = true
		for _, child := range children {
			allNodes[child] = true
			parents[child] = append(parents[child], parent)
		}
	}

	var roots []pumped.AnyExecutor
	for node := range allNodes {
		if len(parents[node]) == 0 {
			roots = append(roots, node)
		}
	}

	sort.Slice(roots, func(i, j int) bool {
		return e.getExecutorName(roots[i]) < e.getExecutorName(roots[j])
	})

	if len(roots) == 0 {
		return ""
	}

	var rootNode *tree.Tree
	if len(roots) == 1 {
		rootNode = e.buildTree(roots[0], graph, failedExecutor, make(map[pumped.AnyExecutor]bool))
	} else {
		rootNode = tree.NewTree(tree.NodeString("Dependencies"))
		for _, root := range roots {
			childTree := e.buildTree(root, graph, failedExecutor, make(map[pumped.AnyExecutor]bool))
			if childTree != nil {
				e.addTreeAsChild(rootNode, childTree)
			}
		}
	}

	if rootNode == nil {
		return ""
	}

	return rootNode.String()
}

func (e *GraphDebugExtension) buildTree(executor pumped.AnyExecutor, graph map[pumped.AnyExecutor][]pumped.AnyExecutor, failedExecutor pumped.AnyExecutor, visited map[pumped.AnyExecutor]bool) *tree.Tree {
	if visited[executor] {
		return nil
	}
	visited[executor] = true

	label := e.getExecutorName(executor)
	if executor == failedExecutor {
		label += " FAILED"
	} else if e.resolvedExecutors[executor] {
		label += " ok"
	}

	node := tree.NewTree(tree.NodeString(label))

	if children, ok := graph[executor]; ok {
		sortedChildren := make([]pumped.AnyExecutor, len(children))
		copy(sortedChildren, children)
		sort.Slice(sortedChildren, func(i, j int) bool {
			return e.getExecutorName(sortedChildren[i]) < e.getExecutorName(sortedChildren[j])
		})

		for _, child := range sortedChildren {
			childTree := e.buildTree(child, graph, failedExecutor, visited)
			if childTree != nil {
				e.addTreeAsChild(node, childTree)
			}
		}
	}

	return node
}

func (e *GraphDebugExtension) addTreeAsChild(parent *tree.Tree, child *tree.Tree) {
	childVal := child.Val()
	newChild := parent.AddChild(childVal)
	for _, grandchild := range child.Children() {
		e.addTreeAsChild(newChild, grandchild)
	}
}

func (e *GraphDebugExtension) formatDependencyGraph(scope *pumped.Scope, failedExecutor pumped.AnyExecutor, failedErr error) string {
	var sb strings.Builder
	graph := scope.ExportDependencyGraph()

	if len(graph) == 0 {
		sb.WriteString("\n(empty - no reactive dependencies tracked)")
	} else {
		horizontalTree := e.tryFormatHorizontalTree(graph, failedExecutor)
		if horizontalTree != "" {
			sb.WriteString("\n")
			sb.WriteString(horizontalTree)
			sb.WriteString("\n")
		}
		sb.WriteString(e.formatDetailedView(graph, failedExecutor))
	}

	sb.WriteString(e.formatExecutionTree(scope))

	if failedErr != nil {
		sb.WriteString("\nError Details:\n")
		sb.WriteString(fmt.Sprintf("  Executor: %s\n", e.getExecutorName(failedExecutor)))
		sb.WriteString(fmt.Sprintf("  Error: %v\n", failedErr))
	}

	return sb.String()
}

func (e *GraphDebugExtension) formatDetailedView(graph map[pumped.AnyExecutor][]pumped.AnyExecutor, failedExecutor pumped.AnyExecutor) string {
	var sb strings.Builder
	sb.WriteString("\nDetailed View:\n")

	type sortEntry struct {
		name     string
		children []pumped.AnyExecutor
	}
	entries := make([]sortEntry, 0, len(graph))
	for parent, children := range graph {
		entries = append(entries, sortEntry{name: e.getExecutorName(parent), children: children})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	for _, entry := range entries {
		if len(entry.children) == 0 {
			sb.WriteString(fmt.Sprintf("  %s (no dependents)\n", entry.name))
			continue
		}
		sb.WriteString(fmt.Sprintf("  %s\n", entry.name))

		names := make([]string, len(entry.children))
		for i, c := range entry.children {
			names[i] = e.getExecutorName(c)
		}
		sort.Strings(names)

		for i, name := range names {
			connector := "├─>"
			if i == len(names)-1 {
				connector = "└─>"
			}
			sb.WriteString(fmt.Sprintf("    %s %s\n", connector, name))
		}
	}
	return sb.String()
}

// formatExecutionTree renders the flow execution tree's roots and their
// children, so a resolution failure inside a flow shows which flow invoked
// it.
func (e *GraphDebugExtension) formatExecutionTree(scope *pumped.Scope) string {
	roots := scope.ExecutionTree().GetRoots()
	if len(roots) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\nExecution Tree:\n")
	for _, root := range roots {
		e.writeExecutionNode(&sb, scope, root, 1)
	}
	return sb.String()
}

func (e *GraphDebugExtension) writeExecutionNode(sb *strings.Builder, scope *pumped.Scope, node *pumped.ExecutionNode, depth int) {
	sb.WriteString(fmt.Sprintf("%s%s [%s]\n", strings.Repeat("  ", depth), node.FlowName, node.Status))
	for _, child := range scope.ExecutionTree().GetChildren(node.ID) {
		e.writeExecutionNode(sb, scope, child, depth+1)
	}
}

func (e *GraphDebugExtension) getExecutorName(exec pumped.AnyExecutor) string {
	if exec == nil {
		return "<nil>"
	}
	if name := exec.Name(); name != "" {
		return name
	}
	return fmt.Sprintf("Executor_%p", exec)
}

// SilentHandler discards all log output; useful in tests.
type SilentHandler struct{}

func NewSilentHandler() *SilentHandler { return &SilentHandler{} }

func (h *SilentHandler) Enabled(ctx context.Context, level slog.Level) bool { return false }
func (h *SilentHandler) Handle(ctx context.Context, record slog.Record) error { return nil }
func (h *SilentHandler) WithAttrs(attrs []slog.Attr) slog.Handler             { return h }
func (h *SilentHandler) WithGroup(name string) slog.Handler                  { return h }

// HumanHandler formats GraphDebugExtension's structured log records as
// readable multi-line text.
type HumanHandler struct {
	writer io.Writer
	level  slog.Level
}

func NewHumanHandler(writer io.Writer, level slog.Level) *HumanHandler {
	return &HumanHandler{writer: writer, level: level}
}

func (h *HumanHandler) Enabled(ctx context.Context, level slog.Level) bool { return level >= h.level }

func (h *HumanHandler) Handle(ctx context.Context, record slog.Record) error {
	switch record.Message {
	case "Dependency Resolution Error":
		return h.handleDependencyError(record)
	case "Flow Panic":
		return h.handleFlowPanic(record)
	}

	if _, err := fmt.Fprintf(h.writer, "[%s] %s\n", record.Level, record.Message); err != nil {
		return err
	}
	var writeErr error
	record.Attrs(func(a slog.Attr) bool {
		if _, err := fmt.Fprintf(h.writer, "  %s: %v\n", a.Key, a.Value); err != nil {
			writeErr = err
			return false
		}
		return true
	})
	return writeErr
}

func (h *HumanHandler) handleDependencyError(record slog.Record) error {
	var executor, errorMsg, operation, dependencyGraph string

	record.Attrs(func(a slog.Attr) bool {
		switch a.Key {
		case "executor":
			executor = a.Value.String()
		case "error":
			errorMsg = a.Value.String()
		case "operation":
			operation = a.Value.String()
		case "dependency_graph":
			dependencyGraph = a.Value.String()
		}
		return true
	})

	fmt.Fprintln(h.writer)
	fmt.Fprintln(h.writer, strings.Repeat("=", 70))
	fmt.Fprintln(h.writer, "[GraphDebug] Dependency Resolution Error")
	fmt.Fprintln(h.writer, strings.Repeat("=", 70))
	fmt.Fprintf(h.writer, "\nFailed Executor: %s\n", executor)
	fmt.Fprintf(h.writer, "Error: %s\n", errorMsg)
	fmt.Fprintf(h.writer, "Operation: %s\n", operation)
	fmt.Fprintf(h.writer, "\nDependency Graph:%s", dependencyGraph)
	fmt.Fprintln(h.writer, strings.Repeat("=", 70))
	fmt.Fprintln(h.writer)
	return nil
}

func (h *HumanHandler) handleFlowPanic(record slog.Record) error {
	var panicMsg, stackTrace, flow string

	record.Attrs(func(a slog.Attr) bool {
		switch a.Key {
		case "panic":
			panicMsg = a.Value.String()
		case "stack_trace":
			stackTrace = a.Value.String()
		case "flow":
			flow = a.Value.String()
		}
		return true
	})

	fmt.Fprintln(h.writer)
	fmt.Fprintln(h.writer, strings.Repeat("=", 70))
	fmt.Fprintln(h.writer, "[GraphDebug] Flow Panic")
	fmt.Fprintln(h.writer, strings.Repeat("=", 70))
	fmt.Fprintf(h.writer, "\nPanic: %s\n", panicMsg)
	if flow != "" {
		fmt.Fprintf(h.writer, "Flow: %s\n", flow)
	}
	fmt.Fprintf(h.writer, "\nStack Trace:\n%s\n", stackTrace)
	fmt.Fprintln(h.writer, strings.Repeat("=", 70))
	fmt.Fprintln(h.writer)
	return nil
}

func (h *HumanHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *HumanHandler) WithGroup(name string) slog.Handler       { return h }
