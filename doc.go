// Package pumped provides a graph-based dependency resolution runtime and
// a structured async flow engine built on top of it.
//
// # Overview
//
// Three concepts compose the runtime:
//
//  1. Executors: immutable, memoized units of computation with explicit
//     dependencies, built with Provide/Derive1..Derive9.
//  2. Scopes and Pods: owners of a resolution cache. A Scope is the root;
//     a Pod is a disposable child with hierarchical copy-on-read caching,
//     used to sandbox a single flow execution.
//  3. Flows: short-lived operations executed against a pod, with a
//     cancellable context, an at-most-once journal, and sub-flow/parallel
//     composition.
//
// # Basic usage
//
//	scope, err := pumped.NewScope()
//
//	config := pumped.Provide(func(ctx *pumped.ResolveCtx) (*Config, error) {
//	    return &Config{Port: 8080}, nil
//	})
//
//	server := pumped.Derive1(config, func(ctx *pumped.ResolveCtx, cfg *Config) (*Server, error) {
//	    return NewServer(cfg.Port), nil
//	})
//
//	srv, err := pumped.Resolve(scope, server)
//
// # Dependency modes
//
// A dependency defaults to base mode: resolved once, delivered as a raw
// value. .Reactive() additionally records a reactive edge so the consumer
// re-runs whenever the producer updates via Update. .Lazy() and .Static()
// change what's delivered instead of the value: the factory receives a
// *Accessor[T] rather than a T. A .Lazy() dependency's producer is left
// unresolved until the factory calls the accessor's Get(); a .Static()
// dependency's producer is resolved eagerly, with its current value
// already readable through the accessor without blocking.
//
// # Flows
//
//	greet := pumped.DefineFlow(func(ctx *pumped.ExecutionCtx, name string) (string, error) {
//	    return pumped.Run(ctx, "compose", func() (string, error) {
//	        return "hello " + name, nil
//	    })
//	})
//
//	out, err := pumped.Execute(scope, greet, "ada").Await()
//
// Every flow execution runs inside its own Pod, so any executor it
// resolves along the way is cached in that execution's pod, not in the
// scope, and released when the pod is disposed; Scope.Dispose disposes
// every pod derived from the scope. Sub-flows started with
// Exec run in a further nested pod, isolated from sibling sub-flows.
//
// # Extensions
//
// Extensions wrap every resolve, update, flow run, sub-flow, parallel
// composition, and journal entry, and observe errors and flow
// lifecycle events. See the extensions subpackage for the bundled
// logging and dependency-graph-debug extensions.
package pumped
