// Package transport provides named, pooled HTTP client handles whose
// underlying transport is rotated on a lifetime schedule, with every
// outbound request wrapped in an instrumentation pipeline (structured
// logging + metrics) that classifies outcomes without changing
// request/response semantics.
//
// Pool
//   - Pool.Client(name) returns a cheap, non-owning handle backed by a
//     shared stage chain; the chain is built exactly once per name, even
//     under concurrent first access.
//   - A pooled chain expires HandlerLifetime after its FIRST hand-out
//     (never before someone obtained it) and is rebuilt on the next
//     Client call for that name.
//   - Expired chains are disposed by a periodic cleanup pass only once
//     every handle referencing them has been closed; until then they are
//     re-queued. Close handles when done with them.
//
// Pipeline
//   - Stage order, outermost first: metrics, logging, circuit breaker,
//     retry, inner transport. Retry and breaker are opaque collaborator
//     slots (StageBuilder); this package never implements backoff or
//     breaker state machines.
//   - Configuration filters may adjust the build plan before the order
//     is fixed; built-ins cover correlation-ID injection and a
//     token-bucket throttle.
//
// Instrumentation never alters what the caller receives: failures are
// re-raised unchanged and enrichment problems are swallowed.
package transport
