// Package planstore resolves plan names to parsed plans.
//
// # Implementations
//
//   - FS reads JSON or YAML documents from a directory tree. A plan named
//     "billing/invoice" lives at billing/invoice.json (or .yaml, .yml).
//   - SQL keeps CBOR-encoded documents in a database table, so plans can be
//     published without touching the file system.
//   - Cache wraps any Store and keeps parsed plans in memory.
//
// # Concurrency Model
//
// Parsed plans are immutable and executed concurrently by many sessions, so
// a plan is parsed once and then shared. Cache uses sync.Map: the key space
// (plan names) is small and stable while lookups happen on every request,
// which is the read-mostly pattern sync.Map is optimized for.
//
// A missing plan is reported as ErrNotFound. Documents that fail to parse
// are returned as MalformedTemplate faults.
package planstore
