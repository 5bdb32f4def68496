// Package dcache provides a time-bounded memoization cache for expensive
// dataset loads.
//
// A Cache holds one payload per signature, where a signature is the string
// form of all parameters that determine a load's result. A payload stays
// valid for the configured time-to-live; after that the next lookup invokes
// the loader again. Failed loads are never cached, and a failed reload leaves
// whatever entry was already stored untouched, so a transient upstream
// failure does not erase previously retrieved data.
//
// ## Miss Collapsing
//
// Concurrent lookups for the same signature during a miss are collapsed into
// a single in-flight load: the first caller invokes the loader, the others
// wait and then share its result. Invalidation forgets any in-flight load for
// the affected signatures, so a lookup made after invalidation always
// re-fetches.
//
// ## Clock Injection
//
// Expiry is computed against an injectable clock so that freshness behavior
// is testable without sleeping.
package dcache
