// Package cache's InMemory is the reference Cache used by the demo runner
// and tests; production deployments swap in a cache backed by Redis or a
// similar store behind the same interface without the runner changing.
package cache
