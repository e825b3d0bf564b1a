// Package poll adaptively refetches cached collections while a caller-supplied
// predicate over the fetched data holds, detects convergence of asynchronously
// processed entities to terminal states, and propagates invalidation to the
// other cached views of the same underlying data.
package poll
