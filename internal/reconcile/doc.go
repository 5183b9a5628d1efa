// Package reconcile implements the multi-source metadata reconciliation
// engine: per-source match resolution (cache, stored ID, fresh lookup),
// optimal track alignment, distance-gated field merging, and the coordinator
// loop that drives a run across the library.
package reconcile
