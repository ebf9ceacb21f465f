// Package engine keeps every managed display slot supplied with an image.
//
// The Engine owns the slot demand map. A sweep runs on a fixed cadence and, for
// each slot that is not settled, launches at most one pipeline run on a
// bounded worker pool; the sweep itself never blocks on a run. Slots whose
// runs keep failing get the broken-image placeholder instead of another run.
//
// The Advancer is an independent loop that periodically hands the
// least-recently delivered, non-sticky, settled slot a new path once its grace
// period has elapsed.
package engine
