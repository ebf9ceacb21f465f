// Package pipeline turns a slot's assigned path into a displayed image.
//
// A run executes the resolve, load, orient and resize stages in order and then
// delivers the result to its slot. After each stage the run checks whether its
// output is still wanted: if the slot was reassigned, or already shows this
// path at the correct size, the run stops with a Stale outcome and never
// touches the slot. Stage failures are wrapped with the faults stage markers;
// panics inside a stage are recovered into ErrStage errors.
package pipeline
