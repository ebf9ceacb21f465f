// Package daemon coordinates the long-running photowall process.
//
// It wires configuration, the rotation source and its blacklist watcher, the
// image pipeline, the demand engine and advancer, the headless frames, the
// delivery journal and the metrics listener into a single lifecycle with
// flock-based locking to prevent multiple instances. The IPC layer calls the
// control helpers exposed here (pause, resume, next, sticky, grid, history).
//
// Keep orchestration logic here: slot state and scheduling live in the engine
// package while the daemon focuses on startup, shutdown, and high level
// coordination.
package daemon
