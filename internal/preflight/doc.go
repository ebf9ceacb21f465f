// Package preflight provides readiness checks for the filesystem paths and
// endpoints photowall depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll before starting the engine and refuses to start
//     when a required check fails.
//   - The CLI "photowall status" command renders the same results, plus the
//     metrics endpoint probe, as part of its health table.
package preflight
