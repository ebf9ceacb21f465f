// Package logs reads the daemon's JSON run log for the CLI.
//
// It returns the last N records with bounded memory, follows the file as the
// daemon appends to it, and filters records by level or slot so a single
// panel's history can be isolated from a busy wall.
package logs
