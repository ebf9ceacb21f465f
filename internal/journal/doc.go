// Package journal keeps a SQLite history of slot deliveries, placeholders and
// failures for the history command. Writes are fire-and-forget: Record never
// blocks the caller and never reports errors back. The journal is history
// only; nothing in the engine reads it back on startup.
package journal
