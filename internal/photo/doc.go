// Package photo holds the image value types shared by the pipeline, the
// engine, and display surfaces, plus the concrete decode/orient/resize
// processor and the rewrite-aware path resolver.
//
// Image values are immutable once constructed: every stage produces a fresh
// Image rather than mutating its input.
package photo
