// Package display defines the surfaces the engine delivers images to and a
// headless Frame implementation: a grid of panels held in memory that can
// optionally snapshot every delivered image to PNG files.
//
// Panels are stored row-major. Growing the grid appends panels at the end;
// shrinking it removes panels from the front. Each panel is named
// "<frame>:panel<N>" where N increases monotonically per frame, so slot IDs
// are never reused after a shrink.
package display
