// Package faults defines the error taxonomy shared by the rotation sources and
// the image pipeline.
//
// Sentinel markers classify failures so callers can branch with errors.Is
// without parsing messages. Wrap attaches stage and operation context while
// keeping both the marker and the underlying cause reachable.
package faults
