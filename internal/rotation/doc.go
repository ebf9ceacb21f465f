// Package rotation produces the endless stream of candidate photo paths the
// engine assigns to display slots.
//
// RandomWalk descends a directory tree by picking uniformly random children,
// permanently blacklisting dead ends so they are never revisited. Sequential
// lists the tree in sorted depth-first order and starts over when it runs out.
// BlacklistWatcher re-admits blacklisted directories once files appear in them.
//
// Candidate paths are slash-separated and relative to the source base
// directory. Rewrite override files are never produced.
package rotation
