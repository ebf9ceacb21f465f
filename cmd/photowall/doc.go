// Command photowall runs the photo wall daemon and controls it over the local
// IPC socket.
//
// The hidden `daemon` subcommand hosts the long-running process; `start` and
// `stop` manage it in the background while the remaining commands talk to it
// through the ipc client. `walk`, `history` and `config` also work offline.
package main
