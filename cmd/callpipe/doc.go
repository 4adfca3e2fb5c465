// Command callpipe is the call recording transcription pipeline CLI.
//
// `callpipe run` starts the long-lived daemon; the remaining subcommands are
// one-shot operational tools against the same configuration and store.
package main
