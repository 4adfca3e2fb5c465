// Package coordinator moves claimed recordings through the external
// transcription service.
//
// A Pool runs N workers over the shared store. Claims are atomic, so workers
// never collide; heartbeats on both the worker and the row let the watchdog
// and the stale-reclaim pass distinguish slow work from dead workers. Only
// two outcomes are terminal: COMPLETED after fan-out succeeds, and FAILED
// with a recorded cause. Everything else leaves the row claimed for a later
// reclaim.
package coordinator
