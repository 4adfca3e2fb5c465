// Package watchdog supervises the worker pool from outside the worker loop.
//
// Each pass compares backlog depth against worker liveness reported through
// the store's heartbeat registry: pending work with no workers starts the
// pool, a stalled heartbeat restarts it at most once per stall, and a
// drained queue stops it. Passes exclude each other with a file lock, so the
// supervisor can be driven by an internal ticker and an external scheduler
// at the same time.
package watchdog
