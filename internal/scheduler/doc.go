// Package scheduler drives the publish queue. A single polling loop lists
// jobs whose run_at has passed, claims each one through a compare-and-swap
// status transition, and runs it to a terminal state: resolve the media
// file, fetch an upload credential, push the file, persist the outcome.
//
// Claims make concurrent execution safe; an immediate run requested over the
// API and the background loop can target the same job and exactly one wins.
// Jobs interrupted mid-upload stay in the running state and are reported at
// the next startup rather than re-queued.
package scheduler
