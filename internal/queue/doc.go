// Package queue persists publish jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, and the compare-and-set transitions (pending to running, pending
// to cancelled) that keep the scheduler and the job API from double-processing
// a job. Status transitions are monotone: a job never returns to pending once
// it has left it.
//
// Treat this package as the single source of truth for job semantics; when
// you add new statuses or fields, update schema.sql and bump schemaVersion.
package queue
