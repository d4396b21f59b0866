// Package api defines wire-format types and the job operations behind the
// HTTP surface. It translates queue models into transport-friendly DTOs so
// consumers never couple to internal types.
//
// All job operations are owner-scoped: a caller only sees and manipulates
// jobs carrying its owner id, and jobs owned by someone else read as absent.
// DTOs use camelCase JSON tags and RFC3339 timestamps with milliseconds.
package api
