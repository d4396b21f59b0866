// Package preflight provides readiness checks for the paths, credentials,
// and remote endpoint that airdate depends on.
//
// The CLI "airdate status" command renders the individual results so an
// operator can see at a glance why an upload would fail before any job is
// due. Checks never mutate state and each one degrades to a failed Result
// with a human readable detail.
package preflight
