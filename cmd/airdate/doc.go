// Package main hosts the airdate CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into HTTP
// calls against the daemon's job API, plus local operations for configuration
// scaffolding, credential import, and preflight checks. It centralizes
// configuration resolution and owner scoping so subcommands can focus on
// user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
