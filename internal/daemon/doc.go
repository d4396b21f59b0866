// Package daemon coordinates the long-running airdate process.
//
// It wires configuration, queue storage, the credential manager, and the
// scheduler into a single lifecycle with flock-based locking to prevent
// multiple instances, and serves the HTTP job API on the configured bind
// address. Keep orchestration logic here: publishing steps live in their
// respective packages while the daemon focuses on startup, shutdown, and
// transport.
package daemon
