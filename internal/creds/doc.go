// Package creds manages the shared OAuth2 credential used for uploads.
//
// The Manager loads the credential from a Google-style token file, refreshes
// the access token lazily before it expires, and persists rotated refresh
// tokens atomically so a crash never loses the grant. Refresh is
// single-flight: concurrent callers block on one network exchange and all
// observe the replacement token.
package creds
