// Package services defines the shared error taxonomy for external
// collaborators (the upload endpoint, the token endpoint, the filesystem).
//
// Classification drives retry policy: ErrTransient and ErrTimeout may be
// retried within an attempt, ErrAuthExpired forces a credential refresh and
// a transfer restart, and validation/configuration/not-found errors fail the
// job immediately.
package services
