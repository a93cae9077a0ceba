// Package repository implements the data-access layer on top of the
// database wrapper. This file defines error types that are reused across
// multiple repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios: ErrNotFound
// maps to 404, ErrForbidden to 403 and ErrConflict to 409.
package repository

import "errors"

// ErrNotFound is returned when a requested row does not exist. Handlers
// should translate this into an HTTP 404 response, distinct from a
// permission error.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they may not touch (e.g. a role change on a peer or superior).
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed because of
// conflicting state, such as deleting an already-deleted comment.
var ErrConflict = errors.New("conflict")
