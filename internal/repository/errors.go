// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting driver-specific errors. For example, ErrCapacityExceeded
// signals that a schedule slot cannot accommodate the requested party
// size, while ErrDuplicatePending signals that a reservation already
// has an unresolved change request.
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update or delete cannot proceed
// because of conflicting state, such as deleting a schedule slot that
// still has active reservations. Handlers should translate this into
// an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrValidation is returned when the request is well-formed but the
// operation is not applicable to the row's current state, such as
// rejecting a cancellation request that was never made. Handlers
// should translate this into an HTTP 400 response.
var ErrValidation = errors.New("invalid request")

// ErrCapacityExceeded is returned when booking or moving a reservation
// would push a schedule slot past its seat capacity.
var ErrCapacityExceeded = errors.New("schedule capacity exceeded")

// ErrDuplicatePending is returned when a reservation already has a
// pending change request. At most one may be open at a time.
var ErrDuplicatePending = errors.New("a pending change request already exists")

// ErrAlreadyProcessed is returned when approving or rejecting a change
// request that has already been settled.
var ErrAlreadyProcessed = errors.New("change request already processed")

// ErrEmailExists is returned by user creation when the email address
// is already registered.
var ErrEmailExists = errors.New("email already exists")
