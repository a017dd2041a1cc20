// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package session implements the lifecycle engine behind the API: the
// phase machine, the candidate ballot, commitment tracking, time-slot
// voting and resolution, the speaking floor, and the message log.
//
// # Store
//
// All state lives in SQL. Every mutation runs inside a single
// transaction, so concurrent callers observe each operation as atomic.
// The two operations where a race would be user-visible, granting the
// floor and finalizing the time slot, use guarded UPDATEs and check
// RowsAffected: under contention exactly one caller wins and the rest
// receive ErrFloorOccupied or ErrAlreadyResolved.
//
// # Phases
//
// A session is always in exactly one of three phases: voting, viewing,
// discussion. Legal transitions are voting->viewing, viewing->discussion,
// and the emergency revert discussion->viewing. Entering viewing from
// voting records the ballot winner; entering discussion requires a
// winner and resets the speaking floor.
//
// # Errors
//
// Domain failures are sentinel errors (ErrInvalidPhase, ErrFloorOccupied,
// and friends) that handlers map to HTTP status codes with errors.Is.
// Conflict sentinels are routine outcomes under concurrency, not faults.
package session
