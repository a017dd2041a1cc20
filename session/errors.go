// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import "errors"

// All store errors are recoverable: the caller surfaces them as a
// rejected operation and no partial state is ever written. Conflict
// errors (ErrFloorOccupied, ErrAlreadyResolved) are routine outcomes
// of concurrent callers, not exceptional conditions.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session is closed")
	ErrUnknownMember   = errors.New("unknown member")
	ErrNameTaken       = errors.New("name already taken")

	ErrInvalidPhase      = errors.New("operation not allowed in current phase")
	ErrIllegalTransition = errors.New("illegal phase transition")
	ErrUnknownCandidate  = errors.New("unknown candidate")
	ErrNotCommitted      = errors.New("member has not committed to debate")
	ErrSlotAlreadyFinal  = errors.New("slot voting is frozen: final slot already decided")
	ErrAlreadyResolved   = errors.New("final slot already resolved")
	ErrResolutionFailed  = errors.New("slot resolution failed")

	ErrFloorOccupied     = errors.New("floor is occupied")
	ErrNotCurrentSpeaker = errors.New("member does not hold the floor")
	ErrAlreadyQueued     = errors.New("member already in speaker queue")
	ErrAlreadySpeaking   = errors.New("member already holds the floor")

	ErrNoCandidates = errors.New("session requires at least one candidate")
)
