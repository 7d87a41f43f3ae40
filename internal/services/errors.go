package services

import "errors"

// Expected, user-facing outcomes. Handlers translate these into bot replies
// or HTTP statuses; anything else is a collaborator failure.
var (
	ErrMatchNotFound       = errors.New("match not found")
	ErrPlayerNotRegistered = errors.New("player not registered")
	ErrNotAuthorized       = errors.New("only the creator can do that")
	ErrAlreadyCancelled    = errors.New("match already cancelled")
	ErrAlreadyJoined       = errors.New("player already in the match")
	ErrNotInRoster         = errors.New("player not in the match")
	ErrCreatorCannotLeave  = errors.New("creator cannot leave, only cancel")
	ErrLevelIncompatible   = errors.New("player level incompatible with match")
	ErrInvalidSchedule     = errors.New("end time must be after start time")
	ErrInvalidPrice        = errors.New("price must be a positive number")
	ErrInvalidVerdict      = errors.New("unknown evaluation verdict")
)
