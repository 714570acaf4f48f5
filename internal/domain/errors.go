package domain

import "errors"

// Domain errors
var (
	ErrMatchNotFound     = errors.New("match not found")
	ErrMatchStarted      = errors.New("match already started")
	ErrMatchClosed       = errors.New("match is closed")
	ErrMatchNotFinished  = errors.New("match has not finished")
	ErrInvalidPhase      = errors.New("invalid action for current phase")
	ErrInvalidTransition = errors.New("invalid phase transition")
	ErrUnknownMode       = errors.New("unknown game mode")
	ErrInvalidRhymeSet   = errors.New("rhyme set must contain exactly four non-empty words")
	ErrNoRhymeGroups     = errors.New("no rhyme groups available")
)
