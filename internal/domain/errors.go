package domain

import "errors"

// Validation failures. Rejected synchronously, nothing is mutated.
var (
	ErrUnknownPlayer  = errors.New("player not found in roster")
	ErrSamePlayer     = errors.New("a player cannot play against themselves")
	ErrDuplicateName  = errors.New("player name already exists in this game")
	ErrInvalidOutcome = errors.New("invalid match outcome")
	ErrKFactorLocked  = errors.New("k-factor cannot change once matches exist")
	ErrGameNotFound   = errors.New("game not found")
)
