package services

import "errors"

// ErrNotFound: the referenced entity does not exist or is not owned by the caller.
// Handlers map this to 404; everything else surfaces as a 500.
var ErrNotFound = errors.New("not found")

// ErrInvalidState: an action would violate an engine invariant (double award,
// negative XP, freeze without charges). Handlers map this to 409.
var ErrInvalidState = errors.New("invalid state")

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsInvalidState(err error) bool { return errors.Is(err, ErrInvalidState) }
