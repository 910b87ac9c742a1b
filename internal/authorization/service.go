package authorization

import (
	"context"
	"errors"
)

type Service interface {
	// Authorize reports ErrForbidden when role may not perform action on
	// object.
	Authorize(ctx context.Context, role string, object string, action string) error
}

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)
