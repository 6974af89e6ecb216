package authorization

import (
	"context"
	"errors"
)

var (
	ErrInvalidActor        = errors.New("invalid_actor")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidObject       = errors.New("invalid_object")
	ErrInvalidAction       = errors.New("invalid_action")
	ErrForbidden           = errors.New("forbidden")
)

// Service answers "may this actor perform this action on this object in this
// org". Callers pass the subject as "user:<id>" or "system".
type Service interface {
	Authorize(ctx context.Context, actor string, role string, orgID string, object string, action string) error
}
