package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidPeriod       = errors.New("invalid_period")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrCustomerNotFound    = errors.New("customer_not_found")
	ErrNotFound            = errors.New("statement_not_found")
	ErrAccessDenied        = errors.New("access_denied")
	ErrSnapshotNotReady    = errors.New("snapshot_not_ready")
	ErrBulkInProgress      = errors.New("bulk_generation_in_progress")
	ErrTransitionRejected  = errors.New("transition_rejected")
)

// TransitionError reports a lifecycle transition rejected by the guarded
// update, naming the rule that blocked it.
type TransitionError struct {
	From StatementStatus
	To   StatementStatus
	Rule string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition_rejected: %s -> %s (%s)", e.From, e.To, e.Rule)
}

func (e *TransitionError) Unwrap() error { return ErrTransitionRejected }

func NewTransitionError(from, to StatementStatus, rule string) error {
	return &TransitionError{From: from, To: to, Rule: rule}
}
