package server

import (
	"errors"
	"net/http"
	"testing"

	auditdomain "github.com/finledger/backoffice/internal/audit/domain"
	"github.com/finledger/backoffice/internal/authorization"
	customerdomain "github.com/finledger/backoffice/internal/customer/domain"
	ledgerdomain "github.com/finledger/backoffice/internal/ledger/domain"
	statementdomain "github.com/finledger/backoffice/internal/statement/domain"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{name: "nil", err: nil, wantStatus: http.StatusInternalServerError, wantType: "internal_error"},
		{name: "invalid request", err: ErrInvalidRequest, wantStatus: http.StatusBadRequest, wantType: "validation_error"},
		{name: "invalid period", err: statementdomain.ErrInvalidPeriod, wantStatus: http.StatusBadRequest, wantType: "validation_error"},
		{name: "invalid status filter", err: statementdomain.ErrInvalidStatus, wantStatus: http.StatusBadRequest, wantType: "validation_error"},
		{name: "invalid customer email", err: customerdomain.ErrInvalidEmail, wantStatus: http.StatusBadRequest, wantType: "validation_error"},
		{name: "invalid audit range", err: auditdomain.ErrInvalidTimeRange, wantStatus: http.StatusBadRequest, wantType: "validation_error"},
		{name: "unauthorized", err: ErrUnauthorized, wantStatus: http.StatusUnauthorized, wantType: "unauthorized"},
		{name: "forbidden", err: ErrForbidden, wantStatus: http.StatusForbidden, wantType: "forbidden"},
		{name: "authorization denied", err: authorization.ErrForbidden, wantStatus: http.StatusForbidden, wantType: "forbidden"},
		{name: "scope denied", err: statementdomain.ErrAccessDenied, wantStatus: http.StatusForbidden, wantType: "forbidden"},
		{name: "transition rejected", err: statementdomain.ErrTransitionRejected, wantStatus: http.StatusConflict, wantType: "conflict"},
		{name: "bulk in progress", err: statementdomain.ErrBulkInProgress, wantStatus: http.StatusConflict, wantType: "conflict"},
		{name: "snapshot not ready", err: statementdomain.ErrSnapshotNotReady, wantStatus: http.StatusConflict, wantType: "conflict"},
		{name: "statement missing", err: statementdomain.ErrNotFound, wantStatus: http.StatusNotFound, wantType: "not_found"},
		{name: "customer missing", err: statementdomain.ErrCustomerNotFound, wantStatus: http.StatusNotFound, wantType: "not_found"},
		{name: "gorm missing", err: gorm.ErrRecordNotFound, wantStatus: http.StatusNotFound, wantType: "not_found"},
		{name: "ledger unavailable", err: ledgerdomain.ErrUnavailable, wantStatus: http.StatusServiceUnavailable, wantType: "service_unavailable"},
		{name: "unknown", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantType: "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, payload := mapError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantType, payload.Type)
		})
	}
}

func TestMapErrorTransitionDetail(t *testing.T) {
	err := statementdomain.NewTransitionError(statementdomain.StatusPaid, statementdomain.StatusViewed, "viewed requires a sent statement")

	status, payload := mapError(err)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", payload.Type)
	assert.Contains(t, payload.Message, "PAID -> VIEWED")
	assert.Contains(t, payload.Message, "viewed requires a sent statement")
}

func TestMapErrorValidationPayload(t *testing.T) {
	err := newValidationError("period_start", "invalid_period_start", "invalid period_start")

	status, payload := mapError(err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Len(t, payload.Errors, 1)
	assert.Equal(t, "period_start", payload.Errors[0].Field)
	assert.Equal(t, "invalid_period_start", payload.Errors[0].Code)
}

func TestClassifyErrorForLog(t *testing.T) {
	class, code := classifyErrorForLog(statementdomain.ErrNotFound)
	assert.Equal(t, "client_error", class)
	assert.Equal(t, "not_found", code)

	class, code = classifyErrorForLog(errors.New("boom"))
	assert.Equal(t, "server_error", class)
	assert.Equal(t, "internal_error", code)

	class, _ = classifyErrorForLog(ledgerdomain.ErrUnavailable)
	assert.Equal(t, "server_error", class)
}
