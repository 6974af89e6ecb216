package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"testing"

	"github.com/finledger/backoffice/internal/ledger/domain"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassifyReadError(t *testing.T) {
	permanent := errors.New("syntax error at or near SELECT")

	tests := []struct {
		name          string
		err           error
		wantTransient bool
	}{
		{name: "bad connection", err: driver.ErrBadConn, wantTransient: true},
		{name: "connection done", err: sql.ErrConnDone, wantTransient: true},
		{name: "deadline exceeded", err: context.DeadlineExceeded, wantTransient: true},
		{
			name:          "network error",
			err:           &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connect: connection timed out")},
			wantTransient: true,
		},
		{name: "refused as text", err: errors.New("dial tcp 10.0.0.5:5432: connect: connection refused"), wantTransient: true},
		{name: "server starting up", err: errors.New("FATAL: the database system is starting up (SQLSTATE 57P03)"), wantTransient: true},
		{name: "query bug stays permanent", err: permanent, wantTransient: false},
		{name: "missing row stays permanent", err: gorm.ErrRecordNotFound, wantTransient: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := classifyReadError(tt.err)
			if tt.wantTransient {
				assert.ErrorIs(t, classified, domain.ErrUnavailable)
			} else {
				assert.NotErrorIs(t, classified, domain.ErrUnavailable)
				assert.Equal(t, tt.err, classified)
			}
		})
	}

	assert.NoError(t, classifyReadError(nil))
}
