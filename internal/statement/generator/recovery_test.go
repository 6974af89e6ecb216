package generator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/finledger/backoffice/internal/clock"
	"github.com/finledger/backoffice/internal/statement/domain"
	statementrepository "github.com/finledger/backoffice/internal/statement/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func insertRunningStatement(t *testing.T, db *gorm.DB, repo domain.Repository, node *snowflake.Node, orgID snowflake.ID, heartbeat *time.Time) *domain.Statement {
	now := time.Date(2026, 3, 31, 9, 0, 0, 0, time.UTC)
	statement := &domain.Statement{
		ID:              node.Generate(),
		OrgID:           orgID,
		CustomerID:      node.Generate(),
		DocumentNumber:  fmt.Sprintf("STMT-%06d", statementCounter(t)),
		RecipientName:   "Acme Industrial",
		RecipientEmail:  "billing@acme.test",
		PeriodStart:     now.AddDate(0, -1, 0),
		PeriodEnd:       now,
		Status:          domain.StatusPending,
		GenerationState: domain.GenerationRequested,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, repo.Insert(context.Background(), db, statement))
	require.NoError(t, db.Exec(
		`UPDATE statements SET generation_state = ?, generation_heartbeat_at = ? WHERE id = ?`,
		domain.GenerationRunning, heartbeat, statement.ID,
	).Error)
	return statement
}

func TestSweeperRecoversStaleRunning(t *testing.T) {
	db := setupGeneratorDB(t)
	repo := statementrepository.Provide()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	now := time.Date(2026, 3, 31, 9, 0, 0, 0, time.UTC)
	clk := clock.NewFakeClock(now)
	audit := &auditRecorder{}
	sweeper := NewSweeper(SweeperParams{
		DB:       db,
		Log:      zap.NewNop(),
		Repo:     repo,
		Policy:   testPolicy(), // recovery after 2s
		Clock:    clk,
		AuditSvc: audit,
	})

	orgID := node.Generate()
	staleBeat := now.Add(-time.Minute)
	freshBeat := now.Add(-time.Second)

	stale := insertRunningStatement(t, db, repo, node, orgID, &staleBeat)
	neverBeat := insertRunningStatement(t, db, repo, node, orgID, nil)
	fresh := insertRunningStatement(t, db, repo, node, orgID, &freshBeat)

	require.NoError(t, sweeper.RunOnce(context.Background()))

	recovered, err := repo.FindByID(context.Background(), db, orgID, stale.ID)
	require.NoError(t, err)
	require.NotNil(t, recovered)
	assert.Equal(t, domain.GenerationFailed, recovered.GenerationState)
	assert.Equal(t, domain.StatusFailed, recovered.Status)
	assert.Equal(t, "generation interrupted", recovered.ErrorDetail)

	orphaned, err := repo.FindByID(context.Background(), db, orgID, neverBeat.ID)
	require.NoError(t, err)
	require.NotNil(t, orphaned)
	assert.Equal(t, domain.GenerationFailed, orphaned.GenerationState)

	alive, err := repo.FindByID(context.Background(), db, orgID, fresh.ID)
	require.NoError(t, err)
	require.NotNil(t, alive)
	// A worker that heartbeated within the window keeps its claim.
	assert.Equal(t, domain.GenerationRunning, alive.GenerationState)
	assert.Equal(t, domain.StatusPending, alive.Status)

	assert.Contains(t, audit.recorded(), "statement.generation_failed")
}

func insertRequestedStatement(t *testing.T, db *gorm.DB, repo domain.Repository, node *snowflake.Node, orgID snowflake.ID, at time.Time) *domain.Statement {
	statement := &domain.Statement{
		ID:              node.Generate(),
		OrgID:           orgID,
		CustomerID:      node.Generate(),
		DocumentNumber:  fmt.Sprintf("STMT-%06d", statementCounter(t)),
		RecipientName:   "Acme Industrial",
		RecipientEmail:  "billing@acme.test",
		PeriodStart:     at.AddDate(0, -1, 0),
		PeriodEnd:       at,
		Status:          domain.StatusPending,
		GenerationState: domain.GenerationRequested,
		CreatedAt:       at,
		UpdatedAt:       at,
	}
	require.NoError(t, repo.Insert(context.Background(), db, statement))
	return statement
}

func TestSweeperFailsOrphanedRequested(t *testing.T) {
	db := setupGeneratorDB(t)
	repo := statementrepository.Provide()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	now := time.Date(2026, 3, 31, 9, 0, 0, 0, time.UTC)
	audit := &auditRecorder{}
	sweeper := NewSweeper(SweeperParams{
		DB:       db,
		Log:      zap.NewNop(),
		Repo:     repo,
		Policy:   testPolicy(), // recovery after 2s
		Clock:    clock.NewFakeClock(now),
		AuditSvc: audit,
	})

	orgID := node.Generate()
	// Queued before a restart: the in-memory queue is gone, nothing will ever
	// claim this row.
	orphan := insertRequestedStatement(t, db, repo, node, orgID, now.Add(-24*time.Hour))
	// Just enqueued: still inside the recovery window.
	queued := insertRequestedStatement(t, db, repo, node, orgID, now)

	require.NoError(t, sweeper.RunOnce(context.Background()))

	failed, err := repo.FindByID(context.Background(), db, orgID, orphan.ID)
	require.NoError(t, err)
	require.NotNil(t, failed)
	assert.Equal(t, domain.GenerationFailed, failed.GenerationState)
	assert.Equal(t, domain.StatusFailed, failed.Status)
	assert.Equal(t, "generation interrupted", failed.ErrorDetail)

	waiting, err := repo.FindByID(context.Background(), db, orgID, queued.ID)
	require.NoError(t, err)
	require.NotNil(t, waiting)
	assert.Equal(t, domain.GenerationRequested, waiting.GenerationState)
	assert.Equal(t, domain.StatusPending, waiting.Status)

	assert.Contains(t, audit.recorded(), "statement.generation_failed")
}

func TestSweeperNoStaleStatements(t *testing.T) {
	db := setupGeneratorDB(t)
	repo := statementrepository.Provide()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	now := time.Date(2026, 3, 31, 9, 0, 0, 0, time.UTC)
	sweeper := NewSweeper(SweeperParams{
		DB:       db,
		Log:      zap.NewNop(),
		Repo:     repo,
		Policy:   testPolicy(),
		Clock:    clock.NewFakeClock(now),
		AuditSvc: &auditRecorder{},
	})

	orgID := node.Generate()
	freshBeat := now.Add(-time.Second)
	insertRunningStatement(t, db, repo, node, orgID, &freshBeat)

	require.NoError(t, sweeper.RunOnce(context.Background()))
	require.NoError(t, sweeper.RunOnce(context.Background()))
}
