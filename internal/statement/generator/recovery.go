package generator

import (
	"context"
	"time"

	auditdomain "github.com/finledger/backoffice/internal/audit/domain"
	"github.com/finledger/backoffice/internal/clock"
	"github.com/finledger/backoffice/internal/config"
	"github.com/finledger/backoffice/internal/statement/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const interruptedDetail = "generation interrupted"

type SweeperParams struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Repo     domain.Repository
	Policy   *config.StatementPolicyHolder
	Clock    clock.Clock
	AuditSvc auditdomain.Service
}

// Sweeper fails RUNNING statements whose worker stopped heartbeating and
// REQUESTED statements whose queue died with the process, so a crash never
// strands a statement mid-generation forever.
type Sweeper struct {
	db     *gorm.DB
	log    *zap.Logger
	repo   domain.Repository
	policy *config.StatementPolicyHolder
	clock  clock.Clock
	audit  auditdomain.Service
}

func NewSweeper(p SweeperParams) *Sweeper {
	return &Sweeper{
		db:     p.DB,
		log:    p.Log.Named("statement.recovery"),
		repo:   p.Repo,
		policy: p.Policy,
		clock:  p.Clock,
		audit:  p.AuditSvc,
	}
}

func (s *Sweeper) RunForever(ctx context.Context) {
	interval := time.Duration(s.policy.Get().Generation.RecoveryAfterSecond) * time.Second / 3
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.log.Warn("recovery sweep failed", zap.Error(err))
			}
		}
	}
}

// RunOnce marks every interrupted statement FAILED. Marked statements
// become eligible for re-generation.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	now := s.clock.Now()
	cutoff := now.Add(-time.Duration(s.policy.Get().Generation.RecoveryAfterSecond) * time.Second)

	stale, err := s.repo.ListStaleGenerating(ctx, s.db, cutoff)
	if err != nil {
		return err
	}

	for _, statement := range stale {
		marked, err := s.repo.MarkGenerationFailed(ctx, s.db, statement.ID, interruptedDetail, now)
		if err != nil {
			s.log.Error("failed to recover statement",
				zap.String("statement_id", statement.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if !marked {
			continue
		}

		s.log.Warn("recovered interrupted generation",
			zap.String("statement_id", statement.ID.String()),
			zap.String("document_number", statement.DocumentNumber),
		)
		targetID := statement.ID.String()
		actorID := "statement-recovery"
		orgID := statement.OrgID
		if err := s.audit.AuditLog(ctx, &orgID, string(auditdomain.ActorTypeSystem), &actorID, "statement.generation_failed", "statement", &targetID, map[string]any{
			"error": interruptedDetail,
		}); err != nil {
			s.log.Warn("audit write failed", zap.Error(err))
		}
	}
	return nil
}
