package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/finledger/backoffice/internal/audit/domain"
	"github.com/finledger/backoffice/internal/authcontext"
	"github.com/finledger/backoffice/internal/clock"
	customerdomain "github.com/finledger/backoffice/internal/customer/domain"
	"github.com/finledger/backoffice/internal/distlock"
	ledgerdomain "github.com/finledger/backoffice/internal/ledger/domain"
	obsmetrics "github.com/finledger/backoffice/internal/observability/metrics"
	"github.com/finledger/backoffice/internal/opsmetrics"
	"github.com/finledger/backoffice/internal/orgcontext"
	"github.com/finledger/backoffice/internal/sequence"
	"github.com/finledger/backoffice/internal/statement/delivery"
	"github.com/finledger/backoffice/internal/statement/domain"
	"github.com/finledger/backoffice/internal/statement/generator"
	"github.com/finledger/backoffice/pkg/db"
	"github.com/finledger/backoffice/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	dateLayout          = "2006-01-02"
	maxAllocateAttempts = 3
	bulkLockTTL         = 5 * time.Minute
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	CustomerRepo customerdomain.Repository
	Allocator    *sequence.Allocator
	Orchestrator *generator.Orchestrator
	Deliverer    *delivery.Deliverer
	AuditSvc     auditdomain.Service
	Locker       *distlock.Locker     `optional:"true"`
	Metrics      *obsmetrics.Metrics  `optional:"true"`
	Ops          *opsmetrics.Recorder `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	customerRepo customerdomain.Repository
	allocator    *sequence.Allocator
	orchestrator *generator.Orchestrator
	deliverer    *delivery.Deliverer
	audit        auditdomain.Service
	locker       *distlock.Locker
	metrics      *obsmetrics.Metrics
	ops          *opsmetrics.Recorder
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("statement.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,
		allocator:    p.Allocator,
		orchestrator: p.Orchestrator,
		deliverer:    p.Deliverer,
		audit:        p.AuditSvc,
		locker:       p.Locker,
		metrics:      p.Metrics,
		ops:          p.Ops,
	}
}

func (s *Service) Generate(ctx context.Context, req domain.GenerateStatementRequest) (domain.GenerateStatementResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.GenerateStatementResponse{}, domain.ErrInvalidOrganization
	}

	customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
	if err != nil || customerID == 0 {
		return domain.GenerateStatementResponse{}, domain.ErrInvalidID
	}

	period, err := parsePeriod(req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return domain.GenerateStatementResponse{}, err
	}

	customer, err := s.customerRepo.FindByID(ctx, s.db, orgID, customerID)
	if err != nil {
		return domain.GenerateStatementResponse{}, err
	}
	if customer == nil {
		return domain.GenerateStatementResponse{}, domain.ErrCustomerNotFound
	}

	statement, err := s.createPendingStatement(ctx, orgID, customer, period, req.Notes)
	if err != nil {
		return domain.GenerateStatementResponse{}, err
	}

	if _, err := s.orchestrator.Enqueue(ctx, generator.Task{
		OrgID:              orgID,
		CustomerID:         customerID,
		StatementID:        statement.ID,
		Period:             period,
		AsOf:               s.clock.Now(),
		DeliverImmediately: req.DeliverImmediately,
	}); err != nil {
		return domain.GenerateStatementResponse{}, err
	}

	return domain.GenerateStatementResponse{
		StatementID:    statement.ID.String(),
		DocumentNumber: statement.DocumentNumber,
	}, nil
}

func (s *Service) GenerateBulk(ctx context.Context, req domain.BulkGenerateRequest) (domain.BulkGenerateResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.BulkGenerateResponse{}, domain.ErrInvalidOrganization
	}

	period, err := parsePeriod(req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return domain.BulkGenerateResponse{}, err
	}

	if s.locker != nil {
		key := "statements:bulk:" + orgID.String()
		token, acquired, err := s.locker.TryLock(ctx, key, bulkLockTTL)
		if err != nil {
			return domain.BulkGenerateResponse{}, err
		}
		if !acquired {
			return domain.BulkGenerateResponse{}, domain.ErrBulkInProgress
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
				s.log.Warn("bulk lock release failed", zap.Error(err))
			}
		}()
	}

	customerIDs, err := s.customerRepo.ListIDs(ctx, s.db, orgID)
	if err != nil {
		return domain.BulkGenerateResponse{}, err
	}

	asOf := s.clock.Now()
	resp := domain.BulkGenerateResponse{}
	// Numbers are allocated sequentially here so the numbering order is
	// deterministic; only the snapshot builds run concurrently.
	for _, customerID := range customerIDs {
		customer, err := s.customerRepo.FindByID(ctx, s.db, orgID, customerID)
		if err != nil || customer == nil {
			s.log.Warn("bulk generation skipped customer",
				zap.String("customer_id", customerID.String()),
				zap.Error(err),
			)
			continue
		}

		statement, err := s.createPendingStatement(ctx, orgID, customer, period, req.Notes)
		if err != nil {
			s.log.Warn("bulk generation failed to create statement",
				zap.String("customer_id", customerID.String()),
				zap.Error(err),
			)
			continue
		}

		if _, err := s.orchestrator.Enqueue(ctx, generator.Task{
			OrgID:       orgID,
			CustomerID:  customerID,
			StatementID: statement.ID,
			Period:      period,
			AsOf:        asOf,
		}); err != nil {
			s.log.Warn("bulk generation failed to queue statement",
				zap.String("statement_id", statement.ID.String()),
				zap.Error(err),
			)
			continue
		}

		resp.Requested++
		resp.Statements = append(resp.Statements, domain.GenerateStatementResponse{
			StatementID:    statement.ID.String(),
			DocumentNumber: statement.DocumentNumber,
		})
	}

	if s.metrics != nil {
		s.metrics.RecordBulkRun(ctx, "accepted")
	}

	return resp, nil
}

func (s *Service) createPendingStatement(ctx context.Context, orgID snowflake.ID, customer *customerdomain.Customer, period ledgerdomain.Period, notes string) (*domain.Statement, error) {
	var statement *domain.Statement

	// The unique index on document_number backstops the allocator: a
	// duplicate insert rolls back the whole transaction, counter included,
	// and the allocation is retried.
	for attempt := 0; attempt < maxAllocateAttempts; attempt++ {
		now := s.clock.Now()
		candidate := &domain.Statement{
			ID:               s.genID.Generate(),
			OrgID:            orgID,
			CustomerID:       customer.ID,
			RecipientName:    customer.Name,
			RecipientEmail:   customer.Email,
			RecipientPhone:   customer.Phone,
			RecipientAddress: customer.Address,
			PeriodStart:      period.Start,
			PeriodEnd:        period.End,
			Status:           domain.StatusPending,
			GenerationState:  domain.GenerationRequested,
			Notes:            strings.TrimSpace(notes),
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			number, err := s.allocator.Next(ctx, tx, orgID)
			if err != nil {
				return err
			}
			candidate.DocumentNumber = number
			return s.repo.Insert(ctx, tx, candidate)
		})
		if err == nil {
			statement = candidate
			break
		}
		if !db.IsDuplicateKeyErr(err) {
			return nil, err
		}

		s.log.Warn("document number collision, retrying allocation",
			zap.String("document_number", candidate.DocumentNumber),
			zap.Int("attempt", attempt+1),
		)
		if s.metrics != nil {
			s.metrics.RecordSequenceRetry(ctx)
		}
	}
	if statement == nil {
		return nil, sequence.ErrAllocationFailed
	}
	return statement, nil
}

func (s *Service) List(ctx context.Context, req domain.ListStatementRequest) (domain.ListStatementResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListStatementResponse{}, domain.ErrInvalidOrganization
	}
	principal, ok := authcontext.PrincipalFromContext(ctx)
	if !ok {
		return domain.ListStatementResponse{}, domain.ErrAccessDenied
	}

	filter, err := s.resolveScope(principal, orgID, req)
	if err != nil {
		return domain.ListStatementResponse{}, err
	}
	if filter == nil {
		// Requested status is outside the caller's visible set.
		return domain.ListStatementResponse{}, nil
	}

	if req.CustomerID != "" {
		customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
		if err != nil || customerID == 0 {
			return domain.ListStatementResponse{}, domain.ErrInvalidID
		}
		filter.CustomerID = customerID
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, *filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListStatementResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, int(pageSize), func(statement *domain.Statement) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        statement.ID.String(),
			CreatedAt: statement.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})

	statements := make([]domain.Statement, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		statements = append(statements, *item)
	}

	return domain.ListStatementResponse{
		PageInfo:   pageInfo,
		Statements: statements,
	}, nil
}

// resolveScope maps a principal and requested scope to a repository filter.
// A nil filter with nil error means "valid request, provably empty result".
func (s *Service) resolveScope(principal authcontext.Principal, orgID snowflake.ID, req domain.ListStatementRequest) (*domain.ListFilter, error) {
	scope := domain.Scope(strings.ToLower(strings.TrimSpace(req.Scope)))
	if scope == "" {
		if principal.IsCustomer() {
			scope = domain.ScopeReceived
		} else {
			scope = domain.ScopeIssued
		}
	}

	var requested []domain.StatementStatus
	if status := strings.TrimSpace(req.Status); status != "" {
		parsed, err := parseStatus(status)
		if err != nil {
			return nil, err
		}
		requested = []domain.StatementStatus{parsed}
	}

	switch scope {
	case domain.ScopeIssued:
		if principal.IsCustomer() {
			return nil, domain.ErrAccessDenied
		}
		return &domain.ListFilter{OrgID: orgID, Statuses: requested}, nil
	case domain.ScopeReceived:
		visible := []domain.StatementStatus{domain.StatusSent, domain.StatusViewed, domain.StatusPaid}
		if principal.IsAdmin() {
			// Admins see the received side without the visibility cut.
			return &domain.ListFilter{OrgID: orgID, RecipientEmail: principal.Email, Statuses: requested}, nil
		}
		statuses := visible
		if len(requested) > 0 {
			statuses = intersectStatuses(requested, visible)
			if len(statuses) == 0 {
				return nil, nil
			}
		}
		return &domain.ListFilter{OrgID: orgID, RecipientEmail: principal.Email, Statuses: statuses}, nil
	default:
		return nil, domain.ErrAccessDenied
	}
}

func (s *Service) GetByID(ctx context.Context, req domain.GetStatementRequest) (domain.Statement, error) {
	statement, err := s.load(ctx, req)
	if err != nil {
		return domain.Statement{}, err
	}
	return *statement, nil
}

func (s *Service) GetSnapshot(ctx context.Context, req domain.GetStatementRequest) (domain.Snapshot, error) {
	statement, err := s.load(ctx, req)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if statement.GenerationState != domain.GenerationSucceeded {
		return domain.Snapshot{}, domain.ErrSnapshotNotReady
	}

	items, err := s.repo.ListLineItems(ctx, s.db, statement.OrgID, statement.ID)
	if err != nil {
		return domain.Snapshot{}, err
	}

	return domain.Snapshot{
		Buckets:        statement.Buckets(),
		TotalInterest:  statement.TotalInterest,
		TotalAmountDue: statement.TotalAmountDue,
		LineItems:      items,
	}, nil
}

func (s *Service) RenderDocument(ctx context.Context, req domain.GetStatementRequest) ([]byte, error) {
	statement, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListLineItems(ctx, s.db, statement.OrgID, statement.ID)
	if err != nil {
		return nil, err
	}
	return s.deliverer.Render(ctx, statement, items)
}

func (s *Service) Send(ctx context.Context, req domain.GetStatementRequest) (domain.Statement, error) {
	principal, ok := authcontext.PrincipalFromContext(ctx)
	if !ok || principal.IsCustomer() {
		return domain.Statement{}, domain.ErrAccessDenied
	}

	statement, err := s.load(ctx, req)
	if err != nil {
		return domain.Statement{}, err
	}

	items, err := s.repo.ListLineItems(ctx, s.db, statement.OrgID, statement.ID)
	if err != nil {
		return domain.Statement{}, err
	}

	sent, err := s.deliverer.Deliver(ctx, statement, items)
	if err != nil {
		return domain.Statement{}, err
	}

	s.recordTransition(ctx, statement.Status, domain.StatusSent, true)
	if s.metrics != nil {
		s.metrics.RecordSent(ctx, "email")
	}
	if s.ops != nil {
		s.ops.IncSent("email")
	}
	s.auditEvent(ctx, sent, "statement.sent", map[string]any{"channel": "email"})

	return *sent, nil
}

func (s *Service) MarkViewed(ctx context.Context, req domain.GetStatementRequest) (domain.Statement, error) {
	principal, ok := authcontext.PrincipalFromContext(ctx)
	if !ok {
		return domain.Statement{}, domain.ErrAccessDenied
	}

	statement, err := s.load(ctx, req)
	if err != nil {
		return domain.Statement{}, err
	}
	if !principal.IsAdmin() && !strings.EqualFold(principal.Email, statement.RecipientEmail) {
		return domain.Statement{}, domain.ErrAccessDenied
	}

	return s.transition(ctx, statement, domain.StatusSent, domain.StatusViewed, "viewed requires a sent statement", "statement.viewed")
}

func (s *Service) MarkPaid(ctx context.Context, req domain.GetStatementRequest) (domain.Statement, error) {
	principal, ok := authcontext.PrincipalFromContext(ctx)
	if !ok || principal.IsCustomer() {
		return domain.Statement{}, domain.ErrAccessDenied
	}

	statement, err := s.load(ctx, req)
	if err != nil {
		return domain.Statement{}, err
	}

	// Payment reconciliation may land before the recipient opens the
	// statement, so both SENT and VIEWED are legal sources.
	for _, from := range []domain.StatementStatus{domain.StatusViewed, domain.StatusSent} {
		result, err := s.transition(ctx, statement, from, domain.StatusPaid, "paid requires a sent or viewed statement", "statement.paid")
		if err == nil {
			return result, nil
		}
		if !isTransitionRejected(err) {
			return domain.Statement{}, err
		}
	}
	s.recordTransition(ctx, statement.Status, domain.StatusPaid, false)
	return domain.Statement{}, domain.NewTransitionError(statement.Status, domain.StatusPaid, "paid requires a sent or viewed statement")
}

func (s *Service) transition(ctx context.Context, statement *domain.Statement, from, to domain.StatementStatus, rule, action string) (domain.Statement, error) {
	now := s.clock.Now()
	ok, err := s.repo.Transition(ctx, s.db, statement.OrgID, statement.ID, from, to, now)
	if err != nil {
		return domain.Statement{}, err
	}
	if !ok {
		s.recordTransition(ctx, statement.Status, to, false)
		return domain.Statement{}, domain.NewTransitionError(statement.Status, to, rule)
	}

	s.recordTransition(ctx, from, to, true)

	updated := *statement
	updated.Status = to
	updated.UpdatedAt = now
	switch to {
	case domain.StatusSent:
		updated.SentAt = &now
	case domain.StatusViewed:
		updated.ViewedAt = &now
	case domain.StatusPaid:
		updated.PaidAt = &now
	}

	s.auditEvent(ctx, &updated, action, map[string]any{"from": string(from), "to": string(to)})
	return updated, nil
}

func (s *Service) load(ctx context.Context, req domain.GetStatementRequest) (*domain.Statement, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	principal, hasPrincipal := authcontext.PrincipalFromContext(ctx)
	if !hasPrincipal {
		return nil, domain.ErrAccessDenied
	}

	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || id == 0 {
		return nil, domain.ErrInvalidID
	}

	statement, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return nil, err
	}
	if statement == nil {
		return nil, domain.ErrNotFound
	}

	if principal.IsCustomer() {
		if !strings.EqualFold(principal.Email, statement.RecipientEmail) {
			return nil, domain.ErrNotFound
		}
		switch statement.Status {
		case domain.StatusSent, domain.StatusViewed, domain.StatusPaid:
		default:
			// Undelivered statements do not exist from the recipient's
			// point of view.
			return nil, domain.ErrNotFound
		}
	}

	return statement, nil
}

func (s *Service) recordTransition(ctx context.Context, from, to domain.StatementStatus, accepted bool) {
	if s.metrics != nil {
		s.metrics.RecordTransition(ctx, string(from), string(to), accepted)
	}
	if accepted && s.ops != nil {
		s.ops.IncTransition(string(to))
	}
}

func (s *Service) auditEvent(ctx context.Context, statement *domain.Statement, action string, metadata map[string]any) {
	actorType := "user"
	var actorID *string
	if principal, ok := authcontext.PrincipalFromContext(ctx); ok {
		actorType = string(principal.Role)
		id := principal.ID.String()
		actorID = &id
	}

	targetID := statement.ID.String()
	orgID := statement.OrgID
	if err := s.audit.AuditLog(ctx, &orgID, actorType, actorID, action, "statement", &targetID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func parsePeriod(start, end string) (ledgerdomain.Period, error) {
	startAt, err := time.Parse(dateLayout, strings.TrimSpace(start))
	if err != nil {
		return ledgerdomain.Period{}, domain.ErrInvalidPeriod
	}
	endAt, err := time.Parse(dateLayout, strings.TrimSpace(end))
	if err != nil {
		return ledgerdomain.Period{}, domain.ErrInvalidPeriod
	}
	if startAt.After(endAt) {
		return ledgerdomain.Period{}, domain.ErrInvalidPeriod
	}
	return ledgerdomain.Period{Start: startAt, End: endAt.Add(24*time.Hour - time.Nanosecond)}, nil
}

func parseStatus(value string) (domain.StatementStatus, error) {
	status := domain.StatementStatus(strings.ToUpper(strings.TrimSpace(value)))
	switch status {
	case domain.StatusPending, domain.StatusSent, domain.StatusViewed, domain.StatusPaid, domain.StatusFailed:
		return status, nil
	default:
		return "", domain.ErrInvalidStatus
	}
}

func intersectStatuses(requested, visible []domain.StatementStatus) []domain.StatementStatus {
	allowed := make(map[domain.StatementStatus]bool, len(visible))
	for _, status := range visible {
		allowed[status] = true
	}
	var out []domain.StatementStatus
	for _, status := range requested {
		if allowed[status] {
			out = append(out, status)
		}
	}
	return out
}

func isTransitionRejected(err error) bool {
	_, ok := err.(*domain.TransitionError)
	return ok
}
