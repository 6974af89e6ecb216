package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/finledger/backoffice/internal/audit/domain"
	"github.com/finledger/backoffice/internal/authcontext"
	"github.com/finledger/backoffice/internal/clock"
	"github.com/finledger/backoffice/internal/config"
	customerdomain "github.com/finledger/backoffice/internal/customer/domain"
	customerrepository "github.com/finledger/backoffice/internal/customer/repository"
	ledgerdomain "github.com/finledger/backoffice/internal/ledger/domain"
	ledgerrepository "github.com/finledger/backoffice/internal/ledger/repository"
	"github.com/finledger/backoffice/internal/orgcontext"
	"github.com/finledger/backoffice/internal/providers/email"
	"github.com/finledger/backoffice/internal/providers/pdf"
	"github.com/finledger/backoffice/internal/sequence"
	"github.com/finledger/backoffice/internal/statement/delivery"
	"github.com/finledger/backoffice/internal/statement/domain"
	"github.com/finledger/backoffice/internal/statement/generator"
	"github.com/finledger/backoffice/internal/statement/interest"
	statementrepository "github.com/finledger/backoffice/internal/statement/repository"
	"github.com/finledger/backoffice/internal/statement/snapshot"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// -- Mocks --

type auditRecorder struct {
	mu      sync.Mutex
	actions []string
}

func (a *auditRecorder) AuditLog(ctx context.Context, orgID *snowflake.ID, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
	return nil
}

func (a *auditRecorder) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{}, nil
}

func (a *auditRecorder) recorded() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.actions...)
}

// -- Fixture --

type fixture struct {
	db           *gorm.DB
	svc          domain.Service
	repo         domain.Repository
	customerRepo customerdomain.Repository
	clock        *clock.FakeClock
	node         *snowflake.Node
	audit        *auditRecorder
	orgID        snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Statement{},
		&domain.LineItem{},
		&ledgerdomain.LedgerRecord{},
		&customerdomain.Customer{},
	))
	require.NoError(t, db.Exec(
		`CREATE TABLE document_sequences (
		   org_id BIGINT PRIMARY KEY,
		   last_value BIGINT NOT NULL DEFAULT 0
		 )`,
	).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 3, 31, 9, 0, 0, 0, time.UTC))
	policy := config.NewStaticPolicyHolder(config.StatementPolicy{
		Generation: config.GenerationPolicy{
			Workers:             2,
			MaxLedgerRetries:    1,
			RetryBackoffMillis:  10,
			HeartbeatSeconds:    1,
			RecoveryAfterSecond: 2,
		},
	})

	repo := statementrepository.Provide()
	customerRepo := customerrepository.Provide()
	ledgerRepo := ledgerrepository.Provide()
	audit := &auditRecorder{}

	deliverer := delivery.New(delivery.Params{
		DB:     db,
		Log:    zap.NewNop(),
		Config: config.Config{AppName: "backoffice"},
		Repo:   repo,
		PDF:    &pdf.NoOpProvider{},
		Email:  &email.NoOpProvider{},
		Clock:  clk,
	})

	orchestrator := generator.NewOrchestrator(generator.Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Repo:      repo,
		Builder:   snapshot.NewBuilder(ledgerRepo, interest.NewCalculator(), policy),
		Policy:    policy,
		Clock:     clk,
		AuditSvc:  audit,
		Deliverer: deliverer,
	})
	orchestrator.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = orchestrator.Stop(ctx)
	})

	svc := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clk,
		Repo:         repo,
		CustomerRepo: customerRepo,
		Allocator:    sequence.New(),
		Orchestrator: orchestrator,
		Deliverer:    deliverer,
		AuditSvc:     audit,
	})

	return &fixture{
		db:           db,
		svc:          svc,
		repo:         repo,
		customerRepo: customerRepo,
		clock:        clk,
		node:         node,
		audit:        audit,
		orgID:        node.Generate(),
	}
}

func (f *fixture) ctx(principal authcontext.Principal) context.Context {
	ctx := orgcontext.WithOrgID(context.Background(), int64(f.orgID))
	return authcontext.WithPrincipal(ctx, principal)
}

func (f *fixture) issuer() authcontext.Principal {
	return authcontext.Principal{ID: f.node.Generate(), Email: "ops@finledger.test", Role: authcontext.RoleIssuer, OrgID: f.orgID}
}

func (f *fixture) admin() authcontext.Principal {
	return authcontext.Principal{ID: f.node.Generate(), Email: "admin@finledger.test", Role: authcontext.RoleAdmin, OrgID: f.orgID}
}

func (f *fixture) recipient(email string) authcontext.Principal {
	return authcontext.Principal{ID: f.node.Generate(), Email: email, Role: authcontext.RoleCustomer, OrgID: f.orgID}
}

func (f *fixture) createCustomer(t *testing.T, name, email string) *customerdomain.Customer {
	now := f.clock.Now()
	id := f.node.Generate()
	customer := &customerdomain.Customer{
		ID:        id,
		OrgID:     f.orgID,
		Code:      fmt.Sprintf("cust-%s", id.Base36()),
		Name:      name,
		Email:     email,
		Currency:  "USD",
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.customerRepo.Insert(context.Background(), f.db, customer))
	return customer
}

func (f *fixture) createLedgerRecord(t *testing.T, customerID snowflake.ID, reference string, amount int64, dueDaysAgo int) {
	asOf := f.clock.Now()
	require.NoError(t, f.db.Create(&ledgerdomain.LedgerRecord{
		ID:         f.node.Generate(),
		OrgID:      f.orgID,
		CustomerID: customerID,
		Reference:  reference,
		Amount:     amount,
		Currency:   "USD",
		IssuedAt:   asOf.AddDate(0, 0, -dueDaysAgo-30),
		DueDate:    asOf.AddDate(0, 0, -dueDaysAgo),
	}).Error)
}

// seedStatement inserts a statement directly in the given status with a
// completed snapshot, bypassing the generation pipeline.
func (f *fixture) seedStatement(t *testing.T, customer *customerdomain.Customer, status domain.StatementStatus, state domain.GenerationState) *domain.Statement {
	now := f.clock.Now()
	statement := &domain.Statement{
		ID:              f.node.Generate(),
		OrgID:           f.orgID,
		CustomerID:      customer.ID,
		DocumentNumber:  fmt.Sprintf("STMT-SEED-%d", f.node.Generate()),
		RecipientName:   customer.Name,
		RecipientEmail:  customer.Email,
		PeriodStart:     now.AddDate(0, -1, 0),
		PeriodEnd:       now,
		Status:          domain.StatusPending,
		GenerationState: domain.GenerationRequested,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, f.repo.Insert(context.Background(), f.db, statement))
	require.NoError(t, f.db.Exec(
		`UPDATE statements SET status = ?, generation_state = ?, total_amount_due = 1000 WHERE id = ?`,
		status, state, statement.ID,
	).Error)
	statement.Status = status
	statement.GenerationState = state
	statement.TotalAmountDue = 1000
	return statement
}

func (f *fixture) awaitGeneration(t *testing.T, statementID string, want domain.GenerationState) *domain.Statement {
	t.Helper()
	id, err := snowflake.ParseString(statementID)
	require.NoError(t, err)

	var statement *domain.Statement
	require.Eventually(t, func() bool {
		statement, err = f.repo.FindByID(context.Background(), f.db, f.orgID, id)
		if err != nil || statement == nil {
			return false
		}
		return statement.GenerationState == want
	}, 5*time.Second, 25*time.Millisecond)
	return statement
}

// -- Tests --

func TestGenerateEndToEnd(t *testing.T) {
	f := newFixture(t)
	customer := f.createCustomer(t, "Acme Industrial", "billing@acme.test")
	f.createLedgerRecord(t, customer.ID, "INV-100", 1000, 45)

	resp, err := f.svc.Generate(f.ctx(f.issuer()), domain.GenerateStatementRequest{
		CustomerID:  customer.ID.String(),
		PeriodStart: "2026-03-01",
		PeriodEnd:   "2026-03-31",
	})
	require.NoError(t, err)
	assert.Equal(t, "STMT-000001", resp.DocumentNumber)
	require.NotEmpty(t, resp.StatementID)

	statement := f.awaitGeneration(t, resp.StatementID, domain.GenerationSucceeded)
	assert.Equal(t, domain.StatusPending, statement.Status)
	assert.Equal(t, int64(1000), statement.Aging31To60)
	assert.Equal(t, int64(15), statement.TotalInterest)
	assert.Equal(t, int64(1015), statement.TotalAmountDue)
	assert.Equal(t, "Acme Industrial", statement.RecipientName)
	assert.Equal(t, "billing@acme.test", statement.RecipientEmail)
}

func TestGenerateValidation(t *testing.T) {
	f := newFixture(t)
	customer := f.createCustomer(t, "Acme Industrial", "billing@acme.test")

	tests := []struct {
		name string
		req  domain.GenerateStatementRequest
		want error
	}{
		{
			name: "malformed period",
			req:  domain.GenerateStatementRequest{CustomerID: customer.ID.String(), PeriodStart: "March 2026", PeriodEnd: "2026-03-31"},
			want: domain.ErrInvalidPeriod,
		},
		{
			name: "start after end",
			req:  domain.GenerateStatementRequest{CustomerID: customer.ID.String(), PeriodStart: "2026-03-31", PeriodEnd: "2026-03-01"},
			want: domain.ErrInvalidPeriod,
		},
		{
			name: "malformed customer id",
			req:  domain.GenerateStatementRequest{CustomerID: "not-a-snowflake", PeriodStart: "2026-03-01", PeriodEnd: "2026-03-31"},
			want: domain.ErrInvalidID,
		},
		{
			name: "unknown customer",
			req:  domain.GenerateStatementRequest{CustomerID: f.node.Generate().String(), PeriodStart: "2026-03-01", PeriodEnd: "2026-03-31"},
			want: domain.ErrCustomerNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Generate(f.ctx(f.issuer()), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := f.svc.Generate(context.Background(), domain.GenerateStatementRequest{
		CustomerID:  customer.ID.String(),
		PeriodStart: "2026-03-01",
		PeriodEnd:   "2026-03-31",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}

func TestGenerateBulk(t *testing.T) {
	f := newFixture(t)
	first := f.createCustomer(t, "Acme Industrial", "billing@acme.test")
	second := f.createCustomer(t, "Northwind Trading", "ap@northwind.test")
	f.createCustomer(t, "Globex", "finance@globex.test")
	f.createLedgerRecord(t, first.ID, "INV-1", 500, 10)
	f.createLedgerRecord(t, second.ID, "INV-2", 700, 40)

	resp, err := f.svc.GenerateBulk(f.ctx(f.issuer()), domain.BulkGenerateRequest{
		PeriodStart: "2026-03-01",
		PeriodEnd:   "2026-03-31",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Requested)
	require.Len(t, resp.Statements, 3)

	// Numbers are allocated in customer order before any build runs.
	assert.Equal(t, "STMT-000001", resp.Statements[0].DocumentNumber)
	assert.Equal(t, "STMT-000002", resp.Statements[1].DocumentNumber)
	assert.Equal(t, "STMT-000003", resp.Statements[2].DocumentNumber)

	for _, accepted := range resp.Statements {
		f.awaitGeneration(t, accepted.StatementID, domain.GenerationSucceeded)
	}
}

func TestListRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.List(f.ctx(f.issuer()), domain.ListStatementRequest{Status: "archived"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestListScoping(t *testing.T) {
	f := newFixture(t)
	acme := f.createCustomer(t, "Acme Industrial", "billing@acme.test")
	northwind := f.createCustomer(t, "Northwind Trading", "ap@northwind.test")

	f.seedStatement(t, acme, domain.StatusPending, domain.GenerationRequested)
	sent := f.seedStatement(t, acme, domain.StatusSent, domain.GenerationSucceeded)
	f.seedStatement(t, acme, domain.StatusViewed, domain.GenerationSucceeded)
	f.seedStatement(t, acme, domain.StatusPaid, domain.GenerationSucceeded)
	f.seedStatement(t, acme, domain.StatusFailed, domain.GenerationFailed)
	f.seedStatement(t, northwind, domain.StatusSent, domain.GenerationSucceeded)

	issuerCtx := f.ctx(f.issuer())
	all, err := f.svc.List(issuerCtx, domain.ListStatementRequest{})
	require.NoError(t, err)
	assert.Len(t, all.Statements, 6)

	sentOnly, err := f.svc.List(issuerCtx, domain.ListStatementRequest{Status: "sent"})
	require.NoError(t, err)
	assert.Len(t, sentOnly.Statements, 2)

	byCustomer, err := f.svc.List(issuerCtx, domain.ListStatementRequest{CustomerID: northwind.ID.String()})
	require.NoError(t, err)
	assert.Len(t, byCustomer.Statements, 1)

	recipientCtx := f.ctx(f.recipient("billing@acme.test"))
	received, err := f.svc.List(recipientCtx, domain.ListStatementRequest{})
	require.NoError(t, err)
	// The recipient sees only delivered statements addressed to them.
	assert.Len(t, received.Statements, 3)
	for _, statement := range received.Statements {
		assert.Equal(t, "billing@acme.test", statement.RecipientEmail)
		assert.Contains(t, []domain.StatementStatus{domain.StatusSent, domain.StatusViewed, domain.StatusPaid}, statement.Status)
	}

	_, err = f.svc.List(recipientCtx, domain.ListStatementRequest{Scope: "issued"})
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	hidden, err := f.svc.List(recipientCtx, domain.ListStatementRequest{Status: "pending"})
	require.NoError(t, err)
	assert.Empty(t, hidden.Statements)

	receivedSent, err := f.svc.List(recipientCtx, domain.ListStatementRequest{Status: "sent"})
	require.NoError(t, err)
	require.Len(t, receivedSent.Statements, 1)
	assert.Equal(t, sent.ID, receivedSent.Statements[0].ID)
}

func TestListPagination(t *testing.T) {
	f := newFixture(t)
	acme := f.createCustomer(t, "Acme Industrial", "billing@acme.test")
	for i := 0; i < 5; i++ {
		f.seedStatement(t, acme, domain.StatusSent, domain.GenerationSucceeded)
	}

	issuerCtx := f.ctx(f.issuer())
	firstPage, err := f.svc.List(issuerCtx, domain.ListStatementRequest{PageSize: 3})
	require.NoError(t, err)
	assert.Len(t, firstPage.Statements, 3)
	assert.True(t, firstPage.HasMore)
	require.NotEmpty(t, firstPage.NextPageToken)

	secondPage, err := f.svc.List(issuerCtx, domain.ListStatementRequest{PageSize: 3, PageToken: firstPage.NextPageToken})
	require.NoError(t, err)
	assert.Len(t, secondPage.Statements, 2)
	assert.False(t, secondPage.HasMore)

	seen := make(map[snowflake.ID]bool)
	for _, statement := range append(firstPage.Statements, secondPage.Statements...) {
		assert.False(t, seen[statement.ID])
		seen[statement.ID] = true
	}
}

func TestGetByIDVisibility(t *testing.T) {
	f := newFixture(t)
	acme := f.createCustomer(t, "Acme Industrial", "billing@acme.test")
	pending := f.seedStatement(t, acme, domain.StatusPending, domain.GenerationRequested)
	sent := f.seedStatement(t, acme, domain.StatusSent, domain.GenerationSucceeded)

	issuerCtx := f.ctx(f.issuer())
	got, err := f.svc.GetByID(issuerCtx, domain.GetStatementRequest{ID: pending.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, pending.ID, got.ID)

	recipientCtx := f.ctx(f.recipient("billing@acme.test"))
	got, err = f.svc.GetByID(recipientCtx, domain.GetStatementRequest{ID: sent.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, sent.ID, got.ID)

	// Undelivered statements do not exist from the recipient's point of view.
	_, err = f.svc.GetByID(recipientCtx, domain.GetStatementRequest{ID: pending.ID.String()})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	strangerCtx := f.ctx(f.recipient("someone@else.test"))
	_, err = f.svc.GetByID(strangerCtx, domain.GetStatementRequest{ID: sent.ID.String()})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.GetByID(issuerCtx, domain.GetStatementRequest{ID: f.node.Generate().String()})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.GetByID(issuerCtx, domain.GetStatementRequest{ID: "garbage"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestSendLifecycle(t *testing.T) {
	f := newFixture(t)
	acme := f.createCustomer(t, "Acme Industrial", "billing@acme.test")
	statement := f.seedStatement(t, acme, domain.StatusPending, domain.GenerationSucceeded)

	issuerCtx := f.ctx(f.issuer())
	sent, err := f.svc.Send(issuerCtx, domain.GetStatementRequest{ID: statement.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, sent.Status)
	assert.NotNil(t, sent.SentAt)
	assert.Contains(t, f.audit.recorded(), "statement.sent")

	// A second send finds the statement no longer PENDING.
	_, err = f.svc.Send(issuerCtx, domain.GetStatementRequest{ID: statement.ID.String()})
	assert.ErrorIs(t, err, domain.ErrTransitionRejected)

	recipientCtx := f.ctx(f.recipient("billing@acme.test"))
	_, err = f.svc.Send(recipientCtx, domain.GetStatementRequest{ID: statement.ID.String()})
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestSendRequiresSnapshot(t *testing.T) {
	f := newFixture(t)
	acme := f.createCustomer(t, "Acme Industrial", "billing@acme.test")
	statement := f.seedStatement(t, acme, domain.StatusPending, domain.GenerationRequested)

	_, err := f.svc.Send(f.ctx(f.issuer()), domain.GetStatementRequest{ID: statement.ID.String()})
	assert.ErrorIs(t, err, domain.ErrSnapshotNotReady)
}

func TestMarkViewed(t *testing.T) {
	f := newFixture(t)
	acme := f.createCustomer(t, "Acme Industrial", "billing@acme.test")
	statement := f.seedStatement(t, acme, domain.StatusSent, domain.GenerationSucceeded)

	recipientCtx := f.ctx(f.recipient("billing@acme.test"))
	viewed, err := f.svc.MarkViewed(recipientCtx, domain.GetStatementRequest{ID: statement.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusViewed, viewed.Status)
	assert.NotNil(t, viewed.ViewedAt)

	// Already viewed: the guarded update matches nothing.
	_, err = f.svc.MarkViewed(recipientCtx, domain.GetStatementRequest{ID: statement.ID.String()})
	assert.ErrorIs(t, err, domain.ErrTransitionRejected)
}

func TestMarkViewedAccess(t *testing.T) {
	f := newFixture(t)
	acme := f.createCustomer(t, "Acme Industrial", "billing@acme.test")
	statement := f.seedStatement(t, acme, domain.StatusSent, domain.GenerationSucceeded)

	// An issuer who is not the recipient cannot mark on the recipient's behalf.
	_, err := f.svc.MarkViewed(f.ctx(f.issuer()), domain.GetStatementRequest{ID: statement.ID.String()})
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	// Admins can.
	viewed, err := f.svc.MarkViewed(f.ctx(f.admin()), domain.GetStatementRequest{ID: statement.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusViewed, viewed.Status)
}

func TestMarkPaid(t *testing.T) {
	f := newFixture(t)
	acme := f.createCustomer(t, "Acme Industrial", "billing@acme.test")

	fromSent := f.seedStatement(t, acme, domain.StatusSent, domain.GenerationSucceeded)
	fromViewed := f.seedStatement(t, acme, domain.StatusViewed, domain.GenerationSucceeded)
	pending := f.seedStatement(t, acme, domain.StatusPending, domain.GenerationSucceeded)

	issuerCtx := f.ctx(f.issuer())

	paid, err := f.svc.MarkPaid(issuerCtx, domain.GetStatementRequest{ID: fromSent.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)

	paid, err = f.svc.MarkPaid(issuerCtx, domain.GetStatementRequest{ID: fromViewed.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, paid.Status)

	_, err = f.svc.MarkPaid(issuerCtx, domain.GetStatementRequest{ID: pending.ID.String()})
	assert.ErrorIs(t, err, domain.ErrTransitionRejected)

	recipientCtx := f.ctx(f.recipient("billing@acme.test"))
	_, err = f.svc.MarkPaid(recipientCtx, domain.GetStatementRequest{ID: fromSent.ID.String()})
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestGetSnapshot(t *testing.T) {
	f := newFixture(t)
	customer := f.createCustomer(t, "Acme Industrial", "billing@acme.test")
	f.createLedgerRecord(t, customer.ID, "INV-100", 1000, 45)
	f.createLedgerRecord(t, customer.ID, "INV-101", 250, 5)

	issuerCtx := f.ctx(f.issuer())

	resp, err := f.svc.Generate(issuerCtx, domain.GenerateStatementRequest{
		CustomerID:  customer.ID.String(),
		PeriodStart: "2026-03-01",
		PeriodEnd:   "2026-03-31",
	})
	require.NoError(t, err)
	f.awaitGeneration(t, resp.StatementID, domain.GenerationSucceeded)

	snap, err := f.svc.GetSnapshot(issuerCtx, domain.GetStatementRequest{ID: resp.StatementID})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), snap.Buckets.Days31To60)
	assert.Equal(t, int64(250), snap.Buckets.Current)
	assert.Equal(t, int64(15), snap.TotalInterest)
	assert.Equal(t, int64(1265), snap.TotalAmountDue)
	require.Len(t, snap.LineItems, 2)
	assert.Equal(t, "INV-100", snap.LineItems[0].Reference)
	assert.Equal(t, "INV-101", snap.LineItems[1].Reference)
}

func TestGetSnapshotNotReady(t *testing.T) {
	f := newFixture(t)
	acme := f.createCustomer(t, "Acme Industrial", "billing@acme.test")
	statement := f.seedStatement(t, acme, domain.StatusPending, domain.GenerationRequested)

	_, err := f.svc.GetSnapshot(f.ctx(f.issuer()), domain.GetStatementRequest{ID: statement.ID.String()})
	assert.ErrorIs(t, err, domain.ErrSnapshotNotReady)
}
