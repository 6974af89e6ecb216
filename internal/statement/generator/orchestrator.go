package generator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/finledger/backoffice/internal/audit/domain"
	"github.com/finledger/backoffice/internal/clock"
	"github.com/finledger/backoffice/internal/config"
	ledgerdomain "github.com/finledger/backoffice/internal/ledger/domain"
	obsmetrics "github.com/finledger/backoffice/internal/observability/metrics"
	"github.com/finledger/backoffice/internal/opsmetrics"
	"github.com/finledger/backoffice/internal/statement/delivery"
	"github.com/finledger/backoffice/internal/statement/domain"
	"github.com/finledger/backoffice/internal/statement/snapshot"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	queueCapacity = 1024
	runTimeout    = 2 * time.Minute
)

var ErrQueueClosed = errors.New("generation_queue_closed")

// Task is one unit of background statement generation. The statement row
// already exists (PENDING/REQUESTED) when the task is queued.
type Task struct {
	OrgID              snowflake.ID
	CustomerID         snowflake.ID
	StatementID        snowflake.ID
	Period             ledgerdomain.Period
	AsOf               time.Time
	DeliverImmediately bool
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Builder   *snapshot.Builder
	Policy    *config.StatementPolicyHolder
	Clock     clock.Clock
	AuditSvc  auditdomain.Service
	Deliverer *delivery.Deliverer
	Metrics   *obsmetrics.Metrics  `optional:"true"`
	Ops       *opsmetrics.Recorder `optional:"true"`
}

// Orchestrator runs statement generation on a bounded worker pool. Each
// accepted request becomes a registered task whose completion is awaitable
// through its handle.
type Orchestrator struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	builder   *snapshot.Builder
	policy    *config.StatementPolicyHolder
	clock     clock.Clock
	audit     auditdomain.Service
	deliverer *delivery.Deliverer
	metrics   *obsmetrics.Metrics
	ops       *opsmetrics.Recorder

	registry *Registry
	queue    chan queued
	stopped  chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type queued struct {
	task   Task
	handle *TaskHandle
}

func NewOrchestrator(p Params) *Orchestrator {
	return &Orchestrator{
		db:        p.DB,
		log:       p.Log.Named("statement.generator"),
		genID:     p.GenID,
		repo:      p.Repo,
		builder:   p.Builder,
		policy:    p.Policy,
		clock:     p.Clock,
		audit:     p.AuditSvc,
		deliverer: p.Deliverer,
		metrics:   p.Metrics,
		ops:       p.Ops,
		registry:  NewRegistry(),
		queue:     make(chan queued, queueCapacity),
		stopped:   make(chan struct{}),
	}
}

func (o *Orchestrator) Registry() *Registry { return o.registry }

// Start launches the worker pool. Worker count is read from the policy once
// at startup.
func (o *Orchestrator) Start() {
	workers := o.policy.Get().Generation.Workers
	for i := 0; i < workers; i++ {
		o.wg.Add(1)
		go o.worker()
	}
	o.log.Info("generation workers started", zap.Int("workers", workers))
}

// Stop drains nothing: queued tasks not yet started stay REQUESTED and are
// picked up by the recovery path after restart. Running tasks finish.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.stopOnce.Do(func() { close(o.stopped) })

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue registers and queues one generation task.
func (o *Orchestrator) Enqueue(ctx context.Context, task Task) (*TaskHandle, error) {
	select {
	case <-o.stopped:
		return nil, ErrQueueClosed
	default:
	}

	handle := o.registry.add(task.StatementID)
	select {
	case o.queue <- queued{task: task, handle: handle}:
		return handle, nil
	case <-o.stopped:
		o.registry.complete(handle, ErrQueueClosed)
		return nil, ErrQueueClosed
	case <-ctx.Done():
		o.registry.complete(handle, ctx.Err())
		return nil, ctx.Err()
	}
}

func (o *Orchestrator) worker() {
	defer o.wg.Done()
	for {
		select {
		case <-o.stopped:
			return
		case item := <-o.queue:
			o.run(item.task, item.handle)
		}
	}
}

func (o *Orchestrator) run(task Task, handle *TaskHandle) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	start := o.clock.Now()
	log := o.log.With(
		zap.String("task_id", handle.ID.String()),
		zap.String("statement_id", task.StatementID.String()),
	)

	ok, err := o.repo.MarkRunning(ctx, o.db, task.StatementID, start)
	if err != nil {
		o.fail(ctx, task, handle, start, err)
		return
	}
	if !ok {
		// Recovered or failed elsewhere; nothing left to do.
		log.Warn("statement no longer awaiting generation")
		o.registry.complete(handle, nil)
		return
	}

	stopHeartbeat := o.startHeartbeat(task.StatementID)
	defer stopHeartbeat()

	if err := o.repo.IncrementAttempts(ctx, o.db, task.StatementID); err != nil {
		log.Warn("failed to count generation attempt", zap.Error(err))
	}

	snap, err := o.buildWithRetry(ctx, task, log)
	if err != nil {
		o.fail(ctx, task, handle, start, err)
		return
	}

	now := o.clock.Now()
	statement := &domain.Statement{
		ID:             task.StatementID,
		OrgID:          task.OrgID,
		AgingCurrent:   snap.Buckets.Current,
		Aging31To60:    snap.Buckets.Days31To60,
		Aging61To90:    snap.Buckets.Days61To90,
		Aging91To120:   snap.Buckets.Days91To120,
		AgingOver120:   snap.Buckets.Over120,
		TotalInterest:  snap.TotalInterest,
		TotalAmountDue: snap.TotalAmountDue,
	}
	items := make([]domain.LineItem, 0, len(snap.LineItems))
	for _, item := range snap.LineItems {
		item.ID = o.genID.Generate()
		item.OrgID = task.OrgID
		item.StatementID = task.StatementID
		item.CreatedAt = now
		items = append(items, item)
	}

	written, err := o.repo.WriteSnapshot(ctx, o.db, statement, items, now)
	if err != nil {
		o.fail(ctx, task, handle, start, err)
		return
	}
	if !written {
		log.Warn("snapshot write guard rejected, statement was recovered concurrently")
		o.registry.complete(handle, nil)
		return
	}

	o.recordOutcome(ctx, "succeeded", o.clock.Now().Sub(start))
	o.auditEvent(ctx, task, "statement.generated", map[string]any{
		"total_amount_due": snap.TotalAmountDue,
		"line_items":       len(items),
	})

	if task.DeliverImmediately {
		o.deliverImmediately(ctx, task, items, log)
	}

	o.registry.complete(handle, nil)
}

func (o *Orchestrator) buildWithRetry(ctx context.Context, task Task, log *zap.Logger) (domain.Snapshot, error) {
	generation := o.policy.Get().Generation
	backoff := time.Duration(generation.RetryBackoffMillis) * time.Millisecond

	var lastErr error
	for attempt := 0; attempt <= generation.MaxLedgerRetries; attempt++ {
		snap, err := o.builder.Build(ctx, o.db, task.OrgID, task.CustomerID, task.Period, task.AsOf)
		if err == nil {
			return snap, nil
		}
		lastErr = err
		if !errors.Is(err, ledgerdomain.ErrUnavailable) {
			return domain.Snapshot{}, err
		}

		log.Warn("ledger read failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return domain.Snapshot{}, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return domain.Snapshot{}, lastErr
}

func (o *Orchestrator) deliverImmediately(ctx context.Context, task Task, items []domain.LineItem, log *zap.Logger) {
	statement, err := o.repo.FindByID(ctx, o.db, task.OrgID, task.StatementID)
	if err != nil || statement == nil {
		log.Warn("immediate delivery skipped, statement not readable", zap.Error(err))
		return
	}
	if _, err := o.deliverer.Deliver(ctx, statement, items); err != nil {
		// Delivery failure leaves the statement PENDING; a later explicit
		// send can still succeed.
		log.Warn("immediate delivery failed", zap.Error(err))
		return
	}
	if o.metrics != nil {
		o.metrics.RecordSent(ctx, "email")
	}
	o.auditEvent(ctx, task, "statement.sent", map[string]any{"channel": "email"})
}

func (o *Orchestrator) fail(ctx context.Context, task Task, handle *TaskHandle, start time.Time, cause error) {
	detail := cause.Error()
	now := o.clock.Now()
	if _, err := o.repo.MarkGenerationFailed(ctx, o.db, task.StatementID, detail, now); err != nil {
		o.log.Error("failed to record generation failure",
			zap.String("statement_id", task.StatementID.String()),
			zap.Error(err),
		)
	}

	o.recordOutcome(ctx, "failed", now.Sub(start))
	o.auditEvent(ctx, task, "statement.generation_failed", map[string]any{"error": detail})
	o.registry.complete(handle, cause)
}

func (o *Orchestrator) startHeartbeat(statementID snowflake.ID) func() {
	interval := time.Duration(o.policy.Get().Generation.HeartbeatSeconds) * time.Second
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := o.repo.Heartbeat(ctx, o.db, statementID, o.clock.Now()); err != nil {
					o.log.Warn("heartbeat update failed",
						zap.String("statement_id", statementID.String()),
						zap.Error(err),
					)
				}
				cancel()
			}
		}
	}()
	return func() { close(stop) }
}

func (o *Orchestrator) recordOutcome(ctx context.Context, outcome string, elapsed time.Duration) {
	if o.metrics != nil {
		o.metrics.RecordGeneration(ctx, outcome, elapsed)
	}
	if o.ops != nil {
		o.ops.IncGeneration(outcome)
	}
}

func (o *Orchestrator) auditEvent(ctx context.Context, task Task, action string, metadata map[string]any) {
	targetID := task.StatementID.String()
	actorID := "statement-generator"
	orgID := task.OrgID
	if err := o.audit.AuditLog(ctx, &orgID, string(auditdomain.ActorTypeSystem), &actorID, action, "statement", &targetID, metadata); err != nil {
		o.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}
