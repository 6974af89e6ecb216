package delivery

import (
	"context"
	"io"
	"time"

	"github.com/finledger/backoffice/internal/clock"
	"github.com/finledger/backoffice/internal/config"
	"github.com/finledger/backoffice/internal/providers/email"
	"github.com/finledger/backoffice/internal/providers/pdf"
	"github.com/finledger/backoffice/internal/statement/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Config config.Config
	Repo   domain.Repository
	PDF    pdf.Provider
	Email  email.Provider
	Clock  clock.Clock
}

// Deliverer renders a statement document and hands it to the recipient. It
// is shared by the explicit send operation and the deliver-immediately
// generation path.
type Deliverer struct {
	db    *gorm.DB
	log   *zap.Logger
	cfg   config.Config
	repo  domain.Repository
	pdf   pdf.Provider
	email email.Provider
	clock clock.Clock
}

func New(p Params) *Deliverer {
	return &Deliverer{
		db:    p.DB,
		log:   p.Log.Named("statement.delivery"),
		cfg:   p.Config,
		repo:  p.Repo,
		pdf:   p.PDF,
		email: p.Email,
		clock: p.Clock,
	}
}

// Render produces the PDF document for a generated statement.
func (d *Deliverer) Render(ctx context.Context, statement *domain.Statement, items []domain.LineItem) ([]byte, error) {
	if statement.GenerationState != domain.GenerationSucceeded {
		return nil, domain.ErrSnapshotNotReady
	}

	reader, err := d.pdf.GenerateStatement(ctx, d.documentData(statement, items))
	if err != nil {
		return nil, err
	}
	if reader == nil {
		return nil, nil
	}
	return io.ReadAll(reader)
}

// Deliver sends the statement to its recipient and flips PENDING to SENT.
// The transition is guarded, so a concurrent send loses cleanly.
func (d *Deliverer) Deliver(ctx context.Context, statement *domain.Statement, items []domain.LineItem) (*domain.Statement, error) {
	if statement.GenerationState != domain.GenerationSucceeded {
		return nil, domain.ErrSnapshotNotReady
	}

	if _, err := d.Render(ctx, statement, items); err != nil {
		return nil, err
	}

	err := d.email.SendTemplate(ctx, []string{statement.RecipientEmail}, "statement_new", map[string]interface{}{
		"document_number": statement.DocumentNumber,
		"recipient_name":  statement.RecipientName,
		"period_start":    statement.PeriodStart.Format(dateLayout),
		"period_end":      statement.PeriodEnd.Format(dateLayout),
		"amount_due":      FormatMinorUnits(statement.TotalAmountDue),
		"org_name":        d.cfg.AppName,
	})
	if err != nil {
		d.log.Warn("statement notification failed",
			zap.String("statement_id", statement.ID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	now := d.clock.Now()
	ok, err := d.repo.Transition(ctx, d.db, statement.OrgID, statement.ID, domain.StatusPending, domain.StatusSent, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewTransitionError(statement.Status, domain.StatusSent, "send requires a pending statement")
	}

	sent := *statement
	sent.Status = domain.StatusSent
	sent.SentAt = &now
	sent.UpdatedAt = now
	return &sent, nil
}

func (d *Deliverer) documentData(statement *domain.Statement, items []domain.LineItem) pdf.StatementData {
	data := pdf.StatementData{
		OrgName:          d.cfg.AppName,
		DocumentNumber:   statement.DocumentNumber,
		PeriodStart:      statement.PeriodStart.Format(dateLayout),
		PeriodEnd:        statement.PeriodEnd.Format(dateLayout),
		StatementDate:    formatTimePtr(statement.GeneratedAt),
		RecipientName:    statement.RecipientName,
		RecipientEmail:   statement.RecipientEmail,
		RecipientAddress: statement.RecipientAddress,
		Current:          FormatMinorUnits(statement.AgingCurrent),
		Days31To60:       FormatMinorUnits(statement.Aging31To60),
		Days61To90:       FormatMinorUnits(statement.Aging61To90),
		Days91To120:      FormatMinorUnits(statement.Aging91To120),
		Over120:          FormatMinorUnits(statement.AgingOver120),
		TotalInterest:    FormatMinorUnits(statement.TotalInterest),
		AmountDue:        FormatMinorUnits(statement.TotalAmountDue),
		Notes:            statement.Notes,
	}
	for _, item := range items {
		data.Items = append(data.Items, pdf.StatementItem{
			Reference: item.Reference,
			DueDate:   item.DueDate.Format(dateLayout),
			AgeDays:   decimal.NewFromInt(int64(item.AgeDays)).String(),
			Amount:    FormatMinorUnits(item.Amount),
		})
	}
	return data
}

// FormatMinorUnits renders a minor-unit amount with two decimals.
func FormatMinorUnits(amount int64) string {
	return decimal.NewFromInt(amount).Div(decimal.NewFromInt(100)).StringFixed(2)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
