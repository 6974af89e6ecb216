package domain

import (
	"context"

	"github.com/finledger/backoffice/pkg/db/pagination"
)

// Scope selects which side of a statement the caller wants to see.
type Scope string

const (
	ScopeIssued   Scope = "issued"
	ScopeReceived Scope = "received"
)

type GenerateStatementRequest struct {
	CustomerID         string `json:"customer_id"`
	PeriodStart        string `json:"period_start"`
	PeriodEnd          string `json:"period_end"`
	Notes              string `json:"notes,omitempty"`
	DeliverImmediately bool   `json:"deliver_immediately,omitempty"`
}

// GenerateStatementResponse acknowledges acceptance: the snapshot itself is
// built by a background worker after this returns.
type GenerateStatementResponse struct {
	StatementID    string `json:"statement_id"`
	DocumentNumber string `json:"document_number"`
}

type BulkGenerateRequest struct {
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	Notes       string `json:"notes,omitempty"`
}

type BulkGenerateResponse struct {
	Requested  int                         `json:"requested"`
	Statements []GenerateStatementResponse `json:"statements"`
}

type ListStatementRequest struct {
	Scope      string
	Status     string
	CustomerID string
	PageToken  string
	PageSize   int32
}

type ListStatementResponse struct {
	pagination.PageInfo
	Statements []Statement `json:"statements"`
}

type GetStatementRequest struct {
	ID string
}

type Service interface {
	Generate(context.Context, GenerateStatementRequest) (GenerateStatementResponse, error)
	GenerateBulk(context.Context, BulkGenerateRequest) (BulkGenerateResponse, error)
	List(context.Context, ListStatementRequest) (ListStatementResponse, error)
	GetByID(context.Context, GetStatementRequest) (Statement, error)
	GetSnapshot(context.Context, GetStatementRequest) (Snapshot, error)
	RenderDocument(context.Context, GetStatementRequest) ([]byte, error)
	Send(context.Context, GetStatementRequest) (Statement, error)
	MarkViewed(context.Context, GetStatementRequest) (Statement, error)
	MarkPaid(context.Context, GetStatementRequest) (Statement, error)
}
