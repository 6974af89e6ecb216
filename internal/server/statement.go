package server

import (
	"net/http"
	"strings"

	statementdomain "github.com/finledger/backoffice/internal/statement/domain"
	"github.com/finledger/backoffice/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

type generateStatementRequest struct {
	CustomerID         string `json:"customer_id"`
	PeriodStart        string `json:"period_start"`
	PeriodEnd          string `json:"period_end"`
	Notes              string `json:"notes"`
	DeliverImmediately bool   `json:"deliver_immediately"`
}

func (s *Server) GenerateStatement(c *gin.Context) {
	var req generateStatementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.statementSvc.Generate(c.Request.Context(), statementdomain.GenerateStatementRequest{
		CustomerID:         strings.TrimSpace(req.CustomerID),
		PeriodStart:        strings.TrimSpace(req.PeriodStart),
		PeriodEnd:          strings.TrimSpace(req.PeriodEnd),
		Notes:              req.Notes,
		DeliverImmediately: req.DeliverImmediately,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"data": resp})
}

type bulkGenerateRequest struct {
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	Notes       string `json:"notes"`
}

func (s *Server) GenerateStatementsBulk(c *gin.Context) {
	var req bulkGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.statementSvc.GenerateBulk(c.Request.Context(), statementdomain.BulkGenerateRequest{
		PeriodStart: strings.TrimSpace(req.PeriodStart),
		PeriodEnd:   strings.TrimSpace(req.PeriodEnd),
		Notes:       req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"data": resp})
}

func (s *Server) ListStatements(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Scope      string `form:"scope"`
		Status     string `form:"status"`
		CustomerID string `form:"customer_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.statementSvc.List(c.Request.Context(), statementdomain.ListStatementRequest{
		Scope:      strings.TrimSpace(query.Scope),
		Status:     strings.TrimSpace(query.Status),
		CustomerID: strings.TrimSpace(query.CustomerID),
		PageToken:  query.PageToken,
		PageSize:   int32(query.PageSize),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetStatementByID(c *gin.Context) {
	resp, err := s.statementSvc.GetByID(c.Request.Context(), statementdomain.GetStatementRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetStatementSnapshot(c *gin.Context) {
	resp, err := s.statementSvc.GetSnapshot(c.Request.Context(), statementdomain.GetStatementRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetStatementDocument(c *gin.Context) {
	document, err := s.statementSvc.RenderDocument(c.Request.Context(), statementdomain.GetStatementRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/pdf", document)
}

func (s *Server) SendStatement(c *gin.Context) {
	resp, err := s.statementSvc.Send(c.Request.Context(), statementdomain.GetStatementRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) MarkStatementViewed(c *gin.Context) {
	resp, err := s.statementSvc.MarkViewed(c.Request.Context(), statementdomain.GetStatementRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) MarkStatementPaid(c *gin.Context) {
	resp, err := s.statementSvc.MarkPaid(c.Request.Context(), statementdomain.GetStatementRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
