package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/finledger/backoffice/internal/audit/domain"
	"github.com/finledger/backoffice/internal/authorization"
	"github.com/finledger/backoffice/internal/config"
	customerdomain "github.com/finledger/backoffice/internal/customer/domain"
	"github.com/finledger/backoffice/internal/observability"
	obsmiddleware "github.com/finledger/backoffice/internal/observability/logger"
	obsmetrics "github.com/finledger/backoffice/internal/observability/metrics"
	obstracing "github.com/finledger/backoffice/internal/observability/tracing"
	statementdomain "github.com/finledger/backoffice/internal/statement/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	genID        *snowflake.Node
	authzSvc     authorization.Service
	auditSvc     auditdomain.Service
	customerSvc  customerdomain.Service
	statementSvc statementdomain.Service
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	GenID        *snowflake.Node
	AuthzSvc     authorization.Service
	AuditSvc     auditdomain.Service
	CustomerSvc  customerdomain.Service
	StatementSvc statementdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		genID:        p.GenID,
		authzSvc:     p.AuthzSvc,
		auditSvc:     p.AuditSvc,
		customerSvc:  p.CustomerSvc,
		statementSvc: p.StatementSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.Use(s.AuthRequired())
	api.Use(s.OrgContext())

	// -------- Statements --------
	api.POST("/statements", s.authorizeOrgAction(authorization.ObjectStatement, authorization.ActionStatementGenerate), s.GenerateStatement)
	api.POST("/statements/bulk", s.authorizeOrgAction(authorization.ObjectStatement, authorization.ActionStatementGenerateBulk), s.GenerateStatementsBulk)
	api.GET("/statements", s.authorizeOrgAction(authorization.ObjectStatement, authorization.ActionStatementView), s.ListStatements)
	api.GET("/statements/:id", s.authorizeOrgAction(authorization.ObjectStatement, authorization.ActionStatementView), s.GetStatementByID)
	api.GET("/statements/:id/snapshot", s.authorizeOrgAction(authorization.ObjectStatement, authorization.ActionStatementView), s.GetStatementSnapshot)
	api.GET("/statements/:id/document", s.authorizeOrgAction(authorization.ObjectStatement, authorization.ActionStatementView), s.GetStatementDocument)
	api.POST("/statements/:id/send", s.authorizeOrgAction(authorization.ObjectStatement, authorization.ActionStatementSend), s.SendStatement)
	api.POST("/statements/:id/viewed", s.authorizeOrgAction(authorization.ObjectStatement, authorization.ActionStatementMarkViewed), s.MarkStatementViewed)
	api.POST("/statements/:id/paid", s.authorizeOrgAction(authorization.ObjectStatement, authorization.ActionStatementMarkPaid), s.MarkStatementPaid)

	// -------- Customers --------
	api.GET("/customers", s.authorizeOrgAction(authorization.ObjectCustomer, authorization.ActionCustomerView), s.ListCustomers)
	api.POST("/customers", s.authorizeOrgAction(authorization.ObjectCustomer, authorization.ActionCustomerCreate), s.CreateCustomer)
	api.GET("/customers/:id", s.authorizeOrgAction(authorization.ObjectCustomer, authorization.ActionCustomerView), s.GetCustomerByID)

	// -------- Audit --------
	api.GET("/audit-logs", s.authorizeOrgAction(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}
