package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/finledger/backoffice/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectStatement = "statement"
	ObjectCustomer  = "customer"
	ObjectAuditLog  = "audit_log"
)

const (
	ActionStatementView         = "statement.view"
	ActionStatementGenerate     = "statement.generate"
	ActionStatementGenerateBulk = "statement.generate_bulk"
	ActionStatementSend         = "statement.send"
	ActionStatementMarkViewed   = "statement.mark_viewed"
	ActionStatementMarkPaid     = "statement.mark_paid"

	ActionCustomerView   = "customer.view"
	ActionCustomerCreate = "customer.create"

	ActionAuditLogView = "audit_log.view"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, role string, orgID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return ErrInvalidOrganization
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, actorType, actorID, err := s.resolveActor(actor, role)
	if err != nil {
		s.auditDenied(ctx, actorType, actorID, orgID, object, action)
		return err
	}

	domain := fmt.Sprintf("org:%s", orgID)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, actorType, actorID, orgID, object, action)
		return ErrForbidden
	}
	return nil
}

// resolveActor maps the caller to a casbin subject and role. Roles come from
// the authenticated token, not a membership table, so resolution is local.
func (s *ServiceImpl) resolveActor(actor string, role string) (string, string, string, *string, error) {
	if actor == "system" {
		return actor, "role:system", "system", nil, nil
	}
	if strings.HasPrefix(actor, "user:") {
		userIDRaw := strings.TrimPrefix(actor, "user:")
		userID, err := snowflake.ParseString(userIDRaw)
		if err != nil || userID == 0 {
			return "", "", "", nil, ErrInvalidActor
		}
		userIDStr := userID.String()
		role = strings.ToLower(strings.TrimSpace(role))
		if role == "" {
			return actor, "", "user", &userIDStr, ErrForbidden
		}
		return actor, fmt.Sprintf("role:%s", role), "user", &userIDStr, nil
	}
	return "", "", "", nil, ErrInvalidActor
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actorType string, actorID *string, orgID string, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	parsedOrgID, err := snowflake.ParseString(orgID)
	if err != nil || parsedOrgID == 0 {
		return
	}
	targetID := "capability"
	_ = s.auditSvc.AuditLog(ctx, &parsedOrgID, actorType, actorID, "authorization.denied", "authorization", &targetID, map[string]any{
		"object": object,
		"action": action,
		"org_id": orgID,
	})
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Recipients can read what was sent to them and acknowledge it.
		{"role:customer", ObjectStatement, ActionStatementView},
		{"role:customer", ObjectStatement, ActionStatementMarkViewed},

		// Issuers run the statement cycle for their org.
		{"role:issuer", ObjectStatement, ActionStatementView},
		{"role:issuer", ObjectStatement, ActionStatementGenerate},
		{"role:issuer", ObjectStatement, ActionStatementGenerateBulk},
		{"role:issuer", ObjectStatement, ActionStatementSend},
		{"role:issuer", ObjectCustomer, ActionCustomerView},
		{"role:issuer", ObjectCustomer, ActionCustomerCreate},

		// Admins additionally reconcile payments and read the audit trail.
		{"role:admin", ObjectStatement, ActionStatementView},
		{"role:admin", ObjectStatement, ActionStatementGenerate},
		{"role:admin", ObjectStatement, ActionStatementGenerateBulk},
		{"role:admin", ObjectStatement, ActionStatementSend},
		{"role:admin", ObjectStatement, ActionStatementMarkViewed},
		{"role:admin", ObjectStatement, ActionStatementMarkPaid},
		{"role:admin", ObjectCustomer, ActionCustomerView},
		{"role:admin", ObjectCustomer, ActionCustomerCreate},
		{"role:admin", ObjectAuditLog, ActionAuditLogView},

		// Automated reconciliation feeds.
		{"role:system", ObjectStatement, ActionStatementView},
		{"role:system", ObjectStatement, ActionStatementGenerate},
		{"role:system", ObjectStatement, ActionStatementMarkPaid},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
