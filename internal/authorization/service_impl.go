package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectCustomer    = "customer"
	ObjectProduct     = "product"
	ObjectPricingRule = "pricing_rule"
	ObjectPricing     = "pricing"
	ObjectInvoice     = "invoice"
	ObjectReport      = "report"
	ObjectAuditLog    = "audit_log"
)

const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionSign   = "sign"
	ActionQuote  = "quote"
	ActionExport = "export"
)

const (
	roleAdmin = "role:admin"
	roleStaff = "role:staff"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads policies stored through the gorm adapter and seeds the
// built-in role grants.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	return newEnforcer(adapter)
}

func newEnforcer(adapter persist.Adapter) (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}

	var enforcer *casbin.SyncedEnforcer
	if adapter != nil {
		enforcer, err = casbin.NewSyncedEnforcer(m, adapter)
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
	}
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(adapter != nil)
	enforcer.EnableAutoBuildRoleLinks(true)

	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, role string, object string, action string) error {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	allowed, err := s.enforcer.Enforce("role:"+role, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("role", role),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Staff handle day-to-day statements.
		{roleStaff, ObjectCustomer, ActionView},
		{roleStaff, ObjectProduct, ActionView},
		{roleStaff, ObjectPricingRule, ActionView},
		{roleStaff, ObjectPricing, ActionQuote},
		{roleStaff, ObjectInvoice, ActionView},
		{roleStaff, ObjectInvoice, ActionCreate},
		{roleStaff, ObjectInvoice, ActionUpdate},
		{roleStaff, ObjectInvoice, ActionSign},
		{roleStaff, ObjectReport, ActionView},

		// Admins maintain master data on top of staff grants.
		{roleAdmin, ObjectCustomer, ActionCreate},
		{roleAdmin, ObjectCustomer, ActionUpdate},
		{roleAdmin, ObjectCustomer, ActionDelete},
		{roleAdmin, ObjectProduct, ActionCreate},
		{roleAdmin, ObjectProduct, ActionUpdate},
		{roleAdmin, ObjectProduct, ActionDelete},
		{roleAdmin, ObjectPricingRule, ActionCreate},
		{roleAdmin, ObjectPricingRule, ActionUpdate},
		{roleAdmin, ObjectPricingRule, ActionDelete},
		{roleAdmin, ObjectInvoice, ActionDelete},
		{roleAdmin, ObjectReport, ActionExport},
		{roleAdmin, ObjectAuditLog, ActionView},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	if _, err := enforcer.AddGroupingPolicy(roleAdmin, roleStaff); err != nil {
		return err
	}
	return nil
}

// NewMemoryEnforcer returns an enforcer holding only the built-in grants.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	return newEnforcer(nil)
}
