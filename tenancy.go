package turborest

import (
	"errors"
	"fmt"
)

// TenancyStrategy selects how tenants map onto databases.
type TenancyStrategy string

const (
	// DBPerTenant gives every tenant its own database named after the tenant id.
	DBPerTenant TenancyStrategy = "dbPerTenant"
	// TenantInDB keeps all tenants in one shared database; isolation happens
	// through the tenantId field on every query and write.
	TenantInDB TenancyStrategy = "tenantInDb"
)

// ParseTenancyStrategy converts a configuration string into a TenancyStrategy.
func ParseTenancyStrategy(s string) (TenancyStrategy, error) {
	switch TenancyStrategy(s) {
	case DBPerTenant:
		return DBPerTenant, nil
	case TenantInDB:
		return TenantInDB, nil
	default:
		return "", fmt.Errorf("turborest: unknown tenancy strategy %q", s)
	}
}

// TenancyResolver computes the database a tenant's data lives in. It is a
// pure function of its configuration and safe for concurrent use.
type TenancyResolver struct {
	strategy     TenancyStrategy
	sharedDBName string
}

// NewTenancyResolver validates the strategy/database combination once at
// construction so Resolve itself cannot fail.
func NewTenancyResolver(strategy TenancyStrategy, sharedDBName string) (*TenancyResolver, error) {
	switch strategy {
	case DBPerTenant:
	case TenantInDB:
		if sharedDBName == "" {
			return nil, errors.New("turborest: tenancy strategy tenantInDb requires a database name")
		}
	default:
		return nil, fmt.Errorf("turborest: unknown tenancy strategy %q", strategy)
	}
	return &TenancyResolver{strategy: strategy, sharedDBName: sharedDBName}, nil
}

// Strategy returns the strategy fixed at construction time.
func (r *TenancyResolver) Strategy() TenancyStrategy {
	return r.strategy
}

// Resolve returns the database name for the given tenant.
func (r *TenancyResolver) Resolve(tenantID string) string {
	if r.strategy == TenantInDB {
		return r.sharedDBName
	}
	return tenantID
}
