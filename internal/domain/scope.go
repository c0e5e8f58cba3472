package domain

import (
	"fmt"
	"strings"
)

type ScopeKind string

const (
	ScopeKindAll      ScopeKind = "all"
	ScopeKindMerchant ScopeKind = "merchant"
	ScopeKindCustomer ScopeKind = "customer"
)

// Scope is the audience entitled to receive a given event: every order
// (admin), one merchant's orders, or one customer's orders.
type Scope struct {
	Kind ScopeKind
	ID   string
}

func AllScope() Scope {
	return Scope{Kind: ScopeKindAll}
}

func MerchantScope(merchantID string) Scope {
	return Scope{Kind: ScopeKindMerchant, ID: merchantID}
}

func CustomerScope(customerID string) Scope {
	return Scope{Kind: ScopeKindCustomer, ID: customerID}
}

// Key returns the routing key for the scope's event channel.
func (s Scope) Key() string {
	if s.Kind == ScopeKindAll {
		return "all"
	}
	return fmt.Sprintf("%s.%s", s.Kind, s.ID)
}

// Covers reports whether an order falls inside the scope.
func (s Scope) Covers(o *Order) bool {
	switch s.Kind {
	case ScopeKindAll:
		return true
	case ScopeKindMerchant:
		return s.ID == o.MerchantID
	case ScopeKindCustomer:
		return s.ID == o.CustomerID
	default:
		return false
	}
}

// ScopeFor returns the scope a principal is entitled to snapshot and
// subscribe to: admins see everything, merchant staff their merchant,
// everyone else their own orders.
func ScopeFor(p *Principal) Scope {
	switch {
	case Satisfies(p.Role, RoleAdmin):
		return AllScope()
	case p.MerchantID != "":
		return MerchantScope(p.MerchantID)
	default:
		return CustomerScope(p.ID)
	}
}

// ParseScope parses the CLI form "all", "merchant:<id>" or "customer:<id>".
func ParseScope(s string) (Scope, error) {
	if s == "all" {
		return AllScope(), nil
	}

	kind, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return Scope{}, fmt.Errorf("invalid scope %q", s)
	}

	switch ScopeKind(kind) {
	case ScopeKindMerchant:
		return MerchantScope(id), nil
	case ScopeKindCustomer:
		return CustomerScope(id), nil
	default:
		return Scope{}, fmt.Errorf("invalid scope kind %q", kind)
	}
}
