// Package reconcile enriches the canonical spreadsheet with order ids and
// references from the shop database.
package reconcile

import (
	"database/sql"
	"fmt"
	"strings"
)

// Record is one active order as seen by the reconciler
type Record struct {
	OrderID            int64
	Reference          string
	MarketplaceOrderID sql.NullString
}

// MatchKey is the marketplace order id, or the order reference when the
// order has no marketplace mapping.
func (r Record) MatchKey() string {
	if r.MarketplaceOrderID.Valid {
		return strings.TrimSpace(r.MarketplaceOrderID.String)
	}
	return strings.TrimSpace(r.Reference)
}

// Policy decides which record wins when several share a key
type Policy int

const (
	// PolicyFirst keeps the record with the lowest order id
	PolicyFirst Policy = iota
	// PolicyLast keeps the record with the highest order id
	PolicyLast
)

// ParsePolicy parses "first" or "last"
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first":
		return PolicyFirst, nil
	case "last":
		return PolicyLast, nil
	default:
		return PolicyFirst, fmt.Errorf("unknown duplicate policy %q", s)
	}
}

func (p Policy) String() string {
	if p == PolicyLast {
		return "last"
	}
	return "first"
}

// prefers reports whether candidate should replace current under p
func (p Policy) prefers(candidate, current Record) bool {
	if p == PolicyLast {
		return candidate.OrderID > current.OrderID
	}
	return candidate.OrderID < current.OrderID
}
