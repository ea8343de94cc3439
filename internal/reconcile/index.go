package reconcile

import "strings"

// Rule names the rule that produced a match
type Rule int

const (
	RuleNone Rule = iota
	RuleMarketplace
	RuleReference
)

func (r Rule) String() string {
	switch r {
	case RuleMarketplace:
		return "marketplace"
	case RuleReference:
		return "reference"
	default:
		return "none"
	}
}

// Index resolves a join value against records, trying the marketplace
// key before the order reference.
type Index struct {
	byMarketplace map[string]Record
	byReference   map[string]Record
}

// NewIndex builds an index over records. Duplicate keys are resolved by
// policy, independent of input order.
func NewIndex(records []Record, policy Policy) *Index {
	ix := &Index{
		byMarketplace: make(map[string]Record, len(records)),
		byReference:   make(map[string]Record, len(records)),
	}
	for _, rec := range records {
		put(ix.byMarketplace, rec.MatchKey(), rec, policy)
		put(ix.byReference, strings.TrimSpace(rec.Reference), rec, policy)
	}
	return ix
}

func put(m map[string]Record, key string, rec Record, policy Policy) {
	if key == "" {
		return
	}
	if current, ok := m[key]; ok && !policy.prefers(rec, current) {
		return
	}
	m[key] = rec
}

// Match returns the record for value and the rule that found it
func (ix *Index) Match(value string) (Record, Rule) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Record{}, RuleNone
	}
	if rec, ok := ix.byMarketplace[value]; ok {
		return rec, RuleMarketplace
	}
	if rec, ok := ix.byReference[value]; ok {
		return rec, RuleReference
	}
	return Record{}, RuleNone
}

// Len returns the number of distinct marketplace keys
func (ix *Index) Len() int {
	return len(ix.byMarketplace)
}
