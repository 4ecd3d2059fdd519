package domain

import (
	"cmp"
	"slices"
)

type ConditionKind int

const (
	CondLinkedEntityID ConditionKind = iota
	CondLinkedEntityIn
	CondValue
	CondOrganization
	CondOrganizationWithGlobals
	CondGlobal
)

// Condition is a single resolved predicate. Which fields are meaningful
// depends on Kind.
type Condition struct {
	Kind       ConditionKind
	Text       string
	Flag       bool
	EntityKind EntityKind
	IDs        []string
}

func (c Condition) Match(b BarcodeRegistration) bool {
	switch c.Kind {
	case CondLinkedEntityID:
		return b.LinkedEntityID == c.Text
	case CondLinkedEntityIn:
		return b.LinkedEntityKind == c.EntityKind && slices.Contains(c.IDs, b.LinkedEntityID)
	case CondValue:
		return b.Value == c.Text
	case CondOrganization:
		return b.OrganizationID == c.Text
	case CondOrganizationWithGlobals:
		return b.Global || b.OrganizationID == c.Text
	case CondGlobal:
		return b.Global == c.Flag
	}
	return false
}

// Query is a Scope with every external lookup already resolved, ready for a
// repository to execute.
type Query struct {
	Conditions []Condition
	Ordering   []Order
	EagerLoad  bool
}

// Match reports whether b satisfies every condition.
func (q Query) Match(b BarcodeRegistration) bool {
	for _, c := range q.Conditions {
		if !c.Match(b) {
			return false
		}
	}
	return true
}

// Filter returns the matching registrations sorted by q.Ordering.
func (q Query) Filter(all []BarcodeRegistration) []BarcodeRegistration {
	out := make([]BarcodeRegistration, 0, len(all))
	for _, b := range all {
		if q.Match(b) {
			out = append(out, b)
		}
	}
	SortRegistrations(out, q.Ordering)
	return out
}

// SortRegistrations sorts in place; unknown fields are ignored.
func SortRegistrations(regs []BarcodeRegistration, ordering []Order) {
	slices.SortStableFunc(regs, func(a, b BarcodeRegistration) int {
		for _, o := range ordering {
			var c int
			switch o.Field {
			case OrderFieldGlobal:
				c = cmpBool(a.Global, b.Global)
			case OrderFieldCreatedAt:
				c = a.CreatedAt.Compare(b.CreatedAt)
			case OrderFieldValue:
				c = cmp.Compare(a.Value, b.Value)
			}
			if o.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
