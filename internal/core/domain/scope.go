package domain

import (
	"slices"
	"strconv"
	"strings"
)

// Order is one ORDER BY term over registration columns.
type Order struct {
	Field string
	Desc  bool
}

const (
	OrderFieldGlobal    = "global"
	OrderFieldCreatedAt = "created_at"
	OrderFieldValue     = "value"
)

// DefaultOrdering lists non-global registrations before global ones, oldest
// first within each group.
var DefaultOrdering = []Order{{Field: OrderFieldGlobal}, {Field: OrderFieldCreatedAt}}

// PartnerKeyFilter restricts to registrations linked to an entity of Kind
// whose partner key equals Key.
type PartnerKeyFilter struct {
	Kind EntityKind
	Key  string
}

// Scope describes a listing request. Every set field narrows the result.
type Scope struct {
	LinkedEntityID          *string
	PartnerKeys             []PartnerKeyFilter
	Value                   *string
	OrganizationWithGlobals *string
	IncludeGlobal           *bool
	ExportOrganization      *string
	OnlyGlobal              bool
	Ordering                []Order
}

type ScopeOption func(*Scope)

// NewScope builds a scope with DefaultOrdering unless OrderBy overrides it.
func NewScope(opts ...ScopeOption) Scope {
	s := Scope{Ordering: slices.Clone(DefaultOrdering)}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func ByLinkedEntityID(id string) ScopeOption {
	return func(s *Scope) { s.LinkedEntityID = &id }
}

func ByItemPartnerKey(key string) ScopeOption {
	return func(s *Scope) {
		s.PartnerKeys = append(s.PartnerKeys, PartnerKeyFilter{Kind: EntityKindItem, Key: key})
	}
}

func ByBaseItemPartnerKey(key string) ScopeOption {
	return func(s *Scope) {
		s.PartnerKeys = append(s.PartnerKeys, PartnerKeyFilter{Kind: EntityKindBaseItem, Key: key})
	}
}

func ByValue(value string) ScopeOption {
	return func(s *Scope) { s.Value = &value }
}

func OrganizationWithGlobals(orgID string) ScopeOption {
	return func(s *Scope) { s.OrganizationWithGlobals = &orgID }
}

func IncludeGlobal(flag bool) ScopeOption {
	return func(s *Scope) { s.IncludeGlobal = &flag }
}

// ForExport restricts to one organization and requests linked entities be
// loaded with the registrations.
func ForExport(orgID string) ScopeOption {
	return func(s *Scope) { s.ExportOrganization = &orgID }
}

func OnlyGlobal() ScopeOption {
	return func(s *Scope) { s.OnlyGlobal = true }
}

func OrderBy(orders ...Order) ScopeOption {
	return func(s *Scope) { s.Ordering = orders }
}

// EagerLoad reports whether linked entities must be attached to results.
func (s Scope) EagerLoad() bool {
	return s.ExportOrganization != nil
}

// FilterOptions maps request parameters onto scope options. Unknown keys and
// blank values are ignored.
func FilterOptions(params map[string]string) []ScopeOption {
	var opts []ScopeOption
	for key, raw := range params {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		switch key {
		case "barcodeable_id", "linked_entity_id":
			opts = append(opts, ByLinkedEntityID(value))
		case "by_item_partner_key":
			opts = append(opts, ByItemPartnerKey(value))
		case "by_base_item_partner_key":
			opts = append(opts, ByBaseItemPartnerKey(value))
		case "by_value":
			opts = append(opts, ByValue(value))
		case "include_global":
			if flag, err := strconv.ParseBool(value); err == nil {
				opts = append(opts, IncludeGlobal(flag))
			}
		}
	}
	return opts
}
