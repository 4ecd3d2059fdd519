package storage

import (
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"

	"github.com/rl1809/barcode-registry/internal/core/domain"
)

func TestBuildWhere(t *testing.T) {
	where, args := buildWhere([]domain.Condition{
		{Kind: domain.CondValue, Text: "ABC"},
		{Kind: domain.CondOrganizationWithGlobals, Text: "1"},
		{Kind: domain.CondLinkedEntityIn, EntityKind: domain.EntityKindItem, IDs: []string{"a", "b"}},
		{Kind: domain.CondGlobal, Flag: false},
	})
	assert.Equal(t, " WHERE value = ? AND (is_global = TRUE OR (organization_id = ? AND is_global = FALSE))"+
		" AND linked_entity_kind = ? AND linked_entity_id IN (?, ?) AND is_global = ?", where)
	assert.Equal(t, []any{"ABC", "1", "Item", "a", "b", false}, args)
}

func TestBuildWhere_EmptyPartnerKeyMatchesNothing(t *testing.T) {
	where, args := buildWhere([]domain.Condition{{Kind: domain.CondLinkedEntityIn, EntityKind: domain.EntityKindBaseItem}})
	assert.Equal(t, " WHERE 1 = 0", where)
	assert.Empty(t, args)
}

func TestBuildWhere_NoConditions(t *testing.T) {
	where, args := buildWhere(nil)
	assert.Empty(t, where)
	assert.Nil(t, args)
}

func TestBuildOrderBy(t *testing.T) {
	assert.Equal(t, " ORDER BY is_global ASC, created_at ASC", buildOrderBy(domain.DefaultOrdering))
	assert.Equal(t, " ORDER BY value DESC", buildOrderBy([]domain.Order{{Field: "value", Desc: true}, {Field: "id; DROP"}}))
	assert.Empty(t, buildOrderBy(nil))
}

func TestTranslateWriteError(t *testing.T) {
	dup := &mysql.MySQLError{Number: mysqlErrDuplicateEntry, Message: "Duplicate entry"}
	err := translateWriteError("insert registration", dup)
	assert.ErrorIs(t, err, domain.ErrDuplicateValue)
	assert.ErrorIs(t, err, dup)

	other := errors.New("connection reset")
	err = translateWriteError("insert registration", other)
	assert.NotErrorIs(t, err, domain.ErrDuplicateValue)
	assert.ErrorIs(t, err, other)
}

func TestSchema_UniqueKeySeparatesGlobalFromOrganizations(t *testing.T) {
	registrations := Schema[len(Schema)-1]
	assert.Contains(t, registrations, "scope_org          VARCHAR(64)  AS (IF(is_global, '', organization_id)) STORED")
	assert.Contains(t, registrations, "UNIQUE KEY uq_barcode_namespace_value (is_global, scope_org, value)")
	assert.NotContains(t, registrations, "__global__")
}
