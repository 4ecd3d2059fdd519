package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/barcode-registry/internal/core/domain"
)

// mysqlErrDuplicateEntry is ER_DUP_ENTRY.
const mysqlErrDuplicateEntry = 1062

const registrationColumns = `id, value, quantity, linked_entity_id, linked_entity_kind,
	organization_id, is_global, created_at, updated_at`

// entityTables dispatches an entity kind to the table holding it.
var entityTables = map[domain.EntityKind]string{
	domain.EntityKindItem:     "items",
	domain.EntityKindBaseItem: "base_items",
}

var orderColumns = map[string]string{
	domain.OrderFieldGlobal:    "is_global",
	domain.OrderFieldCreatedAt: "created_at",
	domain.OrderFieldValue:     "value",
}

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// Migrate creates missing tables.
func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range Schema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) Get(ctx context.Context, id string) (*domain.BarcodeRegistration, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+registrationColumns+` FROM barcode_registrations WHERE id = ?`, id)
	reg, err := scanRegistration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query registration: %w", err)
	}
	return reg, nil
}

func (m *MySQLAdapter) FindByValue(ctx context.Context, value string) ([]domain.BarcodeRegistration, error) {
	return m.queryRegistrations(ctx, `SELECT `+registrationColumns+` FROM barcode_registrations WHERE value = ?`, value)
}

func (m *MySQLAdapter) Create(ctx context.Context, reg domain.BarcodeRegistration) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO barcode_registrations (`+registrationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reg.ID, reg.Value, reg.Quantity, reg.LinkedEntityID, reg.LinkedEntityKind,
		nullString(reg.OrganizationID), reg.Global, reg.CreatedAt, reg.UpdatedAt,
	)
	if err != nil {
		return translateWriteError("insert registration", err)
	}
	return nil
}

func (m *MySQLAdapter) Update(ctx context.Context, reg domain.BarcodeRegistration) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE barcode_registrations
		SET value = ?, quantity = ?, linked_entity_id = ?, linked_entity_kind = ?,
			organization_id = ?, is_global = ?, updated_at = ?
		WHERE id = ?`,
		reg.Value, reg.Quantity, reg.LinkedEntityID, reg.LinkedEntityKind,
		nullString(reg.OrganizationID), reg.Global, reg.UpdatedAt, reg.ID,
	)
	if err != nil {
		return translateWriteError("update registration", err)
	}

	// an update that changes nothing also reports 0 rows
	rows, _ := result.RowsAffected()
	if rows == 0 {
		if _, err := m.Get(ctx, reg.ID); err != nil {
			return err
		}
	}
	return nil
}

func (m *MySQLAdapter) Delete(ctx context.Context, id string) error {
	result, err := m.db.ExecContext(ctx, `DELETE FROM barcode_registrations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (m *MySQLAdapter) List(ctx context.Context, q domain.Query) ([]domain.BarcodeRegistration, error) {
	where, args := buildWhere(q.Conditions)
	query := `SELECT ` + registrationColumns + ` FROM barcode_registrations` + where + buildOrderBy(q.Ordering)
	return m.queryRegistrations(ctx, query, args...)
}

func (m *MySQLAdapter) queryRegistrations(ctx context.Context, query string, args ...any) ([]domain.BarcodeRegistration, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query registrations: %w", err)
	}
	defer rows.Close()

	var regs []domain.BarcodeRegistration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

func scanRegistration(scanner interface{ Scan(...any) error }) (*domain.BarcodeRegistration, error) {
	var reg domain.BarcodeRegistration
	var orgID sql.NullString
	err := scanner.Scan(
		&reg.ID, &reg.Value, &reg.Quantity, &reg.LinkedEntityID, &reg.LinkedEntityKind,
		&orgID, &reg.Global, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	reg.OrganizationID = orgID.String
	return &reg, nil
}

func buildWhere(conds []domain.Condition) (string, []any) {
	if len(conds) == 0 {
		return "", nil
	}
	clauses := make([]string, 0, len(conds))
	var args []any
	for _, c := range conds {
		switch c.Kind {
		case domain.CondLinkedEntityID:
			clauses = append(clauses, "linked_entity_id = ?")
			args = append(args, c.Text)
		case domain.CondLinkedEntityIn:
			if len(c.IDs) == 0 {
				clauses = append(clauses, "1 = 0")
				continue
			}
			clauses = append(clauses, "linked_entity_kind = ? AND linked_entity_id IN ("+placeholders(len(c.IDs))+")")
			args = append(args, string(c.EntityKind))
			for _, id := range c.IDs {
				args = append(args, id)
			}
		case domain.CondValue:
			clauses = append(clauses, "value = ?")
			args = append(args, c.Text)
		case domain.CondOrganization:
			clauses = append(clauses, "organization_id = ?")
			args = append(args, c.Text)
		case domain.CondOrganizationWithGlobals:
			clauses = append(clauses, "(is_global = TRUE OR (organization_id = ? AND is_global = FALSE))")
			args = append(args, c.Text)
		case domain.CondGlobal:
			clauses = append(clauses, "is_global = ?")
			args = append(args, c.Flag)
		}
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func buildOrderBy(ordering []domain.Order) string {
	terms := make([]string, 0, len(ordering))
	for _, o := range ordering {
		col, ok := orderColumns[o.Field]
		if !ok {
			continue
		}
		if o.Desc {
			col += " DESC"
		} else {
			col += " ASC"
		}
		terms = append(terms, col)
	}
	if len(terms) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// translateWriteError maps a unique key violation to domain.ErrDuplicateValue
// so racing writers see the same error the validator would have returned.
func translateWriteError(op string, err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlErrDuplicateEntry {
		return domain.ErrDuplicateValue.WithCause(err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (m *MySQLAdapter) Find(ctx context.Context, kind domain.EntityKind, id string) (*domain.LinkedEntity, error) {
	table, ok := entityTables[kind]
	if !ok {
		return nil, nil
	}
	e := domain.LinkedEntity{Kind: kind}
	err := m.db.QueryRowContext(ctx,
		`SELECT id, name, partner_key, barcode_count FROM `+table+` WHERE id = ?`, id,
	).Scan(&e.ID, &e.Name, &e.PartnerKey, &e.BarcodeCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	return &e, nil
}

func (m *MySQLAdapter) FindMany(ctx context.Context, kind domain.EntityKind, ids []string) ([]domain.LinkedEntity, error) {
	table, ok := entityTables[kind]
	if !ok || len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return m.queryEntities(ctx, kind,
		`SELECT id, name, partner_key, barcode_count FROM `+table+` WHERE id IN (`+placeholders(len(ids))+`)`, args...)
}

func (m *MySQLAdapter) FindByPartnerKey(ctx context.Context, kind domain.EntityKind, key string) ([]domain.LinkedEntity, error) {
	table, ok := entityTables[kind]
	if !ok {
		return nil, nil
	}
	return m.queryEntities(ctx, kind,
		`SELECT id, name, partner_key, barcode_count FROM `+table+` WHERE partner_key = ?`, key)
}

func (m *MySQLAdapter) queryEntities(ctx context.Context, kind domain.EntityKind, query string, args ...any) ([]domain.LinkedEntity, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s entities: %w", kind, err)
	}
	defer rows.Close()

	var out []domain.LinkedEntity
	for rows.Next() {
		e := domain.LinkedEntity{Kind: kind}
		if err := rows.Scan(&e.ID, &e.Name, &e.PartnerKey, &e.BarcodeCount); err != nil {
			return nil, fmt.Errorf("scan %s entity: %w", kind, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AdjustBarcodeCount never lets the count drop below zero.
func (m *MySQLAdapter) AdjustBarcodeCount(ctx context.Context, kind domain.EntityKind, id string, delta int) error {
	table, ok := entityTables[kind]
	if !ok {
		return domain.ErrMissingLinkedEntity
	}
	result, err := m.db.ExecContext(ctx, `
		UPDATE `+table+`
		SET barcode_count = GREATEST(barcode_count + ?, 0)
		WHERE id = ?`,
		delta, id,
	)
	if err != nil {
		return fmt.Errorf("update %s barcode_count: %w", table, err)
	}

	// MySQL reports changed rows, so a count already clamped at zero also
	// yields 0 here
	rows, _ := result.RowsAffected()
	if rows == 0 {
		e, err := m.Find(ctx, kind, id)
		if err != nil {
			return err
		}
		if e == nil {
			return domain.ErrDanglingReference
		}
	}
	return nil
}

func (m *MySQLAdapter) OrganizationExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := m.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM organizations WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query organization: %w", err)
	}
	return exists, nil
}
