package storage

// Schema creates the registry tables. Registrations are unique on
// (is_global, scope_org, value): scope_org is empty for every global row and
// the organization id for scoped rows, so no organization id can alias the
// global domain.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		id         VARCHAR(64)  NOT NULL PRIMARY KEY,
		name       VARCHAR(255) NOT NULL,
		created_at DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		id            VARCHAR(64)  NOT NULL PRIMARY KEY,
		name          VARCHAR(255) NOT NULL,
		partner_key   VARCHAR(255) NOT NULL DEFAULT '',
		barcode_count INT          NOT NULL DEFAULT 0,
		KEY idx_items_partner_key (partner_key)
	)`,
	`CREATE TABLE IF NOT EXISTS base_items (
		id            VARCHAR(64)  NOT NULL PRIMARY KEY,
		name          VARCHAR(255) NOT NULL,
		partner_key   VARCHAR(255) NOT NULL DEFAULT '',
		barcode_count INT          NOT NULL DEFAULT 0,
		KEY idx_base_items_partner_key (partner_key)
	)`,
	`CREATE TABLE IF NOT EXISTS barcode_registrations (
		id                 VARCHAR(36)  NOT NULL PRIMARY KEY,
		value              VARCHAR(255) NOT NULL,
		quantity           INT          NOT NULL,
		linked_entity_id   VARCHAR(64)  NOT NULL,
		linked_entity_kind VARCHAR(16)  NOT NULL DEFAULT 'Item',
		organization_id    VARCHAR(64)  NULL,
		is_global          BOOLEAN      NOT NULL DEFAULT FALSE,
		scope_org          VARCHAR(64)  AS (IF(is_global, '', organization_id)) STORED,
		created_at         DATETIME(6)  NOT NULL,
		updated_at         DATETIME(6)  NOT NULL,
		UNIQUE KEY uq_barcode_namespace_value (is_global, scope_org, value),
		KEY idx_barcode_value (value),
		KEY idx_barcode_linked (linked_entity_kind, linked_entity_id),
		KEY idx_barcode_org (organization_id, is_global, created_at),
		CONSTRAINT chk_barcode_quantity CHECK (quantity > 0)
	)`,
}
