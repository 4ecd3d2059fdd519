package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/rl1809/barcode-registry/internal/core/domain"
	"github.com/rl1809/barcode-registry/internal/logger"
)

// ExportHeaders is the header row of a barcode CSV export.
func ExportHeaders() []string {
	return []string{"Item Type", "Quantity in the Box", "Barcode"}
}

type ExportRow struct {
	ItemType string
	Quantity int
	Barcode  string
}

func (r ExportRow) Strings() []string {
	return []string{r.ItemType, strconv.Itoa(r.Quantity), r.Barcode}
}

type ExportProjector struct {
	identity *IdentityResolver
	log      *logger.Logger
}

func NewExportProjector(identity *IdentityResolver, log *logger.Logger) *ExportProjector {
	return &ExportProjector{identity: identity, log: log.With("component", "ExportProjector")}
}

// Project maps regs, in order, to export rows. Entities already attached to a
// registration are used as-is. Registrations whose entity is gone are logged
// and skipped.
func (p *ExportProjector) Project(ctx context.Context, regs []domain.BarcodeRegistration) ([]ExportRow, error) {
	rows := make([]ExportRow, 0, len(regs))
	for _, reg := range regs {
		entity, err := p.identity.Resolve(ctx, reg)
		if errors.Is(err, domain.ErrDanglingReference) || errors.Is(err, domain.ErrMissingLinkedEntity) {
			p.log.Warn("skipping barcode with dangling reference",
				"barcode_id", reg.ID, "kind", reg.LinkedEntityKind, "entity_id", reg.LinkedEntityID)
			continue
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, ExportRow{ItemType: entity.Name, Quantity: reg.Quantity, Barcode: reg.Value})
	}
	return rows, nil
}

// Table returns the header followed by one string tuple per row.
func (p *ExportProjector) Table(ctx context.Context, regs []domain.BarcodeRegistration) ([][]string, error) {
	rows, err := p.Project(ctx, regs)
	if err != nil {
		return nil, err
	}
	table := make([][]string, 0, len(rows)+1)
	table = append(table, ExportHeaders())
	for _, row := range rows {
		table = append(table, row.Strings())
	}
	return table, nil
}
