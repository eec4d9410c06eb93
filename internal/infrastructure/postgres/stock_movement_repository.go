package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/traslados-api/internal/domain/entity"
	"github.com/jhoicas/traslados-api/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo kardex sobre PostgreSQL. Solo inserta y lee.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador de kardex. Pasar pool o tx.
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

const movementColumns = `id, transfer_id, variation_id, branch_id, type, stock_delta, reserved_delta,
	stock_after, reserved_after, reason, created_at, created_by`

// Create registra un movimiento.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		m.ID, nullString(m.TransferID), m.VariationID, m.BranchID, m.Type,
		m.StockDelta, m.ReservedDelta, m.StockAfter, m.ReservedAfter,
		m.Reason, m.CreatedAt, m.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("insert stock movement: %w", err)
	}
	return nil
}

// ListByTransfer movimientos de un traslado en orden de registro.
func (r *StockMovementRepo) ListByTransfer(ctx context.Context, transferID string) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements
		WHERE transfer_id = $1 ORDER BY seq`
	return r.list(ctx, query, transferID)
}

// ListByVariation kardex de una variación, más reciente primero.
func (r *StockMovementRepo) ListByVariation(ctx context.Context, variationID string, limit, offset int) ([]*entity.StockMovement, error) {
	query, args := appendPage(`SELECT `+movementColumns+` FROM stock_movements
		WHERE variation_id = $1 ORDER BY seq DESC`, []any{variationID}, limit, offset)
	return r.list(ctx, query, args...)
}

func (r *StockMovementRepo) list(ctx context.Context, query string, args ...any) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		var (
			m          entity.StockMovement
			transferID *string
		)
		if err := rows.Scan(
			&m.ID, &transferID, &m.VariationID, &m.BranchID, &m.Type,
			&m.StockDelta, &m.ReservedDelta, &m.StockAfter, &m.ReservedAfter,
			&m.Reason, &m.CreatedAt, &m.CreatedBy,
		); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		m.TransferID = derefString(transferID)
		list = append(list, &m)
	}
	return list, rows.Err()
}
