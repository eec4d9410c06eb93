package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/traslados-api/internal/domain"
	"github.com/jhoicas/traslados-api/internal/domain/entity"
	"github.com/jhoicas/traslados-api/internal/domain/repository"
)

var _ repository.VariationStockStore = (*VariationStockRepo)(nil)

// VariationStockRepo implementación de VariationStockStore sobre PostgreSQL (usable con pool o tx).
type VariationStockRepo struct {
	q Querier
}

// NewVariationStockRepository construye el adaptador de stock por variación. Pasar pool o tx (Querier).
func NewVariationStockRepository(q Querier) *VariationStockRepo {
	return &VariationStockRepo{q: q}
}

const variationColumns = `id, product_id, branch_id, color, size, sku, barcode, price, cost,
	min_stock, stock_quantity, reserved_quantity, created_at, updated_at`

// GetByID lectura sin bloqueo.
func (r *VariationStockRepo) GetByID(ctx context.Context, id string) (*entity.ProductVariation, error) {
	query := `SELECT ` + variationColumns + ` FROM product_variations WHERE id = $1`
	var v entity.ProductVariation
	err := r.q.QueryRow(ctx, query, id).Scan(
		&v.ID, &v.ProductID, &v.BranchID, &v.Attributes.Color, &v.Attributes.Size,
		&v.SKU, &v.Barcode, &v.Price, &v.Cost, &v.MinStock,
		&v.StockQuantity, &v.ReservedQuantity, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("variación", id)
		}
		return nil, fmt.Errorf("get variation: %w", err)
	}
	return &v, nil
}

// LockForUpdate bloquea las filas con SELECT ... FOR UPDATE en orden ascendente de ID.
// El ORDER BY queda por debajo del nodo de bloqueo, así que las filas se bloquean en ese orden.
func (r *VariationStockRepo) LockForUpdate(ctx context.Context, ids ...string) (map[string]entity.VariationSnapshot, error) {
	ordered := sortedUnique(ids)
	out := make(map[string]entity.VariationSnapshot, len(ordered))
	if len(ordered) == 0 {
		return out, nil
	}
	query := `
		SELECT id, product_id, branch_id, color, size, stock_quantity, reserved_quantity
		FROM product_variations
		WHERE id = ANY($1)
		ORDER BY id COLLATE "C"
		FOR UPDATE`
	rows, err := r.q.Query(ctx, query, ordered)
	if err != nil {
		return nil, fmt.Errorf("lock variations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s entity.VariationSnapshot
		if err := rows.Scan(&s.ID, &s.ProductID, &s.BranchID, &s.Attributes.Color, &s.Attributes.Size,
			&s.StockQuantity, &s.ReservedQuantity); err != nil {
			return nil, fmt.Errorf("scan locked variation: %w", err)
		}
		out[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lock variations: %w", err)
	}
	for _, id := range ordered {
		if _, ok := out[id]; !ok {
			return nil, domain.NewNotFoundError("variación", id)
		}
	}
	return out, nil
}

// AdjustStock stock_quantity += delta. La fila debe estar bloqueada por el caller.
func (r *VariationStockRepo) AdjustStock(ctx context.Context, id string, delta int64) (entity.VariationSnapshot, error) {
	return r.adjust(ctx, id, "stock_quantity", delta)
}

// AdjustReserved reserved_quantity += delta. La fila debe estar bloqueada por el caller.
func (r *VariationStockRepo) AdjustReserved(ctx context.Context, id string, delta int64) (entity.VariationSnapshot, error) {
	return r.adjust(ctx, id, "reserved_quantity", delta)
}

// adjust column es siempre una constante interna, nunca entrada del usuario.
func (r *VariationStockRepo) adjust(ctx context.Context, id, column string, delta int64) (entity.VariationSnapshot, error) {
	query := fmt.Sprintf(`
		UPDATE product_variations
		SET %[1]s = %[1]s + $2, updated_at = now()
		WHERE id = $1 AND %[1]s + $2 >= 0
		RETURNING id, product_id, branch_id, color, size, stock_quantity, reserved_quantity`, column)
	var s entity.VariationSnapshot
	err := r.q.QueryRow(ctx, query, id, delta).Scan(
		&s.ID, &s.ProductID, &s.BranchID, &s.Attributes.Color, &s.Attributes.Size,
		&s.StockQuantity, &s.ReservedQuantity,
	)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return s, fmt.Errorf("adjust %s: %w", column, err)
	}

	// Sin filas: la variación no existe o el resultado sería negativo.
	var current int64
	err = r.q.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM product_variations WHERE id = $1`, column), id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return s, domain.NewNotFoundError("variación", id)
	}
	if err != nil {
		return s, fmt.Errorf("adjust %s: %w", column, err)
	}
	return s, &domain.InsufficientStockError{VariationID: id, Requested: -delta, Available: current}
}

// FindOrCreateAtBranch resuelve la variación equivalente en la sucursal. Si no existe, la inserta
// en cero copiando catálogo (sku, código de barras, precio, costo, stock mínimo) de otra variación
// del producto, preferentemente con los mismos atributos. ON CONFLICT cubre la carrera con otro
// traslado que la cree al mismo tiempo.
func (r *VariationStockRepo) FindOrCreateAtBranch(ctx context.Context, productID string, attrs entity.VariantAttributes, branchID string) (string, error) {
	if id, err := r.findAtBranch(ctx, productID, attrs, branchID); err != nil || id != "" {
		return id, err
	}

	query := `
		INSERT INTO product_variations (id, product_id, branch_id, color, size, sku, barcode,
			price, cost, min_stock, stock_quantity, reserved_quantity, created_at, updated_at)
		SELECT $1, src.product_id, $2, $3, $4, src.sku, src.barcode,
			src.price, src.cost, src.min_stock, 0, 0, now(), now()
		FROM product_variations src
		WHERE src.product_id = $5
		ORDER BY (src.color = $3 AND src.size = $4) DESC, src.created_at
		LIMIT 1
		ON CONFLICT (product_id, branch_id, color, size) DO NOTHING
		RETURNING id`
	var id string
	err := r.q.QueryRow(ctx, query, uuid.New().String(), branchID, attrs.Color, attrs.Size, productID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("create variation at branch: %w", err)
	}

	// Sin filas: otra transacción la creó primero o el producto no tiene variaciones.
	id, err = r.findAtBranch(ctx, productID, attrs, branchID)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", domain.NewNotFoundError("producto", productID)
	}
	return id, nil
}

func (r *VariationStockRepo) findAtBranch(ctx context.Context, productID string, attrs entity.VariantAttributes, branchID string) (string, error) {
	query := `
		SELECT id FROM product_variations
		WHERE product_id = $1 AND branch_id = $2 AND color = $3 AND size = $4`
	var id string
	err := r.q.QueryRow(ctx, query, productID, branchID, attrs.Color, attrs.Size).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("find variation at branch: %w", err)
	}
	return id, nil
}

// UpdateCost actualiza el costo promedio.
func (r *VariationStockRepo) UpdateCost(ctx context.Context, id string, cost decimal.Decimal) error {
	cmd, err := r.q.Exec(ctx, `UPDATE product_variations SET cost = $2, updated_at = now() WHERE id = $1`, id, cost)
	if err != nil {
		return fmt.Errorf("update variation cost: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NewNotFoundError("variación", id)
	}
	return nil
}

// Create inserta una variación (alta de catálogo y datos de prueba).
func (r *VariationStockRepo) Create(ctx context.Context, v *entity.ProductVariation) error {
	query := `
		INSERT INTO product_variations (` + variationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		v.ID, v.ProductID, v.BranchID, v.Attributes.Color, v.Attributes.Size,
		v.SKU, v.Barcode, v.Price, v.Cost, v.MinStock,
		v.StockQuantity, v.ReservedQuantity, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert variation: %w", mapError(err))
	}
	return nil
}
