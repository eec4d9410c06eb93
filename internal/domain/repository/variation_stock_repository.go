package repository

import (
	"context"

	"github.com/jhoicas/traslados-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// VariationStockStore es el único puerto autorizado a modificar stock_quantity/reserved_quantity.
// Todas las operaciones se ejecutan dentro de la transacción del caller.
type VariationStockStore interface {
	// GetByID lectura sin bloqueo de los campos de identidad y catálogo. No debe alimentar
	// decisiones salvo después de LockForUpdate sobre la misma fila.
	// Devuelve *domain.NotFoundError si no existe.
	GetByID(ctx context.Context, id string) (*entity.ProductVariation, error)
	// LockForUpdate bloquea en exclusiva las filas en orden ascendente de ID (sin duplicados)
	// y devuelve sus cantidades actuales. Devuelve *domain.NotFoundError si falta alguna.
	LockForUpdate(ctx context.Context, ids ...string) (map[string]entity.VariationSnapshot, error)
	// AdjustStock aplica stock_quantity += delta. *domain.InsufficientStockError si quedaría negativo.
	AdjustStock(ctx context.Context, id string, delta int64) (entity.VariationSnapshot, error)
	// AdjustReserved aplica reserved_quantity += delta con el mismo invariante no negativo.
	AdjustReserved(ctx context.Context, id string, delta int64) (entity.VariationSnapshot, error)
	// FindOrCreateAtBranch devuelve la variación del producto con esos atributos en la sucursal;
	// si no existe la crea en cero copiando precio, costo, código de barras y stock mínimo
	// de otra variación del mismo producto.
	FindOrCreateAtBranch(ctx context.Context, productID string, attrs entity.VariantAttributes, branchID string) (string, error)
	// UpdateCost actualiza el costo promedio de la variación (ajustes de entrada).
	UpdateCost(ctx context.Context, id string, cost decimal.Decimal) error
}
