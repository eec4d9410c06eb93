package repository

import (
	"context"

	"github.com/jhoicas/traslados-api/internal/domain/entity"
)

// StockMovementRepository define el puerto de persistencia del kardex (DIP).
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	ListByTransfer(ctx context.Context, transferID string) ([]*entity.StockMovement, error)
	ListByVariation(ctx context.Context, variationID string, limit, offset int) ([]*entity.StockMovement, error)
}
