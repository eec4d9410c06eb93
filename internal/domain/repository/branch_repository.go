package repository

import (
	"context"

	"github.com/jhoicas/traslados-api/internal/domain/entity"
)

// BranchRepository define el puerto de persistencia para Branch (DIP).
// GetByID devuelve (nil, nil) si la sucursal no existe.
type BranchRepository interface {
	Create(ctx context.Context, branch *entity.Branch) error
	GetByID(ctx context.Context, id string) (*entity.Branch, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Branch, error)
}
