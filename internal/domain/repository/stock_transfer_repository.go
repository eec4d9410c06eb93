package repository

import (
	"context"

	"github.com/jhoicas/traslados-api/internal/domain/entity"
)

// TransferFilter filtros para listar traslados.
type TransferFilter struct {
	Status       entity.TransferStatus // vacío = todos
	BranchID     string                // origen o destino; vacío = todas
	IncludeItems bool
	Limit        int // <= 0 = sin límite
	Offset       int
}

// TransferLedger persistencia pura de traslados y sus líneas. Sin reglas de negocio:
// confía en que el workflow lo invoque dentro de una transacción válida.
type TransferLedger interface {
	// Create inserta cabecera y líneas. domain.ErrDuplicate si la llave de idempotencia ya existe.
	Create(ctx context.Context, t *entity.StockTransfer) error
	// GetByID devuelve el traslado con sus líneas o *domain.NotFoundError.
	GetByID(ctx context.Context, id string) (*entity.StockTransfer, error)
	// GetForUpdate como GetByID pero bloqueando la fila de cabecera.
	GetForUpdate(ctx context.Context, id string) (*entity.StockTransfer, error)
	// FindByIdempotencyKey devuelve (nil, nil) si no existe.
	FindByIdempotencyKey(ctx context.Context, userID, key string) (*entity.StockTransfer, error)
	List(ctx context.Context, f TransferFilter) ([]*entity.StockTransfer, error)
	// UpdateStatus persiste status, aprobador, cancelador y marcas de tiempo.
	UpdateStatus(ctx context.Context, t *entity.StockTransfer) error
}
