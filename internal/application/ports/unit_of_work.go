package ports

import (
	"context"

	"github.com/jhoicas/traslados-api/internal/domain/repository"
)

// UnitOfWork frontera transaccional de una operación de negocio.
// Run inicia la transacción, invoca fn con repositorios atados a ella, hace Commit si fn
// devuelve nil y Rollback en cualquier otro caso, devolviendo el error de fn.
// Los repositorios recibidos no deben usarse fuera de fn.
type UnitOfWork interface {
	Run(ctx context.Context, fn func(ctx context.Context, r repository.TxRepos) error) error
}
