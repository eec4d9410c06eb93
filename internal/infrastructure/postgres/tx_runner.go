package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/traslados-api/internal/application/ports"
	"github.com/jhoicas/traslados-api/internal/domain/repository"
)

var _ ports.UnitOfWork = (*TxRunner)(nil)

// DefaultLockTimeout espera máxima por un bloqueo de fila si no se configura otra.
const DefaultLockTimeout = 5 * time.Second

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL (READ COMMITTED)
// con lock_timeout acotado.
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration) *TxRunner {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &TxRunner{pool: pool, lockTimeout: lockTimeout}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Los fallos por bloqueo (55P03, 40P01, 40001) se devuelven como domain.ErrLockTimeout.
func (r *TxRunner) Run(ctx context.Context, fn func(ctx context.Context, repos repository.TxRepos) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	timeout := fmt.Sprintf("%dms", r.lockTimeout.Milliseconds())
	if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, timeout); err != nil {
		return fmt.Errorf("set lock_timeout: %w", err)
	}

	if err := fn(ctx, newTxRepos(tx)); err != nil {
		return mapError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

type txRepos struct {
	stock     *VariationStockRepo
	transfers *StockTransferRepo
	movements *StockMovementRepo
	branches  *BranchRepo
}

func newTxRepos(tx pgx.Tx) *txRepos {
	return &txRepos{
		stock:     NewVariationStockRepository(tx),
		transfers: NewStockTransferRepository(tx),
		movements: NewStockMovementRepository(tx),
		branches:  NewBranchRepository(tx),
	}
}

func (t *txRepos) Stock() repository.VariationStockStore         { return t.stock }
func (t *txRepos) Transfers() repository.TransferLedger          { return t.transfers }
func (t *txRepos) Movements() repository.StockMovementRepository { return t.movements }
func (t *txRepos) Branches() repository.BranchRepository         { return t.branches }
