package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/traslados-api/internal/application/ports"
	"github.com/jhoicas/traslados-api/internal/domain"
	"github.com/jhoicas/traslados-api/internal/domain/entity"
	"github.com/jhoicas/traslados-api/internal/domain/inventory"
	"github.com/jhoicas/traslados-api/internal/domain/repository"
)

// AdjustStockUseCase aplica entradas (recepción de compras) y salidas (ventas, mermas)
// sobre una variación con la misma disciplina de bloqueo que los traslados:
// SELECT FOR UPDATE, validación con el valor bloqueado, mutación y kardex en una transacción.
type AdjustStockUseCase struct {
	uow ports.UnitOfWork
	now func() time.Time
}

// NewAdjustStockUseCase construye el caso de uso.
func NewAdjustStockUseCase(uow ports.UnitOfWork) *AdjustStockUseCase {
	return &AdjustStockUseCase{uow: uow, now: time.Now}
}

// AdjustStockInput entrada del ajuste. Delta positivo = entrada, negativo = salida.
// UnitCost solo aplica a entradas y recalcula el costo promedio.
type AdjustStockInput struct {
	VariationID string
	UserID      string
	Delta       int64
	Reason      string
	UnitCost    *decimal.Decimal
}

// Adjust ejecuta el ajuste. Una salida exige disponible (stock - reservado) suficiente.
func (uc *AdjustStockUseCase) Adjust(ctx context.Context, in AdjustStockInput) (*entity.VariationSnapshot, error) {
	if strings.TrimSpace(in.VariationID) == "" {
		return nil, domain.NewValidationError("variation_id", "requerido")
	}
	if in.Delta == 0 {
		return nil, domain.NewValidationError("delta", "no puede ser cero")
	}
	if in.UnitCost != nil && (in.Delta < 0 || in.UnitCost.IsNegative()) {
		return nil, domain.NewValidationError("unit_cost", "solo para entradas y no negativo")
	}

	var out entity.VariationSnapshot
	err := uc.uow.Run(ctx, func(ctx context.Context, r repository.TxRepos) error {
		locked, err := r.Stock().LockForUpdate(ctx, in.VariationID)
		if err != nil {
			return err
		}
		snap := locked[in.VariationID]
		// El costo se lee con la fila ya bloqueada: una entrada concurrente pudo cambiarlo.
		v, err := r.Stock().GetByID(ctx, in.VariationID)
		if err != nil {
			return err
		}
		if in.Delta < 0 && snap.Available() < -in.Delta {
			return &domain.InsufficientStockError{
				VariationID: in.VariationID,
				Requested:   -in.Delta,
				Available:   snap.Available(),
			}
		}
		if in.UnitCost != nil {
			cost := inventory.WeightedAverageCost(snap.StockQuantity, v.Cost, in.Delta, *in.UnitCost)
			if err := r.Stock().UpdateCost(ctx, in.VariationID, cost); err != nil {
				return err
			}
		}
		after, err := r.Stock().AdjustStock(ctx, in.VariationID, in.Delta)
		if err != nil {
			return err
		}
		if err := r.Movements().Create(ctx, &entity.StockMovement{
			ID:            uuid.New().String(),
			VariationID:   after.ID,
			BranchID:      after.BranchID,
			Type:          entity.MovementTypeAdjustment,
			StockDelta:    in.Delta,
			StockAfter:    after.StockQuantity,
			ReservedAfter: after.ReservedQuantity,
			Reason:        in.Reason,
			CreatedAt:     uc.now(),
			CreatedBy:     in.UserID,
		}); err != nil {
			return err
		}
		out = after
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetVariation devuelve la variación con sus cantidades actuales.
func (uc *AdjustStockUseCase) GetVariation(ctx context.Context, id string) (*entity.ProductVariation, error) {
	var out *entity.ProductVariation
	err := uc.uow.Run(ctx, func(ctx context.Context, r repository.TxRepos) error {
		v, err := r.Stock().GetByID(ctx, id)
		out = v
		return err
	})
	return out, err
}

// ListMovements kardex de la variación, más reciente primero.
func (uc *AdjustStockUseCase) ListMovements(ctx context.Context, id string, limit, offset int) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	err := uc.uow.Run(ctx, func(ctx context.Context, r repository.TxRepos) error {
		if _, err := r.Stock().GetByID(ctx, id); err != nil {
			return err
		}
		list, err := r.Movements().ListByVariation(ctx, id, limit, offset)
		out = list
		return err
	})
	return out, err
}
