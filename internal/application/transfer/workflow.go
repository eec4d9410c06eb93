package transfer

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/traslados-api/internal/application/ports"
	"github.com/jhoicas/traslados-api/internal/domain"
	"github.com/jhoicas/traslados-api/internal/domain/entity"
	"github.com/jhoicas/traslados-api/internal/domain/repository"
	domaintransfer "github.com/jhoicas/traslados-api/internal/domain/transfer"
	"github.com/jhoicas/traslados-api/pkg/logger"
)

// Workflow ejecuta Create/Complete/Cancel de traslados entre sucursales.
// Cada operación corre en una única unidad de trabajo: bloquea las filas de variación en
// orden ascendente de ID, valida, muta stock/reservado, escribe kardex y persiste el traslado.
// Política de reserva: el stock del origen se descuenta al crear; reserved_quantity es el
// compromiso entrante del destino hasta completar o cancelar.
type Workflow struct {
	uow       ports.UnitOfWork
	publisher EventPublisher
	log       *logger.Logger
	now       func() time.Time
}

// NewWorkflow construye el workflow. publisher y log pueden ser nil.
func NewWorkflow(uow ports.UnitOfWork, publisher EventPublisher, log *logger.Logger) *Workflow {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Workflow{
		uow:       uow,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// CreateTransferInput entrada de Create.
type CreateTransferInput struct {
	OriginBranchID      string
	DestinationBranchID string
	RequestedByUserID   string
	Notes               string
	IdempotencyKey      string
	Items               []TransferItemInput
}

// TransferItemInput línea solicitada: variación en el origen y cantidad.
type TransferItemInput struct {
	ProductVariationID string
	Quantity           int64
}

// Create descuenta el stock del origen, reserva en destino (creando la variación si la
// sucursal nunca la tuvo) y registra el traslado en in_transit.
// Con IdempotencyKey, repetir la petición del mismo usuario devuelve el traslado existente.
func (w *Workflow) Create(ctx context.Context, in CreateTransferInput) (*entity.StockTransfer, error) {
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	var out *entity.StockTransfer
	replayed := false
	err := w.uow.Run(ctx, func(ctx context.Context, r repository.TxRepos) error {
		if in.IdempotencyKey != "" {
			existing, err := r.Transfers().FindByIdempotencyKey(ctx, in.RequestedByUserID, in.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing != nil {
				out, replayed = existing, true
				return nil
			}
		}
		t, err := w.create(ctx, r, in)
		if err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		// Otra petición con la misma llave confirmó primero: devolver su resultado.
		if errors.Is(err, domain.ErrDuplicate) && in.IdempotencyKey != "" {
			if existing, lookupErr := w.findByIdempotencyKey(ctx, in.RequestedByUserID, in.IdempotencyKey); lookupErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}
	if replayed {
		return out, nil
	}

	w.log.Info().
		Str("transfer_id", out.ID).
		Str("origin_branch_id", out.OriginBranchID).
		Str("destination_branch_id", out.DestinationBranchID).
		Int64("units", out.TotalQuantity()).
		Msg("traslado creado")
	w.publish(ctx, newEvent(EventTransferCreated, in.RequestedByUserID, out, w.now()))
	return out, nil
}

func (w *Workflow) create(ctx context.Context, r repository.TxRepos, in CreateTransferInput) (*entity.StockTransfer, error) {
	if err := requireBranch(ctx, r, in.OriginBranchID); err != nil {
		return nil, err
	}
	if err := requireBranch(ctx, r, in.DestinationBranchID); err != nil {
		return nil, err
	}

	now := w.now()
	transferID := uuid.New().String()
	items := make([]entity.StockTransferItem, 0, len(in.Items))
	lockIDs := make([]string, 0, 2*len(in.Items))

	// 1. Resolver variaciones de origen y destino (sin bloqueo: solo identidad y catálogo).
	origins := make([]*entity.ProductVariation, len(in.Items))
	for i, it := range in.Items {
		origin, err := r.Stock().GetByID(ctx, it.ProductVariationID)
		if err != nil {
			return nil, err
		}
		if origin.BranchID != in.OriginBranchID {
			return nil, domain.NewNotFoundError("variación en sucursal de origen", it.ProductVariationID)
		}
		origins[i] = origin
	}

	// FindOrCreateAtBranch puede insertar filas en destino: se recorre en orden
	// (producto, color, talla) para que dos traslados concurrentes no se esperen en cruz.
	destIDs := make([]string, len(in.Items))
	for _, i := range resolutionOrder(origins) {
		origin := origins[i]
		destID, err := r.Stock().FindOrCreateAtBranch(ctx, origin.ProductID, origin.Attributes, in.DestinationBranchID)
		if err != nil {
			return nil, err
		}
		destIDs[i] = destID
	}

	for i, it := range in.Items {
		items = append(items, entity.StockTransferItem{
			ID:                     uuid.New().String(),
			TransferID:             transferID,
			ProductVariationID:     origins[i].ID,
			DestinationVariationID: destIDs[i],
			Quantity:               it.Quantity,
		})
		lockIDs = append(lockIDs, origins[i].ID, destIDs[i])
	}

	// 2. Bloquear todas las filas involucradas en orden ascendente antes de mutar.
	locked, err := r.Stock().LockForUpdate(ctx, lockIDs...)
	if err != nil {
		return nil, err
	}

	// 3. Verificar disponible en origen con los valores bloqueados.
	for _, it := range items {
		snap := locked[it.ProductVariationID]
		if snap.Available() < it.Quantity {
			return nil, &domain.InsufficientStockError{
				VariationID: it.ProductVariationID,
				Requested:   it.Quantity,
				Available:   snap.Available(),
			}
		}
	}

	t := &entity.StockTransfer{
		ID:                  transferID,
		OriginBranchID:      in.OriginBranchID,
		DestinationBranchID: in.DestinationBranchID,
		RequestedByUserID:   in.RequestedByUserID,
		Notes:               in.Notes,
		Status:              entity.TransferStatusInTransit,
		IdempotencyKey:      in.IdempotencyKey,
		CreatedAt:           now,
		UpdatedAt:           now,
		Items:               items,
	}
	if err := r.Transfers().Create(ctx, t); err != nil {
		return nil, err
	}

	// 4. Salida física del origen y compromiso entrante en destino.
	for _, it := range items {
		originAfter, err := r.Stock().AdjustStock(ctx, it.ProductVariationID, -it.Quantity)
		if err != nil {
			return nil, err
		}
		if err := recordMovement(ctx, r, t, originAfter, entity.MovementTypeTransferOut, -it.Quantity, 0, in.RequestedByUserID, now); err != nil {
			return nil, err
		}
		destAfter, err := r.Stock().AdjustReserved(ctx, it.DestinationVariationID, it.Quantity)
		if err != nil {
			return nil, err
		}
		if err := recordMovement(ctx, r, t, destAfter, entity.MovementTypeTransferReserve, 0, it.Quantity, in.RequestedByUserID, now); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Complete recibe la mercancía en destino: reserved -= q, stock += q por línea.
// Solo válido desde in_transit.
func (w *Workflow) Complete(ctx context.Context, transferID, approvedByUserID string) (*entity.StockTransfer, error) {
	if strings.TrimSpace(transferID) == "" {
		return nil, domain.NewValidationError("id", "requerido")
	}
	if strings.TrimSpace(approvedByUserID) == "" {
		return nil, domain.NewValidationError("approved_by_user_id", "requerido")
	}

	var out *entity.StockTransfer
	err := w.uow.Run(ctx, func(ctx context.Context, r repository.TxRepos) error {
		t, err := r.Transfers().GetForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if err := domaintransfer.Transition(t, entity.TransferStatusCompleted); err != nil {
			return err
		}

		ids := make([]string, 0, len(t.Items))
		for _, it := range t.Items {
			ids = append(ids, it.DestinationVariationID)
		}
		if _, err := r.Stock().LockForUpdate(ctx, ids...); err != nil {
			return err
		}

		now := w.now()
		for _, it := range t.Items {
			if _, err := r.Stock().AdjustReserved(ctx, it.DestinationVariationID, -it.Quantity); err != nil {
				return err
			}
			after, err := r.Stock().AdjustStock(ctx, it.DestinationVariationID, it.Quantity)
			if err != nil {
				return err
			}
			if err := recordMovement(ctx, r, t, after, entity.MovementTypeTransferIn, it.Quantity, -it.Quantity, approvedByUserID, now); err != nil {
				return err
			}
		}

		approvedBy := approvedByUserID
		t.Status = entity.TransferStatusCompleted
		t.ApprovedByUserID = &approvedBy
		t.CompletedAt = &now
		t.UpdatedAt = now
		if err := r.Transfers().UpdateStatus(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.log.Info().Str("transfer_id", out.ID).Str("approved_by", approvedByUserID).Msg("traslado completado")
	w.publish(ctx, newEvent(EventTransferCompleted, approvedByUserID, out, w.now()))
	return out, nil
}

// Cancel anula el traslado. Si estaba in_transit devuelve el stock al origen y libera
// la reserva del destino; desde pending no hay stock que compensar.
func (w *Workflow) Cancel(ctx context.Context, transferID, cancelledByUserID string) (*entity.StockTransfer, error) {
	if strings.TrimSpace(transferID) == "" {
		return nil, domain.NewValidationError("id", "requerido")
	}

	var out *entity.StockTransfer
	err := w.uow.Run(ctx, func(ctx context.Context, r repository.TxRepos) error {
		t, err := r.Transfers().GetForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if err := domaintransfer.Transition(t, entity.TransferStatusCancelled); err != nil {
			return err
		}

		now := w.now()
		if domaintransfer.MovesStock(t.Status) {
			ids := make([]string, 0, 2*len(t.Items))
			for _, it := range t.Items {
				ids = append(ids, it.ProductVariationID)
				if it.DestinationVariationID != "" {
					ids = append(ids, it.DestinationVariationID)
				}
			}
			if _, err := r.Stock().LockForUpdate(ctx, ids...); err != nil {
				return err
			}
			for _, it := range t.Items {
				originAfter, err := r.Stock().AdjustStock(ctx, it.ProductVariationID, it.Quantity)
				if err != nil {
					return err
				}
				if err := recordMovement(ctx, r, t, originAfter, entity.MovementTypeTransferReturn, it.Quantity, 0, cancelledByUserID, now); err != nil {
					return err
				}
				if it.DestinationVariationID == "" {
					continue
				}
				destAfter, err := r.Stock().AdjustReserved(ctx, it.DestinationVariationID, -it.Quantity)
				if err != nil {
					return err
				}
				if err := recordMovement(ctx, r, t, destAfter, entity.MovementTypeTransferRelease, 0, -it.Quantity, cancelledByUserID, now); err != nil {
					return err
				}
			}
		}

		t.Status = entity.TransferStatusCancelled
		t.CancelledAt = &now
		t.UpdatedAt = now
		if cancelledByUserID != "" {
			cancelledBy := cancelledByUserID
			t.CancelledByUserID = &cancelledBy
		}
		if err := r.Transfers().UpdateStatus(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.log.Info().Str("transfer_id", out.ID).Str("cancelled_by", cancelledByUserID).Msg("traslado cancelado")
	w.publish(ctx, newEvent(EventTransferCancelled, cancelledByUserID, out, w.now()))
	return out, nil
}

// Get devuelve el traslado con sus líneas.
func (w *Workflow) Get(ctx context.Context, transferID string) (*entity.StockTransfer, error) {
	var out *entity.StockTransfer
	err := w.uow.Run(ctx, func(ctx context.Context, r repository.TxRepos) error {
		t, err := r.Transfers().GetByID(ctx, transferID)
		if err != nil {
			return err
		}
		out = t
		return nil
	})
	return out, err
}

// List lista traslados según el filtro.
func (w *Workflow) List(ctx context.Context, f repository.TransferFilter) ([]*entity.StockTransfer, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, domain.NewValidationError("status", "estado desconocido")
	}
	var out []*entity.StockTransfer
	err := w.uow.Run(ctx, func(ctx context.Context, r repository.TxRepos) error {
		list, err := r.Transfers().List(ctx, f)
		if err != nil {
			return err
		}
		out = list
		return nil
	})
	return out, err
}

// Movements devuelve el kardex generado por el traslado.
func (w *Workflow) Movements(ctx context.Context, transferID string) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	err := w.uow.Run(ctx, func(ctx context.Context, r repository.TxRepos) error {
		if _, err := r.Transfers().GetByID(ctx, transferID); err != nil {
			return err
		}
		list, err := r.Movements().ListByTransfer(ctx, transferID)
		if err != nil {
			return err
		}
		out = list
		return nil
	})
	return out, err
}

func (w *Workflow) findByIdempotencyKey(ctx context.Context, userID, key string) (*entity.StockTransfer, error) {
	var out *entity.StockTransfer
	err := w.uow.Run(ctx, func(ctx context.Context, r repository.TxRepos) error {
		t, err := r.Transfers().FindByIdempotencyKey(ctx, userID, key)
		out = t
		return err
	})
	return out, err
}

func (w *Workflow) publish(ctx context.Context, ev TransferEvent) {
	if err := w.publisher.PublishTransferEvent(ctx, ev); err != nil {
		w.log.Warn().Err(err).
			Str("transfer_id", ev.TransferID).
			Str("event", ev.Type).
			Msg("no se pudo publicar el evento de traslado")
	}
}

func validateCreate(in CreateTransferInput) error {
	if strings.TrimSpace(in.OriginBranchID) == "" {
		return domain.NewValidationError("origin_branch_id", "requerido")
	}
	if strings.TrimSpace(in.DestinationBranchID) == "" {
		return domain.NewValidationError("destination_branch_id", "requerido")
	}
	if in.OriginBranchID == in.DestinationBranchID {
		return domain.NewValidationError("destination_branch_id", "debe ser distinta de la sucursal de origen")
	}
	if strings.TrimSpace(in.RequestedByUserID) == "" {
		return domain.NewValidationError("requested_by_user_id", "requerido")
	}
	if len(in.Items) == 0 {
		return domain.NewValidationError("items", "debe incluir al menos una línea")
	}
	if len(in.IdempotencyKey) > 255 {
		return domain.NewValidationError("idempotency_key", "máximo 255 caracteres")
	}
	seen := make(map[string]struct{}, len(in.Items))
	for _, it := range in.Items {
		if strings.TrimSpace(it.ProductVariationID) == "" {
			return domain.NewValidationError("product_variation_id", "requerido")
		}
		if it.Quantity <= 0 {
			return domain.NewValidationError("quantity", "debe ser mayor que cero")
		}
		if _, dup := seen[it.ProductVariationID]; dup {
			return domain.NewValidationError("items", "variación repetida: "+it.ProductVariationID)
		}
		seen[it.ProductVariationID] = struct{}{}
	}
	return nil
}

// resolutionOrder índices de las variaciones ordenados por (producto, color, talla, id).
func resolutionOrder(vs []*entity.ProductVariation) []int {
	idx := make([]int, len(vs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		x, y := vs[idx[a]], vs[idx[b]]
		if x.ProductID != y.ProductID {
			return x.ProductID < y.ProductID
		}
		if x.Attributes.Color != y.Attributes.Color {
			return x.Attributes.Color < y.Attributes.Color
		}
		if x.Attributes.Size != y.Attributes.Size {
			return x.Attributes.Size < y.Attributes.Size
		}
		return x.ID < y.ID
	})
	return idx
}

func requireBranch(ctx context.Context, r repository.TxRepos, id string) error {
	b, err := r.Branches().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if b == nil {
		return domain.NewNotFoundError("sucursal", id)
	}
	return nil
}

func recordMovement(
	ctx context.Context,
	r repository.TxRepos,
	t *entity.StockTransfer,
	after entity.VariationSnapshot,
	movementType string,
	stockDelta, reservedDelta int64,
	userID string,
	now time.Time,
) error {
	return r.Movements().Create(ctx, &entity.StockMovement{
		ID:            uuid.New().String(),
		TransferID:    t.ID,
		VariationID:   after.ID,
		BranchID:      after.BranchID,
		Type:          movementType,
		StockDelta:    stockDelta,
		ReservedDelta: reservedDelta,
		StockAfter:    after.StockQuantity,
		ReservedAfter: after.ReservedQuantity,
		CreatedAt:     now,
		CreatedBy:     userID,
	})
}
