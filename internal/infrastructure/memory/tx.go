package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/traslados-api/internal/domain"
	"github.com/jhoicas/traslados-api/internal/domain/entity"
	"github.com/jhoicas/traslados-api/internal/domain/repository"
)

// ErrNotLocked se intentó mutar una variación sin bloquearla antes en la misma transacción.
var ErrNotLocked = errors.New("memory: variación modificada sin LockForUpdate previo")

// errClosed uso de los repositorios después de terminar Run.
var errClosed = errors.New("memory: transacción cerrada")

type memTx struct {
	s         *Store
	locked    map[string]struct{}
	maxLocked string
	closed    bool
}

func (tx *memTx) Stock() repository.VariationStockStore         { return stockRepo{tx} }
func (tx *memTx) Transfers() repository.TransferLedger          { return transferRepo{tx} }
func (tx *memTx) Movements() repository.StockMovementRepository { return movementRepo{tx} }
func (tx *memTx) Branches() repository.BranchRepository         { return txBranchRepo{tx} }

// ── Variaciones ─────────────────────────────────────────────────────────────

type stockRepo struct{ tx *memTx }

func (r stockRepo) GetByID(_ context.Context, id string) (*entity.ProductVariation, error) {
	if r.tx.closed {
		return nil, errClosed
	}
	v, ok := r.tx.s.variations[id]
	if !ok {
		return nil, domain.NewNotFoundError("variación", id)
	}
	return &v, nil
}

func (r stockRepo) LockForUpdate(_ context.Context, ids ...string) (map[string]entity.VariationSnapshot, error) {
	if r.tx.closed {
		return nil, errClosed
	}
	ordered := sortedUnique(ids)
	r.tx.s.lockLog = append(r.tx.s.lockLog, ordered)

	out := make(map[string]entity.VariationSnapshot, len(ordered))
	for _, id := range ordered {
		v, ok := r.tx.s.variations[id]
		if !ok {
			return nil, domain.NewNotFoundError("variación", id)
		}
		if _, held := r.tx.locked[id]; !held {
			if r.tx.maxLocked != "" && id < r.tx.maxLocked {
				r.tx.s.orderViolations++
			}
			r.tx.locked[id] = struct{}{}
			if id > r.tx.maxLocked {
				r.tx.maxLocked = id
			}
		}
		out[id] = v.Snapshot()
	}
	return out, nil
}

func (r stockRepo) AdjustStock(_ context.Context, id string, delta int64) (entity.VariationSnapshot, error) {
	return r.adjust(id, delta, func(v *entity.ProductVariation) *int64 { return &v.StockQuantity })
}

func (r stockRepo) AdjustReserved(_ context.Context, id string, delta int64) (entity.VariationSnapshot, error) {
	return r.adjust(id, delta, func(v *entity.ProductVariation) *int64 { return &v.ReservedQuantity })
}

func (r stockRepo) adjust(id string, delta int64, field func(*entity.ProductVariation) *int64) (entity.VariationSnapshot, error) {
	v, err := r.lockedRow(id)
	if err != nil {
		return entity.VariationSnapshot{}, err
	}
	qty := field(&v)
	if *qty+delta < 0 {
		return entity.VariationSnapshot{}, &domain.InsufficientStockError{VariationID: id, Requested: -delta, Available: *qty}
	}
	*qty += delta
	v.UpdatedAt = time.Now()
	r.tx.s.variations[id] = v
	return v.Snapshot(), nil
}

func (r stockRepo) lockedRow(id string) (entity.ProductVariation, error) {
	if r.tx.closed {
		return entity.ProductVariation{}, errClosed
	}
	v, ok := r.tx.s.variations[id]
	if !ok {
		return entity.ProductVariation{}, domain.NewNotFoundError("variación", id)
	}
	if _, held := r.tx.locked[id]; !held {
		return entity.ProductVariation{}, fmt.Errorf("%w: %s", ErrNotLocked, id)
	}
	return v, nil
}

func (r stockRepo) FindOrCreateAtBranch(_ context.Context, productID string, attrs entity.VariantAttributes, branchID string) (string, error) {
	if r.tx.closed {
		return "", errClosed
	}
	var candidates []entity.ProductVariation
	for _, v := range r.tx.s.variations {
		if v.ProductID != productID {
			continue
		}
		if v.BranchID == branchID && v.Attributes == attrs {
			return v.ID, nil
		}
		candidates = append(candidates, v)
	}
	if len(candidates) == 0 {
		return "", domain.NewNotFoundError("producto", productID)
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if (a.Attributes == attrs) != (b.Attributes == attrs) {
			return a.Attributes == attrs
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	src := candidates[0]
	now := time.Now()
	created := entity.ProductVariation{
		ID:         uuid.New().String(),
		ProductID:  productID,
		BranchID:   branchID,
		Attributes: attrs,
		SKU:        src.SKU,
		Barcode:    src.Barcode,
		Price:      src.Price,
		Cost:       src.Cost,
		MinStock:   src.MinStock,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.tx.s.variations[created.ID] = created
	return created.ID, nil
}

func (r stockRepo) UpdateCost(_ context.Context, id string, cost decimal.Decimal) error {
	v, err := r.lockedRow(id)
	if err != nil {
		return err
	}
	v.Cost = cost
	v.UpdatedAt = time.Now()
	r.tx.s.variations[id] = v
	return nil
}

// ── Traslados ───────────────────────────────────────────────────────────────

type transferRepo struct{ tx *memTx }

func (r transferRepo) Create(_ context.Context, t *entity.StockTransfer) error {
	if r.tx.closed {
		return errClosed
	}
	if _, exists := r.tx.s.transfers[t.ID]; exists {
		return fmt.Errorf("insert stock transfer %s: %w", t.ID, domain.ErrDuplicate)
	}
	if t.IdempotencyKey != "" {
		if found := r.findByKey(t.RequestedByUserID, t.IdempotencyKey); found != nil {
			return fmt.Errorf("insert stock transfer: %w", domain.ErrDuplicate)
		}
	}
	r.tx.s.transfers[t.ID] = cloneTransfer(*t)
	return nil
}

func (r transferRepo) GetByID(_ context.Context, id string) (*entity.StockTransfer, error) {
	if r.tx.closed {
		return nil, errClosed
	}
	t, ok := r.tx.s.transfers[id]
	if !ok {
		return nil, domain.NewNotFoundError("traslado", id)
	}
	c := cloneTransfer(t)
	return &c, nil
}

// GetForUpdate equivale a GetByID: la transacción ya es exclusiva.
func (r transferRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockTransfer, error) {
	return r.GetByID(ctx, id)
}

func (r transferRepo) FindByIdempotencyKey(_ context.Context, userID, key string) (*entity.StockTransfer, error) {
	if r.tx.closed {
		return nil, errClosed
	}
	return r.findByKey(userID, key), nil
}

func (r transferRepo) findByKey(userID, key string) *entity.StockTransfer {
	for _, t := range r.tx.s.transfers {
		if t.RequestedByUserID == userID && t.IdempotencyKey == key {
			c := cloneTransfer(t)
			return &c
		}
	}
	return nil
}

func (r transferRepo) List(_ context.Context, f repository.TransferFilter) ([]*entity.StockTransfer, error) {
	if r.tx.closed {
		return nil, errClosed
	}
	var list []*entity.StockTransfer
	for _, t := range r.tx.s.transfers {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.BranchID != "" && t.OriginBranchID != f.BranchID && t.DestinationBranchID != f.BranchID {
			continue
		}
		c := cloneTransfer(t)
		if !f.IncludeItems {
			c.Items = nil
		}
		list = append(list, &c)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return paginate(list, f.Limit, f.Offset), nil
}

func (r transferRepo) UpdateStatus(_ context.Context, t *entity.StockTransfer) error {
	if r.tx.closed {
		return errClosed
	}
	stored, ok := r.tx.s.transfers[t.ID]
	if !ok {
		return domain.NewNotFoundError("traslado", t.ID)
	}
	stored.Status = t.Status
	stored.ApprovedByUserID = cloneString(t.ApprovedByUserID)
	stored.CancelledByUserID = cloneString(t.CancelledByUserID)
	stored.UpdatedAt = t.UpdatedAt
	stored.CompletedAt = cloneTime(t.CompletedAt)
	stored.CancelledAt = cloneTime(t.CancelledAt)
	r.tx.s.transfers[t.ID] = stored
	return nil
}

// ── Kardex ──────────────────────────────────────────────────────────────────

type movementRepo struct{ tx *memTx }

func (r movementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	if r.tx.closed {
		return errClosed
	}
	if _, ok := r.tx.s.variations[m.VariationID]; !ok {
		return domain.NewNotFoundError("variación", m.VariationID)
	}
	if m.TransferID != "" {
		if _, ok := r.tx.s.transfers[m.TransferID]; !ok {
			return domain.NewNotFoundError("traslado", m.TransferID)
		}
	}
	r.tx.s.movements = append(r.tx.s.movements, *m)
	return nil
}

func (r movementRepo) ListByTransfer(_ context.Context, transferID string) ([]*entity.StockMovement, error) {
	if r.tx.closed {
		return nil, errClosed
	}
	var out []*entity.StockMovement
	for i := range r.tx.s.movements {
		if r.tx.s.movements[i].TransferID == transferID {
			m := r.tx.s.movements[i]
			out = append(out, &m)
		}
	}
	return out, nil
}

func (r movementRepo) ListByVariation(_ context.Context, variationID string, limit, offset int) ([]*entity.StockMovement, error) {
	if r.tx.closed {
		return nil, errClosed
	}
	var out []*entity.StockMovement
	for i := len(r.tx.s.movements) - 1; i >= 0; i-- {
		if r.tx.s.movements[i].VariationID == variationID {
			m := r.tx.s.movements[i]
			out = append(out, &m)
		}
	}
	return paginate(out, limit, offset), nil
}

// ── Sucursales ──────────────────────────────────────────────────────────────

type txBranchRepo struct{ tx *memTx }

func (r txBranchRepo) Create(_ context.Context, b *entity.Branch) error {
	if r.tx.closed {
		return errClosed
	}
	if _, exists := r.tx.s.branches[b.ID]; exists {
		return fmt.Errorf("insert branch %s: %w", b.ID, domain.ErrDuplicate)
	}
	r.tx.s.branches[b.ID] = *b
	return nil
}

func (r txBranchRepo) GetByID(_ context.Context, id string) (*entity.Branch, error) {
	if r.tx.closed {
		return nil, errClosed
	}
	b, ok := r.tx.s.branches[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r txBranchRepo) List(_ context.Context, limit, offset int) ([]*entity.Branch, error) {
	if r.tx.closed {
		return nil, errClosed
	}
	list := make([]*entity.Branch, 0, len(r.tx.s.branches))
	for _, b := range r.tx.s.branches {
		b := b
		list = append(list, &b)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
	return paginate(list, limit, offset), nil
}

// paginate limit <= 0 significa sin límite.
func paginate[T any](list []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

func sortedUnique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
