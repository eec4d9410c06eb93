package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/traslados-api/internal/domain"
	"github.com/jhoicas/traslados-api/internal/domain/entity"
	"github.com/jhoicas/traslados-api/internal/domain/repository"
)

var _ repository.TransferLedger = (*StockTransferRepo)(nil)

// StockTransferRepo persistencia de cabecera y líneas de traslados (usable con pool o tx).
type StockTransferRepo struct {
	q Querier
}

// NewStockTransferRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockTransferRepository(q Querier) *StockTransferRepo {
	return &StockTransferRepo{q: q}
}

const transferColumns = `id, origin_branch_id, destination_branch_id, requested_by_user_id,
	approved_by_user_id, cancelled_by_user_id, notes, status, idempotency_key,
	created_at, updated_at, completed_at, cancelled_at`

// Create inserta la cabecera y luego sus líneas.
func (r *StockTransferRepo) Create(ctx context.Context, t *entity.StockTransfer) error {
	query := `
		INSERT INTO stock_transfers (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		t.ID, t.OriginBranchID, t.DestinationBranchID, t.RequestedByUserID,
		t.ApprovedByUserID, t.CancelledByUserID, t.Notes, string(t.Status), nullString(t.IdempotencyKey),
		t.CreatedAt, t.UpdatedAt, t.CompletedAt, t.CancelledAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert stock transfer: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("insert stock transfer: %w", err)
	}

	itemQuery := `
		INSERT INTO stock_transfer_items (id, transfer_id, position, product_variation_id, destination_variation_id, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for i, it := range t.Items {
		if _, err := r.q.Exec(ctx, itemQuery,
			it.ID, t.ID, i, it.ProductVariationID, nullString(it.DestinationVariationID), it.Quantity,
		); err != nil {
			return fmt.Errorf("insert stock transfer item: %w", err)
		}
	}
	return nil
}

// GetByID cabecera y líneas sin bloqueo.
func (r *StockTransferRepo) GetByID(ctx context.Context, id string) (*entity.StockTransfer, error) {
	return r.get(ctx, `SELECT `+transferColumns+` FROM stock_transfers WHERE id = $1`, id)
}

// GetForUpdate bloquea la cabecera (SELECT FOR UPDATE) y carga las líneas.
func (r *StockTransferRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockTransfer, error) {
	return r.get(ctx, `SELECT `+transferColumns+` FROM stock_transfers WHERE id = $1 FOR UPDATE`, id)
}

func (r *StockTransferRepo) get(ctx context.Context, query, id string) (*entity.StockTransfer, error) {
	t, err := scanTransfer(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("traslado", id)
		}
		return nil, fmt.Errorf("get stock transfer: %w", err)
	}
	if err := r.loadItems(ctx, []*entity.StockTransfer{t}); err != nil {
		return nil, err
	}
	return t, nil
}

// FindByIdempotencyKey devuelve (nil, nil) si el usuario no ha usado esa llave.
func (r *StockTransferRepo) FindByIdempotencyKey(ctx context.Context, userID, key string) (*entity.StockTransfer, error) {
	query := `SELECT ` + transferColumns + ` FROM stock_transfers
		WHERE requested_by_user_id = $1 AND idempotency_key = $2`
	t, err := scanTransfer(r.q.QueryRow(ctx, query, userID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find stock transfer by idempotency key: %w", err)
	}
	if err := r.loadItems(ctx, []*entity.StockTransfer{t}); err != nil {
		return nil, err
	}
	return t, nil
}

// List traslados más recientes primero.
func (r *StockTransferRepo) List(ctx context.Context, f repository.TransferFilter) ([]*entity.StockTransfer, error) {
	query, args := listTransfersQuery(f)
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock transfers: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockTransfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock transfer: %w", err)
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stock transfers: %w", err)
	}
	if f.IncludeItems && len(list) > 0 {
		if err := r.loadItems(ctx, list); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// UpdateStatus persiste el estado y los datos de auditoría de la transición.
func (r *StockTransferRepo) UpdateStatus(ctx context.Context, t *entity.StockTransfer) error {
	query := `
		UPDATE stock_transfers
		SET status = $2, approved_by_user_id = $3, cancelled_by_user_id = $4,
			updated_at = $5, completed_at = $6, cancelled_at = $7
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		t.ID, string(t.Status), t.ApprovedByUserID, t.CancelledByUserID,
		t.UpdatedAt, t.CompletedAt, t.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("update stock transfer status: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NewNotFoundError("traslado", t.ID)
	}
	return nil
}

// loadItems carga las líneas de varios traslados en una sola consulta.
func (r *StockTransferRepo) loadItems(ctx context.Context, list []*entity.StockTransfer) error {
	byID := make(map[string]*entity.StockTransfer, len(list))
	ids := make([]string, 0, len(list))
	for _, t := range list {
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}
	query := `
		SELECT id, transfer_id, product_variation_id, destination_variation_id, quantity
		FROM stock_transfer_items
		WHERE transfer_id = ANY($1)
		ORDER BY transfer_id, position`
	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("list stock transfer items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			it     entity.StockTransferItem
			destID *string
		)
		if err := rows.Scan(&it.ID, &it.TransferID, &it.ProductVariationID, &destID, &it.Quantity); err != nil {
			return fmt.Errorf("scan stock transfer item: %w", err)
		}
		it.DestinationVariationID = derefString(destID)
		if t, ok := byID[it.TransferID]; ok {
			t.Items = append(t.Items, it)
		}
	}
	return rows.Err()
}

func scanTransfer(row pgx.Row) (*entity.StockTransfer, error) {
	var (
		t      entity.StockTransfer
		status string
		key    *string
	)
	err := row.Scan(
		&t.ID, &t.OriginBranchID, &t.DestinationBranchID, &t.RequestedByUserID,
		&t.ApprovedByUserID, &t.CancelledByUserID, &t.Notes, &status, &key,
		&t.CreatedAt, &t.UpdatedAt, &t.CompletedAt, &t.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	t.Status = entity.TransferStatus(status)
	t.IdempotencyKey = derefString(key)
	return &t, nil
}

// listTransfersQuery arma el SELECT filtrado de List con sus parámetros.
func listTransfersQuery(f repository.TransferFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.BranchID != "" {
		args = append(args, f.BranchID)
		where = append(where, fmt.Sprintf("(origin_branch_id = $%d OR destination_branch_id = $%d)", len(args), len(args)))
	}
	query := `SELECT ` + transferColumns + ` FROM stock_transfers`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id`
	return appendPage(query, args, f.Limit, f.Offset)
}
