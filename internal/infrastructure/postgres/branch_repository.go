package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/traslados-api/internal/domain/entity"
	"github.com/jhoicas/traslados-api/internal/domain/repository"
)

var _ repository.BranchRepository = (*BranchRepo)(nil)

// BranchRepo implementación del puerto BranchRepository sobre PostgreSQL.
type BranchRepo struct {
	q Querier
}

// NewBranchRepository construye el adaptador de persistencia para sucursales. Pasar pool o tx.
func NewBranchRepository(q Querier) *BranchRepo {
	return &BranchRepo{q: q}
}

// Create persiste una nueva sucursal.
func (r *BranchRepo) Create(ctx context.Context, branch *entity.Branch) error {
	query := `
		INSERT INTO branches (id, name, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.q.Exec(ctx, query,
		branch.ID, branch.Name, branch.Address, branch.CreatedAt, branch.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert branch: %w", mapError(err))
	}
	return nil
}

// GetByID obtiene una sucursal por ID.
func (r *BranchRepo) GetByID(ctx context.Context, id string) (*entity.Branch, error) {
	query := `SELECT id, name, address, created_at, updated_at FROM branches WHERE id = $1`
	var b entity.Branch
	err := r.q.QueryRow(ctx, query, id).Scan(&b.ID, &b.Name, &b.Address, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get branch: %w", err)
	}
	return &b, nil
}

// List lista sucursales por nombre con paginación.
func (r *BranchRepo) List(ctx context.Context, limit, offset int) ([]*entity.Branch, error) {
	query, args := appendPage(`
		SELECT id, name, address, created_at, updated_at
		FROM branches ORDER BY name, id`, nil, limit, offset)
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer rows.Close()
	var list []*entity.Branch
	for rows.Next() {
		var b entity.Branch
		if err := rows.Scan(&b.ID, &b.Name, &b.Address, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		list = append(list, &b)
	}
	return list, rows.Err()
}
