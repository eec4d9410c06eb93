package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/traslados-api/internal/application/dto"
	"github.com/jhoicas/traslados-api/internal/domain"
	"github.com/jhoicas/traslados-api/internal/domain/entity"
	"github.com/jhoicas/traslados-api/internal/domain/repository"
)

// BranchUseCase casos de uso mínimos para sucursales (origen/destino de traslados).
type BranchUseCase struct {
	repo repository.BranchRepository
}

// NewBranchUseCase construye el caso de uso.
func NewBranchUseCase(repo repository.BranchRepository) *BranchUseCase {
	return &BranchUseCase{repo: repo}
}

// Create crea una nueva sucursal.
func (uc *BranchUseCase) Create(ctx context.Context, in dto.CreateBranchRequest) (*dto.BranchResponse, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, domain.NewValidationError("name", "requerido")
	}
	now := time.Now()
	branch := &entity.Branch{
		ID:        uuid.New().String(),
		Name:      in.Name,
		Address:   in.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, branch); err != nil {
		return nil, err
	}
	return toBranchResponse(branch), nil
}

// GetByID obtiene una sucursal por ID. Devuelve (nil, nil) si no existe.
func (uc *BranchUseCase) GetByID(ctx context.Context, id string) (*dto.BranchResponse, error) {
	branch, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if branch == nil {
		return nil, nil
	}
	return toBranchResponse(branch), nil
}

// List lista sucursales con paginación.
func (uc *BranchUseCase) List(ctx context.Context, limit, offset int) (*dto.BranchListResponse, error) {
	list, err := uc.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.BranchResponse, 0, len(list))
	for _, b := range list {
		items = append(items, *toBranchResponse(b))
	}
	return &dto.BranchListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

func toBranchResponse(b *entity.Branch) *dto.BranchResponse {
	if b == nil {
		return nil
	}
	return &dto.BranchResponse{
		ID:        b.ID,
		Name:      b.Name,
		Address:   b.Address,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}
