package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/traslados-api/internal/application/dto"
	"github.com/jhoicas/traslados-api/internal/domain"
	"github.com/jhoicas/traslados-api/internal/infrastructure/memory"
)

func TestBranchUseCase_CrearYConsultar(t *testing.T) {
	uc := NewBranchUseCase(memory.NewStore().BranchRepository())
	ctx := context.Background()

	created, err := uc.Create(ctx, dto.CreateBranchRequest{Name: "Norte", Address: "Cra 15 # 100-20"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := uc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Norte", got.Name)

	missing, err := uc.GetByID(ctx, "no-existe")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = uc.Create(ctx, dto.CreateBranchRequest{Name: "Centro"})
	require.NoError(t, err)
	list, err := uc.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "Centro", list.Items[0].Name)
}

func TestBranchUseCase_NombreRequerido(t *testing.T) {
	uc := NewBranchUseCase(memory.NewStore().BranchRepository())
	_, err := uc.Create(context.Background(), dto.CreateBranchRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
