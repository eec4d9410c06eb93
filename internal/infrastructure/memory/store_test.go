package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/traslados-api/internal/domain"
	"github.com/jhoicas/traslados-api/internal/domain/entity"
	"github.com/jhoicas/traslados-api/internal/domain/repository"
)

func seeded(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	s.AddBranch(entity.Branch{ID: "b-1", Name: "Centro"})
	s.AddBranch(entity.Branch{ID: "b-2", Name: "Norte"})
	s.AddVariation(entity.ProductVariation{
		ID: "v-1", ProductID: "p-1", BranchID: "b-1",
		Attributes: entity.VariantAttributes{Color: "rojo", Size: "M"},
		SKU:        "CAM-R-M", Barcode: "770001", Price: decimal.NewFromInt(50000), Cost: decimal.NewFromInt(20000),
		MinStock: 2, StockQuantity: 10,
	})
	return s
}

func TestRun_RollbackRestauraEstado(t *testing.T) {
	s := seeded(t)
	boom := errors.New("boom")

	err := s.Run(context.Background(), func(ctx context.Context, r repository.TxRepos) error {
		_, err := r.Stock().LockForUpdate(ctx, "v-1")
		require.NoError(t, err)
		_, err = r.Stock().AdjustStock(ctx, "v-1", -4)
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	v, _ := s.Variation("v-1")
	assert.Equal(t, int64(10), v.StockQuantity)
}

func TestAdjust_SinBloqueoFalla(t *testing.T) {
	s := seeded(t)
	err := s.Run(context.Background(), func(ctx context.Context, r repository.TxRepos) error {
		_, err := r.Stock().AdjustStock(ctx, "v-1", -1)
		return err
	})
	assert.ErrorIs(t, err, ErrNotLocked)
}

func TestAdjust_NoPermiteNegativos(t *testing.T) {
	s := seeded(t)
	err := s.Run(context.Background(), func(ctx context.Context, r repository.TxRepos) error {
		if _, err := r.Stock().LockForUpdate(ctx, "v-1"); err != nil {
			return err
		}
		_, err := r.Stock().AdjustReserved(ctx, "v-1", -1)
		return err
	})
	var insuf *domain.InsufficientStockError
	require.ErrorAs(t, err, &insuf)
	assert.Equal(t, int64(0), insuf.Available)
}

func TestLockForUpdate_OrdenAscendenteSinDuplicados(t *testing.T) {
	s := seeded(t)
	s.AddVariation(entity.ProductVariation{ID: "v-0", ProductID: "p-1", BranchID: "b-2"})

	err := s.Run(context.Background(), func(ctx context.Context, r repository.TxRepos) error {
		locked, err := r.Stock().LockForUpdate(ctx, "v-1", "v-0", "v-1")
		assert.Len(t, locked, 2)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"v-0", "v-1"}}, s.LockLog())
	assert.Zero(t, s.LockOrderViolations())
}

func TestLockForUpdate_RegistraViolacionDeOrden(t *testing.T) {
	s := seeded(t)
	s.AddVariation(entity.ProductVariation{ID: "v-0", ProductID: "p-1", BranchID: "b-2"})

	err := s.Run(context.Background(), func(ctx context.Context, r repository.TxRepos) error {
		if _, err := r.Stock().LockForUpdate(ctx, "v-1"); err != nil {
			return err
		}
		_, err := r.Stock().LockForUpdate(ctx, "v-0")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.LockOrderViolations())
}

func TestFindOrCreateAtBranch_CopiaCatalogo(t *testing.T) {
	s := seeded(t)
	var id string
	err := s.Run(context.Background(), func(ctx context.Context, r repository.TxRepos) error {
		var err error
		id, err = r.Stock().FindOrCreateAtBranch(ctx, "p-1", entity.VariantAttributes{Color: "rojo", Size: "M"}, "b-2")
		if err != nil {
			return err
		}
		again, err := r.Stock().FindOrCreateAtBranch(ctx, "p-1", entity.VariantAttributes{Color: "rojo", Size: "M"}, "b-2")
		assert.Equal(t, id, again)
		return err
	})
	require.NoError(t, err)

	v, ok := s.Variation(id)
	require.True(t, ok)
	assert.Equal(t, "b-2", v.BranchID)
	assert.Equal(t, "CAM-R-M", v.SKU)
	assert.True(t, v.Price.Equal(decimal.NewFromInt(50000)))
	assert.Zero(t, v.StockQuantity)
	assert.Zero(t, v.ReservedQuantity)
}

func TestFindOrCreateAtBranch_ProductoInexistente(t *testing.T) {
	s := seeded(t)
	err := s.Run(context.Background(), func(ctx context.Context, r repository.TxRepos) error {
		_, err := r.Stock().FindOrCreateAtBranch(ctx, "p-x", entity.VariantAttributes{}, "b-2")
		return err
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRun_LockTimeout(t *testing.T) {
	s := NewStore(WithLockTimeout(20 * time.Millisecond))
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- s.Run(context.Background(), func(context.Context, repository.TxRepos) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	err := s.Run(context.Background(), func(context.Context, repository.TxRepos) error { return nil })
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	assert.True(t, domain.IsRetryable(err))

	close(release)
	require.NoError(t, <-done)
}

func TestTransfers_IdempotencyKeyDuplicada(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	create := func(id string) error {
		return s.Run(ctx, func(ctx context.Context, r repository.TxRepos) error {
			return r.Transfers().Create(ctx, &entity.StockTransfer{
				ID: id, OriginBranchID: "b-1", DestinationBranchID: "b-2",
				RequestedByUserID: "u-1", IdempotencyKey: "k-1", Status: entity.TransferStatusInTransit,
			})
		})
	}
	require.NoError(t, create("t-1"))
	assert.ErrorIs(t, create("t-2"), domain.ErrDuplicate)
	assert.Equal(t, 1, s.TransferCount())
}

func TestPaginate_LimiteNoPositivoNoLimita(t *testing.T) {
	list := []int{1, 2, 3, 4}
	assert.Equal(t, []int{1, 2, 3, 4}, paginate(list, 0, 0))
	assert.Equal(t, []int{3, 4}, paginate(list, -1, 2))
	assert.Equal(t, []int{2, 3}, paginate(list, 2, 1))
	assert.Empty(t, paginate(list, 10, 4))
}
