package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/traslados-api/internal/application/transfer"
	"github.com/jhoicas/traslados-api/internal/domain"
	"github.com/jhoicas/traslados-api/internal/domain/entity"
	"github.com/jhoicas/traslados-api/internal/infrastructure/postgres"
	"github.com/jhoicas/traslados-api/pkg/config"
)

// Requiere una base PostgreSQL desechable: TEST_DATABASE_URL=postgres://... go test ./...
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL no definido")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: url, MaxConns: 20})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.Migrate(ctx, pool))
	return pool
}

type fixture struct {
	branchA, branchB string
}

func seedBranches(t *testing.T, pool *pgxpool.Pool) fixture {
	t.Helper()
	ctx := context.Background()
	f := fixture{branchA: "br-" + uuid.NewString(), branchB: "br-" + uuid.NewString()}
	repo := postgres.NewBranchRepository(pool)
	require.NoError(t, repo.Create(ctx, &entity.Branch{ID: f.branchA, Name: "Centro"}))
	require.NoError(t, repo.Create(ctx, &entity.Branch{ID: f.branchB, Name: "Norte"}))
	return f
}

func seedVariation(t *testing.T, pool *pgxpool.Pool, productID, branchID string, stock int64) string {
	t.Helper()
	v := &entity.ProductVariation{
		ID:            "var-" + uuid.NewString(),
		ProductID:     productID,
		BranchID:      branchID,
		Attributes:    entity.VariantAttributes{Color: "negro", Size: "L"},
		SKU:           "SKU-" + productID[:8],
		StockQuantity: stock,
	}
	require.NoError(t, postgres.NewVariationStockRepository(pool).Create(context.Background(), v))
	return v.ID
}

func quantities(t *testing.T, pool *pgxpool.Pool, id string) (int64, int64) {
	t.Helper()
	v, err := postgres.NewVariationStockRepository(pool).GetByID(context.Background(), id)
	require.NoError(t, err)
	return v.StockQuantity, v.ReservedQuantity
}

func TestIntegration_CreatesConcurrentesSoloUnoGana(t *testing.T) {
	pool := testPool(t)
	f := seedBranches(t, pool)
	product := uuid.NewString()
	origin := seedVariation(t, pool, product, f.branchA, 10)

	wf := transfer.NewWorkflow(postgres.NewTxRunner(pool, 5*time.Second), transfer.NoopPublisher{}, nil)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created []*entity.StockTransfer
		errs    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr, err := wf.Create(context.Background(), transfer.CreateTransferInput{
				OriginBranchID:      f.branchA,
				DestinationBranchID: f.branchB,
				RequestedByUserID:   "user-" + uuid.NewString(),
				Items:               []transfer.TransferItemInput{{ProductVariationID: origin, Quantity: 8}},
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			created = append(created, tr)
		}()
	}
	wg.Wait()

	require.Len(t, created, 1)
	require.Len(t, errs, workers-1)
	for _, err := range errs {
		assert.True(t, errors.Is(err, domain.ErrInsufficientStock), "error inesperado: %v", err)
	}

	stock, reserved := quantities(t, pool, origin)
	assert.EqualValues(t, 2, stock)
	assert.EqualValues(t, 0, reserved)
	_, destReserved := quantities(t, pool, created[0].Items[0].DestinationVariationID)
	assert.EqualValues(t, 8, destReserved)
}

func TestIntegration_TrasladosCruzadosNoSeBloquean(t *testing.T) {
	pool := testPool(t)
	f := seedBranches(t, pool)
	product := uuid.NewString()
	varA := seedVariation(t, pool, product, f.branchA, 50)
	varB := seedVariation(t, pool, product, f.branchB, 50)

	wf := transfer.NewWorkflow(postgres.NewTxRunner(pool, 5*time.Second), transfer.NoopPublisher{}, nil)

	const perDirection = 10
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids []string
	)
	run := func(from, to, variation string) {
		defer wg.Done()
		tr, err := wf.Create(context.Background(), transfer.CreateTransferInput{
			OriginBranchID:      from,
			DestinationBranchID: to,
			RequestedByUserID:   "user-1",
			Items:               []transfer.TransferItemInput{{ProductVariationID: variation, Quantity: 1}},
		})
		if !assert.NoError(t, err) {
			return
		}
		mu.Lock()
		ids = append(ids, tr.ID)
		mu.Unlock()
	}
	for i := 0; i < perDirection; i++ {
		wg.Add(2)
		go run(f.branchA, f.branchB, varA)
		go run(f.branchB, f.branchA, varB)
	}
	wg.Wait()
	require.Len(t, ids, 2*perDirection)

	for _, id := range []string{varA, varB} {
		stock, reserved := quantities(t, pool, id)
		assert.EqualValues(t, 40, stock)
		assert.EqualValues(t, 10, reserved)
	}

	for _, id := range ids {
		_, err := wf.Complete(context.Background(), id, "user-2")
		require.NoError(t, err)
	}
	for _, id := range []string{varA, varB} {
		stock, reserved := quantities(t, pool, id)
		assert.EqualValues(t, 50, stock)
		assert.EqualValues(t, 0, reserved)
	}
}

func TestIntegration_CancelDevuelveStockYMovimientos(t *testing.T) {
	pool := testPool(t)
	f := seedBranches(t, pool)
	origin := seedVariation(t, pool, uuid.NewString(), f.branchA, 6)

	wf := transfer.NewWorkflow(postgres.NewTxRunner(pool, 5*time.Second), transfer.NoopPublisher{}, nil)
	ctx := context.Background()

	tr, err := wf.Create(ctx, transfer.CreateTransferInput{
		OriginBranchID:      f.branchA,
		DestinationBranchID: f.branchB,
		RequestedByUserID:   "user-1",
		IdempotencyKey:      uuid.NewString(),
		Items:               []transfer.TransferItemInput{{ProductVariationID: origin, Quantity: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusInTransit, tr.Status)

	cancelled, err := wf.Cancel(ctx, tr.ID, "user-2")
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusCancelled, cancelled.Status)

	stock, reserved := quantities(t, pool, origin)
	assert.EqualValues(t, 6, stock)
	assert.EqualValues(t, 0, reserved)

	movements, err := wf.Movements(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, movements, 4)
	assert.Equal(t, entity.MovementTypeTransferOut, movements[0].Type)

	_, err = wf.Complete(ctx, tr.ID, "user-2")
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
}
