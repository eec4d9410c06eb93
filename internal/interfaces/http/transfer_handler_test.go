package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/traslados-api/internal/application/dto"
	"github.com/jhoicas/traslados-api/internal/application/inventory"
	"github.com/jhoicas/traslados-api/internal/application/ports"
	"github.com/jhoicas/traslados-api/internal/application/transfer"
	"github.com/jhoicas/traslados-api/internal/application/usecase"
	"github.com/jhoicas/traslados-api/internal/domain"
	"github.com/jhoicas/traslados-api/internal/domain/entity"
	"github.com/jhoicas/traslados-api/internal/domain/repository"
	"github.com/jhoicas/traslados-api/internal/infrastructure/memory"
	"github.com/jhoicas/traslados-api/internal/infrastructure/pdf"
	apphttp "github.com/jhoicas/traslados-api/internal/interfaces/http"
)

const (
	branchCentro = "br-centro"
	branchNorte  = "br-norte"
	varCamisa    = "var-camisa-rojo-m"
)

func seededStore() *memory.Store {
	s := memory.NewStore()
	s.AddBranch(entity.Branch{ID: branchCentro, Name: "Centro"})
	s.AddBranch(entity.Branch{ID: branchNorte, Name: "Norte"})
	s.AddVariation(entity.ProductVariation{
		ID: varCamisa, ProductID: "prod-camisa", BranchID: branchCentro,
		Attributes: entity.VariantAttributes{Color: "rojo", Size: "M"},
		SKU:        "CAM-R-M", Barcode: "7700001", Cost: decimal.NewFromInt(21000),
		StockQuantity: 10,
	})
	return s
}

func newAPI(uow ports.UnitOfWork, branches repository.BranchRepository, deps apphttp.RouterDeps) *fiber.App {
	deps.JWTSecret = testJWTSecret
	deps.BranchUC = usecase.NewBranchUseCase(branches)
	deps.Transfers = transfer.NewWorkflow(uow, transfer.NoopPublisher{}, nil)
	deps.DispatchNote = transfer.NewDispatchNoteUseCase(uow, pdf.NewDispatchNoteGenerator())
	deps.Adjustments = inventory.NewAdjustStockUseCase(uow)
	app := fiber.New()
	apphttp.Router(app, deps)
	return app
}

func newMemoryAPI(s *memory.Store) *fiber.App {
	return newAPI(s, s.BranchRepository(), apphttp.RouterDeps{})
}

func send(t *testing.T, app *fiber.App, method, path, role string, body interface{}, headers ...string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", tokenForRole(t, role))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func createBody(qty int64) map[string]interface{} {
	return map[string]interface{}{
		"originBranchId":      branchCentro,
		"destinationBranchId": branchNorte,
		"items": []map[string]interface{}{
			{"productVariationId": varCamisa, "quantity": qty},
		},
	}
}

func TestCreateTransfer_201ConCuerpoCamelCase(t *testing.T) {
	s := seededStore()
	app := newMemoryAPI(s)

	resp := send(t, app, http.MethodPost, "/api/stock-transfers", "bodeguero", createBody(4))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var raw map[string]interface{}
	decode(t, resp, &raw)
	assert.Equal(t, "in_transit", raw["status"])
	assert.Equal(t, branchCentro, raw["originBranchId"])
	assert.Equal(t, branchNorte, raw["destinationBranchId"])
	assert.Equal(t, testUserID, raw["requestedByUserId"])
	assert.Contains(t, raw, "approvedByUserId")
	assert.Nil(t, raw["completedAt"])
	items, ok := raw["items"].([]interface{})
	require.True(t, ok)
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, varCamisa, item["productVariationId"])
	assert.EqualValues(t, 4, item["quantity"])

	v, _ := s.Variation(varCamisa)
	assert.EqualValues(t, 6, v.StockQuantity)
}

func TestCreateTransfer_MapeoDeErrores(t *testing.T) {
	cases := []struct {
		name   string
		body   interface{}
		status int
		code   string
	}{
		{"misma sucursal", map[string]interface{}{
			"originBranchId": branchCentro, "destinationBranchId": branchCentro,
			"items": []map[string]interface{}{{"productVariationId": varCamisa, "quantity": 1}},
		}, http.StatusBadRequest, "VALIDATION"},
		{"sin líneas", map[string]interface{}{
			"originBranchId": branchCentro, "destinationBranchId": branchNorte,
		}, http.StatusBadRequest, "VALIDATION"},
		{"stock insuficiente", createBody(11), http.StatusBadRequest, "INSUFFICIENT_STOCK"},
		{"variación inexistente", map[string]interface{}{
			"originBranchId": branchCentro, "destinationBranchId": branchNorte,
			"items": []map[string]interface{}{{"productVariationId": "var-x", "quantity": 1}},
		}, http.StatusNotFound, "NOT_FOUND"},
		{"sucursal inexistente", map[string]interface{}{
			"originBranchId": branchCentro, "destinationBranchId": "br-x",
			"items": []map[string]interface{}{{"productVariationId": varCamisa, "quantity": 1}},
		}, http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := seededStore()
			resp := send(t, newMemoryAPI(s), http.MethodPost, "/api/stock-transfers", "bodeguero", tc.body)

			assert.Equal(t, tc.status, resp.StatusCode)
			var e dto.ErrorResponse
			decode(t, resp, &e)
			assert.Equal(t, tc.code, e.Code)

			v, _ := s.Variation(varCamisa)
			assert.EqualValues(t, 10, v.StockQuantity, "un rechazo no debe tocar el stock")
		})
	}
}

func TestCreateTransfer_CuerpoInvalido(t *testing.T) {
	app := newMemoryAPI(seededStore())
	req := httptest.NewRequest(http.MethodPost, "/api/stock-transfers", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", tokenForRole(t, "admin"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateTransfer_IdempotencyKeyDevuelveElMismoTraslado(t *testing.T) {
	s := seededStore()
	app := newMemoryAPI(s)

	var first, second dto.TransferResponse
	resp := send(t, app, http.MethodPost, "/api/stock-transfers", "admin", createBody(2), apphttp.HeaderIdempotencyKey, "k-1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decode(t, resp, &first)
	resp = send(t, app, http.MethodPost, "/api/stock-transfers", "admin", createBody(2), apphttp.HeaderIdempotencyKey, "k-1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decode(t, resp, &second)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, s.TransferCount())
	v, _ := s.Variation(varCamisa)
	assert.EqualValues(t, 8, v.StockQuantity)
}

func TestCompleteYCancel_Transiciones(t *testing.T) {
	s := seededStore()
	app := newMemoryAPI(s)

	var created dto.TransferResponse
	resp := send(t, app, http.MethodPost, "/api/stock-transfers", "bodeguero", createBody(3))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decode(t, resp, &created)

	var completed dto.TransferResponse
	resp = send(t, app, http.MethodPut, "/api/stock-transfers/"+created.ID+"/complete", "bodeguero", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &completed)
	assert.Equal(t, "completed", completed.Status)
	require.NotNil(t, completed.ApprovedByUserID)
	assert.Equal(t, testUserID, *completed.ApprovedByUserID)
	assert.NotNil(t, completed.CompletedAt)

	resp = send(t, app, http.MethodPut, "/api/stock-transfers/"+created.ID+"/complete", "bodeguero", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	var e dto.ErrorResponse
	decode(t, resp, &e)
	assert.Equal(t, "INVALID_STATE", e.Code)

	resp = send(t, app, http.MethodPut, "/api/stock-transfers/"+created.ID+"/cancel", "bodeguero", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = send(t, app, http.MethodPut, "/api/stock-transfers/no-existe/complete", "bodeguero", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestCancel_DevuelveStockAlOrigen(t *testing.T) {
	s := seededStore()
	app := newMemoryAPI(s)

	var created dto.TransferResponse
	resp := send(t, app, http.MethodPost, "/api/stock-transfers", "bodeguero", createBody(5))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decode(t, resp, &created)

	resp = send(t, app, http.MethodPut, "/api/stock-transfers/"+created.ID+"/cancel", "bodeguero", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cancelled dto.TransferResponse
	decode(t, resp, &cancelled)
	assert.Equal(t, "cancelled", cancelled.Status)

	v, _ := s.Variation(varCamisa)
	assert.EqualValues(t, 10, v.StockQuantity)

	var movements []dto.MovementResponse
	resp = send(t, app, http.MethodGet, "/api/stock-transfers/"+created.ID+"/movements", "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &movements)
	assert.Len(t, movements, 4)

	resp = send(t, app, http.MethodGet, "/api/stock-transfers/"+created.ID+"/dispatch-note", "vendedor", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestGetYList(t *testing.T) {
	s := seededStore()
	app := newMemoryAPI(s)

	var created dto.TransferResponse
	resp := send(t, app, http.MethodPost, "/api/stock-transfers", "bodeguero", createBody(1))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decode(t, resp, &created)

	var got dto.TransferResponse
	resp = send(t, app, http.MethodGet, "/api/stock-transfers/"+created.ID, "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &got)
	assert.Equal(t, created.ID, got.ID)
	assert.Len(t, got.Items, 1)

	var list dto.TransferListResponse
	resp = send(t, app, http.MethodGet, "/api/stock-transfers?status=in_transit&branch_id="+branchNorte, "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &list)
	require.Len(t, list.Items, 1)
	assert.Empty(t, list.Items[0].Items)
	assert.Equal(t, 20, list.Page.Limit)

	resp = send(t, app, http.MethodGet, "/api/stock-transfers?status=completed", "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &list)
	assert.Empty(t, list.Items)

	resp = send(t, app, http.MethodGet, "/api/stock-transfers?status=perdido", "vendedor", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = send(t, app, http.MethodGet, "/api/stock-transfers/no-existe", "vendedor", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestList_PaginacionSeNormaliza(t *testing.T) {
	app := newMemoryAPI(seededStore())
	for i := 0; i < 2; i++ {
		resp := send(t, app, http.MethodPost, "/api/stock-transfers", "bodeguero", createBody(1))
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	cases := []struct {
		query      string
		wantLimit  int
		wantOffset int
		wantItems  int
	}{
		{"limit=1000", 100, 0, 2},
		{"limit=0&offset=-3", 20, 0, 2},
		{"limit=1&offset=1", 1, 1, 1},
		{"limit=abc", 20, 0, 2},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			var list dto.TransferListResponse
			resp := send(t, app, http.MethodGet, "/api/stock-transfers?"+tc.query, "vendedor", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			decode(t, resp, &list)
			assert.Equal(t, tc.wantLimit, list.Page.Limit)
			assert.Equal(t, tc.wantOffset, list.Page.Offset)
			assert.Len(t, list.Items, tc.wantItems)
		})
	}
}

func TestDispatchNote_DescargaPDF(t *testing.T) {
	s := seededStore()
	app := newMemoryAPI(s)

	var created dto.TransferResponse
	resp := send(t, app, http.MethodPost, "/api/stock-transfers", "bodeguero", createBody(2))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decode(t, resp, &created)

	resp = send(t, app, http.MethodGet, "/api/stock-transfers/"+created.ID+"/dispatch-note", "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "remision-"+created.ID+".pdf")
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")))
}

// busyUoW simula una fila bloqueada por otra transacción.
type busyUoW struct{}

func (busyUoW) Run(context.Context, func(context.Context, repository.TxRepos) error) error {
	return fmt.Errorf("%w: canceling statement due to lock timeout", domain.ErrLockTimeout)
}

func TestCreateTransfer_LockTimeoutResponde503(t *testing.T) {
	s := seededStore()
	app := newAPI(busyUoW{}, s.BranchRepository(), apphttp.RouterDeps{})

	resp := send(t, app, http.MethodPost, "/api/stock-transfers", "bodeguero", createBody(1))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
	var e dto.ErrorResponse
	decode(t, resp, &e)
	assert.Equal(t, "LOCK_TIMEOUT", e.Code)
}

func TestVariations_AjusteYKardex(t *testing.T) {
	s := seededStore()
	app := newMemoryAPI(s)

	resp := send(t, app, http.MethodPost, "/api/variations/"+varCamisa+"/adjustments", "vendedor",
		map[string]interface{}{"delta": 5, "reason": "compra"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	var snap dto.StockSnapshotResponse
	resp = send(t, app, http.MethodPost, "/api/variations/"+varCamisa+"/adjustments", "bodeguero",
		map[string]interface{}{"delta": 5, "reason": "compra", "unitCost": "27000"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &snap)
	assert.EqualValues(t, 15, snap.StockQuantity)
	assert.EqualValues(t, 15, snap.AvailableQuantity)

	resp = send(t, app, http.MethodPost, "/api/variations/"+varCamisa+"/adjustments", "admin",
		map[string]interface{}{"delta": -16, "reason": "merma"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	var v dto.VariationResponse
	resp = send(t, app, http.MethodGet, "/api/variations/"+varCamisa, "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &v)
	assert.EqualValues(t, 15, v.StockQuantity)
	assert.True(t, v.Cost.Equal(decimal.NewFromInt(23000)), "costo promedio: %s", v.Cost)

	var movements []dto.MovementResponse
	resp = send(t, app, http.MethodGet, "/api/variations/"+varCamisa+"/movements", "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &movements)
	require.Len(t, movements, 1)
	assert.Equal(t, entity.MovementTypeAdjustment, movements[0].Type)
	assert.EqualValues(t, 5, movements[0].StockDelta)

	resp = send(t, app, http.MethodGet, "/api/variations/var-x", "vendedor", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestBranches_SoloAdminCrea(t *testing.T) {
	s := seededStore()
	app := newMemoryAPI(s)

	resp := send(t, app, http.MethodPost, "/api/branches", "bodeguero", map[string]string{"name": "Sur"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	var created dto.BranchResponse
	resp = send(t, app, http.MethodPost, "/api/branches", "admin", map[string]string{"name": "Sur", "address": "Cra 1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decode(t, resp, &created)
	assert.NotEmpty(t, created.ID)

	var got dto.BranchResponse
	resp = send(t, app, http.MethodGet, "/api/branches/"+created.ID, "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &got)
	assert.Equal(t, "Sur", got.Name)

	var list dto.BranchListResponse
	resp = send(t, app, http.MethodGet, "/api/branches", "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &list)
	assert.Len(t, list.Items, 3)

	resp = send(t, app, http.MethodGet, "/api/branches/no-existe", "vendedor", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = send(t, app, http.MethodPost, "/api/branches", "admin", map[string]string{"name": " "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestRateLimit_Responde429AlSuperarElLimite(t *testing.T) {
	s := seededStore()
	lim, err := apphttp.NewRateLimiter("1-M")
	require.NoError(t, err)
	app := newAPI(s, s.BranchRepository(), apphttp.RouterDeps{Limiter: lim})

	resp := send(t, app, http.MethodPost, "/api/stock-transfers", "bodeguero", createBody(1))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Limit"))
	resp.Body.Close()

	resp = send(t, app, http.MethodPost, "/api/stock-transfers", "bodeguero", createBody(1))
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	resp.Body.Close()

	// Las lecturas no pasan por el limitador.
	resp = send(t, app, http.MethodGet, "/api/stock-transfers", "bodeguero", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestNewRateLimiter_FormatoInvalido(t *testing.T) {
	_, err := apphttp.NewRateLimiter("muchas")
	assert.Error(t, err)
}
