package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/ulule/limiter/v3"

	"github.com/jhoicas/traslados-api/internal/application/inventory"
	"github.com/jhoicas/traslados-api/internal/application/transfer"
	"github.com/jhoicas/traslados-api/internal/application/usecase"
	"github.com/jhoicas/traslados-api/pkg/logger"
)

// Roles conocidos en el token.
const (
	RoleAdmin     = "admin"
	RoleBodeguero = "bodeguero"
	RoleVendedor  = "vendedor"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	BranchUC     *usecase.BranchUseCase
	Transfers    *transfer.Workflow
	DispatchNote *transfer.DispatchNoteUseCase
	Adjustments  *inventory.AdjustStockUseCase
	JWTSecret    string
	// Limiter opcional; nil desactiva el límite de escrituras.
	Limiter *limiter.Limiter
	// Logger opcional; nil desactiva el log de peticiones.
	Logger *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")
	if deps.Logger != nil {
		api.Use(RequestLogger(deps.Logger))
	}

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	writes := []fiber.Handler{}
	if deps.Limiter != nil {
		writes = append(writes, RateLimit(deps.Limiter))
	}
	withWrites := func(h ...fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, writes...), h...)
	}

	// Branches
	branches := protected.Group("/branches")
	branchHandler := NewBranchHandler(deps.BranchUC)
	branches.Post("/", withWrites(RequireRole(RoleAdmin), branchHandler.Create)...)
	branches.Get("/", branchHandler.List)
	branches.Get("/:id", branchHandler.GetByID)

	// Stock transfers
	transfers := protected.Group("/stock-transfers")
	transferHandler := NewTransferHandler(deps.Transfers, deps.DispatchNote)
	transfers.Post("/", withWrites(transferHandler.Create)...)
	transfers.Get("/", transferHandler.List)
	transfers.Get("/:id", transferHandler.GetByID)
	transfers.Put("/:id/complete", withWrites(transferHandler.Complete)...)
	transfers.Put("/:id/cancel", withWrites(transferHandler.Cancel)...)
	transfers.Get("/:id/movements", transferHandler.Movements)
	transfers.Get("/:id/dispatch-note", transferHandler.DispatchNote)

	// Variations
	variations := protected.Group("/variations")
	variationHandler := NewVariationHandler(deps.Adjustments)
	variations.Get("/:id", variationHandler.GetByID)
	variations.Post("/:id/adjustments", withWrites(RequireRole(RoleAdmin, RoleBodeguero), variationHandler.Adjust)...)
	variations.Get("/:id/movements", variationHandler.Movements)
}
