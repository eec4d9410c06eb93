package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/traslados-api/internal/application/dto"
	"github.com/jhoicas/traslados-api/internal/application/inventory"
)

// VariationHandler consulta y ajusta el stock de una variación.
type VariationHandler struct {
	uc *inventory.AdjustStockUseCase
}

// NewVariationHandler construye el handler.
func NewVariationHandler(uc *inventory.AdjustStockUseCase) *VariationHandler {
	return &VariationHandler{uc: uc}
}

// GetByID godoc
// @Summary      Stock de una variación
// @Tags         variations
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la variación"
// @Success      200  {object}  dto.VariationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/variations/{id} [get]
func (h *VariationHandler) GetByID(c *fiber.Ctx) error {
	v, err := h.uc.GetVariation(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.VariationResponse{
		ID:                v.ID,
		ProductID:         v.ProductID,
		BranchID:          v.BranchID,
		Color:             v.Attributes.Color,
		Size:              v.Attributes.Size,
		SKU:               v.SKU,
		Barcode:           v.Barcode,
		Price:             v.Price,
		Cost:              v.Cost,
		MinStock:          v.MinStock,
		StockQuantity:     v.StockQuantity,
		ReservedQuantity:  v.ReservedQuantity,
		AvailableQuantity: v.Available(),
		UpdatedAt:         v.UpdatedAt,
	})
}

// Adjust godoc
// @Summary      Ajustar stock (entrada o salida)
// @Tags         variations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID de la variación"
// @Param        body  body  dto.AdjustStockRequest  true  "Delta positivo = entrada"
// @Success      200   {object}  dto.StockSnapshotResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/variations/{id}/adjustments [post]
func (h *VariationHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	snap, err := h.uc.Adjust(c.UserContext(), inventory.AdjustStockInput{
		VariationID: c.Params("id"),
		UserID:      GetUserID(c),
		Delta:       in.Delta,
		Reason:      in.Reason,
		UnitCost:    in.UnitCost,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.StockSnapshotResponse{
		VariationID:       snap.ID,
		BranchID:          snap.BranchID,
		StockQuantity:     snap.StockQuantity,
		ReservedQuantity:  snap.ReservedQuantity,
		AvailableQuantity: snap.Available(),
	})
}

// Movements godoc
// @Summary      Kardex de la variación
// @Tags         variations
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "ID de la variación"
// @Param        limit   query  int     false  "Límite"  default(20)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200  {array}   dto.MovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/variations/{id}/movements [get]
func (h *VariationHandler) Movements(c *fiber.Ctx) error {
	limit, offset := pageParams(c)
	list, err := h.uc.ListMovements(c.UserContext(), c.Params("id"), limit, offset)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, dto.ToMovementResponse(m))
	}
	return c.JSON(out)
}
