package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/traslados-api/internal/application/dto"
	"github.com/jhoicas/traslados-api/internal/application/transfer"
	"github.com/jhoicas/traslados-api/internal/domain/entity"
	"github.com/jhoicas/traslados-api/internal/domain/repository"
)

// HeaderIdempotencyKey permite reintentar un POST de traslado sin duplicarlo.
const HeaderIdempotencyKey = "X-Idempotency-Key"

// TransferHandler expone el workflow de traslados entre sucursales.
type TransferHandler struct {
	wf   *transfer.Workflow
	note *transfer.DispatchNoteUseCase
}

// NewTransferHandler construye el handler.
func NewTransferHandler(wf *transfer.Workflow, note *transfer.DispatchNoteUseCase) *TransferHandler {
	return &TransferHandler{wf: wf, note: note}
}

// Create godoc
// @Summary      Crear traslado
// @Description  Descuenta el stock del origen, reserva en destino y deja el traslado en in_transit.
// @Tags         stock-transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        X-Idempotency-Key  header  string                     false  "Llave de idempotencia"
// @Param        body               body    dto.CreateTransferRequest  true   "Sucursales y líneas"
// @Success      201  {object}  dto.TransferResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/stock-transfers [post]
func (h *TransferHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	items := make([]transfer.TransferItemInput, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, transfer.TransferItemInput{ProductVariationID: it.ProductVariationID, Quantity: it.Quantity})
	}
	t, err := h.wf.Create(c.UserContext(), transfer.CreateTransferInput{
		OriginBranchID:      in.OriginBranchID,
		DestinationBranchID: in.DestinationBranchID,
		RequestedByUserID:   GetUserID(c),
		Notes:               in.Notes,
		IdempotencyKey:      c.Get(HeaderIdempotencyKey),
		Items:               items,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToTransferResponse(t, true))
}

// List godoc
// @Summary      Listar traslados
// @Tags         stock-transfers
// @Security     Bearer
// @Produce      json
// @Param        status         query  string  false  "pending | in_transit | completed | cancelled"
// @Param        branch_id      query  string  false  "Sucursal origen o destino"
// @Param        include_items  query  bool    false  "Incluir líneas"
// @Param        limit          query  int     false  "Límite"  default(20)
// @Param        offset         query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.TransferListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock-transfers [get]
func (h *TransferHandler) List(c *fiber.Ctx) error {
	limit, offset := pageParams(c)
	includeItems := c.QueryBool("include_items", false)
	list, err := h.wf.List(c.UserContext(), repository.TransferFilter{
		Status:       entity.TransferStatus(c.Query("status")),
		BranchID:     c.Query("branch_id"),
		IncludeItems: includeItems,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return writeError(c, err)
	}
	out := dto.TransferListResponse{
		Items: make([]dto.TransferResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}
	for _, t := range list {
		out.Items = append(out.Items, dto.ToTransferResponse(t, includeItems))
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener traslado con sus líneas
// @Tags         stock-transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del traslado"
// @Success      200  {object}  dto.TransferResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock-transfers/{id} [get]
func (h *TransferHandler) GetByID(c *fiber.Ctx) error {
	t, err := h.wf.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToTransferResponse(t, true))
}

// Complete godoc
// @Summary      Recibir traslado en destino
// @Tags         stock-transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del traslado"
// @Success      200  {object}  dto.TransferResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/stock-transfers/{id}/complete [put]
func (h *TransferHandler) Complete(c *fiber.Ctx) error {
	t, err := h.wf.Complete(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToTransferResponse(t, true))
}

// Cancel godoc
// @Summary      Anular traslado
// @Description  Desde in_transit devuelve el stock al origen y libera la reserva del destino.
// @Tags         stock-transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del traslado"
// @Success      200  {object}  dto.TransferResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/stock-transfers/{id}/cancel [put]
func (h *TransferHandler) Cancel(c *fiber.Ctx) error {
	t, err := h.wf.Cancel(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToTransferResponse(t, true))
}

// Movements godoc
// @Summary      Kardex generado por el traslado
// @Tags         stock-transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del traslado"
// @Success      200  {array}   dto.MovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock-transfers/{id}/movements [get]
func (h *TransferHandler) Movements(c *fiber.Ctx) error {
	list, err := h.wf.Movements(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, dto.ToMovementResponse(m))
	}
	return c.JSON(out)
}

// DispatchNote godoc
// @Summary      Descargar remisión en PDF
// @Tags         stock-transfers
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID del traslado"
// @Success      200  {file}    file
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/stock-transfers/{id}/dispatch-note [get]
func (h *TransferHandler) DispatchNote(c *fiber.Ctx) error {
	pdf, filename, err := h.note.Download(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdf)
}

func pageParams(c *fiber.Ctx) (int, int) {
	var p dto.PageRequest
	if err := c.QueryParser(&p); err != nil {
		p = dto.PageRequest{}
	}
	p.Normalize()
	return p.Limit, p.Offset
}
