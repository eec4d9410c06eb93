package dto

import (
	"time"

	"github.com/jhoicas/traslados-api/internal/domain/entity"
)

// CreateTransferRequest body para POST /api/stock-transfers.
type CreateTransferRequest struct {
	OriginBranchID      string                      `json:"originBranchId"`
	DestinationBranchID string                      `json:"destinationBranchId"`
	Notes               string                      `json:"notes,omitempty"`
	Items               []CreateTransferItemRequest `json:"items"`
}

// CreateTransferItemRequest línea del traslado solicitado.
type CreateTransferItemRequest struct {
	ProductVariationID string `json:"productVariationId"`
	Quantity           int64  `json:"quantity"`
}

// TransferItemResponse línea del traslado.
type TransferItemResponse struct {
	ID                     string `json:"id"`
	ProductVariationID     string `json:"productVariationId"`
	DestinationVariationID string `json:"destinationVariationId,omitempty"`
	Quantity               int64  `json:"quantity"`
}

// TransferResponse salida de un traslado. Items se omite en listados planos.
type TransferResponse struct {
	ID                  string                 `json:"id"`
	OriginBranchID      string                 `json:"originBranchId"`
	DestinationBranchID string                 `json:"destinationBranchId"`
	RequestedByUserID   string                 `json:"requestedByUserId"`
	ApprovedByUserID    *string                `json:"approvedByUserId"`
	CancelledByUserID   *string                `json:"cancelledByUserId,omitempty"`
	Notes               string                 `json:"notes"`
	Status              string                 `json:"status"`
	CreatedAt           time.Time              `json:"createdAt"`
	UpdatedAt           time.Time              `json:"updatedAt"`
	CompletedAt         *time.Time             `json:"completedAt"`
	CancelledAt         *time.Time             `json:"cancelledAt,omitempty"`
	Items               []TransferItemResponse `json:"items,omitempty"`
}

// TransferListResponse lista de traslados.
type TransferListResponse struct {
	Items []TransferResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// MovementResponse registro de kardex.
type MovementResponse struct {
	ID            string    `json:"id"`
	TransferID    string    `json:"transferId,omitempty"`
	VariationID   string    `json:"variationId"`
	BranchID      string    `json:"branchId"`
	Type          string    `json:"type"`
	StockDelta    int64     `json:"stockDelta"`
	ReservedDelta int64     `json:"reservedDelta"`
	StockAfter    int64     `json:"stockAfter"`
	ReservedAfter int64     `json:"reservedAfter"`
	Reason        string    `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"`
}

// ToTransferResponse mapea la entidad a la salida HTTP.
func ToTransferResponse(t *entity.StockTransfer, withItems bool) TransferResponse {
	out := TransferResponse{
		ID:                  t.ID,
		OriginBranchID:      t.OriginBranchID,
		DestinationBranchID: t.DestinationBranchID,
		RequestedByUserID:   t.RequestedByUserID,
		ApprovedByUserID:    t.ApprovedByUserID,
		CancelledByUserID:   t.CancelledByUserID,
		Notes:               t.Notes,
		Status:              t.Status.String(),
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
		CompletedAt:         t.CompletedAt,
		CancelledAt:         t.CancelledAt,
	}
	if withItems {
		out.Items = make([]TransferItemResponse, 0, len(t.Items))
		for _, it := range t.Items {
			out.Items = append(out.Items, TransferItemResponse{
				ID:                     it.ID,
				ProductVariationID:     it.ProductVariationID,
				DestinationVariationID: it.DestinationVariationID,
				Quantity:               it.Quantity,
			})
		}
	}
	return out
}

// ToMovementResponse mapea un registro de kardex.
func ToMovementResponse(m *entity.StockMovement) MovementResponse {
	return MovementResponse{
		ID:            m.ID,
		TransferID:    m.TransferID,
		VariationID:   m.VariationID,
		BranchID:      m.BranchID,
		Type:          m.Type,
		StockDelta:    m.StockDelta,
		ReservedDelta: m.ReservedDelta,
		StockAfter:    m.StockAfter,
		ReservedAfter: m.ReservedAfter,
		Reason:        m.Reason,
		CreatedAt:     m.CreatedAt,
		CreatedBy:     m.CreatedBy,
	}
}
