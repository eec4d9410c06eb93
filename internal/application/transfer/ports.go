package transfer

import (
	"context"
	"time"

	"github.com/jhoicas/traslados-api/internal/domain/entity"
)

// Tipos de evento de dominio publicados tras el commit.
const (
	EventTransferCreated   = "stock_transfer.created"
	EventTransferCompleted = "stock_transfer.completed"
	EventTransferCancelled = "stock_transfer.cancelled"
)

// TransferEvent evento publicado cuando un traslado cambia de estado.
type TransferEvent struct {
	Type                string              `json:"type"`
	TransferID          string              `json:"transfer_id"`
	Status              string              `json:"status"`
	OriginBranchID      string              `json:"origin_branch_id"`
	DestinationBranchID string              `json:"destination_branch_id"`
	ActorUserID         string              `json:"actor_user_id"`
	Items               []TransferEventItem `json:"items"`
	OccurredAt          time.Time           `json:"occurred_at"`
}

// TransferEventItem línea del evento.
type TransferEventItem struct {
	ProductVariationID     string `json:"product_variation_id"`
	DestinationVariationID string `json:"destination_variation_id"`
	Quantity               int64  `json:"quantity"`
}

// EventPublisher puerto de salida para eventos de traslado (Kafka u otro broker).
// Se invoca después del commit: un fallo no revierte la operación.
type EventPublisher interface {
	PublishTransferEvent(ctx context.Context, event TransferEvent) error
}

// NoopPublisher descarta los eventos. Se usa cuando no hay brokers configurados.
type NoopPublisher struct{}

// PublishTransferEvent no hace nada.
func (NoopPublisher) PublishTransferEvent(context.Context, TransferEvent) error { return nil }

// DispatchNoteGenerator genera la remisión (PDF) que acompaña la mercancía en tránsito.
type DispatchNoteGenerator interface {
	GenerateDispatchNote(ctx context.Context, note DispatchNote) ([]byte, error)
}

// DispatchNote datos de la remisión.
type DispatchNote struct {
	Transfer    *entity.StockTransfer
	Origin      *entity.Branch
	Destination *entity.Branch
	Lines       []DispatchNoteLine
}

// DispatchNoteLine línea de la remisión con datos de catálogo de la variación de origen.
type DispatchNoteLine struct {
	SKU      string
	Barcode  string
	Color    string
	Size     string
	Quantity int64
}

func newEvent(eventType, actor string, t *entity.StockTransfer, at time.Time) TransferEvent {
	items := make([]TransferEventItem, 0, len(t.Items))
	for _, it := range t.Items {
		items = append(items, TransferEventItem{
			ProductVariationID:     it.ProductVariationID,
			DestinationVariationID: it.DestinationVariationID,
			Quantity:               it.Quantity,
		})
	}
	return TransferEvent{
		Type:                eventType,
		TransferID:          t.ID,
		Status:              t.Status.String(),
		OriginBranchID:      t.OriginBranchID,
		DestinationBranchID: t.DestinationBranchID,
		ActorUserID:         actor,
		Items:               items,
		OccurredAt:          at,
	}
}
