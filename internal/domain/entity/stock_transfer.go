package entity

import "time"

// TransferStatus estado del traslado. Conjunto cerrado; las transiciones válidas
// viven en internal/domain/transfer.
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"
	TransferStatusInTransit TransferStatus = "in_transit"
	TransferStatusCompleted TransferStatus = "completed"
	TransferStatusCancelled TransferStatus = "cancelled"
)

// Valid indica si el valor pertenece al conjunto de estados conocidos.
func (s TransferStatus) Valid() bool {
	switch s {
	case TransferStatusPending, TransferStatusInTransit, TransferStatusCompleted, TransferStatusCancelled:
		return true
	}
	return false
}

// Terminal indica si el estado es final (completed/cancelled).
func (s TransferStatus) Terminal() bool {
	return s == TransferStatusCompleted || s == TransferStatusCancelled
}

func (s TransferStatus) String() string { return string(s) }

// StockTransfer traslado de mercancía entre dos sucursales.
type StockTransfer struct {
	ID                  string
	OriginBranchID      string
	DestinationBranchID string
	RequestedByUserID   string
	ApprovedByUserID    *string
	CancelledByUserID   *string
	Notes               string
	Status              TransferStatus
	IdempotencyKey      string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	CompletedAt         *time.Time
	CancelledAt         *time.Time
	Items               []StockTransferItem
}

// StockTransferItem línea del traslado. ProductVariationID es la variación en el origen;
// DestinationVariationID la fila resuelta (o creada) en el destino al crear el traslado.
type StockTransferItem struct {
	ID                     string
	TransferID             string
	ProductVariationID     string
	DestinationVariationID string
	Quantity               int64
}

// TotalQuantity suma de unidades de todas las líneas.
func (t *StockTransfer) TotalQuantity() int64 {
	var total int64
	for _, it := range t.Items {
		total += it.Quantity
	}
	return total
}
