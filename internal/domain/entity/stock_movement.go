package entity

import "time"

// Tipos de movimiento de kardex generados por traslados y ajustes.
const (
	MovementTypeTransferOut     = "TRANSFER_OUT"     // salida física del origen
	MovementTypeTransferReserve = "TRANSFER_RESERVE" // compromiso entrante en destino
	MovementTypeTransferIn      = "TRANSFER_IN"      // recepción en destino
	MovementTypeTransferReturn  = "TRANSFER_RETURN"  // devolución al origen por cancelación
	MovementTypeTransferRelease = "TRANSFER_RELEASE" // liberación del compromiso en destino
	MovementTypeAdjustment      = "ADJUSTMENT"
)

// StockMovement registro de kardex: una mutación de stock/reservado de una variación.
type StockMovement struct {
	ID            string
	TransferID    string // vacío para ajustes
	VariationID   string
	BranchID      string
	Type          string
	StockDelta    int64
	ReservedDelta int64
	StockAfter    int64
	ReservedAfter int64
	Reason        string
	CreatedAt     time.Time
	CreatedBy     string
}
