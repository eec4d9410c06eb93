package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// VariationResponse libro de stock de una variación en su sucursal.
type VariationResponse struct {
	ID                string          `json:"id"`
	ProductID         string          `json:"productId"`
	BranchID          string          `json:"branchId"`
	Color             string          `json:"color"`
	Size              string          `json:"size"`
	SKU               string          `json:"sku"`
	Barcode           string          `json:"barcode"`
	Price             decimal.Decimal `json:"price"`
	Cost              decimal.Decimal `json:"cost"`
	MinStock          int64           `json:"minStock"`
	StockQuantity     int64           `json:"stockQuantity"`
	ReservedQuantity  int64           `json:"reservedQuantity"`
	AvailableQuantity int64           `json:"availableQuantity"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// AdjustStockRequest body para POST /api/variations/:id/adjustments.
type AdjustStockRequest struct {
	Delta    int64            `json:"delta"`
	Reason   string           `json:"reason"`
	UnitCost *decimal.Decimal `json:"unitCost,omitempty"`
}

// StockSnapshotResponse cantidades tras un ajuste.
type StockSnapshotResponse struct {
	VariationID       string `json:"variationId"`
	BranchID          string `json:"branchId"`
	StockQuantity     int64  `json:"stockQuantity"`
	ReservedQuantity  int64  `json:"reservedQuantity"`
	AvailableQuantity int64  `json:"availableQuantity"`
}
