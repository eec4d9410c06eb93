package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// VariantAttributes combinación vendible de un producto (color/talla).
// Cadena vacía significa "sin atributo".
type VariantAttributes struct {
	Color string
	Size  string
}

// ProductVariation representa el stock de una variación de producto en una sucursal.
// StockQuantity y ReservedQuantity solo se modifican a través de VariationStockStore.
type ProductVariation struct {
	ID               string
	ProductID        string
	BranchID         string
	Attributes       VariantAttributes
	SKU              string
	Barcode          string
	Price            decimal.Decimal
	Cost             decimal.Decimal
	MinStock         int64
	StockQuantity    int64 // unidades físicas en la sucursal, >= 0
	ReservedQuantity int64 // unidades comprometidas hacia la sucursal aún no recibidas, >= 0
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Available devuelve StockQuantity - ReservedQuantity.
func (v *ProductVariation) Available() int64 {
	return v.StockQuantity - v.ReservedQuantity
}

// Snapshot devuelve las cantidades actuales de la fila.
func (v *ProductVariation) Snapshot() VariationSnapshot {
	return VariationSnapshot{
		ID:               v.ID,
		ProductID:        v.ProductID,
		BranchID:         v.BranchID,
		Attributes:       v.Attributes,
		StockQuantity:    v.StockQuantity,
		ReservedQuantity: v.ReservedQuantity,
	}
}

// VariationSnapshot cantidades leídas bajo bloqueo dentro de la transacción activa.
type VariationSnapshot struct {
	ID               string
	ProductID        string
	BranchID         string
	Attributes       VariantAttributes
	StockQuantity    int64
	ReservedQuantity int64
}

// Available devuelve StockQuantity - ReservedQuantity.
func (s VariationSnapshot) Available() int64 {
	return s.StockQuantity - s.ReservedQuantity
}
