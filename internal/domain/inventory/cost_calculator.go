package inventory

import "github.com/shopspring/decimal"

// WeightedAverageCost costo promedio ponderado tras una entrada de mercancía (servicio de dominio).
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
// Si el stock resultante no es positivo devuelve el costo de la entrada.
func WeightedAverageCost(onHand int64, currentCost decimal.Decimal, incoming int64, incomingCost decimal.Decimal) decimal.Decimal {
	if onHand < 0 {
		onHand = 0
	}
	total := onHand + incoming
	if total <= 0 {
		return incomingCost
	}
	num := decimal.NewFromInt(onHand).Mul(currentCost).Add(decimal.NewFromInt(incoming).Mul(incomingCost))
	return num.Div(decimal.NewFromInt(total)).Round(4)
}
