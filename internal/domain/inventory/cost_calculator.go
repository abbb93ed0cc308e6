package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Inventario-lotes/internal/domain/entity"
)

// CostCalculator implementa la lógica de costo promedio ponderado (servicio de dominio).
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
func CostCalculator(stockActual, costoActual, cantEntrada, costoEntrada decimal.Decimal) decimal.Decimal {
	sum := stockActual.Add(cantEntrada)
	if sum.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	num := stockActual.Mul(costoActual).Add(cantEntrada.Mul(costoEntrada))
	return num.Div(sum)
}

// Valuation valor del saldo de los lotes (suma exacta de saldo * costo) y su costo
// unitario promedio ponderado, acumulado lote a lote con CostCalculator en orden FIFO.
func Valuation(batches []*entity.Batch) (value, averageCost decimal.Decimal) {
	stock := decimal.Zero
	value = decimal.Zero
	averageCost = decimal.Zero
	for _, b := range SortFIFO(batches) {
		if b.RemainingUnits <= 0 {
			continue
		}
		qty := decimal.NewFromInt(b.RemainingUnits)
		averageCost = CostCalculator(stock, averageCost, qty, b.UnitCost)
		stock = stock.Add(qty)
		value = value.Add(qty.Mul(b.UnitCost))
	}
	return value.Round(2), averageCost.Round(4)
}
