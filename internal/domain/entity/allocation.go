package entity

import "github.com/shopspring/decimal"

// Allocation línea inmutable de consumo: cuánto se tomó de un lote concreto.
// Solo el Allocator las produce; solo el Restorer las reduce o elimina.
type Allocation struct {
	BatchID         string          `json:"batch_id"`
	SourceOrderID   string          `json:"source_order_id,omitempty"`
	Units           int64           `json:"units"`
	UnitsPerPackage int64           `json:"units_per_package"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
}

// Packages paquetes equivalentes a las unidades consumidas.
func (a Allocation) Packages() int64 {
	if a.UnitsPerPackage <= 0 {
		return a.Units
	}
	return a.Units / a.UnitsPerPackage
}

// Cost valor de la línea al costo del lote.
func (a Allocation) Cost() decimal.Decimal {
	return a.UnitCost.Mul(decimal.NewFromInt(a.Units))
}

// TotalPackages suma los paquetes de una lista de asignaciones.
func TotalPackages(allocs []Allocation) int64 {
	var n int64
	for _, a := range allocs {
		n += a.Packages()
	}
	return n
}
