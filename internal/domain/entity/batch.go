package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Batch representa un lote de inventario: una entrada fechada y finita de un producto.
// Se crea al registrar la orden de origen y solo se elimina junto con ella.
// RemainingPackages = floor(RemainingUnits / UnitsPerPackage).
type Batch struct {
	ID                string          `json:"id"`
	ProductID         string          `json:"product_id"`
	SourceOrderID     string          `json:"source_order_id,omitempty"`
	UnitsPerPackage   int64           `json:"units_per_package"`
	TotalUnits        int64           `json:"total_units"`
	RemainingUnits    int64           `json:"remaining_units"`
	RemainingPackages int64           `json:"remaining_packages"`
	UnitCost          decimal.Decimal `json:"unit_cost"` // costo por unidad base
	ReceivedAt        time.Time       `json:"received_at"`
	Seq               int64           `json:"seq"` // secuencia de creación, desempata lotes del mismo día
	CreatedAt         time.Time       `json:"created_at"`
}

// UsedUnits unidades ya consumidas del lote.
func (b *Batch) UsedUnits() int64 {
	return b.TotalUnits - b.RemainingUnits
}

// Before indica si b va antes que other en orden FIFO (fecha y luego secuencia).
func (b *Batch) Before(other *Batch) bool {
	if !b.ReceivedAt.Equal(other.ReceivedAt) {
		return b.ReceivedAt.Before(other.ReceivedAt)
	}
	return b.Seq < other.Seq
}
