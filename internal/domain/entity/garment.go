package entity

import "time"

// GarmentSale venta de ropa. Sus asignaciones no se embeben: viven en la colección
// de auditoría (AllocationAudit), que es de solo inserción.
type GarmentSale struct {
	ID               string    `json:"id"`
	ProductID        string    `json:"product_id"`
	Quantity         int64     `json:"quantity"`          // unidades pendientes de devolver
	OriginalQuantity int64     `json:"original_quantity"` // unidades vendidas
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AllocationAudit registro de auditoría de consumo de prendas.
// Units > 0 es consumo; Units < 0 es una reversión que apunta a ReversesID.
type AllocationAudit struct {
	ID            string    `json:"id"`
	SaleID        string    `json:"sale_id"`
	ProductID     string    `json:"product_id"`
	BatchID       string    `json:"batch_id"`
	SourceOrderID string    `json:"source_order_id,omitempty"`
	Units         int64     `json:"units"`
	ReversesID    string    `json:"reverses_id,omitempty"`
	Seq           int64     `json:"seq"`
	CreatedAt     time.Time `json:"created_at"`
}

// IsReversal indica si el registro revierte un consumo previo.
func (a *AllocationAudit) IsReversal() bool {
	return a.Units < 0
}
