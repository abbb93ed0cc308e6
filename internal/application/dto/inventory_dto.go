package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// AllocateRequest body para POST /api/allocations.
type AllocateRequest struct {
	ConsumerID string `json:"consumer_id,omitempty"`
	Kind       string `json:"kind,omitempty" validate:"omitempty,oneof=sale vendor_order"`
	ProductID  string `json:"product_id" validate:"required"`
	Packages   int64  `json:"packages" validate:"required,gt=0"`
}

// AllocationDTO línea de consumo de un lote.
type AllocationDTO struct {
	BatchID         string          `json:"batch_id"`
	SourceOrderID   string          `json:"source_order_id,omitempty"`
	Units           int64           `json:"units"`
	Packages        int64           `json:"packages"`
	UnitsPerPackage int64           `json:"units_per_package"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
}

// AllocateResponse respuesta de la asignación.
type AllocateResponse struct {
	ConsumerID  string          `json:"consumer_id"`
	Allocations []AllocationDTO `json:"allocations"`
	TotalCost   decimal.Decimal `json:"total_cost"`
}

// RestoreRequest body para POST /api/consumers/:id/restore y /api/clothes/sales/:id/restore.
type RestoreRequest struct {
	Packages int64 `json:"packages" validate:"required,gt=0"`
}

// RestoreResponse resultado de una devolución. Mode: precise | legacy | noop.
type RestoreResponse struct {
	ConsumerID       string `json:"consumer_id"`
	RestoredPackages int64  `json:"restored_packages"`
	Mode             string `json:"mode"`
	State            string `json:"state"`
}

// BatchStockDTO saldo de un lote.
type BatchStockDTO struct {
	BatchID           string          `json:"batch_id"`
	SourceOrderID     string          `json:"source_order_id,omitempty"`
	ReceivedAt        time.Time       `json:"received_at"`
	UnitsPerPackage   int64           `json:"units_per_package"`
	TotalUnits        int64           `json:"total_units"`
	RemainingUnits    int64           `json:"remaining_units"`
	RemainingPackages int64           `json:"remaining_packages"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
}

// StockResponse saldo de un producto.
type StockResponse struct {
	ProductID      string          `json:"product_id"`
	TotalRemaining int64           `json:"total_remaining"`
	RemainingUnits int64           `json:"remaining_units"`
	Value          decimal.Decimal `json:"value"`
	AverageCost    decimal.Decimal `json:"average_cost"`
	PerBatch       []BatchStockDTO `json:"per_batch"`
}

// OrderItemRequest línea de una orden. unit_cost es por unidad base.
type OrderItemRequest struct {
	ProductID       string          `json:"product_id" validate:"required"`
	Packages        int64           `json:"packages" validate:"required,gt=0"`
	UnitsPerPackage int64           `json:"units_per_package,omitempty" validate:"gte=0"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
}

// PlaceOrderRequest body para POST /api/orders. received_at en formato YYYY-MM-DD (vacío = hoy).
type PlaceOrderRequest struct {
	OrderID    string             `json:"order_id,omitempty"`
	ReceivedAt string             `json:"received_at,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Items      []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// OrderItemDTO línea de orden con su saldo.
type OrderItemDTO struct {
	ProductID         string `json:"product_id"`
	Packages          int64  `json:"packages"`
	RemainingPackages int64  `json:"remaining_packages"`
}

// OrderResponse orden registrada y sus lotes.
type OrderResponse struct {
	ID      string          `json:"id"`
	Items   []OrderItemDTO  `json:"items"`
	Batches []BatchStockDTO `json:"batches"`
}

// ItemCheckDTO comparación de una línea con sus lotes.
type ItemCheckDTO struct {
	ProductID      string `json:"product_id"`
	OrderRemaining int64  `json:"order_remaining"`
	BatchRemaining int64  `json:"batch_remaining"`
	Drift          int64  `json:"drift"`
}

// LedgerCheckResponse resultado de GET /api/orders/:id/check.
type LedgerCheckResponse struct {
	OrderID    string         `json:"order_id"`
	Consistent bool           `json:"consistent"`
	Items      []ItemCheckDTO `json:"items"`
}

// ProductRequest body para POST /api/products.
type ProductRequest struct {
	ID              string `json:"id" validate:"required"`
	Name            string `json:"name" validate:"required"`
	Line            string `json:"line" validate:"required,oneof=candies clothing poultry"`
	UnitsPerPackage int64  `json:"units_per_package" validate:"gte=0"`
}

// GarmentSaleRequest body para POST /api/clothes/sales.
type GarmentSaleRequest struct {
	SaleID    string `json:"sale_id,omitempty"`
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int64  `json:"quantity" validate:"required,gt=0"`
}

// GarmentRestoreRequest body para POST /api/clothes/sales/:id/restore.
type GarmentRestoreRequest struct {
	Quantity int64 `json:"quantity" validate:"required,gt=0"`
}

// AuditRecordDTO registro de auditoría de ropa.
type AuditRecordDTO struct {
	ID            string `json:"id"`
	BatchID       string `json:"batch_id"`
	SourceOrderID string `json:"source_order_id,omitempty"`
	Units         int64  `json:"units"`
	ReversesID    string `json:"reverses_id,omitempty"`
	Seq           int64  `json:"seq"`
}

// GarmentSaleResponse respuesta de la venta de ropa.
type GarmentSaleResponse struct {
	SaleID    string           `json:"sale_id"`
	Records   []AuditRecordDTO `json:"records"`
	TotalCost decimal.Decimal  `json:"total_cost"`
}
