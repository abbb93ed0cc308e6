package entity

import "time"

// OrderItem línea de una orden de origen. RemainingPackages debe ser igual a la suma de
// RemainingPackages de los lotes de la orden para ese producto.
type OrderItem struct {
	ProductID         string `json:"product_id"`
	Packages          int64  `json:"packages"`
	RemainingPackages int64  `json:"remaining_packages"`
}

// Order orden de origen (compra a proveedor) que da lugar a los lotes.
type Order struct {
	ID        string      `json:"id"`
	Items     []OrderItem `json:"items"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Item devuelve la línea del producto o nil si la orden no lo contiene.
func (o *Order) Item(productID string) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			return &o.Items[i]
		}
	}
	return nil
}
