package inventory

import (
	"sort"

	"github.com/jhoicas/Inventario-lotes/internal/domain"
	"github.com/jhoicas/Inventario-lotes/internal/domain/entity"
)

// PackagesOf paquetes completos contenidos en units.
func PackagesOf(units, unitsPerPackage int64) int64 {
	if unitsPerPackage <= 0 {
		unitsPerPackage = 1
	}
	return units / unitsPerPackage
}

// ApplyBatchUnits es el único punto que modifica el saldo de un lote: suma deltaUnits
// (negativo para consumir), recalcula RemainingPackages y devuelve la variación en paquetes,
// que es la que debe propagarse a la línea de la orden.
func ApplyBatchUnits(b *entity.Batch, deltaUnits int64) (int64, error) {
	next := b.RemainingUnits + deltaUnits
	if next < 0 {
		return 0, &domain.IntegrityError{Reason: "el lote quedaría con saldo negativo", ProductID: b.ProductID, BatchID: b.ID}
	}
	if next > b.TotalUnits {
		return 0, &domain.IntegrityError{Reason: "el lote superaría sus unidades recibidas", ProductID: b.ProductID, BatchID: b.ID}
	}
	before := b.RemainingPackages
	b.RemainingUnits = next
	b.RemainingPackages = PackagesOf(next, b.UnitsPerPackage)
	return b.RemainingPackages - before, nil
}

// ApplyOrderItemDelta único punto que modifica el saldo de una línea de orden.
// Un saldo negativo o mayor a lo pedido significa que los libros ya estaban desfasados.
func ApplyOrderItemDelta(o *entity.Order, productID string, delta int64) error {
	item := o.Item(productID)
	if item == nil {
		return &domain.IntegrityError{Reason: "la orden no contiene el producto", ProductID: productID, OrderID: o.ID}
	}
	next := item.RemainingPackages + delta
	if next < 0 {
		return &domain.IntegrityError{Reason: "saldo de la orden menor al consumido", ProductID: productID, OrderID: o.ID}
	}
	if next > item.Packages {
		return &domain.IntegrityError{Reason: "saldo de la orden superaría lo pedido", ProductID: productID, OrderID: o.ID}
	}
	item.RemainingPackages = next
	return nil
}

// OrderDeltas acumula variaciones de paquetes por orden de origen.
type OrderDeltas map[string]int64

// Add suma delta a la orden indicada. Todo lote tiene orden: quien llama valida con RequireSourceOrder.
func (d OrderDeltas) Add(orderID string, delta int64) {
	if delta == 0 {
		return
	}
	d[orderID] += delta
}

// RequireSourceOrder un lote sin referencia a su orden de origen no puede moverse:
// no habría línea de orden que mantener cuadrada.
func RequireSourceOrder(b *entity.Batch) error {
	if b.SourceOrderID == "" {
		return &domain.IntegrityError{Reason: "lote sin orden de origen", ProductID: b.ProductID, BatchID: b.ID}
	}
	return nil
}

// OrderIDs ids ordenados, para leer las órdenes siempre en el mismo orden.
func (d OrderDeltas) OrderIDs() []string {
	ids := make([]string, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
