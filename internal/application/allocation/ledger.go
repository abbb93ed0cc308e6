package allocation

import (
	"context"

	"github.com/jhoicas/Inventario-lotes/internal/domain"
	"github.com/jhoicas/Inventario-lotes/internal/domain/entity"
	"github.com/jhoicas/Inventario-lotes/internal/domain/inventory"
	"github.com/jhoicas/Inventario-lotes/internal/domain/repository"
)

// ledgerChanges acumula en memoria los lotes y órdenes modificados por una operación.
// Los lotes se mutan al planificar; las órdenes se leen después y todo se escribe al final,
// de modo que ninguna lectura quede después de una escritura.
type ledgerChanges struct {
	productID string
	batches   []*entity.Batch
	touched   map[string]bool
	deltas    inventory.OrderDeltas
	orders    []*entity.Order
}

func newLedgerChanges(productID string) *ledgerChanges {
	return &ledgerChanges{
		productID: productID,
		touched:   make(map[string]bool),
		deltas:    make(inventory.OrderDeltas),
	}
}

// apply mueve units del lote (negativo consume) y acumula la variación real en paquetes para su orden.
func (c *ledgerChanges) apply(b *entity.Batch, units int64) error {
	if err := inventory.RequireSourceOrder(b); err != nil {
		return err
	}
	dp, err := inventory.ApplyBatchUnits(b, units)
	if err != nil {
		return err
	}
	c.deltas.Add(b.SourceOrderID, dp)
	if !c.touched[b.ID] {
		c.touched[b.ID] = true
		c.batches = append(c.batches, b)
	}
	return nil
}

// loadOrders lee cada orden afectada y le aplica su variación acumulada.
func (c *ledgerChanges) loadOrders(ctx context.Context, repo repository.OrderRepository) error {
	for _, id := range c.deltas.OrderIDs() {
		o, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if o == nil {
			return &domain.IntegrityError{Reason: "la orden de origen del lote no existe", ProductID: c.productID, OrderID: id}
		}
		if err := inventory.ApplyOrderItemDelta(o, c.productID, c.deltas[id]); err != nil {
			return err
		}
		c.orders = append(c.orders, o)
	}
	return nil
}

// save escribe lotes y órdenes. Debe llamarse después de la última lectura.
func (c *ledgerChanges) save(ctx context.Context, repos repository.TxRepos) error {
	for _, b := range c.batches {
		if err := repos.Batches.Save(ctx, b); err != nil {
			return err
		}
	}
	for _, o := range c.orders {
		if err := repos.Orders.Save(ctx, o); err != nil {
			return err
		}
	}
	return nil
}

// batchCache evita decodificar dos veces el mismo lote dentro de una transacción:
// varias asignaciones pueden apuntar al mismo lote y deben mutar el mismo puntero.
type batchCache struct {
	repo    repository.BatchRepository
	product *entity.Product
	byID    map[string]*entity.Batch
	missing map[string]bool
}

func newBatchCache(repo repository.BatchRepository, product *entity.Product) *batchCache {
	return &batchCache{repo: repo, product: product, byID: make(map[string]*entity.Batch), missing: make(map[string]bool)}
}

func (c *batchCache) get(ctx context.Context, id string) (*entity.Batch, error) {
	if b, ok := c.byID[id]; ok {
		return b, nil
	}
	if c.missing[id] {
		return nil, nil
	}
	b, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		c.missing[id] = true
		return nil, nil
	}
	normalizeBatch(b, c.product)
	c.byID[id] = b
	return b, nil
}

func (c *batchCache) list(ctx context.Context, productID string) ([]*entity.Batch, error) {
	list, err := c.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	for i, b := range list {
		if cached, ok := c.byID[b.ID]; ok {
			list[i] = cached
			continue
		}
		normalizeBatch(b, c.product)
		c.byID[b.ID] = b
	}
	return list, nil
}

// normalizeBatch completa el factor de conversión de lotes registrados sin él,
// usando el catálogo (o 1 si tampoco se conoce).
func normalizeBatch(b *entity.Batch, p *entity.Product) {
	if b.UnitsPerPackage > 0 {
		return
	}
	b.UnitsPerPackage = 1
	if p != nil && p.UnitsPerPackage > 0 {
		b.UnitsPerPackage = p.UnitsPerPackage
	}
	b.RemainingPackages = inventory.PackagesOf(b.RemainingUnits, b.UnitsPerPackage)
}
