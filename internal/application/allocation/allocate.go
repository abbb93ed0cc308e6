package allocation

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Inventario-lotes/internal/domain"
	"github.com/jhoicas/Inventario-lotes/internal/domain/entity"
	"github.com/jhoicas/Inventario-lotes/internal/domain/inventory"
	"github.com/jhoicas/Inventario-lotes/internal/domain/repository"
)

// Allocate consume packages del producto en orden FIFO y agrega las asignaciones al registro
// de consumo. Lotes, órdenes y registro cambian en la misma transacción o no cambian.
func (uc *UseCase) Allocate(ctx context.Context, in AllocateInput) (*AllocateResult, error) {
	if in.ProductID == "" {
		return nil, domain.NewValidationError("product_id", "es obligatorio")
	}
	if in.Packages <= 0 {
		return nil, domain.NewValidationError("packages", "debe ser mayor que cero")
	}
	kind := in.Kind
	if kind == "" {
		kind = entity.ConsumerKindSale
	}
	if kind != entity.ConsumerKindSale && kind != entity.ConsumerKindVendorOrder {
		return nil, domain.NewValidationError("kind", "debe ser sale o vendor_order")
	}
	consumerID := in.ConsumerID
	if consumerID == "" {
		consumerID = uc.newID()
	}

	var res *AllocateResult
	err := uc.tx.Run(ctx, func(repos repository.TxRepos) error {
		res = nil
		product, err := repos.Products.GetByID(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return fmt.Errorf("producto %s: %w", in.ProductID, domain.ErrNotFound)
		}
		entry, err := repos.Consumers.GetByID(ctx, consumerID)
		if err != nil {
			return err
		}
		if entry != nil {
			if entry.IsLegacy() {
				return domain.ErrLegacyConsumer
			}
			if entry.ProductID != in.ProductID {
				return domain.NewValidationError("product_id", "el registro de consumo pertenece a otro producto")
			}
		}

		cache := newBatchCache(repos.Batches, product)
		batches, err := cache.list(ctx, in.ProductID)
		if err != nil {
			return err
		}
		takes, err := inventory.PlanFIFO(in.ProductID, batches, in.Packages)
		if err != nil {
			return err
		}

		changes := newLedgerChanges(in.ProductID)
		allocs := make([]entity.Allocation, 0, len(takes))
		for _, t := range takes {
			a := t.ToAllocation()
			if err := changes.apply(t.Batch, -a.Units); err != nil {
				return err
			}
			allocs = append(allocs, a)
		}
		if err := changes.loadOrders(ctx, repos.Orders); err != nil {
			return err
		}

		// A partir de aquí solo escrituras.
		now := uc.now()
		if entry == nil {
			entry = &entity.ConsumerEntry{
				ID:          consumerID,
				Kind:        kind,
				ProductID:   in.ProductID,
				Consumption: entity.PreciseConsumption{},
				CreatedAt:   now,
			}
		}
		entry.Consumption = entity.PreciseConsumption{Allocations: append(entry.Allocations(), allocs...)}
		entry.OriginalPackages += in.Packages
		entry.UpdatedAt = now
		entry.RefreshState()

		if err := changes.save(ctx, repos); err != nil {
			return err
		}
		if err := repos.Consumers.Save(ctx, entry); err != nil {
			return err
		}

		total := decimal.Zero
		for _, a := range allocs {
			total = total.Add(a.Cost())
		}
		res = &AllocateResult{ConsumerID: consumerID, Allocations: allocs, TotalCost: total}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("product_id", in.ProductID).
		Str("consumer_id", consumerID).
		Int64("packages", in.Packages).
		Int("batches", len(res.Allocations)).
		Msg("asignación registrada")
	return res, nil
}
