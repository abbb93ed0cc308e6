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

// Ropa: unidades enteras (un paquete = una prenda). Las asignaciones no se guardan en la venta
// sino en la colección de auditoría, que solo admite inserciones; una devolución agrega
// registros negativos que apuntan al consumo que revierten.

// AllocateGarments consume prendas en orden FIFO y registra una fila de auditoría por lote.
func (uc *UseCase) AllocateGarments(ctx context.Context, in GarmentSaleInput) (*GarmentSaleResult, error) {
	if in.ProductID == "" {
		return nil, domain.NewValidationError("product_id", "es obligatorio")
	}
	if in.Quantity <= 0 {
		return nil, domain.NewValidationError("quantity", "debe ser mayor que cero")
	}
	saleID := in.SaleID
	if saleID == "" {
		saleID = uc.newID()
	}

	var res *GarmentSaleResult
	err := uc.tx.Run(ctx, func(repos repository.TxRepos) error {
		res = nil
		product, err := repos.Products.GetByID(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return fmt.Errorf("producto %s: %w", in.ProductID, domain.ErrNotFound)
		}
		if err := requireClothing(product); err != nil {
			return err
		}
		sale, err := repos.Sales.GetByID(ctx, saleID)
		if err != nil {
			return err
		}
		if sale != nil && sale.ProductID != in.ProductID {
			return domain.NewValidationError("product_id", "la venta pertenece a otro producto")
		}
		existing, err := repos.Audit.ListBySale(ctx, saleID)
		if err != nil {
			return err
		}
		cache := newBatchCache(repos.Batches, &entity.Product{ID: product.ID, UnitsPerPackage: 1})
		batches, err := cache.list(ctx, in.ProductID)
		if err != nil {
			return err
		}
		for _, b := range batches {
			if err := requireGarmentBatch(b); err != nil {
				return err
			}
		}
		takes, err := inventory.PlanFIFO(in.ProductID, batches, in.Quantity)
		if err != nil {
			return err
		}

		changes := newLedgerChanges(in.ProductID)
		now := uc.now()
		records := make([]entity.AllocationAudit, 0, len(takes))
		total := decimal.Zero
		for i, t := range takes {
			units := t.Units()
			if err := changes.apply(t.Batch, -units); err != nil {
				return err
			}
			records = append(records, entity.AllocationAudit{
				ID:            uc.newID(),
				SaleID:        saleID,
				ProductID:     in.ProductID,
				BatchID:       t.Batch.ID,
				SourceOrderID: t.Batch.SourceOrderID,
				Units:         units,
				Seq:           int64(len(existing) + i + 1),
				CreatedAt:     now,
			})
			total = total.Add(t.Batch.UnitCost.Mul(decimal.NewFromInt(units)))
		}
		if err := changes.loadOrders(ctx, repos.Orders); err != nil {
			return err
		}

		if sale == nil {
			sale = &entity.GarmentSale{ID: saleID, ProductID: in.ProductID, CreatedAt: now}
		}
		sale.Quantity += in.Quantity
		sale.OriginalQuantity += in.Quantity
		sale.UpdatedAt = now

		if err := changes.save(ctx, repos); err != nil {
			return err
		}
		if err := repos.Sales.Save(ctx, sale); err != nil {
			return err
		}
		for i := range records {
			if err := repos.Audit.Append(ctx, &records[i]); err != nil {
				return err
			}
		}
		res = &GarmentSaleResult{SaleID: saleID, Records: records, TotalCost: total}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("product_id", in.ProductID).
		Str("sale_id", saleID).
		Int64("quantity", in.Quantity).
		Msg("venta de ropa registrada")
	return res, nil
}

// RestoreGarments devuelve hasta quantity prendas de la venta.
func (uc *UseCase) RestoreGarments(ctx context.Context, saleID string, quantity int64) (*RestoreResult, error) {
	if saleID == "" {
		return nil, domain.NewValidationError("sale_id", "es obligatorio")
	}
	if quantity <= 0 {
		return nil, domain.NewValidationError("quantity", "debe ser mayor que cero")
	}
	return uc.restoreGarments(ctx, saleID, quantity, false)
}

// DeleteGarmentSale devuelve todas las prendas pendientes y elimina la venta.
// La auditoría se conserva.
func (uc *UseCase) DeleteGarmentSale(ctx context.Context, saleID string) (*RestoreResult, error) {
	if saleID == "" {
		return nil, domain.NewValidationError("sale_id", "es obligatorio")
	}
	return uc.restoreGarments(ctx, saleID, 0, true)
}

func (uc *UseCase) restoreGarments(ctx context.Context, saleID string, quantity int64, remove bool) (*RestoreResult, error) {
	var res *RestoreResult
	err := uc.tx.Run(ctx, func(repos repository.TxRepos) error {
		res = nil
		sale, err := repos.Sales.GetByID(ctx, saleID)
		if err != nil {
			return err
		}
		if sale == nil {
			return fmt.Errorf("venta %s: %w", saleID, domain.ErrNotFound)
		}
		product, err := repos.Products.GetByID(ctx, sale.ProductID)
		if err != nil {
			return err
		}
		if product != nil {
			if err := requireClothing(product); err != nil {
				return err
			}
		}
		target := sale.Quantity
		if !remove {
			target = min(quantity, sale.Quantity)
		}
		res = &RestoreResult{ConsumerID: saleID, Mode: ModeNoop}

		changes := newLedgerChanges(sale.ProductID)
		var reversals []entity.AllocationAudit
		if target > 0 {
			records, err := repos.Audit.ListBySale(ctx, saleID)
			if err != nil {
				return err
			}
			cache := newBatchCache(repos.Batches, &entity.Product{ID: sale.ProductID, UnitsPerPackage: 1})
			if len(records) > 0 {
				res.Mode = ModePrecise
				reversals, res.RestoredPackages, err = uc.planGarmentPrecise(ctx, cache, changes, sale, records, target)
			} else {
				res.Mode = ModeLegacy
				res.RestoredPackages, err = uc.planGarmentLegacy(ctx, cache, changes, sale, target)
			}
			if err != nil {
				return err
			}
			if err := changes.loadOrders(ctx, repos.Orders); err != nil {
				return err
			}
		}

		now := uc.now()
		sale.Quantity -= res.RestoredPackages
		sale.UpdatedAt = now
		if err := changes.save(ctx, repos); err != nil {
			return err
		}
		for i := range reversals {
			reversals[i].CreatedAt = now
			if err := repos.Audit.Append(ctx, &reversals[i]); err != nil {
				return err
			}
		}
		if remove {
			res.State = "DELETED"
			return repos.Sales.Delete(ctx, saleID)
		}
		res.State = garmentState(sale)
		if res.Mode == ModeNoop {
			return nil
		}
		return repos.Sales.Save(ctx, sale)
	})
	if err != nil {
		return nil, err
	}
	uc.logRestore(res, "devolución de ropa registrada")
	return res, nil
}

// planGarmentPrecise revierte los consumos abiertos desde el más reciente.
func (uc *UseCase) planGarmentPrecise(ctx context.Context, cache *batchCache, changes *ledgerChanges, sale *entity.GarmentSale, records []*entity.AllocationAudit, units int64) ([]entity.AllocationAudit, int64, error) {
	reversed := make(map[string]int64)
	for _, r := range records {
		if r.IsReversal() {
			reversed[r.ReversesID] += -r.Units
		}
	}

	var out []entity.AllocationAudit
	var restored int64
	seq := int64(len(records))
	for i := len(records) - 1; i >= 0 && restored < units; i-- {
		r := records[i]
		if r.IsReversal() {
			continue
		}
		open := r.Units - reversed[r.ID]
		if open <= 0 {
			continue
		}
		n := min(open, units-restored)
		b, err := cache.get(ctx, r.BatchID)
		if err != nil {
			return nil, 0, err
		}
		if b != nil {
			if err := requireGarmentBatch(b); err != nil {
				return nil, 0, err
			}
		}
		seq++
		rev := entity.AllocationAudit{
			ID:            uc.newID(),
			SaleID:        sale.ID,
			ProductID:     sale.ProductID,
			BatchID:       r.BatchID,
			SourceOrderID: r.SourceOrderID,
			Units:         -n,
			ReversesID:    r.ID,
			Seq:           seq,
		}
		if b == nil {
			// se anota la reversión para cerrar el consumo, sin saldo al que volver
			uc.log.Warn().Str("sale_id", sale.ID).Str("batch_id", r.BatchID).Msg("lote de la venta no existe, se descarta")
			out = append(out, rev)
			restored += n
			continue
		}
		if err := changes.apply(b, n); err != nil {
			return nil, 0, err
		}
		out = append(out, rev)
		restored += n
	}
	return out, restored, nil
}

// planGarmentLegacy ventas sin auditoría: aproxima lo usado por lote y devuelve a los más antiguos.
func (uc *UseCase) planGarmentLegacy(ctx context.Context, cache *batchCache, changes *ledgerChanges, sale *entity.GarmentSale, units int64) (int64, error) {
	batches, err := cache.list(ctx, sale.ProductID)
	if err != nil {
		return 0, err
	}
	for _, b := range batches {
		if err := requireGarmentBatch(b); err != nil {
			return 0, err
		}
	}
	takes, placed := inventory.PlanGarmentLegacy(batches, units)
	for _, t := range takes {
		if err := changes.apply(t.Batch, t.Packages); err != nil {
			return 0, err
		}
	}
	if placed < units {
		uc.log.Warn().
			Str("sale_id", sale.ID).
			Int64("requested", units).
			Int64("placed", placed).
			Msg("devolución legacy de ropa incompleta")
	}
	return placed, nil
}

// requireClothing solo la línea de ropa cuenta en prendas; las demás cuentan en paquetes.
func requireClothing(p *entity.Product) error {
	if p.Line != entity.LineClothing {
		return domain.NewValidationError("product_id", "el producto no es de la línea de ropa")
	}
	return nil
}

// requireGarmentBatch un lote de ropa siempre tiene una prenda por paquete.
func requireGarmentBatch(b *entity.Batch) error {
	if b.UnitsPerPackage != 1 {
		return &domain.IntegrityError{Reason: "lote de ropa con más de una unidad por paquete", ProductID: b.ProductID, BatchID: b.ID}
	}
	return nil
}

func garmentState(s *entity.GarmentSale) string {
	switch {
	case s.Quantity == 0:
		return entity.ConsumerStateRestored
	case s.Quantity < s.OriginalQuantity:
		return entity.ConsumerStatePartiallyRestored
	default:
		return entity.ConsumerStateCreated
	}
}
