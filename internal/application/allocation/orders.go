package allocation

import (
	"context"
	"fmt"

	"github.com/jhoicas/Inventario-lotes/internal/domain"
	"github.com/jhoicas/Inventario-lotes/internal/domain/entity"
	"github.com/jhoicas/Inventario-lotes/internal/domain/inventory"
	"github.com/jhoicas/Inventario-lotes/internal/domain/repository"
)

// PlaceOrder registra una orden de origen y crea un lote por línea, en la misma transacción.
// La secuencia del lote sigue a la mayor existente del producto, así lotes del mismo día
// conservan el orden de creación.
func (uc *UseCase) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*PlaceOrderResult, error) {
	if len(in.Items) == 0 {
		return nil, domain.NewValidationError("items", "la orden debe tener al menos una línea")
	}
	seen := make(map[string]bool, len(in.Items))
	for _, it := range in.Items {
		if it.ProductID == "" {
			return nil, domain.NewValidationError("items.product_id", "es obligatorio")
		}
		if seen[it.ProductID] {
			return nil, domain.NewValidationError("items.product_id", "producto repetido en la orden")
		}
		seen[it.ProductID] = true
		if it.Packages <= 0 {
			return nil, domain.NewValidationError("items.packages", "debe ser mayor que cero")
		}
		if it.UnitsPerPackage < 0 || it.UnitCost.IsNegative() {
			return nil, domain.NewValidationError("items", "factor de conversión y costo no pueden ser negativos")
		}
	}
	orderID := in.OrderID
	if orderID == "" {
		orderID = uc.newID()
	}

	var res *PlaceOrderResult
	err := uc.tx.Run(ctx, func(repos repository.TxRepos) error {
		res = nil
		existing, err := repos.Orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("orden %s: %w", orderID, domain.ErrDuplicate)
		}

		now := uc.now()
		receivedAt := in.ReceivedAt
		if receivedAt.IsZero() {
			receivedAt = now
		}
		order := &entity.Order{ID: orderID, CreatedAt: now, UpdatedAt: now}
		batches := make([]*entity.Batch, 0, len(in.Items))
		for _, it := range in.Items {
			product, err := repos.Products.GetByID(ctx, it.ProductID)
			if err != nil {
				return err
			}
			if product == nil {
				return fmt.Errorf("producto %s: %w", it.ProductID, domain.ErrNotFound)
			}
			current, err := repos.Batches.ListByProduct(ctx, it.ProductID)
			if err != nil {
				return err
			}
			var seq int64
			for _, b := range current {
				seq = max(seq, b.Seq)
			}

			upp := it.UnitsPerPackage
			if upp == 0 {
				upp = max(product.UnitsPerPackage, 1)
			}
			if product.Line == entity.LineClothing {
				upp = 1
			}
			units := it.Packages * upp
			batches = append(batches, &entity.Batch{
				ID:                uc.newID(),
				ProductID:         it.ProductID,
				SourceOrderID:     orderID,
				UnitsPerPackage:   upp,
				TotalUnits:        units,
				RemainingUnits:    units,
				RemainingPackages: it.Packages,
				UnitCost:          it.UnitCost,
				ReceivedAt:        receivedAt,
				Seq:               seq + 1,
				CreatedAt:         now,
			})
			order.Items = append(order.Items, entity.OrderItem{
				ProductID:         it.ProductID,
				Packages:          it.Packages,
				RemainingPackages: it.Packages,
			})
		}

		for _, b := range batches {
			if err := repos.Batches.Save(ctx, b); err != nil {
				return err
			}
		}
		if err := repos.Orders.Save(ctx, order); err != nil {
			return err
		}
		res = &PlaceOrderResult{Order: order, Batches: batches}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("order_id", orderID).Int("items", len(in.Items)).Msg("orden registrada")
	return res, nil
}

// DeleteOrder elimina la orden junto con sus lotes. Se rechaza con ErrOrderInUse
// si alguno de sus lotes tiene consumo: hay registros que todavía apuntan a él.
func (uc *UseCase) DeleteOrder(ctx context.Context, orderID string) error {
	if orderID == "" {
		return domain.NewValidationError("order_id", "es obligatorio")
	}
	err := uc.tx.Run(ctx, func(repos repository.TxRepos) error {
		order, err := repos.Orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return fmt.Errorf("orden %s: %w", orderID, domain.ErrNotFound)
		}
		var owned []*entity.Batch
		for _, it := range order.Items {
			batches, err := repos.Batches.ListByProduct(ctx, it.ProductID)
			if err != nil {
				return err
			}
			for _, b := range batches {
				if b.SourceOrderID != orderID {
					continue
				}
				if b.RemainingUnits != b.TotalUnits {
					return fmt.Errorf("lote %s: %w", b.ID, domain.ErrOrderInUse)
				}
				owned = append(owned, b)
			}
		}
		for _, b := range owned {
			if err := repos.Batches.Delete(ctx, b.ID); err != nil {
				return err
			}
		}
		return repos.Orders.Delete(ctx, orderID)
	})
	if err != nil {
		return err
	}
	uc.log.Info().Str("order_id", orderID).Msg("orden eliminada")
	return nil
}

// CheckOrderLedger compara cada línea de la orden con la suma de saldos de sus lotes. Solo lectura.
func (uc *UseCase) CheckOrderLedger(ctx context.Context, orderID string) (*LedgerReport, error) {
	if orderID == "" {
		return nil, domain.NewValidationError("order_id", "es obligatorio")
	}
	var report *LedgerReport
	err := uc.tx.Run(ctx, func(repos repository.TxRepos) error {
		report = nil
		order, err := repos.Orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return fmt.Errorf("orden %s: %w", orderID, domain.ErrNotFound)
		}
		report = &LedgerReport{OrderID: orderID, Consistent: true}
		for _, it := range order.Items {
			product, err := repos.Products.GetByID(ctx, it.ProductID)
			if err != nil {
				return err
			}
			cache := newBatchCache(repos.Batches, product)
			batches, err := cache.list(ctx, it.ProductID)
			if err != nil {
				return err
			}
			var sum int64
			for _, b := range batches {
				if b.SourceOrderID == orderID {
					sum += b.RemainingPackages
				}
			}
			check := ItemCheck{
				ProductID:      it.ProductID,
				OrderRemaining: it.RemainingPackages,
				BatchRemaining: sum,
				Drift:          it.RemainingPackages - sum,
			}
			if check.Drift != 0 {
				report.Consistent = false
			}
			report.Items = append(report.Items, check)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !report.Consistent {
		uc.log.Warn().Str("order_id", orderID).Msg("la orden no cuadra con sus lotes")
	}
	return report, nil
}

// RegisterProduct alta o actualización de los metadatos de catálogo que usa el motor.
func (uc *UseCase) RegisterProduct(ctx context.Context, p entity.Product) (*entity.Product, error) {
	if p.ID == "" {
		return nil, domain.NewValidationError("id", "es obligatorio")
	}
	if p.Name == "" {
		return nil, domain.NewValidationError("name", "es obligatorio")
	}
	switch p.Line {
	case entity.LineCandies, entity.LinePoultry:
		if p.UnitsPerPackage <= 0 {
			return nil, domain.NewValidationError("units_per_package", "debe ser mayor que cero")
		}
	case entity.LineClothing:
		p.UnitsPerPackage = 1
	default:
		return nil, domain.NewValidationError("line", "debe ser candies, clothing o poultry")
	}
	err := uc.tx.Run(ctx, func(repos repository.TxRepos) error {
		return repos.Products.Save(ctx, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetStock saldo del producto por lote en orden FIFO, con su valorización.
func (uc *UseCase) GetStock(ctx context.Context, productID string) (*StockView, error) {
	if productID == "" {
		return nil, domain.NewValidationError("product_id", "es obligatorio")
	}
	var view *StockView
	err := uc.tx.Run(ctx, func(repos repository.TxRepos) error {
		view = nil
		product, err := repos.Products.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		batches, err := newBatchCache(repos.Batches, product).list(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil && len(batches) == 0 {
			return fmt.Errorf("producto %s: %w", productID, domain.ErrNotFound)
		}
		view = &StockView{ProductID: productID}
		for _, b := range inventory.SortFIFO(batches) {
			view.TotalRemaining += b.RemainingPackages
			view.RemainingUnits += b.RemainingUnits
			view.PerBatch = append(view.PerBatch, BatchStock{
				BatchID:           b.ID,
				SourceOrderID:     b.SourceOrderID,
				ReceivedAt:        b.ReceivedAt,
				UnitsPerPackage:   b.UnitsPerPackage,
				TotalUnits:        b.TotalUnits,
				RemainingUnits:    b.RemainingUnits,
				RemainingPackages: b.RemainingPackages,
				UnitCost:          b.UnitCost,
			})
		}
		view.Value, view.AverageCost = inventory.Valuation(batches)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}
