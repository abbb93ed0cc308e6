package allocation

import (
	"context"
	"fmt"

	"github.com/jhoicas/Inventario-lotes/internal/domain"
	"github.com/jhoicas/Inventario-lotes/internal/domain/entity"
	"github.com/jhoicas/Inventario-lotes/internal/domain/inventory"
	"github.com/jhoicas/Inventario-lotes/internal/domain/repository"
)

// Restore devuelve hasta packages del registro de consumo a sus lotes.
// Con asignaciones registradas la devolución es exacta (LIFO); sin ellas es aproximada (legacy).
// Si se pide más de lo pendiente se devuelve lo que hay y se informa la cantidad real.
func (uc *UseCase) Restore(ctx context.Context, consumerID string, packages int64) (*RestoreResult, error) {
	if consumerID == "" {
		return nil, domain.NewValidationError("consumer_id", "es obligatorio")
	}
	if packages <= 0 {
		return nil, domain.NewValidationError("packages", "debe ser mayor que cero")
	}

	var res *RestoreResult
	err := uc.tx.Run(ctx, func(repos repository.TxRepos) error {
		res = nil
		entry, err := loadEntry(ctx, repos, consumerID)
		if err != nil {
			return err
		}
		changes, restored, mode, err := uc.planRestore(ctx, repos, entry, packages)
		if err != nil {
			return err
		}
		res = &RestoreResult{ConsumerID: consumerID, RestoredPackages: restored, Mode: mode}
		if mode == ModeNoop {
			res.State = entry.State
			return nil
		}

		entry.UpdatedAt = uc.now()
		entry.RefreshState()
		res.State = entry.State
		if err := changes.save(ctx, repos); err != nil {
			return err
		}
		return repos.Consumers.Save(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	uc.logRestore(res, "devolución registrada")
	return res, nil
}

// DeleteAndRestore devuelve todo lo pendiente del registro y lo elimina en una sola transacción.
// Una segunda llamada responde ErrNotFound sin modificar nada.
func (uc *UseCase) DeleteAndRestore(ctx context.Context, consumerID string) (*RestoreResult, error) {
	if consumerID == "" {
		return nil, domain.NewValidationError("consumer_id", "es obligatorio")
	}

	var res *RestoreResult
	err := uc.tx.Run(ctx, func(repos repository.TxRepos) error {
		res = nil
		entry, err := loadEntry(ctx, repos, consumerID)
		if err != nil {
			return err
		}
		changes := newLedgerChanges(entry.ProductID)
		restored, mode := int64(0), ModeNoop
		if pending := entry.RemainingPackages(); pending > 0 {
			changes, restored, mode, err = uc.planRestore(ctx, repos, entry, pending)
			if err != nil {
				return err
			}
		}
		if err := changes.save(ctx, repos); err != nil {
			return err
		}
		if err := repos.Consumers.Delete(ctx, consumerID); err != nil {
			return err
		}
		res = &RestoreResult{ConsumerID: consumerID, RestoredPackages: restored, Mode: mode, State: "DELETED"}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.logRestore(res, "registro de consumo eliminado")
	return res, nil
}

func loadEntry(ctx context.Context, repos repository.TxRepos, id string) (*entity.ConsumerEntry, error) {
	entry, err := repos.Consumers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("registro de consumo %s: %w", id, domain.ErrNotFound)
	}
	return entry, nil
}

// planRestore hace todas las lecturas y deja lotes, órdenes y el registro modificados en memoria.
func (uc *UseCase) planRestore(ctx context.Context, repos repository.TxRepos, entry *entity.ConsumerEntry, packages int64) (*ledgerChanges, int64, string, error) {
	changes := newLedgerChanges(entry.ProductID)
	if entry.RemainingPackages() == 0 {
		return changes, 0, ModeNoop, nil
	}
	product, err := repos.Products.GetByID(ctx, entry.ProductID)
	if err != nil {
		return nil, 0, "", err
	}
	cache := newBatchCache(repos.Batches, product)

	var restored int64
	var mode string
	switch c := entry.Consumption.(type) {
	case entity.PreciseConsumption:
		mode = ModePrecise
		restored, err = uc.planPrecise(ctx, cache, changes, entry, c, packages)
	case entity.LegacyConsumption:
		mode = ModeLegacy
		restored, err = uc.planLegacy(ctx, cache, changes, entry, c, packages)
	default:
		return nil, 0, "", &domain.IntegrityError{Reason: "registro de consumo sin datos", ProductID: entry.ProductID}
	}
	if err != nil {
		return nil, 0, "", err
	}
	if err := changes.loadOrders(ctx, repos.Orders); err != nil {
		return nil, 0, "", err
	}
	return changes, restored, mode, nil
}

// planPrecise deshace asignaciones desde la más reciente. Las que apuntan a un lote que ya no
// existe se descartan: no hay saldo al que devolver.
func (uc *UseCase) planPrecise(ctx context.Context, cache *batchCache, changes *ledgerChanges, entry *entity.ConsumerEntry, c entity.PreciseConsumption, packages int64) (int64, error) {
	reversals, remaining, _ := inventory.PlanLIFOReversal(c.Allocations, packages)
	var restored int64
	for _, r := range reversals {
		b, err := cache.get(ctx, r.Allocation.BatchID)
		if err != nil {
			return 0, err
		}
		if b == nil {
			uc.log.Warn().
				Str("consumer_id", entry.ID).
				Str("batch_id", r.Allocation.BatchID).
				Int64("packages", r.Packages).
				Msg("lote de la asignación no existe, se descarta")
			continue
		}
		if err := changes.apply(b, r.Allocation.Units); err != nil {
			return 0, err
		}
		restored += r.Packages
	}
	entry.Consumption = entity.PreciseConsumption{Allocations: remaining}
	return restored, nil
}

// planLegacy devolución aproximada de registros sin asignaciones.
func (uc *UseCase) planLegacy(ctx context.Context, cache *batchCache, changes *ledgerChanges, entry *entity.ConsumerEntry, c entity.LegacyConsumption, packages int64) (int64, error) {
	if entry.ProductID == "" {
		return 0, &domain.IntegrityError{Reason: "registro legacy sin producto"}
	}
	target := min(packages, c.Pending)
	batches, err := cache.list(ctx, entry.ProductID)
	if err != nil {
		return 0, err
	}

	var takes []inventory.Take
	var placed int64
	if c.SourceOrderID != "" {
		takes, placed = inventory.PlanLegacyByOrder(batches, c.SourceOrderID, target)
	} else {
		takes, placed = inventory.PlanLegacyProportional(batches, target)
	}
	for _, t := range takes {
		if err := changes.apply(t.Batch, t.Units()); err != nil {
			return 0, err
		}
	}
	if placed < target {
		uc.log.Warn().
			Str("consumer_id", entry.ID).
			Str("product_id", entry.ProductID).
			Int64("requested", target).
			Int64("placed", placed).
			Msg("devolución legacy incompleta: los lotes no tienen capacidad")
	}
	entry.Consumption = entity.LegacyConsumption{SourceOrderID: c.SourceOrderID, Pending: c.Pending - placed}
	return placed, nil
}

func (uc *UseCase) logRestore(res *RestoreResult, msg string) {
	ev := uc.log.Info()
	if res.Mode == ModeLegacy {
		ev = uc.log.Warn()
	}
	ev.Str("consumer_id", res.ConsumerID).
		Str("mode", res.Mode).
		Int64("packages", res.RestoredPackages).
		Msg(msg)
}
