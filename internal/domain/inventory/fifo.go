package inventory

import (
	"sort"

	"github.com/jhoicas/Inventario-lotes/internal/domain"
	"github.com/jhoicas/Inventario-lotes/internal/domain/entity"
)

// Take paquetes a mover de (o hacia) un lote.
type Take struct {
	Batch    *entity.Batch
	Packages int64
}

// Units unidades base equivalentes a la toma.
func (t Take) Units() int64 {
	return t.Packages * t.Batch.UnitsPerPackage
}

// SortFIFO devuelve una copia ordenada por fecha de recepción y luego secuencia de creación.
// El orden es estable: ante empate total se respeta el orden de inserción.
func SortFIFO(batches []*entity.Batch) []*entity.Batch {
	out := make([]*entity.Batch, len(batches))
	copy(out, batches)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Before(out[j])
	})
	return out
}

// AvailablePackages suma de paquetes disponibles.
func AvailablePackages(batches []*entity.Batch) int64 {
	var n int64
	for _, b := range batches {
		n += b.RemainingPackages
	}
	return n
}

// PlanFIFO elige los lotes más antiguos primero tomando min(saldo, pendiente) de cada uno.
// Si el total disponible no alcanza devuelve InsufficientInventoryError con el faltante.
func PlanFIFO(productID string, batches []*entity.Batch, needed int64) ([]Take, error) {
	available := AvailablePackages(batches)
	if available < needed {
		return nil, &domain.InsufficientInventoryError{
			ProductID: productID,
			Requested: needed,
			Available: available,
			Shortfall: needed - available,
		}
	}
	var takes []Take
	pending := needed
	for _, b := range SortFIFO(batches) {
		if pending == 0 {
			break
		}
		if b.RemainingPackages <= 0 {
			continue
		}
		n := min(b.RemainingPackages, pending)
		takes = append(takes, Take{Batch: b, Packages: n})
		pending -= n
	}
	return takes, nil
}

// ToAllocation convierte una toma en la línea de consumo que se guarda en el registro.
func (t Take) ToAllocation() entity.Allocation {
	return entity.Allocation{
		BatchID:         t.Batch.ID,
		SourceOrderID:   t.Batch.SourceOrderID,
		Units:           t.Units(),
		UnitsPerPackage: t.Batch.UnitsPerPackage,
		UnitCost:        t.Batch.UnitCost,
	}
}
