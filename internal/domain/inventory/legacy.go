package inventory

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Inventario-lotes/internal/domain/entity"
)

// Estrategias de devolución para registros sin detalle por lote.
//
// Son APROXIMADAS: no garantizan devolver a los mismos lotes que se consumieron
// originalmente cuando varios lotes se usaron parcialmente fuera de orden de fecha.
// No hay datos para hacerlo exacto en esos registros.

// usedPackages paquetes que un lote puede volver a recibir sin superar lo recibido.
func usedPackages(b *entity.Batch) int64 {
	return PackagesOf(b.UsedUnits(), b.UnitsPerPackage)
}

// PlanLegacyByOrder devuelve packages a los lotes de la orden de origen que tienen menor saldo
// primero (aproxima "deshacer el consumo más reciente"). A igual saldo, el lote más nuevo primero.
// Solo se consideran lotes de esa orden; lo que no quepa queda sin colocar.
func PlanLegacyByOrder(batches []*entity.Batch, sourceOrderID string, packages int64) ([]Take, int64) {
	var candidates []*entity.Batch
	for _, b := range batches {
		if b.SourceOrderID == sourceOrderID {
			candidates = append(candidates, b)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].RemainingUnits != candidates[j].RemainingUnits {
			return candidates[i].RemainingUnits < candidates[j].RemainingUnits
		}
		return candidates[j].Before(candidates[i])
	})

	var takes []Take
	var placed int64
	for _, b := range candidates {
		if placed == packages {
			break
		}
		n := min(usedPackages(b), packages-placed)
		if n <= 0 {
			continue
		}
		takes = append(takes, Take{Batch: b, Packages: n})
		placed += n
	}
	return takes, placed
}

// PlanLegacyProportional reparte packages entre los lotes en proporción a lo usado de cada uno
// (TotalUnits - RemainingUnits), del más antiguo al más nuevo. El residuo del redondeo se
// completa también desde el más antiguo.
func PlanLegacyProportional(batches []*entity.Batch, packages int64) ([]Take, int64) {
	ordered := SortFIFO(batches)
	used := make([]int64, len(ordered))
	var totalUsed int64
	for i, b := range ordered {
		used[i] = usedPackages(b)
		totalUsed += used[i]
	}
	if totalUsed == 0 || packages <= 0 {
		return nil, 0
	}
	target := min(packages, totalUsed)

	shares := make([]int64, len(ordered))
	var placed int64
	for i := range ordered {
		shares[i] = proportionalShare(target, used[i], totalUsed)
		placed += shares[i]
	}
	for i := range ordered {
		if placed == target {
			break
		}
		extra := min(used[i]-shares[i], target-placed)
		shares[i] += extra
		placed += extra
	}

	var takes []Take
	for i, b := range ordered {
		if shares[i] > 0 {
			takes = append(takes, Take{Batch: b, Packages: shares[i]})
		}
	}
	return takes, placed
}

// proportionalShare floor(target * used / total) sin desbordar int64: el producto
// intermedio puede superar el rango aunque el resultado no.
func proportionalShare(target, used, total int64) int64 {
	num := decimal.NewFromInt(target).Mul(decimal.NewFromInt(used))
	q, _ := num.QuoRem(decimal.NewFromInt(total), 0)
	return q.IntPart()
}

// PlanGarmentLegacy devolución de prendas sin auditoría: usado = original - saldo actual por lote,
// devolviendo primero a los lotes usados más antiguos.
func PlanGarmentLegacy(batches []*entity.Batch, units int64) ([]Take, int64) {
	var takes []Take
	var placed int64
	for _, b := range SortFIFO(batches) {
		if placed == units {
			break
		}
		n := min(b.UsedUnits(), units-placed)
		if n <= 0 {
			continue
		}
		takes = append(takes, Take{Batch: b, Packages: n})
		placed += n
	}
	return takes, placed
}
