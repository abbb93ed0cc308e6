package inventory

import "github.com/jhoicas/Inventario-lotes/internal/domain/entity"

// Reversal porción de una asignación que vuelve a su lote.
type Reversal struct {
	Allocation entity.Allocation // porción devuelta; Units son las unidades que regresan
	Packages   int64
}

// PlanLIFOReversal recorre las asignaciones desde la última agregada hacia la primera
// hasta cubrir packages. Las asignaciones tomadas parcialmente se reducen en su lugar.
// Si la lista no alcanza, devuelve lo que hay; restored informa lo efectivamente cubierto.
func PlanLIFOReversal(allocs []entity.Allocation, packages int64) (reversals []Reversal, remaining []entity.Allocation, restored int64) {
	remaining = make([]entity.Allocation, len(allocs))
	copy(remaining, allocs)

	pending := packages
	cut := len(remaining)
	for i := len(remaining) - 1; i >= 0 && pending > 0; i-- {
		a := remaining[i]
		p := a.Packages()
		if p <= pending {
			reversals = append(reversals, Reversal{Allocation: a, Packages: p})
			pending -= p
			restored += p
			cut = i
			continue
		}
		part := a
		part.Units = pending * a.UnitsPerPackage
		reversals = append(reversals, Reversal{Allocation: part, Packages: pending})
		remaining[i].Units -= part.Units
		restored += pending
		pending = 0
	}
	return reversals, remaining[:cut], restored
}
