package allocation

import (
	"context"

	"github.com/jhoicas/Inventario-lotes/internal/domain/repository"
)

// TxRunner ejecuta fn dentro de una transacción optimista, pasando repositorios atados a ella.
// Si otra operación modificó algo leído, fn se vuelve a ejecutar completa.
// fn no debe tener efectos fuera de los repositorios y debe leer todo antes de escribir.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos repository.TxRepos) error) error
}
