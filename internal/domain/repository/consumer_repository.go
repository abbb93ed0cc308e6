package repository

import (
	"context"

	"github.com/jhoicas/Inventario-lotes/internal/domain/entity"
)

// ConsumerLedgerRepository define el puerto para los registros de consumo (ventas / órdenes de proveedor).
type ConsumerLedgerRepository interface {
	GetByID(ctx context.Context, id string) (*entity.ConsumerEntry, error)
	Save(ctx context.Context, entry *entity.ConsumerEntry) error
	Delete(ctx context.Context, id string) error
}
