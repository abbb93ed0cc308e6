package repository

import (
	"context"

	"github.com/jhoicas/Inventario-lotes/internal/domain/entity"
)

// OrderRepository define el puerto de persistencia para órdenes de origen.
type OrderRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Order, error)
	Save(ctx context.Context, order *entity.Order) error
	Delete(ctx context.Context, id string) error
}
