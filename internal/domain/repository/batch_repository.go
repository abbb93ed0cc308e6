package repository

import (
	"context"

	"github.com/jhoicas/Inventario-lotes/internal/domain/entity"
)

// BatchRepository define el puerto de persistencia para lotes.
// GetByID devuelve (nil, nil) si el lote no existe.
type BatchRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Batch, error)
	ListByProduct(ctx context.Context, productID string) ([]*entity.Batch, error)
	Save(ctx context.Context, batch *entity.Batch) error
	Delete(ctx context.Context, id string) error
}
