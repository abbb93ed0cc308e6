package repository

import (
	"context"

	"github.com/jhoicas/Inventario-lotes/internal/domain/entity"
)

// ProductRepository puerto mínimo del catálogo (lectura de metadatos y alta).
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	Save(ctx context.Context, product *entity.Product) error
}
