package repository

import (
	"context"

	"github.com/jhoicas/Inventario-lotes/internal/domain/entity"
)

// GarmentSaleRepository puerto para ventas de ropa.
type GarmentSaleRepository interface {
	GetByID(ctx context.Context, id string) (*entity.GarmentSale, error)
	Save(ctx context.Context, sale *entity.GarmentSale) error
	Delete(ctx context.Context, id string) error
}

// AllocationAuditRepository colección de auditoría de solo inserción. No hay Update ni Delete.
type AllocationAuditRepository interface {
	ListBySale(ctx context.Context, saleID string) ([]*entity.AllocationAudit, error)
	Append(ctx context.Context, record *entity.AllocationAudit) error
}
