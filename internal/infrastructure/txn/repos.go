package txn

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jhoicas/Inventario-lotes/internal/domain/entity"
	"github.com/jhoicas/Inventario-lotes/internal/domain/repository"
)

// Colecciones del almacén de documentos.
const (
	CollectionBatches   = "batches"
	CollectionOrders    = "orders"
	CollectionConsumers = "consumer_ledger"
	CollectionSales     = "garment_sales"
	CollectionAudit     = "allocation_audit"
	CollectionProducts  = "products"
)

var (
	_ repository.BatchRepository           = (*batchRepo)(nil)
	_ repository.OrderRepository           = (*orderRepo)(nil)
	_ repository.ConsumerLedgerRepository  = (*consumerRepo)(nil)
	_ repository.GarmentSaleRepository     = (*saleRepo)(nil)
	_ repository.AllocationAuditRepository = (*auditRepo)(nil)
	_ repository.ProductRepository         = (*productRepo)(nil)
)

// Repos devuelve los repositorios atados a esta transacción.
func (t *Tx) Repos() repository.TxRepos {
	return repository.TxRepos{
		Batches:   &batchRepo{tx: t},
		Orders:    &orderRepo{tx: t},
		Consumers: &consumerRepo{tx: t},
		Sales:     &saleRepo{tx: t},
		Audit:     &auditRepo{tx: t},
		Products:  &productRepo{tx: t},
	}
}

func getDoc[T any](ctx context.Context, t *Tx, collection, id string) (*T, error) {
	doc, err := t.Get(ctx, Key{Collection: collection, ID: id})
	if err != nil || doc == nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(doc.Data, &v); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return &v, nil
}

func queryDocs[T any](ctx context.Context, t *Tx, collection, partition string) ([]*T, error) {
	docs, err := t.Query(ctx, PartitionKey{Collection: collection, Partition: partition})
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := json.Unmarshal(d.Data, &v); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, d.Key.ID, err)
		}
		out = append(out, &v)
	}
	return out, nil
}

func putDoc(t *Tx, collection, id, partition string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	t.Put(Key{Collection: collection, ID: id}, partition, data)
	return nil
}

type batchRepo struct{ tx *Tx }

func (r *batchRepo) GetByID(ctx context.Context, id string) (*entity.Batch, error) {
	return getDoc[entity.Batch](ctx, r.tx, CollectionBatches, id)
}

// ListByProduct lotes del producto en el orden de inserción (creación).
func (r *batchRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.Batch, error) {
	list, err := queryDocs[entity.Batch](ctx, r.tx, CollectionBatches, productID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Seq < list[j].Seq })
	return list, nil
}

func (r *batchRepo) Save(_ context.Context, b *entity.Batch) error {
	return putDoc(r.tx, CollectionBatches, b.ID, b.ProductID, b)
}

func (r *batchRepo) Delete(_ context.Context, id string) error {
	r.tx.Delete(Key{Collection: CollectionBatches, ID: id})
	return nil
}

type orderRepo struct{ tx *Tx }

func (r *orderRepo) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	return getDoc[entity.Order](ctx, r.tx, CollectionOrders, id)
}

func (r *orderRepo) Save(_ context.Context, o *entity.Order) error {
	return putDoc(r.tx, CollectionOrders, o.ID, "", o)
}

func (r *orderRepo) Delete(_ context.Context, id string) error {
	r.tx.Delete(Key{Collection: CollectionOrders, ID: id})
	return nil
}

type consumerRepo struct{ tx *Tx }

func (r *consumerRepo) GetByID(ctx context.Context, id string) (*entity.ConsumerEntry, error) {
	return getDoc[entity.ConsumerEntry](ctx, r.tx, CollectionConsumers, id)
}

func (r *consumerRepo) Save(_ context.Context, c *entity.ConsumerEntry) error {
	return putDoc(r.tx, CollectionConsumers, c.ID, "", c)
}

func (r *consumerRepo) Delete(_ context.Context, id string) error {
	r.tx.Delete(Key{Collection: CollectionConsumers, ID: id})
	return nil
}

type saleRepo struct{ tx *Tx }

func (r *saleRepo) GetByID(ctx context.Context, id string) (*entity.GarmentSale, error) {
	return getDoc[entity.GarmentSale](ctx, r.tx, CollectionSales, id)
}

func (r *saleRepo) Save(_ context.Context, s *entity.GarmentSale) error {
	return putDoc(r.tx, CollectionSales, s.ID, "", s)
}

func (r *saleRepo) Delete(_ context.Context, id string) error {
	r.tx.Delete(Key{Collection: CollectionSales, ID: id})
	return nil
}

type auditRepo struct{ tx *Tx }

// ListBySale registros de la venta ordenados por secuencia.
func (r *auditRepo) ListBySale(ctx context.Context, saleID string) ([]*entity.AllocationAudit, error) {
	list, err := queryDocs[entity.AllocationAudit](ctx, r.tx, CollectionAudit, saleID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Seq < list[j].Seq })
	return list, nil
}

func (r *auditRepo) Append(_ context.Context, rec *entity.AllocationAudit) error {
	return putDoc(r.tx, CollectionAudit, rec.ID, rec.SaleID, rec)
}

type productRepo struct{ tx *Tx }

func (r *productRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	return getDoc[entity.Product](ctx, r.tx, CollectionProducts, id)
}

func (r *productRepo) Save(_ context.Context, p *entity.Product) error {
	return putDoc(r.tx, CollectionProducts, p.ID, "", p)
}
