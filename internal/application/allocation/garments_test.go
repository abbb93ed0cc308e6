package allocation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Inventario-lotes/internal/application/allocation"
	"github.com/jhoicas/Inventario-lotes/internal/domain"
	"github.com/jhoicas/Inventario-lotes/internal/domain/entity"
	"github.com/jhoicas/Inventario-lotes/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Ropa: auditoría de solo inserción
// ──────────────────────────────────────────────────────────────────────────────

func TestAllocateGarments_EscribeAuditoriaPorLote(t *testing.T) {
	f := newFixture(t)
	f.product(t, "camisa", entity.LineClothing, 0)
	a := f.order(t, "oA", "2024-01-01", "camisa", 5, "20000")
	b := f.order(t, "oB", "2024-01-05", "camisa", 5, "22000")

	res, err := f.uc.AllocateGarments(context.Background(), allocation.GarmentSaleInput{SaleID: "s1", ProductID: "camisa", Quantity: 7})

	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, a.ID, res.Records[0].BatchID)
	assert.Equal(t, int64(5), res.Records[0].Units)
	assert.Equal(t, int64(1), res.Records[0].Seq)
	assert.Equal(t, b.ID, res.Records[1].BatchID)
	assert.Equal(t, int64(2), res.Records[1].Units)
	assert.Equal(t, int64(2), res.Records[1].Seq)
	assert.Equal(t, "144000", res.TotalCost.String())
	assert.Len(t, f.audit(t, "s1"), 2)
	assert.Equal(t, int64(3), f.batch(t, b.ID).RemainingUnits)
	f.requireConsistent(t, "oA", "oB")
}

func TestRestoreGarments_AgregaReversionesSinTocarLoAnterior(t *testing.T) {
	f := newFixture(t)
	f.product(t, "camisa", entity.LineClothing, 1)
	a := f.order(t, "oA", "2024-01-01", "camisa", 5, "1")
	b := f.order(t, "oB", "2024-01-05", "camisa", 5, "1")
	ctx := context.Background()
	_, err := f.uc.AllocateGarments(ctx, allocation.GarmentSaleInput{SaleID: "s1", ProductID: "camisa", Quantity: 7})
	require.NoError(t, err)

	res, err := f.uc.RestoreGarments(ctx, "s1", 3)

	require.NoError(t, err)
	assert.Equal(t, allocation.ModePrecise, res.Mode)
	assert.Equal(t, int64(3), res.RestoredPackages)
	assert.Equal(t, entity.ConsumerStatePartiallyRestored, res.State)
	assert.Equal(t, int64(5), f.batch(t, b.ID).RemainingUnits)
	assert.Equal(t, int64(1), f.batch(t, a.ID).RemainingUnits)

	records := f.audit(t, "s1")
	require.Len(t, records, 4)
	assert.Equal(t, int64(5), records[0].Units)
	assert.Equal(t, int64(2), records[1].Units)
	assert.Equal(t, int64(-2), records[2].Units)
	assert.Equal(t, records[1].ID, records[2].ReversesID)
	assert.Equal(t, int64(-1), records[3].Units)
	assert.Equal(t, records[0].ID, records[3].ReversesID)
	f.requireConsistent(t, "oA", "oB")
}

func TestDeleteGarmentSale_DevuelveTodoYConservaAuditoria(t *testing.T) {
	f := newFixture(t)
	f.product(t, "camisa", entity.LineClothing, 1)
	a := f.order(t, "oA", "2024-01-01", "camisa", 5, "1")
	ctx := context.Background()
	_, err := f.uc.AllocateGarments(ctx, allocation.GarmentSaleInput{SaleID: "s1", ProductID: "camisa", Quantity: 4})
	require.NoError(t, err)
	_, err = f.uc.RestoreGarments(ctx, "s1", 1)
	require.NoError(t, err)

	res, err := f.uc.DeleteGarmentSale(ctx, "s1")

	require.NoError(t, err)
	assert.Equal(t, int64(3), res.RestoredPackages)
	assert.Equal(t, int64(5), f.batch(t, a.ID).RemainingUnits)
	assert.Len(t, f.audit(t, "s1"), 3)

	_, err = f.uc.DeleteGarmentSale(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Len(t, f.audit(t, "s1"), 3)
	f.requireConsistent(t, "oA")
}

func TestRestoreGarments_VentaSinAuditoriaUsaLegacy(t *testing.T) {
	f := newFixture(t)
	f.product(t, "camisa", entity.LineClothing, 1)
	a := f.order(t, "oA", "2024-01-01", "camisa", 5, "1")
	b := f.order(t, "oB", "2024-01-05", "camisa", 5, "1")
	// venta anterior a la auditoría: consumió 3 de A y 2 de B
	f.seed(t, func(repos repository.TxRepos) error {
		ctx := context.Background()
		ba, err := repos.Batches.GetByID(ctx, a.ID)
		if err != nil {
			return err
		}
		bb, err := repos.Batches.GetByID(ctx, b.ID)
		if err != nil {
			return err
		}
		oa, err := repos.Orders.GetByID(ctx, "oA")
		if err != nil {
			return err
		}
		ob, err := repos.Orders.GetByID(ctx, "oB")
		if err != nil {
			return err
		}
		ba.RemainingUnits, ba.RemainingPackages = 2, 2
		bb.RemainingUnits, bb.RemainingPackages = 3, 3
		oa.Items[0].RemainingPackages = 2
		ob.Items[0].RemainingPackages = 3
		for _, x := range []*entity.Batch{ba, bb} {
			if err := repos.Batches.Save(ctx, x); err != nil {
				return err
			}
		}
		for _, o := range []*entity.Order{oa, ob} {
			if err := repos.Orders.Save(ctx, o); err != nil {
				return err
			}
		}
		return repos.Sales.Save(ctx, &entity.GarmentSale{ID: "vieja", ProductID: "camisa", Quantity: 5, OriginalQuantity: 5})
	})

	res, err := f.uc.RestoreGarments(context.Background(), "vieja", 4)

	require.NoError(t, err)
	assert.Equal(t, allocation.ModeLegacy, res.Mode)
	assert.Equal(t, int64(4), res.RestoredPackages)
	assert.Equal(t, int64(5), f.batch(t, a.ID).RemainingUnits)
	assert.Equal(t, int64(4), f.batch(t, b.ID).RemainingUnits)
	assert.Empty(t, f.audit(t, "vieja"))
	f.requireConsistent(t, "oA", "oB")
}

// ──────────────────────────────────────────────────────────────────────────────
// Ropa: productos y lotes fuera de la línea
// ──────────────────────────────────────────────────────────────────────────────

func (f *fixture) sale(t *testing.T, id string) *entity.GarmentSale {
	t.Helper()
	var s *entity.GarmentSale
	f.seed(t, func(repos repository.TxRepos) error {
		var err error
		s, err = repos.Sales.GetByID(context.Background(), id)
		return err
	})
	return s
}

func TestAllocateGarments_RechazaProductoDeOtraLinea(t *testing.T) {
	f := newFixture(t)
	f.product(t, "dulce", entity.LineCandies, 12)
	b := f.order(t, "o1", "2024-01-01", "dulce", 5, "100")

	_, err := f.uc.AllocateGarments(context.Background(), allocation.GarmentSaleInput{SaleID: "s1", ProductID: "dulce", Quantity: 2})

	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, int64(60), f.batch(t, b.ID).RemainingUnits)
	assert.Equal(t, int64(5), f.batch(t, b.ID).RemainingPackages)
	assert.Nil(t, f.sale(t, "s1"))
	assert.Empty(t, f.audit(t, "s1"))
	f.requireConsistent(t, "o1")
}

func TestAllocateGarments_LoteConVariasUnidadesPorPaqueteEsErrorDeIntegridad(t *testing.T) {
	f := newFixture(t)
	f.product(t, "camisa", entity.LineClothing, 1)
	f.seed(t, func(repos repository.TxRepos) error {
		ctx := context.Background()
		if err := repos.Orders.Save(ctx, &entity.Order{ID: "o1", Items: []entity.OrderItem{{ProductID: "camisa", Packages: 5, RemainingPackages: 5}}}); err != nil {
			return err
		}
		return repos.Batches.Save(ctx, &entity.Batch{
			ID: "docena", ProductID: "camisa", SourceOrderID: "o1",
			UnitsPerPackage: 12, TotalUnits: 60, RemainingUnits: 60, RemainingPackages: 5,
			ReceivedAt: day("2024-01-01"), Seq: 1,
		})
	})

	_, err := f.uc.AllocateGarments(context.Background(), allocation.GarmentSaleInput{SaleID: "s1", ProductID: "camisa", Quantity: 2})

	require.ErrorIs(t, err, domain.ErrIntegrity)
	var ie *domain.IntegrityError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "docena", ie.BatchID)
	assert.Equal(t, int64(60), f.batch(t, "docena").RemainingUnits)
	assert.Equal(t, int64(5), f.orderDoc(t, "o1").Items[0].RemainingPackages)
	assert.Nil(t, f.sale(t, "s1"))
}

func TestRestoreGarments_RechazaVentaDeProductoDeOtraLinea(t *testing.T) {
	f := newFixture(t)
	f.product(t, "dulce", entity.LineCandies, 12)
	b := f.order(t, "o1", "2024-01-01", "dulce", 5, "100")
	f.seed(t, func(repos repository.TxRepos) error {
		return repos.Sales.Save(context.Background(), &entity.GarmentSale{ID: "s1", ProductID: "dulce", Quantity: 2, OriginalQuantity: 2})
	})

	_, err := f.uc.RestoreGarments(context.Background(), "s1", 2)

	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, int64(60), f.batch(t, b.ID).RemainingUnits)
	assert.Equal(t, int64(2), f.sale(t, "s1").Quantity)
	f.requireConsistent(t, "o1")
}
