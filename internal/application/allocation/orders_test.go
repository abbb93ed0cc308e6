package allocation_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Inventario-lotes/internal/application/allocation"
	"github.com/jhoicas/Inventario-lotes/internal/domain"
	"github.com/jhoicas/Inventario-lotes/internal/domain/entity"
	"github.com/jhoicas/Inventario-lotes/internal/domain/repository"
)

func TestPlaceOrder_CreaLotesYLineas(t *testing.T) {
	f := newFixture(t)
	f.product(t, "dulce", entity.LineCandies, 24)
	f.product(t, "pollo", entity.LinePoultry, 1)

	res, err := f.uc.PlaceOrder(context.Background(), allocation.PlaceOrderInput{
		OrderID:    "o1",
		ReceivedAt: day("2024-01-10"),
		Items: []allocation.OrderItemInput{
			{ProductID: "dulce", Packages: 3, UnitCost: decimal.RequireFromString("0.5")},
			{ProductID: "pollo", Packages: 10, UnitsPerPackage: 2, UnitCost: decimal.NewFromInt(7)},
		},
	})

	require.NoError(t, err)
	require.Len(t, res.Batches, 2)
	assert.Equal(t, int64(72), res.Batches[0].TotalUnits)
	assert.Equal(t, int64(24), res.Batches[0].UnitsPerPackage)
	assert.Equal(t, int64(20), res.Batches[1].TotalUnits)
	assert.Equal(t, "o1", res.Batches[1].SourceOrderID)
	assert.Len(t, f.orderDoc(t, "o1").Items, 2)

	v := f.stock(t, "dulce")
	assert.Equal(t, int64(3), v.TotalRemaining)
	assert.Equal(t, "36", v.Value.String())
	f.requireConsistent(t, "o1")
}

func TestPlaceOrder_Validaciones(t *testing.T) {
	f := newFixture(t)
	f.product(t, "dulce", entity.LineCandies, 1)
	ctx := context.Background()

	_, err := f.uc.PlaceOrder(ctx, allocation.PlaceOrderInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.uc.PlaceOrder(ctx, allocation.PlaceOrderInput{Items: []allocation.OrderItemInput{
		{ProductID: "dulce", Packages: 1}, {ProductID: "dulce", Packages: 2},
	}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.uc.PlaceOrder(ctx, allocation.PlaceOrderInput{Items: []allocation.OrderItemInput{{ProductID: "otro", Packages: 1}}})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	f.order(t, "o1", "2024-01-01", "dulce", 1, "1")
	_, err = f.uc.PlaceOrder(ctx, allocation.PlaceOrderInput{OrderID: "o1", Items: []allocation.OrderItemInput{{ProductID: "dulce", Packages: 1}}})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestDeleteOrder_EliminaOrdenYLotesSinConsumo(t *testing.T) {
	f := newFixture(t)
	f.product(t, "dulce", entity.LineCandies, 1)
	f.order(t, "o1", "2024-01-01", "dulce", 5, "1")
	keep := f.order(t, "o2", "2024-01-02", "dulce", 5, "1")

	require.NoError(t, f.uc.DeleteOrder(context.Background(), "o1"))

	v := f.stock(t, "dulce")
	require.Len(t, v.PerBatch, 1)
	assert.Equal(t, keep.ID, v.PerBatch[0].BatchID)
	assert.ErrorIs(t, f.uc.DeleteOrder(context.Background(), "o1"), domain.ErrNotFound)
}

func TestDeleteOrder_ConConsumoSeRechaza(t *testing.T) {
	f := newFixture(t)
	f.product(t, "dulce", entity.LineCandies, 1)
	b := f.order(t, "o1", "2024-01-01", "dulce", 5, "1")
	_, err := f.uc.Allocate(context.Background(), allocation.AllocateInput{ProductID: "dulce", Packages: 1})
	require.NoError(t, err)

	err = f.uc.DeleteOrder(context.Background(), "o1")

	assert.ErrorIs(t, err, domain.ErrOrderInUse)
	assert.Equal(t, int64(4), f.batch(t, b.ID).RemainingPackages)
}

func TestCheckOrderLedger_DetectaDescuadre(t *testing.T) {
	f := newFixture(t)
	f.product(t, "dulce", entity.LineCandies, 1)
	f.order(t, "o1", "2024-01-01", "dulce", 5, "1")
	f.seed(t, func(repos repository.TxRepos) error {
		o, err := repos.Orders.GetByID(context.Background(), "o1")
		if err != nil {
			return err
		}
		o.Items[0].RemainingPackages = 4
		return repos.Orders.Save(context.Background(), o)
	})

	rep, err := f.uc.CheckOrderLedger(context.Background(), "o1")

	require.NoError(t, err)
	assert.False(t, rep.Consistent)
	require.Len(t, rep.Items, 1)
	assert.Equal(t, int64(-1), rep.Items[0].Drift)
}

func TestRegisterProduct_RopaSiempreUnaUnidadPorPaquete(t *testing.T) {
	f := newFixture(t)

	p, err := f.uc.RegisterProduct(context.Background(), entity.Product{ID: "camisa", Name: "Camisa", Line: entity.LineClothing, UnitsPerPackage: 6})
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.UnitsPerPackage)

	_, err = f.uc.RegisterProduct(context.Background(), entity.Product{ID: "x", Name: "X", Line: "juguetes", UnitsPerPackage: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGetStock_ProductoDesconocido(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.GetStock(context.Background(), "nada")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
