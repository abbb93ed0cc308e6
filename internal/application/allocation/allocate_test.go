package allocation_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/Inventario-lotes/internal/application/allocation"
	"github.com/jhoicas/Inventario-lotes/internal/domain"
	"github.com/jhoicas/Inventario-lotes/internal/domain/entity"
	"github.com/jhoicas/Inventario-lotes/internal/domain/repository"
	"github.com/jhoicas/Inventario-lotes/internal/infrastructure/txn"
)

// ──────────────────────────────────────────────────────────────────────────────
// Allocate: orden FIFO
// ──────────────────────────────────────────────────────────────────────────────

func TestAllocate_ConsumeLotesMasAntiguosPrimero(t *testing.T) {
	f := newFixture(t)
	f.product(t, "dulce", entity.LineCandies, 10)
	b := f.order(t, "oB", "2024-01-05", "dulce", 5, "2")
	a := f.order(t, "oA", "2024-01-01", "dulce", 5, "1")

	res, err := f.uc.Allocate(context.Background(), allocation.AllocateInput{ConsumerID: "venta-1", ProductID: "dulce", Packages: 8})

	require.NoError(t, err)
	require.Len(t, res.Allocations, 2)
	assert.Equal(t, a.ID, res.Allocations[0].BatchID)
	assert.Equal(t, int64(50), res.Allocations[0].Units)
	assert.Equal(t, int64(5), res.Allocations[0].Packages())
	assert.Equal(t, "oA", res.Allocations[0].SourceOrderID)
	assert.Equal(t, b.ID, res.Allocations[1].BatchID)
	assert.Equal(t, int64(30), res.Allocations[1].Units)
	assert.Equal(t, int64(3), res.Allocations[1].Packages())
	// 50*1 + 30*2
	assert.True(t, decimal.NewFromInt(110).Equal(res.TotalCost), res.TotalCost.String())

	assert.Equal(t, int64(0), f.batch(t, a.ID).RemainingPackages)
	assert.Equal(t, int64(2), f.batch(t, b.ID).RemainingPackages)
	assert.Equal(t, int64(20), f.batch(t, b.ID).RemainingUnits)
	assert.Equal(t, int64(0), f.orderDoc(t, "oA").Items[0].RemainingPackages)
	assert.Equal(t, int64(2), f.orderDoc(t, "oB").Items[0].RemainingPackages)
	f.requireConsistent(t, "oA", "oB")

	e := f.entry(t, "venta-1")
	require.NotNil(t, e)
	assert.Equal(t, entity.ConsumerStateCreated, e.State)
	assert.Equal(t, int64(8), e.RemainingPackages())
	assert.Equal(t, entity.ConsumerKindSale, e.Kind)
}

func TestAllocate_MismoDiaDesempataPorSecuencia(t *testing.T) {
	f := newFixture(t)
	f.product(t, "dulce", entity.LineCandies, 1)
	first := f.order(t, "o1", "2024-01-01", "dulce", 3, "1")
	f.order(t, "o2", "2024-01-01", "dulce", 3, "1")

	res, err := f.uc.Allocate(context.Background(), allocation.AllocateInput{ProductID: "dulce", Packages: 2})

	require.NoError(t, err)
	require.Len(t, res.Allocations, 1)
	assert.Equal(t, first.ID, res.Allocations[0].BatchID)
	assert.NotEmpty(t, res.ConsumerID)
}

func TestAllocate_AgregaAlRegistroExistente(t *testing.T) {
	f := newFixture(t)
	f.product(t, "dulce", entity.LineCandies, 1)
	f.order(t, "o1", "2024-01-01", "dulce", 10, "1")
	ctx := context.Background()

	_, err := f.uc.Allocate(ctx, allocation.AllocateInput{ConsumerID: "v", ProductID: "dulce", Packages: 3})
	require.NoError(t, err)
	_, err = f.uc.Allocate(ctx, allocation.AllocateInput{ConsumerID: "v", ProductID: "dulce", Packages: 2})
	require.NoError(t, err)

	e := f.entry(t, "v")
	assert.Len(t, e.Allocations(), 2)
	assert.Equal(t, int64(5), e.OriginalPackages)
	assert.Equal(t, int64(5), e.RemainingPackages())
	f.requireConsistent(t, "o1")
}

// ──────────────────────────────────────────────────────────────────────────────
// Allocate: fallos atómicos
// ──────────────────────────────────────────────────────────────────────────────

func TestAllocate_StockInsuficienteInformaFaltanteYNoModifica(t *testing.T) {
	f := newFixture(t)
	f.product(t, "dulce", entity.LineCandies, 1)
	b := f.order(t, "o1", "2024-01-01", "dulce", 5, "1")

	_, err := f.uc.Allocate(context.Background(), allocation.AllocateInput{ConsumerID: "v", ProductID: "dulce", Packages: 8})

	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	var inv *domain.InsufficientInventoryError
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, int64(3), inv.Shortfall)
	assert.Equal(t, int64(5), inv.Available)
	assert.Equal(t, int64(5), f.batch(t, b.ID).RemainingPackages)
	assert.Equal(t, int64(5), f.orderDoc(t, "o1").Items[0].RemainingPackages)
	assert.Nil(t, f.entry(t, "v"))
}

func TestAllocate_ValidaEntradaAntesDeLaTransaccion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.Allocate(ctx, allocation.AllocateInput{ProductID: "dulce", Packages: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.uc.Allocate(ctx, allocation.AllocateInput{Packages: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.uc.Allocate(ctx, allocation.AllocateInput{ProductID: "dulce", Packages: 1, Kind: "otro"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAllocate_ProductoInexistente(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.Allocate(context.Background(), allocation.AllocateInput{ProductID: "nada", Packages: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAllocate_LoteConOrdenInexistenteEsErrorDeIntegridad(t *testing.T) {
	f := newFixture(t)
	f.product(t, "dulce", entity.LineCandies, 1)
	f.seed(t, func(repos repository.TxRepos) error {
		return repos.Batches.Save(context.Background(), &entity.Batch{
			ID: "huerfano", ProductID: "dulce", SourceOrderID: "fantasma",
			UnitsPerPackage: 1, TotalUnits: 5, RemainingUnits: 5, RemainingPackages: 5,
			ReceivedAt: day("2024-01-01"), Seq: 1,
		})
	})

	_, err := f.uc.Allocate(context.Background(), allocation.AllocateInput{ConsumerID: "v", ProductID: "dulce", Packages: 2})

	require.ErrorIs(t, err, domain.ErrIntegrity)
	var ie *domain.IntegrityError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "fantasma", ie.OrderID)
	assert.Equal(t, int64(5), f.batch(t, "huerfano").RemainingUnits)
	assert.Nil(t, f.entry(t, "v"))
}

func TestAllocate_LoteSinReferenciaDeOrdenEsErrorDeIntegridad(t *testing.T) {
	f := newFixture(t)
	f.product(t, "dulce", entity.LineCandies, 1)
	f.seed(t, func(repos repository.TxRepos) error {
		return repos.Batches.Save(context.Background(), &entity.Batch{
			ID: "huerfano", ProductID: "dulce",
			UnitsPerPackage: 1, TotalUnits: 5, RemainingUnits: 5, RemainingPackages: 5,
			ReceivedAt: day("2024-01-01"), Seq: 1,
		})
	})

	_, err := f.uc.Allocate(context.Background(), allocation.AllocateInput{ConsumerID: "v", ProductID: "dulce", Packages: 2})

	require.ErrorIs(t, err, domain.ErrIntegrity)
	var ie *domain.IntegrityError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "huerfano", ie.BatchID)
	assert.Equal(t, int64(5), f.batch(t, "huerfano").RemainingUnits)
	assert.Equal(t, int64(5), f.batch(t, "huerfano").RemainingPackages)
	assert.Nil(t, f.entry(t, "v"))
}

func TestAllocate_OrdenDescuadradaEsErrorDeIntegridad(t *testing.T) {
	f := newFixture(t)
	f.product(t, "dulce", entity.LineCandies, 1)
	b := f.order(t, "o1", "2024-01-01", "dulce", 5, "1")
	f.seed(t, func(repos repository.TxRepos) error {
		o, err := repos.Orders.GetByID(context.Background(), "o1")
		if err != nil {
			return err
		}
		o.Items[0].RemainingPackages = 1
		return repos.Orders.Save(context.Background(), o)
	})

	_, err := f.uc.Allocate(context.Background(), allocation.AllocateInput{ProductID: "dulce", Packages: 3})

	require.ErrorIs(t, err, domain.ErrIntegrity)
	assert.Equal(t, int64(5), f.batch(t, b.ID).RemainingPackages)
}

func TestAllocate_RegistroLegacyNoAdmiteAsignaciones(t *testing.T) {
	f := newFixture(t)
	f.product(t, "dulce", entity.LineCandies, 1)
	f.order(t, "o1", "2024-01-01", "dulce", 5, "1")
	f.seed(t, func(repos repository.TxRepos) error {
		return repos.Consumers.Save(context.Background(), &entity.ConsumerEntry{
			ID: "viejo", Kind: entity.ConsumerKindSale, ProductID: "dulce",
			Consumption: entity.LegacyConsumption{Pending: 2}, OriginalPackages: 2,
		})
	})

	_, err := f.uc.Allocate(context.Background(), allocation.AllocateInput{ConsumerID: "viejo", ProductID: "dulce", Packages: 1})

	assert.ErrorIs(t, err, domain.ErrLegacyConsumer)
}

func TestAllocate_FactorDelCatalogoParaLotesSinConversion(t *testing.T) {
	f := newFixture(t)
	f.product(t, "pollo", entity.LinePoultry, 4)
	f.seed(t, func(repos repository.TxRepos) error {
		return repos.Batches.Save(context.Background(), &entity.Batch{
			ID: "sin-factor", ProductID: "pollo", TotalUnits: 12, RemainingUnits: 12,
			ReceivedAt: day("2024-01-01"), Seq: 1,
		})
	})

	res, err := f.uc.Allocate(context.Background(), allocation.AllocateInput{ProductID: "pollo", Packages: 2})

	require.NoError(t, err)
	assert.Equal(t, int64(8), res.Allocations[0].Units)
	b := f.batch(t, "sin-factor")
	assert.Equal(t, int64(4), b.RemainingUnits)
	assert.Equal(t, int64(1), b.RemainingPackages)
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrencia
// ──────────────────────────────────────────────────────────────────────────────

func TestAllocate_ConcurrenteNoSobreVende(t *testing.T) {
	f := newFixture(t, txn.WithMaxAttempts(200))
	f.product(t, "dulce", entity.LineCandies, 1)
	f.order(t, "o1", "2024-01-01", "dulce", 10, "1")
	f.order(t, "o2", "2024-01-02", "dulce", 10, "1")

	var (
		mu       sync.Mutex
		ok       int
		shortage int
	)
	var g errgroup.Group
	for i := 0; i < 25; i++ {
		consumer := fmt.Sprintf("venta-%02d", i)
		g.Go(func() error {
			_, err := f.uc.Allocate(context.Background(), allocation.AllocateInput{ConsumerID: consumer, ProductID: "dulce", Packages: 1})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrInsufficientStock):
				shortage++
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 20, ok)
	assert.Equal(t, 5, shortage)
	assert.Equal(t, int64(0), f.stock(t, "dulce").TotalRemaining)
	f.requireConsistent(t, "o1", "o2")
}
