package allocation_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Inventario-lotes/internal/application/allocation"
	"github.com/jhoicas/Inventario-lotes/internal/domain/entity"
	"github.com/jhoicas/Inventario-lotes/internal/domain/repository"
	"github.com/jhoicas/Inventario-lotes/internal/infrastructure/memory"
	"github.com/jhoicas/Inventario-lotes/internal/infrastructure/txn"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

var testNow = time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store *memory.Store
	tx    *txn.Coordinator
	uc    *allocation.UseCase
}

func newFixture(t *testing.T, opts ...txn.Option) *fixture {
	t.Helper()
	store := memory.NewStore()
	opts = append([]txn.Option{txn.WithBackoff(0)}, opts...)
	coord := txn.NewCoordinator(store, opts...)
	seq := 0
	uc := allocation.NewUseCase(coord, zerolog.Nop(),
		allocation.WithClock(func() time.Time { return testNow }),
		allocation.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%03d", seq)
		}),
	)
	return &fixture{store: store, tx: coord, uc: uc}
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func (f *fixture) product(t *testing.T, id, line string, upp int64) {
	t.Helper()
	_, err := f.uc.RegisterProduct(context.Background(), entity.Product{ID: id, Name: "Producto " + id, Line: line, UnitsPerPackage: upp})
	require.NoError(t, err)
}

// order registra una orden de una línea y devuelve su lote.
func (f *fixture) order(t *testing.T, orderID, received, productID string, packages int64, unitCost string) *entity.Batch {
	t.Helper()
	res, err := f.uc.PlaceOrder(context.Background(), allocation.PlaceOrderInput{
		OrderID:    orderID,
		ReceivedAt: day(received),
		Items: []allocation.OrderItemInput{{
			ProductID: productID,
			Packages:  packages,
			UnitCost:  decimal.RequireFromString(unitCost),
		}},
	})
	require.NoError(t, err)
	require.Len(t, res.Batches, 1)
	return res.Batches[0]
}

func (f *fixture) seed(t *testing.T, fn func(repos repository.TxRepos) error) {
	t.Helper()
	require.NoError(t, f.tx.Run(context.Background(), fn))
}

func (f *fixture) batch(t *testing.T, id string) *entity.Batch {
	t.Helper()
	var b *entity.Batch
	f.seed(t, func(repos repository.TxRepos) error {
		var err error
		b, err = repos.Batches.GetByID(context.Background(), id)
		return err
	})
	require.NotNil(t, b, "lote %s", id)
	return b
}

func (f *fixture) orderDoc(t *testing.T, id string) *entity.Order {
	t.Helper()
	var o *entity.Order
	f.seed(t, func(repos repository.TxRepos) error {
		var err error
		o, err = repos.Orders.GetByID(context.Background(), id)
		return err
	})
	require.NotNil(t, o, "orden %s", id)
	return o
}

func (f *fixture) entry(t *testing.T, id string) *entity.ConsumerEntry {
	t.Helper()
	var e *entity.ConsumerEntry
	f.seed(t, func(repos repository.TxRepos) error {
		var err error
		e, err = repos.Consumers.GetByID(context.Background(), id)
		return err
	})
	return e
}

func (f *fixture) audit(t *testing.T, saleID string) []*entity.AllocationAudit {
	t.Helper()
	var list []*entity.AllocationAudit
	f.seed(t, func(repos repository.TxRepos) error {
		var err error
		list, err = repos.Audit.ListBySale(context.Background(), saleID)
		return err
	})
	return list
}

func (f *fixture) stock(t *testing.T, productID string) *allocation.StockView {
	t.Helper()
	v, err := f.uc.GetStock(context.Background(), productID)
	require.NoError(t, err)
	return v
}

// requireConsistent verifica que cada orden cuadre con sus lotes.
func (f *fixture) requireConsistent(t *testing.T, orderIDs ...string) {
	t.Helper()
	for _, id := range orderIDs {
		rep, err := f.uc.CheckOrderLedger(context.Background(), id)
		require.NoError(t, err)
		require.True(t, rep.Consistent, "orden %s descuadrada: %+v", id, rep.Items)
	}
}
