package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Inventario-lotes/internal/application/allocation"
	"github.com/jhoicas/Inventario-lotes/internal/infrastructure/memory"
	"github.com/jhoicas/Inventario-lotes/internal/infrastructure/txn"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

func newTestApp() (*app, *bytes.Buffer) {
	out := &bytes.Buffer{}
	coord := txn.NewCoordinator(memory.NewStore(), txn.WithBackoff(0))
	return &app{uc: allocation.NewUseCase(coord, zerolog.Nop()), out: out}, out
}

func run(t *testing.T, a *app, args ...string) error {
	t.Helper()
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	return root.ExecuteContext(context.Background())
}

// ──────────────────────────────────────────────────────────────────────────────
// Comandos
// ──────────────────────────────────────────────────────────────────────────────

func TestLotesctl_FlujoCompleto(t *testing.T) {
	a, out := newTestApp()
	require.NoError(t, run(t, a, "product", "--id", "dulce", "--name", "Dulce", "--units-per-package", "12"))
	require.NoError(t, run(t, a, "order", "--id", "OC-1", "--received", "2024-01-01", "--item", "dulce:5:100"))
	require.NoError(t, run(t, a, "order", "--id", "OC-2", "--received", "2024-01-05", "--item", "dulce:5:120"))

	out.Reset()
	require.NoError(t, run(t, a, "allocate", "--consumer", "V-1", "--product", "dulce", "--packages", "7"))
	var alloc allocation.AllocateResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &alloc))
	assert.Equal(t, "V-1", alloc.ConsumerID)
	require.Len(t, alloc.Allocations, 2)

	out.Reset()
	require.NoError(t, run(t, a, "restore", "V-1", "--packages", "2"))
	var restored allocation.RestoreResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &restored))
	assert.Equal(t, int64(2), restored.RestoredPackages)

	out.Reset()
	require.NoError(t, run(t, a, "stock", "dulce"))
	var stock allocation.StockView
	require.NoError(t, json.Unmarshal(out.Bytes(), &stock))
	assert.Equal(t, int64(5), stock.TotalRemaining)

	require.NoError(t, run(t, a, "check", "OC-1", "OC-2"))
	require.NoError(t, run(t, a, "delete", "V-1"))
}

func TestLotesctl_CheckOrdenInexistenteFalla(t *testing.T) {
	a, _ := newTestApp()
	err := run(t, a, "check", "NO-EXISTE")
	assert.Error(t, err)
}

func TestLotesctl_ItemMalFormadoSaleConCodigo3(t *testing.T) {
	a, _ := newTestApp()
	err := run(t, a, "order", "--item", "dulce:cinco:100")
	var ee *exitErr
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 3, ee.code)
}

func TestParseOrder(t *testing.T) {
	in, err := parseOrder("OC-9", "2024-03-01", []string{"a:2:10.5", "b:1:3:6"})
	require.NoError(t, err)
	assert.Equal(t, "OC-9", in.OrderID)
	assert.Equal(t, 2024, in.ReceivedAt.Year())
	require.Len(t, in.Items, 2)
	assert.Equal(t, int64(2), in.Items[0].Packages)
	assert.Equal(t, "10.5", in.Items[0].UnitCost.String())
	assert.Equal(t, int64(6), in.Items[1].UnitsPerPackage)

	_, err = parseOrder("", "01/03/2024", []string{"a:1:1"})
	assert.Error(t, err)
}

func TestLotesctl_ValuationSinPostgres(t *testing.T) {
	a, _ := newTestApp()
	a.backend = memory.NewStore()
	err := run(t, a, "valuation")
	var ee *exitErr
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 3, ee.code)
}
