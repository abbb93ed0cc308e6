package txn_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Inventario-lotes/internal/domain"
	"github.com/jhoicas/Inventario-lotes/internal/infrastructure/memory"
	"github.com/jhoicas/Inventario-lotes/internal/infrastructure/txn"
)

var docKey = txn.Key{Collection: "batches", ID: "b1"}

func seed(t *testing.T, s *memory.Store, data string) {
	t.Helper()
	c := txn.NewCoordinator(s, txn.WithBackoff(0))
	require.NoError(t, c.RunTx(context.Background(), func(tx *txn.Tx) error {
		tx.Put(docKey, "p1", []byte(data))
		return nil
	}))
}

// ─── Commit y lectura ─────────────────────────────────────────────────────────

func TestRunTx_EscriturasVisiblesTrasCommit(t *testing.T) {
	s := memory.NewStore()
	seed(t, s, `{"n":1}`)

	doc, err := s.Get(context.Background(), docKey)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.JSONEq(t, `{"n":1}`, string(doc.Data))
	assert.Equal(t, "p1", doc.Partition)
}

func TestRunTx_ErrorDeClausuraNoAplicaNada(t *testing.T) {
	s := memory.NewStore()
	c := txn.NewCoordinator(s, txn.WithBackoff(0))
	boom := errors.New("boom")

	err := c.RunTx(context.Background(), func(tx *txn.Tx) error {
		tx.Put(docKey, "p1", []byte(`{}`))
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.Len("batches"))
}

func TestRunTx_LecturaDespuesDeEscrituraEsError(t *testing.T) {
	s := memory.NewStore()
	c := txn.NewCoordinator(s, txn.WithBackoff(0))
	calls := 0

	err := c.RunTx(context.Background(), func(tx *txn.Tx) error {
		calls++
		tx.Put(docKey, "p1", []byte(`{}`))
		_, err := tx.Get(context.Background(), txn.Key{Collection: "orders", ID: "o1"})
		return err
	})

	assert.ErrorIs(t, err, txn.ErrReadAfterWrite)
	assert.Equal(t, 1, calls, "no se reintenta")
}

// ─── Conflictos y reintento ───────────────────────────────────────────────────

func TestRunTx_ConflictoReintentaLaClausuraCompleta(t *testing.T) {
	s := memory.NewStore()
	seed(t, s, `{"n":1}`)
	c := txn.NewCoordinator(s, txn.WithBackoff(0))
	other := txn.NewCoordinator(s, txn.WithBackoff(0))
	calls := 0

	err := c.RunTx(context.Background(), func(tx *txn.Tx) error {
		calls++
		if _, err := tx.Get(context.Background(), docKey); err != nil {
			return err
		}
		if calls == 1 {
			// escritura concurrente entre la lectura y el commit
			require.NoError(t, other.RunTx(context.Background(), func(tx2 *txn.Tx) error {
				tx2.Put(docKey, "p1", []byte(`{"n":2}`))
				return nil
			}))
		}
		tx.Put(docKey, "p1", []byte(`{"n":3}`))
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	doc, _ := s.Get(context.Background(), docKey)
	assert.JSONEq(t, `{"n":3}`, string(doc.Data))
}

func TestRunTx_AltaEnParticionConsultadaEsConflicto(t *testing.T) {
	s := memory.NewStore()
	c := txn.NewCoordinator(s, txn.WithBackoff(0), txn.WithMaxAttempts(1))
	other := txn.NewCoordinator(s, txn.WithBackoff(0))
	pk := txn.PartitionKey{Collection: "batches", Partition: "p1"}

	err := c.RunTx(context.Background(), func(tx *txn.Tx) error {
		docs, err := tx.Query(context.Background(), pk)
		if err != nil {
			return err
		}
		assert.Empty(t, docs)
		require.NoError(t, other.RunTx(context.Background(), func(tx2 *txn.Tx) error {
			tx2.Put(docKey, "p1", []byte(`{}`))
			return nil
		}))
		tx.Put(txn.Key{Collection: "orders", ID: "o1"}, "", []byte(`{}`))
		return nil
	})

	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 0, s.Len("orders"))
}

func TestRunTx_ReintentosAgotadosDevuelveErrConflict(t *testing.T) {
	s := memory.NewStore()
	c := txn.NewCoordinator(s, txn.WithBackoff(0), txn.WithMaxAttempts(3))
	calls := 0

	err := c.RunTx(context.Background(), func(tx *txn.Tx) error {
		calls++
		return txn.ErrConflict
	})

	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.NotErrorIs(t, err, txn.ErrConflict)
	assert.Equal(t, 3, calls)
}

func TestRunTx_ContextoCanceladoNoEjecuta(t *testing.T) {
	s := memory.NewStore()
	c := txn.NewCoordinator(s)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.RunTx(ctx, func(tx *txn.Tx) error {
		t.Fatal("no debe ejecutarse")
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}
