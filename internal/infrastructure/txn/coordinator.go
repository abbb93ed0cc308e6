package txn

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Inventario-lotes/internal/application/allocation"
	"github.com/jhoicas/Inventario-lotes/internal/domain"
	"github.com/jhoicas/Inventario-lotes/internal/domain/repository"
)

// Valores por defecto del reintento.
const (
	DefaultMaxAttempts = 5
	DefaultBackoff     = 10 * time.Millisecond
)

var _ allocation.TxRunner = (*Coordinator)(nil)

// Coordinator ejecuta clausuras atómicas con reintento automático ante conflicto.
type Coordinator struct {
	backend     Backend
	maxAttempts int
	backoff     time.Duration
	log         zerolog.Logger
}

// Option configura el coordinador.
type Option func(*Coordinator)

// WithMaxAttempts fija el número máximo de intentos (mínimo 1).
func WithMaxAttempts(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackoff fija la espera base entre intentos.
func WithBackoff(d time.Duration) Option {
	return func(c *Coordinator) {
		if d >= 0 {
			c.backoff = d
		}
	}
}

// WithLogger inyecta el logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// NewCoordinator construye el coordinador sobre el backend indicado.
func NewCoordinator(b Backend, opts ...Option) *Coordinator {
	c := &Coordinator{
		backend:     b,
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
		log:         zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run ejecuta fn con repositorios atados a la transacción y hace commit.
// Ante conflicto repite fn desde cero; agotados los intentos devuelve domain.ErrConflict.
// Cualquier otro error aborta sin efectos.
func (c *Coordinator) Run(ctx context.Context, fn func(repos repository.TxRepos) error) error {
	return c.RunTx(ctx, func(tx *Tx) error {
		return fn(tx.Repos())
	})
}

// RunTx igual que Run pero expone el Tx de documentos.
func (c *Coordinator) RunTx(ctx context.Context, fn func(tx *Tx) error) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		tx := newTx(c.backend)
		err := fn(tx)
		if err == nil {
			err = c.backend.Commit(ctx, tx.changeset())
			if err == nil {
				return nil
			}
		}
		if !errors.Is(err, ErrConflict) {
			return err
		}
		if attempt >= c.maxAttempts {
			c.log.Warn().Int("attempts", attempt).Msg("transacción abortada: reintentos agotados")
			return fmt.Errorf("%w (%d intentos)", domain.ErrConflict, attempt)
		}
		c.log.Debug().Int("attempt", attempt).Msg("conflicto de concurrencia, reintentando")
		if err := c.wait(ctx, attempt); err != nil {
			return err
		}
	}
}

func (c *Coordinator) wait(ctx context.Context, attempt int) error {
	if c.backoff == 0 {
		return nil
	}
	d := c.backoff * time.Duration(attempt)
	d += time.Duration(rand.Int63n(int64(c.backoff)))
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
