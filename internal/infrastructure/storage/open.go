// Package storage elige el backend de documentos según DB_DRIVER.
package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Inventario-lotes/internal/infrastructure/memory"
	"github.com/jhoicas/Inventario-lotes/internal/infrastructure/postgres"
	"github.com/jhoicas/Inventario-lotes/internal/infrastructure/sqlite"
	"github.com/jhoicas/Inventario-lotes/internal/infrastructure/txn"
	"github.com/jhoicas/Inventario-lotes/pkg/config"
)

// Open abre el backend configurado y aplica su esquema. La función devuelta libera las conexiones.
func Open(ctx context.Context, cfg config.DBConfig, log zerolog.Logger) (txn.Backend, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrar esquema: %w", err)
		}
		log.Info().Str("driver", cfg.Driver).Msg("almacén de documentos listo")
		return postgres.NewDocumentStore(pool), pool.Close, nil
	case config.DriverSQLite:
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("abrir SQLite %s: %w", cfg.SQLitePath, err)
		}
		log.Info().Str("driver", cfg.Driver).Str("path", cfg.SQLitePath).Msg("almacén de documentos listo")
		return s, func() { _ = s.Close() }, nil
	case config.DriverMemory:
		log.Warn().Msg("almacén en memoria: los datos se pierden al reiniciar")
		return memory.NewStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("DB_DRIVER no soportado: %q", cfg.Driver)
	}
}
