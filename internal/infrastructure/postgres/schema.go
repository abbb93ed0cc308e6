package postgres

import (
	"context"
	"fmt"
)

// schema documentos JSONB versionados más una fila por partición consultable.
// La fila de partición se bloquea al validar un Query, de modo que altas y bajas concurrentes
// en la misma partición se serializan contra ella.
const schema = `
CREATE SEQUENCE IF NOT EXISTS document_versions;

CREATE TABLE IF NOT EXISTS documents (
	collection TEXT   NOT NULL,
	id         TEXT   NOT NULL,
	partition  TEXT   NOT NULL DEFAULT '',
	version    BIGINT NOT NULL,
	seq        BIGSERIAL,
	data       JSONB  NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS documents_partition_idx ON documents (collection, partition, seq);

CREATE TABLE IF NOT EXISTS document_partitions (
	collection TEXT   NOT NULL,
	partition  TEXT   NOT NULL,
	version    BIGINT NOT NULL,
	PRIMARY KEY (collection, partition)
);
`

// Migrate crea las tablas si no existen.
func Migrate(ctx context.Context, q Querier) error {
	if _, err := q.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
