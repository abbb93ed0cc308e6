package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/Inventario-lotes/internal/infrastructure/txn"
)

var _ txn.Backend = (*DocumentStore)(nil)

// DocumentStore backend de documentos sobre PostgreSQL.
// Las lecturas no bloquean; Commit abre una transacción, bloquea con SELECT FOR UPDATE
// las filas leídas (particiones primero, luego documentos, siempre en el mismo orden),
// compara versiones y aplica las escrituras. Cualquier diferencia es txn.ErrConflict.
type DocumentStore struct {
	pool *pgxpool.Pool
}

// NewDocumentStore construye el backend con el pool.
func NewDocumentStore(pool *pgxpool.Pool) *DocumentStore {
	return &DocumentStore{pool: pool}
}

// Get lee un documento o nil si no existe.
func (s *DocumentStore) Get(ctx context.Context, key txn.Key) (*txn.Document, error) {
	d := txn.Document{Key: key}
	err := s.pool.QueryRow(ctx,
		`SELECT partition, version, data FROM documents WHERE collection = $1 AND id = $2`,
		key.Collection, key.ID,
	).Scan(&d.Partition, &d.Version, &d.Data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &d, nil
}

// Query lee la partición y su versión en una misma instantánea (REPEATABLE READ).
func (s *DocumentStore) Query(ctx context.Context, pk txn.PartitionKey) ([]txn.Document, int64, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var version int64
	err = tx.QueryRow(ctx,
		`SELECT version FROM document_partitions WHERE collection = $1 AND partition = $2`,
		pk.Collection, pk.Partition,
	).Scan(&version)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, fmt.Errorf("partition version: %w", err)
	}

	rows, err := tx.Query(ctx,
		`SELECT id, version, data FROM documents WHERE collection = $1 AND partition = $2 ORDER BY seq`,
		pk.Collection, pk.Partition,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()
	var docs []txn.Document
	for rows.Next() {
		d := txn.Document{Key: txn.Key{Collection: pk.Collection}, Partition: pk.Partition}
		if err := rows.Scan(&d.Key.ID, &d.Version, &d.Data); err != nil {
			return nil, 0, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("query documents: %w", err)
	}
	return docs, version, nil
}

// Commit valida y aplica el changeset en una transacción. Errores de serialización,
// deadlock o clave duplicada se informan como txn.ErrConflict para que el coordinador reintente.
func (s *DocumentStore) Commit(ctx context.Context, cs txn.Changeset) error {
	if len(cs.Writes) == 0 && len(cs.Reads) == 0 && len(cs.Partitions) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.apply(ctx, tx, cs); err != nil {
		if isRetryable(err) {
			return fmt.Errorf("%w: %v", txn.ErrConflict, err)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if isRetryable(err) {
			return fmt.Errorf("%w: %v", txn.ErrConflict, err)
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *DocumentStore) apply(ctx context.Context, q Querier, cs txn.Changeset) error {
	if err := validatePartitions(ctx, q, cs.Partitions); err != nil {
		return err
	}
	if err := validateDocuments(ctx, q, cs.Reads); err != nil {
		return err
	}

	var version int64
	if len(cs.Writes) > 0 {
		if err := q.QueryRow(ctx, `SELECT nextval('document_versions')`).Scan(&version); err != nil {
			return fmt.Errorf("next version: %w", err)
		}
	}
	for _, w := range cs.Writes {
		if err := writeDocument(ctx, q, w, version); err != nil {
			return err
		}
	}
	return nil
}

func validatePartitions(ctx context.Context, q Querier, parts map[txn.PartitionKey]int64) error {
	keys := make([]txn.PartitionKey, 0, len(parts))
	for k := range parts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Collection != keys[j].Collection {
			return keys[i].Collection < keys[j].Collection
		}
		return keys[i].Partition < keys[j].Partition
	})
	for _, k := range keys {
		// la fila debe existir para poder bloquearla
		if _, err := q.Exec(ctx,
			`INSERT INTO document_partitions (collection, partition, version) VALUES ($1, $2, 0)
			 ON CONFLICT (collection, partition) DO NOTHING`,
			k.Collection, k.Partition,
		); err != nil {
			return fmt.Errorf("ensure partition: %w", err)
		}
		var cur int64
		if err := q.QueryRow(ctx,
			`SELECT version FROM document_partitions WHERE collection = $1 AND partition = $2 FOR UPDATE`,
			k.Collection, k.Partition,
		).Scan(&cur); err != nil {
			return fmt.Errorf("lock partition: %w", err)
		}
		if cur != parts[k] {
			return txn.ErrConflict
		}
	}
	return nil
}

func validateDocuments(ctx context.Context, q Querier, reads map[txn.Key]int64) error {
	keys := make([]txn.Key, 0, len(reads))
	for k := range reads {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Collection != keys[j].Collection {
			return keys[i].Collection < keys[j].Collection
		}
		return keys[i].ID < keys[j].ID
	})
	for _, k := range keys {
		var cur int64
		err := q.QueryRow(ctx,
			`SELECT version FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE`,
			k.Collection, k.ID,
		).Scan(&cur)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("lock document: %w", err)
		}
		if cur != reads[k] {
			return txn.ErrConflict
		}
	}
	return nil
}

// writeDocument aplica una escritura y actualiza la versión de las particiones afectadas.
// Un alta concurrente del mismo documento termina en unique_violation, que se trata como conflicto.
func writeDocument(ctx context.Context, q Querier, w txn.Write, version int64) error {
	var prev string
	err := q.QueryRow(ctx,
		`SELECT partition FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE`,
		w.Key.Collection, w.Key.ID,
	).Scan(&prev)
	exists := err == nil
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("lock document: %w", err)
	}

	switch {
	case w.Delete:
		if !exists {
			return nil
		}
		if _, err := q.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, w.Key.Collection, w.Key.ID); err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		return bumpPartition(ctx, q, w.Key.Collection, prev, version)
	case exists:
		if _, err := q.Exec(ctx,
			`UPDATE documents SET partition = $3, version = $4, data = $5, updated_at = now()
			 WHERE collection = $1 AND id = $2`,
			w.Key.Collection, w.Key.ID, w.Partition, version, w.Data,
		); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		if prev != w.Partition {
			if err := bumpPartition(ctx, q, w.Key.Collection, prev, version); err != nil {
				return err
			}
			return bumpPartition(ctx, q, w.Key.Collection, w.Partition, version)
		}
		return nil
	default:
		if _, err := q.Exec(ctx,
			`INSERT INTO documents (collection, id, partition, version, data) VALUES ($1, $2, $3, $4, $5)`,
			w.Key.Collection, w.Key.ID, w.Partition, version, w.Data,
		); err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		return bumpPartition(ctx, q, w.Key.Collection, w.Partition, version)
	}
}

func bumpPartition(ctx context.Context, q Querier, collection, partition string, version int64) error {
	if partition == "" {
		return nil
	}
	_, err := q.Exec(ctx,
		`INSERT INTO document_partitions (collection, partition, version) VALUES ($1, $2, $3)
		 ON CONFLICT (collection, partition) DO UPDATE SET version = EXCLUDED.version`,
		collection, partition, version,
	)
	if err != nil {
		return fmt.Errorf("bump partition: %w", err)
	}
	return nil
}
