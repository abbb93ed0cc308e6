// Package sqlite backend de documentos sobre SQLite (database/sql + go-sqlite3).
//
// Pensado para desarrollo, la CLI y pruebas. Commit corre en una transacción
// BEGIN IMMEDIATE: SQLite admite un solo escritor, así la validación de versiones
// y las escrituras no se intercalan con otro commit. El esquema se crea en New().
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jhoicas/Inventario-lotes/internal/infrastructure/txn"
)

var _ txn.Backend = (*Store)(nil)

// Store implementa txn.Backend.
type Store struct {
	db *sql.DB
}

// New abre (o crea) la base en path. ":memory:" crea una base en memoria de una sola conexión.
func New(path string) (*Store, error) {
	dsn := "file:" + path + "?_foreign_keys=on&_txlock=immediate&_busy_timeout=5000"
	if path != ":memory:" {
		dsn += "&_journal_mode=WAL"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		// cada conexión tendría su propia base
		db.SetMaxOpenConns(1)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close cierra la conexión.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id         TEXT NOT NULL,
		partition  TEXT NOT NULL DEFAULT '',
		version    INTEGER NOT NULL,
		data       BLOB NOT NULL,
		PRIMARY KEY (collection, id)
	);
	CREATE INDEX IF NOT EXISTS idx_documents_partition ON documents (collection, partition);

	CREATE TABLE IF NOT EXISTS document_partitions (
		collection TEXT NOT NULL,
		partition  TEXT NOT NULL,
		version    INTEGER NOT NULL,
		PRIMARY KEY (collection, partition)
	);

	CREATE TABLE IF NOT EXISTS document_clock (
		id    INTEGER PRIMARY KEY CHECK (id = 1),
		value INTEGER NOT NULL
	);
	INSERT OR IGNORE INTO document_clock (id, value) VALUES (1, 0);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get lee un documento o nil si no existe.
func (s *Store) Get(ctx context.Context, key txn.Key) (*txn.Document, error) {
	d := txn.Document{Key: key}
	err := s.db.QueryRowContext(ctx,
		`SELECT partition, version, data FROM documents WHERE collection = ? AND id = ?`,
		key.Collection, key.ID,
	).Scan(&d.Partition, &d.Version, &d.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &d, nil
}

// Query documentos de la partición en orden de inserción (rowid) y su versión.
func (s *Store) Query(ctx context.Context, pk txn.PartitionKey) ([]txn.Document, int64, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	version, err := partitionVersion(ctx, tx, pk)
	if err != nil {
		return nil, 0, err
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT id, version, data FROM documents WHERE collection = ? AND partition = ? ORDER BY rowid`,
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
		return nil, 0, err
	}
	return docs, version, nil
}

// Commit valida versiones y aplica las escrituras en una sola transacción.
func (s *Store) Commit(ctx context.Context, cs txn.Changeset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for pk, want := range cs.Partitions {
		cur, err := partitionVersion(ctx, tx, pk)
		if err != nil {
			return err
		}
		if cur != want {
			return txn.ErrConflict
		}
	}
	for k, want := range cs.Reads {
		var cur int64
		err := tx.QueryRowContext(ctx,
			`SELECT version FROM documents WHERE collection = ? AND id = ?`, k.Collection, k.ID,
		).Scan(&cur)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("read version: %w", err)
		}
		if cur != want {
			return txn.ErrConflict
		}
	}

	if len(cs.Writes) > 0 {
		var version int64
		if err := tx.QueryRowContext(ctx,
			`UPDATE document_clock SET value = value + 1 WHERE id = 1 RETURNING value`,
		).Scan(&version); err != nil {
			return fmt.Errorf("next version: %w", err)
		}
		for _, w := range cs.Writes {
			if err := write(ctx, tx, w, version); err != nil {
				return err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func partitionVersion(ctx context.Context, tx *sql.Tx, pk txn.PartitionKey) (int64, error) {
	var v int64
	err := tx.QueryRowContext(ctx,
		`SELECT version FROM document_partitions WHERE collection = ? AND partition = ?`,
		pk.Collection, pk.Partition,
	).Scan(&v)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("partition version: %w", err)
	}
	return v, nil
}

func write(ctx context.Context, tx *sql.Tx, w txn.Write, version int64) error {
	var prev string
	err := tx.QueryRowContext(ctx,
		`SELECT partition FROM documents WHERE collection = ? AND id = ?`, w.Key.Collection, w.Key.ID,
	).Scan(&prev)
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read document: %w", err)
	}

	switch {
	case w.Delete:
		if !exists {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, w.Key.Collection, w.Key.ID); err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		return bump(ctx, tx, w.Key.Collection, prev, version)
	case exists:
		if _, err := tx.ExecContext(ctx,
			`UPDATE documents SET partition = ?, version = ?, data = ? WHERE collection = ? AND id = ?`,
			w.Partition, version, w.Data, w.Key.Collection, w.Key.ID,
		); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		if prev == w.Partition {
			return nil
		}
		if err := bump(ctx, tx, w.Key.Collection, prev, version); err != nil {
			return err
		}
		return bump(ctx, tx, w.Key.Collection, w.Partition, version)
	default:
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents (collection, id, partition, version, data) VALUES (?, ?, ?, ?, ?)`,
			w.Key.Collection, w.Key.ID, w.Partition, version, w.Data,
		); err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		return bump(ctx, tx, w.Key.Collection, w.Partition, version)
	}
}

func bump(ctx context.Context, tx *sql.Tx, collection, partition string, version int64) error {
	if partition == "" {
		return nil
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO document_partitions (collection, partition, version) VALUES (?, ?, ?)
		 ON CONFLICT (collection, partition) DO UPDATE SET version = excluded.version`,
		collection, partition, version,
	)
	if err != nil {
		return fmt.Errorf("bump partition: %w", err)
	}
	return nil
}
