// Package txn implementa el coordinador de transacciones optimistas sobre un almacén de documentos.
//
// Cada lectura queda registrada con la versión del documento (y cada consulta con la versión de
// su partición). Las escrituras se acumulan y solo se aplican en Commit, que vuelve a validar
// esas versiones; si alguna cambió, el backend responde ErrConflict y el coordinador repite
// la clausura completa desde cero.
package txn

import (
	"context"
	"errors"
)

// ErrConflict un documento leído cambió antes del commit. Interno: el coordinador reintenta.
var ErrConflict = errors.New("conflicto de concurrencia")

// ErrReadAfterWrite la clausura leyó después de escribir. Es un error de programación y no se reintenta.
var ErrReadAfterWrite = errors.New("lectura después de escritura dentro de la transacción")

// Key identifica un documento.
type Key struct {
	Collection string
	ID         string
}

// PartitionKey identifica un conjunto consultable de documentos (p. ej. los lotes de un producto).
type PartitionKey struct {
	Collection string
	Partition  string
}

// Document documento versionado. Version 0 significa "no existe".
type Document struct {
	Key       Key
	Partition string
	Version   int64
	Data      []byte
}

// Write escritura diferida hasta el commit.
type Write struct {
	Key       Key
	Partition string
	Data      []byte
	Delete    bool
}

// Changeset lo que el backend debe validar y aplicar atómicamente.
type Changeset struct {
	Reads      map[Key]int64
	Partitions map[PartitionKey]int64
	Writes     []Write
}

// Backend almacén de documentos con commit condicional.
// Get devuelve (nil, nil) si el documento no existe.
type Backend interface {
	Get(ctx context.Context, key Key) (*Document, error)
	Query(ctx context.Context, pk PartitionKey) ([]Document, int64, error)
	Commit(ctx context.Context, cs Changeset) error
}
