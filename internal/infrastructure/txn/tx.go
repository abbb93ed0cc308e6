package txn

import (
	"context"
	"fmt"
)

// Tx una ejecución de la clausura: lecturas versionadas y escrituras diferidas.
// No es segura para uso concurrente; vive solo dentro de un intento.
type Tx struct {
	backend    Backend
	docs       map[Key]*Document
	reads      map[Key]int64
	partitions map[PartitionKey]int64
	writes     []Write
	writeIdx   map[Key]int
}

func newTx(b Backend) *Tx {
	return &Tx{
		backend:    b,
		docs:       make(map[Key]*Document),
		reads:      make(map[Key]int64),
		partitions: make(map[PartitionKey]int64),
		writeIdx:   make(map[Key]int),
	}
}

func (t *Tx) guardRead() error {
	if len(t.writes) > 0 {
		return ErrReadAfterWrite
	}
	return nil
}

// Get lee un documento. Lecturas repetidas devuelven la misma instantánea.
func (t *Tx) Get(ctx context.Context, key Key) (*Document, error) {
	if err := t.guardRead(); err != nil {
		return nil, err
	}
	if v, ok := t.reads[key]; ok {
		if v == 0 {
			return nil, nil
		}
		return t.docs[key], nil
	}
	doc, err := t.backend.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", key.Collection, key.ID, err)
	}
	if doc == nil {
		t.reads[key] = 0
		return nil, nil
	}
	t.reads[key] = doc.Version
	t.docs[key] = doc
	return doc, nil
}

// Query lee todos los documentos de una partición y registra su versión,
// de modo que altas o bajas concurrentes en la partición también provoquen conflicto.
func (t *Tx) Query(ctx context.Context, pk PartitionKey) ([]Document, error) {
	if err := t.guardRead(); err != nil {
		return nil, err
	}
	docs, version, err := t.backend.Query(ctx, pk)
	if err != nil {
		return nil, fmt.Errorf("query %s/%s: %w", pk.Collection, pk.Partition, err)
	}
	if prev, ok := t.partitions[pk]; ok && prev != version {
		return nil, ErrConflict
	}
	t.partitions[pk] = version
	for i := range docs {
		d := docs[i]
		if prev, ok := t.reads[d.Key]; ok {
			if prev != d.Version {
				return nil, ErrConflict
			}
			continue
		}
		t.reads[d.Key] = d.Version
		t.docs[d.Key] = &d
	}
	return docs, nil
}

// Put programa la escritura de un documento completo.
func (t *Tx) Put(key Key, partition string, data []byte) {
	t.addWrite(Write{Key: key, Partition: partition, Data: data})
}

// Delete programa el borrado de un documento.
func (t *Tx) Delete(key Key) {
	partition := ""
	if d, ok := t.docs[key]; ok {
		partition = d.Partition
	}
	t.addWrite(Write{Key: key, Partition: partition, Delete: true})
}

func (t *Tx) addWrite(w Write) {
	if i, ok := t.writeIdx[w.Key]; ok {
		t.writes[i] = w
		return
	}
	t.writeIdx[w.Key] = len(t.writes)
	t.writes = append(t.writes, w)
}

func (t *Tx) changeset() Changeset {
	return Changeset{Reads: t.reads, Partitions: t.partitions, Writes: t.writes}
}
