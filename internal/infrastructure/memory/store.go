// Package memory backend de documentos en memoria. Se usa en pruebas y con DB_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jhoicas/Inventario-lotes/internal/infrastructure/txn"
)

var _ txn.Backend = (*Store)(nil)

type record struct {
	partition string
	version   int64
	seq       int64
	data      []byte
}

// Store almacén versionado protegido por un mutex. Las versiones salen de un reloj
// global, así un documento borrado y recreado nunca repite versión.
type Store struct {
	mu         sync.RWMutex
	clock      int64
	docs       map[txn.Key]*record
	partitions map[txn.PartitionKey]int64
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		docs:       make(map[txn.Key]*record),
		partitions: make(map[txn.PartitionKey]int64),
	}
}

// Get devuelve una copia del documento o nil si no existe.
func (s *Store) Get(_ context.Context, key txn.Key) (*txn.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.docs[key]
	if !ok {
		return nil, nil
	}
	d := toDocument(key, r)
	return &d, nil
}

// Query documentos de la partición en orden de inserción y la versión de la partición.
func (s *Store) Query(_ context.Context, pk txn.PartitionKey) ([]txn.Document, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	type entry struct {
		key txn.Key
		r   *record
	}
	var found []entry
	for k, r := range s.docs {
		if k.Collection == pk.Collection && r.partition == pk.Partition {
			found = append(found, entry{k, r})
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].r.seq < found[j].r.seq })
	out := make([]txn.Document, 0, len(found))
	for _, e := range found {
		out = append(out, toDocument(e.key, e.r))
	}
	return out, s.partitions[pk], nil
}

// Commit valida las versiones leídas y aplica las escrituras, todo o nada.
func (s *Store) Commit(_ context.Context, cs txn.Changeset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range cs.Reads {
		var cur int64
		if r, ok := s.docs[k]; ok {
			cur = r.version
		}
		if cur != v {
			return txn.ErrConflict
		}
	}
	for pk, v := range cs.Partitions {
		if s.partitions[pk] != v {
			return txn.ErrConflict
		}
	}

	for _, w := range cs.Writes {
		s.clock++
		prev, exists := s.docs[w.Key]
		if w.Delete {
			if exists {
				delete(s.docs, w.Key)
				s.bump(w.Key.Collection, prev.partition)
			}
			continue
		}
		data := make([]byte, len(w.Data))
		copy(data, w.Data)
		r := &record{partition: w.Partition, version: s.clock, seq: s.clock, data: data}
		if exists {
			r.seq = prev.seq
			if prev.partition != w.Partition {
				s.bump(w.Key.Collection, prev.partition)
				s.bump(w.Key.Collection, w.Partition)
			}
		} else {
			s.bump(w.Key.Collection, w.Partition)
		}
		s.docs[w.Key] = r
	}
	return nil
}

// Len número de documentos de una colección.
func (s *Store) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for k := range s.docs {
		if k.Collection == collection {
			n++
		}
	}
	return n
}

func (s *Store) bump(collection, partition string) {
	if partition == "" {
		return
	}
	s.partitions[txn.PartitionKey{Collection: collection, Partition: partition}] = s.clock
}

func toDocument(k txn.Key, r *record) txn.Document {
	data := make([]byte, len(r.data))
	copy(data, r.data)
	return txn.Document{Key: k, Partition: r.partition, Version: r.version, Data: data}
}
