// ABOUTME: Connection record store with insertion-ordered iteration
// ABOUTME: Pure storage; the Gateway serializes access and applies all policy

package gateway

// Store holds the ConnectionRecords for one gateway instance. It is pure
// storage with no validation logic. Iteration order is insertion order so
// that delivery visits connections in a stable sequence.
//
// Store is not safe for concurrent use; the owning Gateway serializes every
// access under its mutex.
type Store struct {
	records map[string]*ConnectionRecord
	order   []string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{records: make(map[string]*ConnectionRecord)}
}

// Put inserts a record, replacing any record with the same ID.
func (s *Store) Put(rec *ConnectionRecord) {
	if _, exists := s.records[rec.ID]; !exists {
		s.order = append(s.order, rec.ID)
	}
	s.records[rec.ID] = rec
}

// Get returns the record for id, if present.
func (s *Store) Get(id string) (*ConnectionRecord, bool) {
	rec, ok := s.records[id]
	return rec, ok
}

// Remove deletes and returns the record for id. Removing an absent id is a
// no-op returning ok=false.
func (s *Store) Remove(id string) (*ConnectionRecord, bool) {
	rec, ok := s.records[id]
	if !ok {
		return nil, false
	}
	delete(s.records, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return rec, true
}

// All returns a snapshot of every record in insertion order. The returned
// slice is safe to iterate while records are removed from the store.
func (s *Store) All() []*ConnectionRecord {
	out := make([]*ConnectionRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	return len(s.records)
}
