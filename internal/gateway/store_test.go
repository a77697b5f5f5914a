// ABOUTME: Tests for the connection record store
// ABOUTME: Covers lookup, idempotent removal, and stable iteration order

package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id string) *ConnectionRecord {
	return &ConnectionRecord{ID: id, Kind: KindDuplex, subscriptions: make(map[string]struct{})}
}

func TestStore_PutAndGet(t *testing.T) {
	s := NewStore()
	s.Put(record("a"))

	rec, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", rec.ID)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestStore_RemoveIsIdempotent(t *testing.T) {
	s := NewStore()
	s.Put(record("a"))

	rec, ok := s.Remove("a")
	require.True(t, ok)
	assert.Equal(t, "a", rec.ID)

	rec, ok = s.Remove("a")
	assert.False(t, ok)
	assert.Nil(t, rec)
	assert.Equal(t, 0, s.Len())
}

func TestStore_AllPreservesInsertionOrder(t *testing.T) {
	s := NewStore()
	for _, id := range []string{"c", "a", "b"} {
		s.Put(record(id))
	}

	var got []string
	for _, rec := range s.All() {
		got = append(got, rec.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, got)

	s.Remove("a")
	got = got[:0]
	for _, rec := range s.All() {
		got = append(got, rec.ID)
	}
	assert.Equal(t, []string{"c", "b"}, got)
}

func TestStore_PutSameIDReplacesWithoutReordering(t *testing.T) {
	s := NewStore()
	s.Put(record("a"))
	s.Put(record("b"))
	s.Put(record("a"))

	assert.Equal(t, 2, s.Len())
	all := s.All()
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "b", all[1].ID)
}
