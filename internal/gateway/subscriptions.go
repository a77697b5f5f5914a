// ABOUTME: Subscription index mapping channel names to subscribed connection ids
// ABOUTME: A derived cache over record subscription sets, kept consistent on every mutation

package gateway

import "sort"

// SubscriptionIndex tracks, for each channel, the set of connection ids
// currently subscribed. It is a cache over ConnectionRecord.subscriptions,
// not a second source of truth: every mutation updates the record and the
// index together, and record subscription sets are mutated nowhere else.
//
// Like Store, it relies on the owning Gateway for serialization.
type SubscriptionIndex struct {
	store   *Store
	members map[string]map[string]struct{} // channel -> connection id set
}

// NewSubscriptionIndex creates an index over the given store.
func NewSubscriptionIndex(store *Store) *SubscriptionIndex {
	return &SubscriptionIndex{
		store:   store,
		members: make(map[string]map[string]struct{}),
	}
}

// Subscribe adds channel to the connection's subscription set and to the
// index. Subscribing twice is the same as once. Returns false when no
// connection with that id exists, so callers can distinguish "no such
// connection" from "already subscribed".
func (ix *SubscriptionIndex) Subscribe(connID, channel string) bool {
	rec, ok := ix.store.Get(connID)
	if !ok {
		return false
	}
	rec.subscriptions[channel] = struct{}{}
	set, ok := ix.members[channel]
	if !ok {
		set = make(map[string]struct{})
		ix.members[channel] = set
	}
	set[connID] = struct{}{}
	return true
}

// Unsubscribe removes channel from the connection's subscription set and
// from the index. Unsubscribing from a channel never subscribed is a no-op.
// Returns false when no connection with that id exists.
func (ix *SubscriptionIndex) Unsubscribe(connID, channel string) bool {
	rec, ok := ix.store.Get(connID)
	if !ok {
		return false
	}
	delete(rec.subscriptions, channel)
	ix.dropMember(channel, connID)
	return true
}

// ChannelMembers returns the ids of every connection subscribed to channel.
func (ix *SubscriptionIndex) ChannelMembers(channel string) []string {
	set := ix.members[channel]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// memberSet exposes the raw membership set for delivery filtering.
func (ix *SubscriptionIndex) memberSet(channel string) map[string]struct{} {
	return ix.members[channel]
}

// RemoveConnection purges the connection from every channel it was
// subscribed to. Called exactly once per connection, on the eviction path.
func (ix *SubscriptionIndex) RemoveConnection(connID string) {
	rec, ok := ix.store.Get(connID)
	if !ok {
		// Purge always runs before the store delete, so a missing record
		// means there is nothing left in the index for this id.
		return
	}
	for channel := range rec.subscriptions {
		ix.dropMember(channel, connID)
	}
	rec.subscriptions = make(map[string]struct{})
}

// Channels returns the sorted names of every channel with at least one
// subscriber.
func (ix *SubscriptionIndex) Channels() []string {
	out := make([]string, 0, len(ix.members))
	for channel := range ix.members {
		out = append(out, channel)
	}
	sort.Strings(out)
	return out
}

func (ix *SubscriptionIndex) dropMember(channel, connID string) {
	set, ok := ix.members[channel]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(ix.members, channel)
	}
}
