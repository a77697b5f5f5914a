// ABOUTME: Tests for envelope wire shape and the monotonic delivery clock
// ABOUTME: Verifies optional field omission and non-decreasing stamps

package gateway

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope_OptionalFieldsOmitted(t *testing.T) {
	data, err := json.Marshal(&Envelope{Type: "update", Channel: "odds", Timestamp: 1})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.NotContains(t, raw, "senderId")
	assert.NotContains(t, raw, "targetUserId")
	assert.NotContains(t, raw, "metadata")
	assert.Contains(t, raw, "payload")
}

func TestDeliveryClock_NeverDecreases(t *testing.T) {
	current := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	clock := deliveryClock{now: func() time.Time { return current }}

	first := clock.stamp()
	current = current.Add(-2 * time.Second) // wall clock steps backwards
	second := clock.stamp()
	current = current.Add(5 * time.Second)
	third := clock.stamp()

	assert.Equal(t, first, second)
	assert.Greater(t, third, second)
}
