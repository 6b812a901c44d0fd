package sched

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dequeueName(t *testing.T, s *Scheduler) string {
	t.Helper()
	res := s.Dequeue()
	require.NotNil(t, res.Item, "expected a ready item, got future time %v", res.NextReady)
	return res.Item.(*testItem).name
}

func TestScheduler_ImmediateBypassesTaggedQueue(t *testing.T) {
	// GIVEN a mix of immediate and client items enqueued interleaved. The
	// custom profile with stock zero fractions leaves the tagged queue
	// unreserved and unlimited, so ordering is purely about the lanes.
	conf := testConfig()
	conf.Set(KeyProfile, string(ProfileCustom))
	conf.ApplyChanges()
	s := New(conf, 0, 1, 0, false, nil)
	defer s.Close()

	profile := ClientProfileID{ClientID: 1}
	s.Enqueue(clientItem("c1", profile, 100))
	s.Enqueue(immediateItem("i1"))
	s.Enqueue(clientItem("c2", profile, 100))
	s.Enqueue(immediateItem("i2"))

	// THEN every immediate item dequeues before any tagged item, in FIFO
	// order among themselves
	assert.Equal(t, "i1", dequeueName(t, s))
	assert.Equal(t, "i2", dequeueName(t, s))
	assert.Equal(t, "c1", dequeueName(t, s))
	assert.Equal(t, "c2", dequeueName(t, s))
	assert.True(t, s.Empty())
}

func TestScheduler_EnqueueFrontJumpsTheLine(t *testing.T) {
	// GIVEN queued immediate items
	conf := testConfig()
	s := New(conf, 0, 1, 0, false, nil)
	defer s.Close()

	s.Enqueue(immediateItem("i1"))
	s.Enqueue(immediateItem("i2"))

	// WHEN a failed dispatch returns an item to the head of the queue
	s.EnqueueFront(classItem("retry", ClassBackgroundRecovery, 500))

	// THEN the returned item dequeues first, through the immediate lane
	// regardless of its class
	assert.Equal(t, "retry", dequeueName(t, s))
	assert.Equal(t, "i1", dequeueName(t, s))
	assert.Equal(t, "i2", dequeueName(t, s))
}

func TestScheduler_ScaledCostFloorsRawCost(t *testing.T) {
	// GIVEN the 2,000,000 bytes/io capacity scenario
	conf := testConfig()
	s := New(conf, 0, 4, 0, false, nil)
	defer s.Close()

	// THEN non-positive raw costs are charged like cost 1
	assert.Equal(t, s.scaledCost(1), s.scaledCost(0))
	assert.Equal(t, s.scaledCost(1), s.scaledCost(-27))

	// AND positive costs add the per-IO tax
	assert.Equal(t, uint64(2_000_000)+1, s.scaledCost(1))
	assert.Equal(t, uint64(2_000_000)+4096, s.scaledCost(4096))
}

func TestScheduler_EnqueueRecordsScaledCostOnItem(t *testing.T) {
	conf := testConfig()
	s := New(conf, 0, 4, 0, false, nil)
	defer s.Close()

	item := classItem("rec", ClassBackgroundRecovery, 4096)
	s.Enqueue(item)
	assert.Equal(t, uint64(2_000_000)+4096, item.QoSCost())
}

func TestScheduler_DequeueEmptyPanics(t *testing.T) {
	conf := testConfig()
	s := New(conf, 0, 1, 0, false, nil)
	defer s.Close()

	assert.Panics(t, func() { s.Dequeue() })
}

func TestScheduler_HighClientOpsFavorsClientUnderContention(t *testing.T) {
	// GIVEN a single-shard scheduler under high_client_ops: client gets
	// reservation 0.6 and weight 5, recovery 0.2 and weight 1
	conf := testConfig()
	conf.Set(KeyProfile, string(ProfileHighClientOps))
	conf.ApplyChanges()
	s := New(conf, 0, 1, 0, false, nil)
	defer s.Close()

	// WHEN one client and one recovery item of equal raw cost contend
	s.Enqueue(clientItem("client", ClientProfileID{ClientID: 1}, 4096))
	s.Enqueue(classItem("recovery", ClassBackgroundRecovery, 4096))

	// THEN with both reservation-eligible the client item is served first
	assert.Equal(t, "client", dequeueName(t, s))
	assert.Equal(t, "recovery", dequeueName(t, s))
}

func TestScheduler_DumpShape(t *testing.T) {
	// GIVEN one immediate and two tagged items
	conf := testConfig()
	s := New(conf, 0, 1, 0, false, nil)
	defer s.Close()
	s.Enqueue(immediateItem("i1"))
	s.Enqueue(clientItem("c1", ClientProfileID{ClientID: 1}, 100))
	s.Enqueue(classItem("r1", ClassBackgroundRecovery, 100))

	// WHEN dumped
	var buf bytes.Buffer
	require.NoError(t, s.Dump(&buf))

	// THEN the fixed introspection shape comes back
	var dump struct {
		QueueSizes struct {
			Immediate int `json:"immediate"`
			Scheduler int `json:"scheduler"`
		} `json:"queue_sizes"`
		Clients struct {
			ClientCount int    `json:"client_count"`
			Clients     string `json:"clients"`
		} `json:"mClockClients"`
		Queues struct {
			Queues string `json:"queues"`
		} `json:"mClockQueues"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &dump))
	assert.Equal(t, 1, dump.QueueSizes.Immediate)
	assert.Equal(t, 2, dump.QueueSizes.Scheduler)
	assert.Equal(t, 2, dump.Clients.ClientCount)
	assert.NotEmpty(t, dump.Clients.Clients)
	assert.NotEmpty(t, dump.Queues.Queues)
}

func TestScheduler_ZeroShardsPanics(t *testing.T) {
	assert.Panics(t, func() {
		New(testConfig(), 0, 0, 0, false, nil)
	})
}
