// Scheduler is the per-shard QoS dispatch queue: an unconditional-priority
// FIFO lane for immediate items in front of a dmClock tagged queue for
// everything else.

package sched

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mclock-sched/mclock-sched/sched/dmclock"
)

// CommandSender submits a control-plane command, fire and forget. Submission
// failures are neither observed nor retried; reconciliation is eventually
// consistent on the next configuration read.
type CommandSender interface {
	SubmitCommand(cmd string)
}

// Scheduler dispatches work items for one shard of the request-processing
// pipeline. Enqueue and Dequeue must be called from the shard's own
// execution context; configuration changes may arrive concurrently and are
// applied under an internal lock, so a dequeue either sees the old or the
// new parameter set, never a mix.
type Scheduler struct {
	conf      *Config
	nodeID    int
	numShards uint32
	shardID   int

	// rotational selects the HDD capacity keys; fixed at construction,
	// matching device-type detection at startup.
	rotational bool

	// monc carries override-removal commands to the cluster control plane.
	// May be nil; the removal protocol is then skipped.
	monc CommandSender

	// mu guards registry, capacity state, profile, and allocs against
	// concurrent conf-change application.
	mu                        sync.RWMutex
	registry                  ClientRegistry
	profile                   Profile
	allocs                    profileAllocs
	bandwidthCostPerIO        float64
	bandwidthCapacityPerShard float64

	immediate []Item
	queue     *dmclock.Queue[SchedulerID, Item]
}

// New builds the scheduler for one shard and runs the startup derivation
// sequence: capacity first, then profile selection and write-back, then the
// registry refresh that consumes both. It registers itself as a conf-change
// observer; pair with Close.
//
// monc may be nil when no control-plane channel is available.
func New(conf *Config, nodeID int, numShards uint32, shardID int, rotational bool, monc CommandSender) *Scheduler {
	if numShards == 0 {
		panic("sched: numShards must be positive")
	}
	s := &Scheduler{
		conf:       conf,
		nodeID:     nodeID,
		numShards:  numShards,
		shardID:    shardID,
		rotational: rotational,
		monc:       monc,
	}
	s.queue = dmclock.New[SchedulerID, Item](
		s.resolve,
		time.Duration(conf.GetFloat(KeyAnticipationWindow)*float64(time.Second)),
	)

	s.mu.Lock()
	s.setCapacityParamsFromConfig()
	s.setProfile()
	s.enableProfileSettings()
	s.registry.UpdateFromConfig(conf, s.bandwidthCapacityPerShard)
	s.mu.Unlock()

	conf.AddObserver(s)
	return s
}

// Close unregisters the conf-change observer. The scheduler must not be
// used afterwards.
func (s *Scheduler) Close() {
	s.conf.RemoveObserver(s)
}

// resolve is the identity-resolution callback registered with the tagged
// queue. The queue calls it whenever it needs current parameters, so
// registry refreshes take effect without touching queued items.
func (s *Scheduler) resolve(id SchedulerID) dmclock.ClientInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.Info(id)
}

// scaledCost maps an item's raw abstract cost into the cost unit the tagged
// queue accounts in: a fixed per-operation bandwidth tax plus the declared
// cost, floored at 1 so zero- or negative-cost items still pay their way.
func (s *Scheduler) scaledCost(itemCost int64) uint64 {
	cost := uint64(1)
	if itemCost > 1 {
		cost = uint64(itemCost)
	}
	s.mu.RLock()
	perIO := uint64(s.bandwidthCostPerIO)
	s.mu.RUnlock()
	return perIO + cost
}

// Enqueue admits item. Immediate items join the bypass lane in FIFO order;
// everything else is charged its scaled cost and handed to the tagged queue
// under its scheduling identity.
func (s *Scheduler) Enqueue(item Item) {
	id := item.SchedulerID()
	if id.Class == ClassImmediate {
		s.immediate = append(s.immediate, item)
	} else {
		cost := s.scaledCost(item.Cost())
		item.SetQoSCost(cost)
		logrus.Debugf("enqueue %s item_cost: %d scaled_cost: %d", id, item.Cost(), cost)
		s.queue.AddRequest(item, id, cost)
	}

	logrus.Debugf("client_count: %d queue_sizes: [imm: %d sched: %d]",
		s.queue.ClientCount(), len(s.immediate), s.queue.RequestCount())
}

// EnqueueFront returns item to the head of the queue after a failed
// dispatch attempt. The item always lands in the immediate lane, even when
// its class is not immediate; that reclassifies it as bypass priority on
// retry and sidesteps its class's limit accounting. Known limitation,
// preserved deliberately: re-admitting at true priority needs the tagged
// queue to accept returned items.
func (s *Scheduler) EnqueueFront(item Item) {
	s.immediate = append([]Item{item}, s.immediate...)
}

// Empty reports whether neither lane holds a request. Callers must check it
// before Dequeue.
func (s *Scheduler) Empty() bool {
	return len(s.immediate) == 0 && s.queue.RequestCount() == 0
}

// DequeueResult carries the outcome of a Dequeue: either an admitted item,
// or the earliest future time at which the tagged queue has an eligible
// candidate (Item nil). The future case is advisory, not an error: the
// caller schedules a wake-up.
type DequeueResult struct {
	Item      Item
	NextReady time.Time
}

// Dequeue returns the next admitted item, oldest immediate item first.
// Precondition: the scheduler is non-empty; dequeuing an empty scheduler is
// a contract breach and panics.
func (s *Scheduler) Dequeue() DequeueResult {
	if len(s.immediate) > 0 {
		item := s.immediate[0]
		s.immediate = s.immediate[1:]
		return DequeueResult{Item: item}
	}

	res := s.queue.PullRequest()
	switch res.Kind {
	case dmclock.PullReady:
		return DequeueResult{Item: res.Request}
	case dmclock.PullFuture:
		return DequeueResult{NextReady: res.NextReady}
	default:
		panic("sched: dequeue on an empty scheduler; callers must check Empty first")
	}
}

// dumpState is the fixed introspection shape consumed by operational
// tooling.
type dumpState struct {
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

// Dump writes a JSON snapshot of queue sizes, tracked clients, and the
// tagged queue's per-client state. Pure introspection; no mutation.
func (s *Scheduler) Dump(w io.Writer) error {
	var d dumpState
	d.QueueSizes.Immediate = len(s.immediate)
	d.QueueSizes.Scheduler = s.queue.RequestCount()
	d.Clients.ClientCount = s.queue.ClientCount()
	d.Clients.Clients = s.queue.RenderClients()
	d.Queues.Queues = s.queue.RenderQueues()
	return json.NewEncoder(w).Encode(&d)
}
