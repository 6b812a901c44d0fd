// Package workload generates synthetic mixed-class operations for driving a
// scheduler shard, deterministically from a seed.
package workload

import (
	"math/rand"

	"github.com/google/uuid"

	"github.com/mclock-sched/mclock-sched/sched"
)

// Op is a synthetic schedulable operation. It satisfies sched.Item; the
// payload is just an ID so dequeue order can be traced.
type Op struct {
	ID      string
	Class   sched.SchedulingClass
	Profile sched.ClientProfileID
	OpCost  int64

	qosCost uint64
}

func (o *Op) SchedulerID() sched.SchedulerID {
	return sched.SchedulerID{Class: o.Class, Profile: o.Profile}
}

func (o *Op) Cost() int64 { return o.OpCost }

func (o *Op) SetQoSCost(cost uint64) { o.qosCost = cost }

func (o *Op) QoSCost() uint64 { return o.qosCost }

// Mix is the class composition of a generated workload, as relative shares.
// Shares that sum to zero are a caller bug.
type Mix struct {
	Client     float64
	Recovery   float64
	BestEffort float64
	Immediate  float64
}

// Generator produces Ops with exponential cost spread around costMean and
// classes drawn from Mix. Two generators with the same seed and
// configuration produce identical class, cost, and profile sequences; only
// the cosmetic op IDs differ.
type Generator struct {
	rng      *rand.Rand
	mix      Mix
	total    float64
	costMean float64
	clients  []sched.ClientProfileID
	seq      int
}

// NewGenerator creates a Generator over numClients distinct external client
// identities. Panics if the mix has no positive share.
func NewGenerator(seed int64, mix Mix, costMean float64, numClients int) *Generator {
	total := mix.Client + mix.Recovery + mix.BestEffort + mix.Immediate
	if total <= 0 {
		panic("workload: mix must have a positive share")
	}
	if numClients < 1 {
		numClients = 1
	}
	rng := rand.New(rand.NewSource(seed))
	clients := make([]sched.ClientProfileID, numClients)
	for i := range clients {
		clients[i] = sched.ClientProfileID{
			ClientID:  rng.Uint64(),
			SessionID: uint64(i),
		}
	}
	return &Generator{
		rng:      rng,
		mix:      mix,
		total:    total,
		costMean: costMean,
		clients:  clients,
	}
}

// Next returns the next synthetic operation.
func (g *Generator) Next() *Op {
	op := &Op{
		ID:     uuid.NewString(),
		Class:  g.pickClass(),
		OpCost: g.pickCost(),
	}
	if op.Class == sched.ClassClient {
		op.Profile = g.clients[g.seq%len(g.clients)]
	}
	g.seq++
	return op
}

func (g *Generator) pickClass() sched.SchedulingClass {
	x := g.rng.Float64() * g.total
	switch {
	case x < g.mix.Client:
		return sched.ClassClient
	case x < g.mix.Client+g.mix.Recovery:
		return sched.ClassBackgroundRecovery
	case x < g.mix.Client+g.mix.Recovery+g.mix.BestEffort:
		return sched.ClassBackgroundBestEffort
	default:
		return sched.ClassImmediate
	}
}

func (g *Generator) pickCost() int64 {
	cost := int64(g.rng.ExpFloat64() * g.costMean)
	if cost < 1 {
		return 1
	}
	return cost
}
