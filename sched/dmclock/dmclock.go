// Package dmclock implements a tag-ordered pull queue with per-client
// reservation, weight, and limit accounting (the dmClock discipline).
//
// Each client is assigned a ClientInfo triple in cost-units per second.
// Requests carry a cost; admission stamps the request with three tags:
//
//   - reservation tag R = max(prevR + cost/reservation, now)
//   - proportional tag P = max(prevP + cost/weight, now)
//   - limit tag       L = max(prevL + cost/limit, now)
//
// A pull first serves the earliest reservation-eligible head (R <= now),
// guaranteeing each client its configured minimum. If no head is
// reservation-eligible, the pull serves the smallest proportional tag among
// heads whose limit tag permits it (L <= now), distributing spare capacity
// by weight. If no head is eligible in either phase, the pull reports the
// earliest future time at which one becomes eligible.
//
// ClientInfo is never cached: the queue resolves the current triple through
// the registered callback on every admission, so configuration changes take
// effect on the next request without queue surgery.
package dmclock

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// ClientInfo holds the QoS parameter triple for one client identity, in
// cost-units per second. Weight is an absolute unitless share.
type ClientInfo struct {
	Reservation float64
	Weight      float64
	Limit       float64
}

// Sentinel values for "no guaranteed minimum" and "no ceiling".
const (
	MinReservation = 0.0
	MaxLimit       = math.MaxFloat64
)

func (ci ClientInfo) String() string {
	lim := "max"
	if ci.Limit < MaxLimit {
		lim = fmt.Sprintf("%.1f", ci.Limit)
	}
	res := "min"
	if ci.Reservation > MinReservation {
		res = fmt.Sprintf("%.1f", ci.Reservation)
	}
	return fmt.Sprintf("[res %s wgt %.1f lim %s]", res, ci.Weight, lim)
}

// PullKind discriminates the outcome of a PullRequest call.
type PullKind int

const (
	// PullNone means the queue holds no requests at all.
	PullNone PullKind = iota
	// PullReady means a request was dequeued and returned.
	PullReady
	// PullFuture means requests are queued but none is eligible yet; the
	// result carries the earliest time one becomes eligible.
	PullFuture
)

// PullResult is the outcome of a PullRequest call. Request is set for
// PullReady; NextReady is set for PullFuture.
type PullResult[R any] struct {
	Kind      PullKind
	Request   R
	NextReady time.Time
}

type entry[R any] struct {
	req  R
	cost uint64
	rTag float64 // seconds on the queue timeline
	pTag float64
	lTag float64
	hasR bool // reservation configured (rTag meaningful)
	hasL bool // limit configured (lTag meaningful)
}

type clientState[R any] struct {
	queue []entry[R]
	prevR float64
	prevP float64
	prevL float64
	// lastActive is when the client last admitted or surrendered a request.
	// Idle clients are reaped once lastActive falls out of the retention
	// window, dropping their accumulated tag state.
	lastActive float64
}

// Queue is a tag-ordered pull queue over client identities of type K and
// requests of type R. Not safe for concurrent use; callers serialize access
// the same way they serialize enqueue/dequeue.
type Queue[K comparable, R any] struct {
	resolve func(K) ClientInfo
	clients map[K]*clientState[R]
	order   []K // first-admission order; pull scans use it for a stable tie-break

	// anticipation extends how long an idle client's tag state is retained.
	// Within the window a returning client keeps its pacing tags, including
	// any limit debt it built up.
	anticipation time.Duration

	start time.Time
	now   func() time.Time
	count int
}

// New creates a Queue resolving client parameters through resolve. The
// anticipation window controls idle-client tag retention; zero selects a
// one-minute floor.
func New[K comparable, R any](resolve func(K) ClientInfo, anticipation time.Duration) *Queue[K, R] {
	if resolve == nil {
		panic("dmclock: resolve callback must not be nil")
	}
	return &Queue[K, R]{
		resolve:      resolve,
		clients:      make(map[K]*clientState[R]),
		anticipation: anticipation,
		start:        time.Now(),
		now:          time.Now,
	}
}

func (q *Queue[K, R]) seconds() float64 {
	return q.now().Sub(q.start).Seconds()
}

func (q *Queue[K, R]) toTime(sec float64) time.Time {
	return q.start.Add(time.Duration(sec * float64(time.Second)))
}

// AddRequest admits req under client identity id with the given scaled cost.
// The client's current ClientInfo is resolved through the callback; tags are
// stamped against it at admission time.
func (q *Queue[K, R]) AddRequest(req R, id K, cost uint64) {
	now := q.seconds()
	info := q.resolve(id)
	if info.Weight <= 0 {
		panic(fmt.Sprintf("dmclock: non-positive weight for client %v", id))
	}

	st, ok := q.clients[id]
	if !ok {
		// Fresh state: -inf previous tags make the first request's tags
		// collapse to now (R_0 = t in the mClock tag recurrences).
		st = &clientState[R]{
			prevR: math.Inf(-1),
			prevP: math.Inf(-1),
			prevL: math.Inf(-1),
		}
		q.clients[id] = st
		q.order = append(q.order, id)
	}

	c := float64(cost)
	e := entry[R]{req: req, cost: cost}
	if info.Reservation > MinReservation {
		e.hasR = true
		e.rTag = math.Max(st.prevR+c/info.Reservation, now)
		st.prevR = e.rTag
	}
	e.pTag = math.Max(st.prevP+c/info.Weight, now)
	st.prevP = e.pTag
	if info.Limit < MaxLimit {
		e.hasL = true
		e.lTag = math.Max(st.prevL+c/info.Limit, now)
		st.prevL = e.lTag
	}
	st.queue = append(st.queue, e)
	st.lastActive = now
	q.count++
}

// PullRequest removes and returns the next request in tag order. See the
// package comment for the two-phase discipline.
func (q *Queue[K, R]) PullRequest() PullResult[R] {
	if q.count == 0 {
		return PullResult[R]{Kind: PullNone}
	}
	now := q.seconds()

	// Reservation phase: earliest eligible reservation tag wins.
	var bestK K
	best := math.Inf(1)
	found := false
	for _, k := range q.order {
		st := q.clients[k]
		if st == nil || len(st.queue) == 0 {
			continue
		}
		head := st.queue[0]
		if head.hasR && head.rTag <= now && head.rTag < best {
			bestK, best, found = k, head.rTag, true
		}
	}
	if found {
		return PullResult[R]{Kind: PullReady, Request: q.pop(bestK, now)}
	}

	// Weight phase: smallest proportional tag among limit-eligible heads.
	best = math.Inf(1)
	for _, k := range q.order {
		st := q.clients[k]
		if st == nil || len(st.queue) == 0 {
			continue
		}
		head := st.queue[0]
		if head.hasL && head.lTag > now {
			continue
		}
		if head.pTag < best {
			bestK, best, found = k, head.pTag, true
		}
	}
	if found {
		return PullResult[R]{Kind: PullReady, Request: q.pop(bestK, now)}
	}

	// Nothing eligible: report the earliest time a head becomes so. Every
	// remaining head is limit-blocked (an unlimited head is always
	// weight-eligible), so the earliest of rTag/lTag bounds eligibility.
	next := math.Inf(1)
	for _, k := range q.order {
		st := q.clients[k]
		if st == nil || len(st.queue) == 0 {
			continue
		}
		head := st.queue[0]
		if head.hasR && head.rTag < next {
			next = head.rTag
		}
		if head.hasL && head.lTag < next {
			next = head.lTag
		}
	}
	return PullResult[R]{Kind: PullFuture, NextReady: q.toTime(next)}
}

func (q *Queue[K, R]) pop(k K, now float64) R {
	st := q.clients[k]
	e := st.queue[0]
	st.queue = st.queue[1:]
	st.lastActive = now
	q.count--
	q.reapIdle(now)
	return e.req
}

// reapIdle drops tag state for clients that have been idle past the
// retention window. A reaped client that returns starts with fresh tags.
func (q *Queue[K, R]) reapIdle(now float64) {
	window := q.anticipation.Seconds()
	if window < 60 {
		window = 60
	}
	kept := q.order[:0]
	for _, k := range q.order {
		st := q.clients[k]
		if st != nil && len(st.queue) == 0 && now-st.lastActive > window {
			delete(q.clients, k)
			continue
		}
		kept = append(kept, k)
	}
	q.order = kept
}

// RequestCount returns the number of queued requests.
func (q *Queue[K, R]) RequestCount() int {
	return q.count
}

// ClientCount returns the number of client identities with retained state.
func (q *Queue[K, R]) ClientCount() int {
	return len(q.clients)
}

// RenderClients returns a one-line summary of each tracked client: its
// current parameter triple and queued-request count.
func (q *Queue[K, R]) RenderClients() string {
	var sb strings.Builder
	for _, k := range q.sortedKeys() {
		st := q.clients[k]
		fmt.Fprintf(&sb, "%v: %v reqs %d; ", k, q.resolve(k), len(st.queue))
	}
	return strings.TrimSuffix(sb.String(), " ")
}

// RenderQueues returns the head tags of each non-empty client queue.
func (q *Queue[K, R]) RenderQueues() string {
	var sb strings.Builder
	for _, k := range q.sortedKeys() {
		st := q.clients[k]
		if len(st.queue) == 0 {
			continue
		}
		h := st.queue[0]
		fmt.Fprintf(&sb, "%v: r %.3f p %.3f l %.3f len %d; ", k, h.rTag, h.pTag, h.lTag, len(st.queue))
	}
	return strings.TrimSuffix(sb.String(), " ")
}

func (q *Queue[K, R]) sortedKeys() []K {
	keys := make([]K, len(q.order))
	copy(keys, q.order)
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i]) < fmt.Sprint(keys[j])
	})
	return keys
}
