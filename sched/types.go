// Scheduling identities: the class an operation belongs to and, for external
// client ops, the client it originated from.

package sched

import "fmt"

// SchedulingClass partitions operations by the QoS treatment they receive.
// ClassImmediate is pure bypass: items of that class skip QoS accounting
// entirely and go through the strict-FIFO immediate lane.
type SchedulingClass int

const (
	ClassImmediate SchedulingClass = iota
	ClassClient
	ClassBackgroundRecovery
	ClassBackgroundBestEffort

	numClasses
)

func (c SchedulingClass) String() string {
	switch c {
	case ClassImmediate:
		return "immediate"
	case ClassClient:
		return "client"
	case ClassBackgroundRecovery:
		return "background_recovery"
	case ClassBackgroundBestEffort:
		return "background_best_effort"
	default:
		return fmt.Sprintf("SchedulingClass(%d)", int(c))
	}
}

// ClientProfileID distinguishes individual external clients within
// ClassClient. The pair is opaque to the scheduler; callers typically use
// (client id, session id). Comparable so it can key the registry's
// per-client override map.
type ClientProfileID struct {
	ClientID  uint64
	SessionID uint64
}

func (p ClientProfileID) String() string {
	return fmt.Sprintf("%d.%d", p.ClientID, p.SessionID)
}

// SchedulerID is the identity an item is scheduled under. Profile is
// meaningful only when Class == ClassClient; for every other class it is the
// zero value.
type SchedulerID struct {
	Class   SchedulingClass
	Profile ClientProfileID
}

func (id SchedulerID) String() string {
	if id.Class == ClassClient {
		return fmt.Sprintf("{%s %s}", id.Class, id.Profile)
	}
	return fmt.Sprintf("{%s}", id.Class)
}

// Item is a schedulable work item. What the work and its abstract cost
// represent is up to the caller; the scheduler reads the identity and the
// raw cost, and records the scaled cost it charged before admission to the
// tagged queue.
type Item interface {
	// SchedulerID returns the identity the item is scheduled under.
	SchedulerID() SchedulerID

	// Cost returns the item's abstract cost. Values <= 0 are charged as 1.
	Cost() int64

	// SetQoSCost records the scaled cost computed by the scheduler.
	SetQoSCost(cost uint64)

	// QoSCost returns the scaled cost recorded by SetQoSCost.
	QoSCost() uint64
}
