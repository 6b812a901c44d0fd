// ClientRegistry holds the QoS parameter triples (reservation, weight,
// limit) consumed by the tagged queue: one default triple for external
// clients, optional per-client overrides, and one triple per internal
// background class.
//
// The tagged queue expects reservation and limit in cost-units per second,
// but the configuration expresses them as fractions of the node's measured
// capacity. UpdateFromConfig converts between the two using the per-shard
// capacity, which is why it must run after every capacity recomputation.
// A zero fraction maps to the queue's "no minimum" / "no ceiling" sentinel.

package sched

import (
	"fmt"

	"github.com/mclock-sched/mclock-sched/sched/dmclock"
)

// ClientRegistry resolves scheduling identities to their current QoS
// parameter triple. Zero value is usable; UpdateFromConfig populates it.
type ClientRegistry struct {
	defaultExternal dmclock.ClientInfo
	external        map[ClientProfileID]dmclock.ClientInfo
	internal        [numClasses]dmclock.ClientInfo
}

// UpdateFromConfig recomputes every stored triple from the per-class
// configuration ratios and the given per-shard capacity. This is the only
// writer of registry state.
func (r *ClientRegistry) UpdateFromConfig(conf *Config, capacityPerShard float64) {
	toRes := func(frac float64) float64 {
		if frac != 0 {
			return frac * capacityPerShard
		}
		return dmclock.MinReservation
	}
	toLim := func(frac float64) float64 {
		if frac != 0 {
			return frac * capacityPerShard
		}
		return dmclock.MaxLimit
	}

	r.defaultExternal = dmclock.ClientInfo{
		Reservation: toRes(conf.GetFloat(KeyClientRes)),
		Weight:      float64(conf.GetUint(KeyClientWgt)),
		Limit:       toLim(conf.GetFloat(KeyClientLim)),
	}
	r.internal[ClassBackgroundRecovery] = dmclock.ClientInfo{
		Reservation: toRes(conf.GetFloat(KeyRecoveryRes)),
		Weight:      float64(conf.GetUint(KeyRecoveryWgt)),
		Limit:       toLim(conf.GetFloat(KeyRecoveryLim)),
	}
	r.internal[ClassBackgroundBestEffort] = dmclock.ClientInfo{
		Reservation: toRes(conf.GetFloat(KeyBestEffortRes)),
		Weight:      float64(conf.GetUint(KeyBestEffortWgt)),
		Limit:       toLim(conf.GetFloat(KeyBestEffortLim)),
	}
}

// SetClientOverride installs a per-client triple overriding the external
// default for that client. Overrides survive UpdateFromConfig only until the
// next call; they are an in-memory refinement, not configuration.
func (r *ClientRegistry) SetClientOverride(id ClientProfileID, info dmclock.ClientInfo) {
	if r.external == nil {
		r.external = make(map[ClientProfileID]dmclock.ClientInfo)
	}
	r.external[id] = info
}

// RemoveClientOverride drops the per-client triple for id, if any.
func (r *ClientRegistry) RemoveClientOverride(id ClientProfileID) {
	delete(r.external, id)
}

func (r *ClientRegistry) externalInfo(id ClientProfileID) dmclock.ClientInfo {
	if info, ok := r.external[id]; ok {
		return info
	}
	return r.defaultExternal
}

// Info resolves id to its current triple. Resolving ClassImmediate is a
// caller bug: immediate items must go through the bypass lane, never through
// parameter resolution. Unknown classes are likewise fatal.
func (r *ClientRegistry) Info(id SchedulerID) dmclock.ClientInfo {
	switch id.Class {
	case ClassImmediate:
		panic("sched: cannot resolve QoS parameters for the immediate class")
	case ClassClient:
		return r.externalInfo(id.Profile)
	case ClassBackgroundRecovery, ClassBackgroundBestEffort:
		return r.internal[id.Class]
	default:
		panic(fmt.Sprintf("sched: out of range scheduling class %d", id.Class))
	}
}
