package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mclock-sched/mclock-sched/sched/dmclock"
)

func TestRegistry_ZeroFractionsMapToSentinels(t *testing.T) {
	// GIVEN configuration with zero reservation and limit fractions
	conf := DefaultConfig()

	// WHEN the registry derives triples against a 100-unit capacity
	var r ClientRegistry
	r.UpdateFromConfig(conf, 100.0)

	// THEN zero reservation means no minimum and zero limit means no ceiling
	info := r.Info(SchedulerID{Class: ClassClient})
	assert.Equal(t, dmclock.MinReservation, info.Reservation)
	assert.Equal(t, dmclock.MaxLimit, info.Limit)
	assert.Equal(t, 1.0, info.Weight)
}

func TestRegistry_NonZeroFractionsScaleByCapacity(t *testing.T) {
	conf := DefaultConfig()
	conf.Set(KeyRecoveryRes, 0.4)
	conf.Set(KeyRecoveryWgt, uint64(2))
	conf.Set(KeyRecoveryLim, 0.7)
	conf.ApplyChanges()

	var r ClientRegistry
	r.UpdateFromConfig(conf, 50_000_000.0)

	info := r.Info(SchedulerID{Class: ClassBackgroundRecovery})
	assert.Equal(t, 0.4*50_000_000.0, info.Reservation)
	assert.Equal(t, 2.0, info.Weight)
	assert.Equal(t, 0.7*50_000_000.0, info.Limit)
}

func TestRegistry_ClientOverrideFallsBackToDefault(t *testing.T) {
	conf := DefaultConfig()
	var r ClientRegistry
	r.UpdateFromConfig(conf, 100.0)

	special := ClientProfileID{ClientID: 7, SessionID: 1}
	override := dmclock.ClientInfo{Reservation: 10, Weight: 3, Limit: 90}
	r.SetClientOverride(special, override)

	// The overridden client resolves to its triple; everyone else gets the
	// external default.
	assert.Equal(t, override, r.Info(SchedulerID{Class: ClassClient, Profile: special}))
	other := SchedulerID{Class: ClassClient, Profile: ClientProfileID{ClientID: 8}}
	assert.Equal(t, 1.0, r.Info(other).Weight)

	r.RemoveClientOverride(special)
	assert.Equal(t, 1.0, r.Info(SchedulerID{Class: ClassClient, Profile: special}).Weight)
}

func TestRegistry_ImmediateResolutionPanics(t *testing.T) {
	var r ClientRegistry
	assert.Panics(t, func() {
		r.Info(SchedulerID{Class: ClassImmediate})
	})
}

func TestRegistry_OutOfRangeClassPanics(t *testing.T) {
	var r ClientRegistry
	assert.Panics(t, func() {
		r.Info(SchedulerID{Class: SchedulingClass(99)})
	})
}
