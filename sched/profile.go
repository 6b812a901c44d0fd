// Named QoS profiles: fixed allocation tables and the protocol that writes a
// selected profile back to configuration as per-class defaults.

package sched

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Profile selects how the per-class QoS keys are managed. Custom leaves them
// entirely to direct configuration; the named profiles are fixed allocation
// tables applied atomically to all three scheduled classes.
type Profile string

const (
	ProfileCustom          Profile = "custom"
	ProfileBalanced        Profile = "balanced"
	ProfileHighRecoveryOps Profile = "high_recovery_ops"
	ProfileHighClientOps   Profile = "high_client_ops"
)

// ProfileAllocation is one class's share under a profile: reservation and
// limit as fractions of per-shard capacity (0 meaning none), weight as an
// absolute share.
type ProfileAllocation struct {
	Res float64
	Wgt float64
	Lim float64
}

// profileAllocs holds the allocation per scheduled class, indexed by
// SchedulingClass. The immediate slot is unused.
type profileAllocs [numClasses]ProfileAllocation

// Allocation tables. Reservation fractions per profile sum to at most 1.0 of
// per-shard capacity.
//
//	balanced:          client 40%/1/100%, recovery 40%/1/70%, best-effort 20%/1/none
//	high_recovery_ops: client 30%/1/80%,  recovery 60%/2/none, best-effort none/1/none
//	high_client_ops:   client 60%/5/none, recovery 20%/1/50%,  best-effort 20%/1/none
var profileTables = map[Profile]profileAllocs{
	ProfileBalanced: {
		ClassClient:               {Res: 0.4, Wgt: 1.0, Lim: 1.0},
		ClassBackgroundRecovery:   {Res: 0.4, Wgt: 1.0, Lim: 0.7},
		ClassBackgroundBestEffort: {Res: 0.2, Wgt: 1.0, Lim: 0.0},
	},
	ProfileHighRecoveryOps: {
		ClassClient:               {Res: 0.3, Wgt: 1.0, Lim: 0.8},
		ClassBackgroundRecovery:   {Res: 0.6, Wgt: 2.0, Lim: 0.0},
		ClassBackgroundBestEffort: {Res: 0.0, Wgt: 1.0, Lim: 0.0},
	},
	ProfileHighClientOps: {
		ClassClient:               {Res: 0.6, Wgt: 5.0, Lim: 0.0},
		ClassBackgroundRecovery:   {Res: 0.2, Wgt: 1.0, Lim: 0.5},
		ClassBackgroundBestEffort: {Res: 0.2, Wgt: 1.0, Lim: 0.0},
	},
}

// setProfile rereads the profile selection from configuration.
func (s *Scheduler) setProfile() {
	s.profile = Profile(s.conf.GetString(KeyProfile))
	logrus.Infof("mclock profile: %s", s.profile)
}

// Profile returns the currently selected profile.
func (s *Scheduler) Profile() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// enableProfileSettings loads the selected profile's allocation table and
// writes it back to configuration as defaults. No-op under custom. An
// unrecognized selection is a schema bug.
func (s *Scheduler) enableProfileSettings() {
	if s.profile == ProfileCustom {
		return
	}
	table, ok := profileTables[s.profile]
	if !ok {
		panic(fmt.Sprintf("sched: invalid mclock profile %q", s.profile))
	}
	s.allocs = table
	s.writeProfileAsDefaults()
}

// writeProfileAsDefaults writes the loaded allocation table as per-class
// configuration defaults and applies the change. Only the shard-0 instance
// writes: the target configuration is shared by every shard of the node.
// Defaults never displace explicit per-key overrides, which makes profile
// application idempotent and non-destructive.
func (s *Scheduler) writeProfileAsDefaults() {
	if s.shardID > 0 {
		return
	}

	client := s.allocs[ClassClient]
	rec := s.allocs[ClassBackgroundRecovery]
	best := s.allocs[ClassBackgroundBestEffort]

	s.conf.SetDefault(KeyClientRes, client.Res)
	s.conf.SetDefault(KeyClientWgt, uint64(client.Wgt))
	s.conf.SetDefault(KeyClientLim, client.Lim)
	logrus.Debugf("client QoS params: [%g,%g,%g]", client.Res, client.Wgt, client.Lim)

	s.conf.SetDefault(KeyRecoveryRes, rec.Res)
	s.conf.SetDefault(KeyRecoveryWgt, uint64(rec.Wgt))
	s.conf.SetDefault(KeyRecoveryLim, rec.Lim)
	logrus.Debugf("recovery QoS params: [%g,%g,%g]", rec.Res, rec.Wgt, rec.Lim)

	s.conf.SetDefault(KeyBestEffortRes, best.Res)
	s.conf.SetDefault(KeyBestEffortWgt, uint64(best.Wgt))
	s.conf.SetDefault(KeyBestEffortLim, best.Lim)
	logrus.Debugf("best effort QoS params: [%g,%g,%g]", best.Res, best.Wgt, best.Lim)

	s.conf.ApplyChanges()
}
