// Conf-change handling: reacts to configuration-change batches, re-derives
// capacity and registry state, re-applies the active profile, and runs the
// distributed override-removal protocol when an operator hand-edits a
// profile-managed key.

package sched

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

// nodeRole names this node's per-instance configuration target.
func nodeRole(nodeID int) string {
	return fmt.Sprintf("osd.%d", nodeID)
}

// qosKeys in first-match order: only the first changed QoS key in a batch is
// acted on.
var qosKeys = []string{
	KeyClientRes,
	KeyClientWgt,
	KeyClientLim,
	KeyRecoveryRes,
	KeyRecoveryWgt,
	KeyRecoveryLim,
	KeyBestEffortRes,
	KeyBestEffortWgt,
	KeyBestEffortLim,
}

// TrackedKeys implements Observer.
func (s *Scheduler) TrackedKeys() []string {
	keys := make([]string, 0, len(qosKeys)+5)
	keys = append(keys, qosKeys...)
	keys = append(keys,
		KeyCapacityIopsHDD,
		KeyCapacityIopsSSD,
		KeyBandwidthHDD,
		KeyBandwidthSSD,
		KeyProfile,
	)
	return keys
}

// HandleConfChange implements Observer. Branch order and the IOPS/bandwidth
// asymmetry are load-bearing: an IOPS-capacity change re-applies the active
// profile, a bandwidth-only change does not.
func (s *Scheduler) HandleConfChange(conf *Config, changed map[string]struct{}) {
	has := func(key string) bool {
		_, ok := changed[key]
		return ok
	}

	s.mu.Lock()
	if has(KeyCapacityIopsHDD) || has(KeyCapacityIopsSSD) {
		s.setCapacityParamsFromConfig()
		if s.profile != ProfileCustom {
			s.enableProfileSettings()
		}
		s.registry.UpdateFromConfig(conf, s.bandwidthCapacityPerShard)
	}
	if has(KeyBandwidthHDD) || has(KeyBandwidthSSD) {
		s.setCapacityParamsFromConfig()
		s.registry.UpdateFromConfig(conf, s.bandwidthCapacityPerShard)
	}
	if has(KeyProfile) {
		s.setProfile()
		if s.profile != ProfileCustom {
			s.enableProfileSettings()
			s.registry.UpdateFromConfig(conf, s.bandwidthCapacityPerShard)
		}
	}

	changedQoS := ""
	for _, key := range qosKeys {
		if has(key) {
			changedQoS = key
			break
		}
	}
	if changedQoS != "" {
		if s.profile == ProfileCustom {
			s.registry.UpdateFromConfig(conf, s.bandwidthCapacityPerShard)
		} else if s.shardID == 0 && s.monc != nil {
			// An operator hand-edited a profile-managed key. The override is
			// not accepted locally; shard 0 asks the control plane to remove
			// the persisted value so the next read reverts to the profile
			// default.
			s.removeKeyFromControlPlane(changedQoS)
		}
	}
	s.mu.Unlock()
}

type configRemoveCommand struct {
	Prefix string `json:"prefix"`
	Who    string `json:"who"`
	Name   string `json:"name"`
}

// removeKeyFromControlPlane issues a "config rm" for key against the
// generic role and this node's instance role. Fire and forget on both.
//
// Caller holds s.mu.
func (s *Scheduler) removeKeyFromControlPlane(key string) {
	roles := []string{"osd", nodeRole(s.nodeID)}
	for _, who := range roles {
		cmd, err := json.Marshal(configRemoveCommand{
			Prefix: "config rm",
			Who:    who,
			Name:   key,
		})
		if err != nil {
			panic("sched: config rm command must marshal")
		}
		logrus.Debugf("removing key %s for %s from control plane", key, who)
		s.monc.SubmitCommand(string(cmd))
	}
}
