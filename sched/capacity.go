// Capacity estimation: derives the bandwidth cost charged per abstract IO
// and the bandwidth capacity apportioned to this shard from device-type
// specific configuration.

package sched

import (
	humanize "github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// setCapacityParamsFromConfig rereads the device capacity configuration and
// recomputes the two derived figures. The rotational flag selects the HDD or
// SSD key pair. Inputs are clamped to >= 1 so the arithmetic is totally
// defined: degraded configuration is normalized, never an error.
//
// Caller holds s.mu.
func (s *Scheduler) setCapacityParamsFromConfig() {
	var bandwidth uint64
	var iops float64
	if s.rotational {
		bandwidth = s.conf.GetUint(KeyBandwidthHDD)
		iops = s.conf.GetFloat(KeyCapacityIopsHDD)
	} else {
		bandwidth = s.conf.GetUint(KeyBandwidthSSD)
		iops = s.conf.GetFloat(KeyCapacityIopsSSD)
	}

	if bandwidth < 1 {
		bandwidth = 1
	}
	if iops < 1.0 {
		iops = 1.0
	}

	s.bandwidthCostPerIO = float64(bandwidth) / iops
	s.bandwidthCapacityPerShard = float64(bandwidth) / float64(s.numShards)

	logrus.Infof("bandwidth_cost_per_io: %.2f bytes/io, bandwidth_capacity_per_shard: %s/s",
		s.bandwidthCostPerIO, humanize.Bytes(uint64(s.bandwidthCapacityPerShard)))
}

// BandwidthCostPerIO returns the bytes charged per generic IO operation.
func (s *Scheduler) BandwidthCostPerIO() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bandwidthCostPerIO
}

// BandwidthCapacityPerShard returns this shard's slice of the device
// bandwidth, in bytes per second.
func (s *Scheduler) BandwidthCapacityPerShard() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bandwidthCapacityPerShard
}
