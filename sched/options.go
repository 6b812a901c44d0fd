package sched

import (
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Options is the YAML-loadable option file shape. Nil pointer fields mean
// "not set" and leave the corresponding key at its default; set fields
// become explicit configuration values.
type Options struct {
	Profile *string `yaml:"profile"`

	ClientRes     *float64 `yaml:"client_res"`
	ClientWgt     *uint64  `yaml:"client_wgt"`
	ClientLim     *float64 `yaml:"client_lim"`
	RecoveryRes   *float64 `yaml:"background_recovery_res"`
	RecoveryWgt   *uint64  `yaml:"background_recovery_wgt"`
	RecoveryLim   *float64 `yaml:"background_recovery_lim"`
	BestEffortRes *float64 `yaml:"background_best_effort_res"`
	BestEffortWgt *uint64  `yaml:"background_best_effort_wgt"`
	BestEffortLim *float64 `yaml:"background_best_effort_lim"`

	CapacityIopsHDD *float64 `yaml:"max_capacity_iops_hdd"`
	CapacityIopsSSD *float64 `yaml:"max_capacity_iops_ssd"`
	BandwidthHDD    *uint64  `yaml:"max_sequential_bandwidth_hdd"`
	BandwidthSSD    *uint64  `yaml:"max_sequential_bandwidth_ssd"`
}

// LoadOptions reads and parses a YAML option file.
func LoadOptions(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading option file")
	}
	var opts Options
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return nil, errors.Wrap(err, "parsing option file")
	}
	return &opts, nil
}

// Apply writes the set fields into conf as explicit values and applies the
// batch.
func (o *Options) Apply(conf *Config) {
	setF := func(key string, v *float64) {
		if v != nil {
			conf.Set(key, *v)
		}
	}
	setU := func(key string, v *uint64) {
		if v != nil {
			conf.Set(key, *v)
		}
	}
	if o.Profile != nil {
		conf.Set(KeyProfile, *o.Profile)
	}
	setF(KeyClientRes, o.ClientRes)
	setU(KeyClientWgt, o.ClientWgt)
	setF(KeyClientLim, o.ClientLim)
	setF(KeyRecoveryRes, o.RecoveryRes)
	setU(KeyRecoveryWgt, o.RecoveryWgt)
	setF(KeyRecoveryLim, o.RecoveryLim)
	setF(KeyBestEffortRes, o.BestEffortRes)
	setU(KeyBestEffortWgt, o.BestEffortWgt)
	setF(KeyBestEffortLim, o.BestEffortLim)
	setF(KeyCapacityIopsHDD, o.CapacityIopsHDD)
	setF(KeyCapacityIopsSSD, o.CapacityIopsSSD)
	setU(KeyBandwidthHDD, o.BandwidthHDD)
	setU(KeyBandwidthSSD, o.BandwidthSSD)
	conf.ApplyChanges()
}
