// Configuration store for the scheduler: typed key/value access with a
// default layer, batched change application, and observer notification.
//
// The store is an injected handle, not process-global state. Each scheduler
// shard holds the same *Config; whoever mutates it publishes through
// Set/SetDefault followed by ApplyChanges, and consumers read the latest
// values through the typed getters.

package sched

import (
	"fmt"
	"sync"
)

// Tracked configuration keys. The names are wire-compatible with the
// original deployment's option schema and must not change.
const (
	KeyClientRes     = "osd_mclock_scheduler_client_res"
	KeyClientWgt     = "osd_mclock_scheduler_client_wgt"
	KeyClientLim     = "osd_mclock_scheduler_client_lim"
	KeyRecoveryRes   = "osd_mclock_scheduler_background_recovery_res"
	KeyRecoveryWgt   = "osd_mclock_scheduler_background_recovery_wgt"
	KeyRecoveryLim   = "osd_mclock_scheduler_background_recovery_lim"
	KeyBestEffortRes = "osd_mclock_scheduler_background_best_effort_res"
	KeyBestEffortWgt = "osd_mclock_scheduler_background_best_effort_wgt"
	KeyBestEffortLim = "osd_mclock_scheduler_background_best_effort_lim"

	KeyCapacityIopsHDD    = "osd_mclock_max_capacity_iops_hdd"
	KeyCapacityIopsSSD    = "osd_mclock_max_capacity_iops_ssd"
	KeyBandwidthHDD       = "osd_mclock_max_sequential_bandwidth_hdd"
	KeyBandwidthSSD       = "osd_mclock_max_sequential_bandwidth_ssd"
	KeyProfile            = "osd_mclock_profile"
	KeyAnticipationWindow = "osd_mclock_scheduler_anticipation_timeout"
)

// Observer receives batched change notifications after ApplyChanges. Only
// keys listed by TrackedKeys are delivered.
type Observer interface {
	TrackedKeys() []string
	HandleConfChange(conf *Config, changed map[string]struct{})
}

// Config is a mutex-guarded key/value store with an explicit layer over a
// default layer. Reads see the explicit value if one exists, else the
// default. Safe for concurrent use.
type Config struct {
	mu        sync.Mutex
	values    map[string]any
	defaults  map[string]any
	pending   map[string]struct{}
	observers []Observer
	version   uint64
	notifying bool
}

// DefaultConfig returns a Config seeded with the stock defaults: balanced
// profile, zero QoS fractions (profile-managed), and conservative HDD/SSD
// capacity figures.
func DefaultConfig() *Config {
	c := &Config{
		values:   make(map[string]any),
		defaults: make(map[string]any),
		pending:  make(map[string]struct{}),
	}
	c.defaults[KeyClientRes] = 0.0
	c.defaults[KeyClientWgt] = uint64(1)
	c.defaults[KeyClientLim] = 0.0
	c.defaults[KeyRecoveryRes] = 0.0
	c.defaults[KeyRecoveryWgt] = uint64(1)
	c.defaults[KeyRecoveryLim] = 0.0
	c.defaults[KeyBestEffortRes] = 0.0
	c.defaults[KeyBestEffortWgt] = uint64(1)
	c.defaults[KeyBestEffortLim] = 0.0
	c.defaults[KeyCapacityIopsHDD] = 315.0
	c.defaults[KeyCapacityIopsSSD] = 21500.0
	c.defaults[KeyBandwidthHDD] = uint64(150 * 1024 * 1024)
	c.defaults[KeyBandwidthSSD] = uint64(1200 * 1024 * 1024)
	c.defaults[KeyProfile] = string(ProfileBalanced)
	c.defaults[KeyAnticipationWindow] = 0.0
	return c
}

func (c *Config) lookup(key string) any {
	if v, ok := c.values[key]; ok {
		return v
	}
	if v, ok := c.defaults[key]; ok {
		return v
	}
	panic(fmt.Sprintf("config: unknown key %q", key))
}

// GetFloat returns the effective float64 value of key. Panics if the key is
// unknown or holds another type; both indicate a schema bug.
func (c *Config) GetFloat(key string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lookup(key).(float64)
	if !ok {
		panic(fmt.Sprintf("config: key %q is not a float", key))
	}
	return v
}

// GetUint returns the effective uint64 value of key.
func (c *Config) GetUint(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lookup(key).(uint64)
	if !ok {
		panic(fmt.Sprintf("config: key %q is not a uint", key))
	}
	return v
}

// GetString returns the effective string value of key.
func (c *Config) GetString(key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lookup(key).(string)
	if !ok {
		panic(fmt.Sprintf("config: key %q is not a string", key))
	}
	return v
}

// Set records an explicit value for key. The change is pending until
// ApplyChanges publishes it to observers.
func (c *Config) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	c.pending[key] = struct{}{}
}

// SetDefault records a default value for key. If an explicit value exists
// the default is stored but the effective value is unchanged; the key is
// marked pending only when the effective value moved.
func (c *Config) SetDefault(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, explicit := c.values[key]; explicit {
		c.defaults[key] = value
		return
	}
	if prev, ok := c.defaults[key]; ok && prev == value {
		return
	}
	c.defaults[key] = value
	c.pending[key] = struct{}{}
}

// Remove drops the explicit value for key, reverting reads to the default.
func (c *Config) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.values[key]; !ok {
		return
	}
	delete(c.values, key)
	c.pending[key] = struct{}{}
}

// ApplyChanges publishes pending changes: bumps the version and delivers the
// changed-key batch to each observer tracking at least one of them.
//
// Observers may mutate the store and call ApplyChanges again from inside
// HandleConfChange (the profile write-back path does). Re-entrant calls
// return immediately; the outermost call keeps draining until no changes
// are pending.
func (c *Config) ApplyChanges() {
	c.mu.Lock()
	if c.notifying {
		c.mu.Unlock()
		return
	}
	c.notifying = true
	for len(c.pending) > 0 {
		changed := c.pending
		c.pending = make(map[string]struct{})
		c.version++
		observers := make([]Observer, len(c.observers))
		copy(observers, c.observers)
		c.mu.Unlock()

		// Deliver outside the lock: handlers read back through the getters.
		for _, o := range observers {
			batch := make(map[string]struct{})
			for _, k := range o.TrackedKeys() {
				if _, ok := changed[k]; ok {
					batch[k] = struct{}{}
				}
			}
			if len(batch) > 0 {
				o.HandleConfChange(c, batch)
			}
		}
		c.mu.Lock()
	}
	c.notifying = false
	c.mu.Unlock()
}

// Version returns the number of applied change batches.
func (c *Config) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// AddObserver registers o for change notification.
func (c *Config) AddObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// RemoveObserver unregisters o.
func (c *Config) RemoveObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, cur := range c.observers {
		if cur == o {
			c.observers = append(c.observers[:i], c.observers[i+1:]...)
			return
		}
	}
}
