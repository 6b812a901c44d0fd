package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keyRecorder is an Observer capturing delivered change batches.
type keyRecorder struct {
	tracked []string
	batches []map[string]struct{}
}

func (r *keyRecorder) TrackedKeys() []string { return r.tracked }

func (r *keyRecorder) HandleConfChange(_ *Config, changed map[string]struct{}) {
	r.batches = append(r.batches, changed)
}

func TestConfig_DefaultsAreReadable(t *testing.T) {
	conf := DefaultConfig()
	assert.Equal(t, 0.0, conf.GetFloat(KeyClientRes))
	assert.Equal(t, uint64(1), conf.GetUint(KeyClientWgt))
	assert.Equal(t, string(ProfileBalanced), conf.GetString(KeyProfile))
}

func TestConfig_UnknownKeyPanics(t *testing.T) {
	conf := DefaultConfig()
	assert.Panics(t, func() { conf.GetFloat("no_such_key") })
}

func TestConfig_WrongTypePanics(t *testing.T) {
	conf := DefaultConfig()
	assert.Panics(t, func() { conf.GetUint(KeyClientRes) })
}

func TestConfig_SetDefaultKeepsExplicitValue(t *testing.T) {
	// GIVEN an explicit value
	conf := DefaultConfig()
	conf.Set(KeyClientRes, 0.25)

	// WHEN a default is written underneath it
	conf.SetDefault(KeyClientRes, 0.4)

	// THEN the explicit value still wins
	assert.Equal(t, 0.25, conf.GetFloat(KeyClientRes))

	// AND removing the explicit value reveals the new default
	conf.Remove(KeyClientRes)
	assert.Equal(t, 0.4, conf.GetFloat(KeyClientRes))
}

func TestConfig_ApplyChangesFiltersByTrackedKeys(t *testing.T) {
	conf := DefaultConfig()
	resWatcher := &keyRecorder{tracked: []string{KeyClientRes}}
	wgtWatcher := &keyRecorder{tracked: []string{KeyClientWgt}}
	conf.AddObserver(resWatcher)
	conf.AddObserver(wgtWatcher)

	conf.Set(KeyClientRes, 0.5)
	conf.ApplyChanges()

	require.Len(t, resWatcher.batches, 1)
	assert.Contains(t, resWatcher.batches[0], KeyClientRes)
	assert.Empty(t, wgtWatcher.batches)
}

func TestConfig_ApplyChangesIsBatched(t *testing.T) {
	conf := DefaultConfig()
	watcher := &keyRecorder{tracked: []string{KeyClientRes, KeyClientLim}}
	conf.AddObserver(watcher)

	conf.Set(KeyClientRes, 0.5)
	conf.Set(KeyClientLim, 0.9)
	conf.ApplyChanges()

	require.Len(t, watcher.batches, 1)
	assert.Len(t, watcher.batches[0], 2)
	assert.Equal(t, uint64(1), conf.Version())
}

func TestConfig_RemoveObserverStopsDelivery(t *testing.T) {
	conf := DefaultConfig()
	watcher := &keyRecorder{tracked: []string{KeyClientRes}}
	conf.AddObserver(watcher)
	conf.RemoveObserver(watcher)

	conf.Set(KeyClientRes, 0.5)
	conf.ApplyChanges()

	assert.Empty(t, watcher.batches)
}

func TestConfig_RedundantSetDefaultIsNotAChange(t *testing.T) {
	conf := DefaultConfig()
	watcher := &keyRecorder{tracked: []string{KeyClientRes}}
	conf.AddObserver(watcher)

	conf.SetDefault(KeyClientRes, 0.0) // stock default already
	conf.ApplyChanges()

	assert.Empty(t, watcher.batches)
	assert.Equal(t, uint64(0), conf.Version())
}
