package sched

// Shared helpers for the sched package tests.

type testItem struct {
	name string
	id   SchedulerID
	cost int64
	qos  uint64
}

func (t *testItem) SchedulerID() SchedulerID { return t.id }
func (t *testItem) Cost() int64              { return t.cost }
func (t *testItem) SetQoSCost(cost uint64)   { t.qos = cost }
func (t *testItem) QoSCost() uint64          { return t.qos }

func immediateItem(name string) *testItem {
	return &testItem{name: name, id: SchedulerID{Class: ClassImmediate}, cost: 1}
}

func clientItem(name string, profile ClientProfileID, cost int64) *testItem {
	return &testItem{
		name: name,
		id:   SchedulerID{Class: ClassClient, Profile: profile},
		cost: cost,
	}
}

func classItem(name string, class SchedulingClass, cost int64) *testItem {
	return &testItem{name: name, id: SchedulerID{Class: class}, cost: cost}
}

// testConfig seeds the capacity scenario used across tests: 200 MB/s SSD
// bandwidth at 100 iops, which derives a 2,000,000 byte cost per IO.
func testConfig() *Config {
	conf := DefaultConfig()
	conf.Set(KeyBandwidthSSD, uint64(200_000_000))
	conf.Set(KeyCapacityIopsSSD, 100.0)
	conf.ApplyChanges()
	return conf
}

// commandRecorder captures fire-and-forget control-plane submissions.
type commandRecorder struct {
	cmds []string
}

func (c *commandRecorder) SubmitCommand(cmd string) {
	c.cmds = append(c.cmds, cmd)
}
