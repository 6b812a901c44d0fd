// Package sched implements the per-shard QoS scheduler of a storage node's
// IO path: it decides, for each dequeue, which pending operation (client IO,
// background recovery IO, or background best-effort IO) is admitted next,
// enforcing per-class reservation, limit, and weight expressed as fractions
// of the node's measured capacity.
//
// # Reading Guide
//
// Start with these three files:
//   - scheduler.go: the facade — immediate bypass lane, cost scaling,
//     enqueue/dequeue, introspection dump
//   - registry.go: per-class and per-client QoS parameter derivation
//   - confchange.go: the live-reconfiguration state machine, including the
//     distributed override-removal protocol
//
// # Architecture
//
// The tag-ordered queue discipline lives in the sched/dmclock sub-package
// behind a resolve callback; the scheduler only arbitrates between its
// strict-FIFO immediate lane and that queue. Configuration is an injected
// *Config store: mutations publish through Set/SetDefault + ApplyChanges,
// and each scheduler shard reacts to change batches as an Observer. One
// Scheduler exists per shard; shard 0 alone writes profile-derived defaults
// back to the shared configuration.
package sched
