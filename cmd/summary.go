package cmd

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/mclock-sched/mclock-sched/sched"
)

// summary accumulates per-class dequeue latencies for end-of-run reporting.
type summary struct {
	latencies map[sched.SchedulingClass][]float64 // seconds
	order     []sched.SchedulingClass
}

func newSummary() *summary {
	return &summary{
		latencies: make(map[sched.SchedulingClass][]float64),
		order: []sched.SchedulingClass{
			sched.ClassImmediate,
			sched.ClassClient,
			sched.ClassBackgroundRecovery,
			sched.ClassBackgroundBestEffort,
		},
	}
}

func (s *summary) record(class sched.SchedulingClass, latency time.Duration) {
	s.latencies[class] = append(s.latencies[class], latency.Seconds())
}

// print reports count, mean, and tail quantiles per class.
func (s *summary) print() {
	fmt.Println("=== Dequeue Summary ===")
	for _, class := range s.order {
		lats := s.latencies[class]
		if len(lats) == 0 {
			continue
		}
		sort.Float64s(lats)
		mean := stat.Mean(lats, nil)
		p50 := stat.Quantile(0.50, stat.Empirical, lats, nil)
		p99 := stat.Quantile(0.99, stat.Empirical, lats, nil)
		fmt.Printf("%-24s ops %6d  mean %8.3fms  p50 %8.3fms  p99 %8.3fms\n",
			class, len(lats), mean*1e3, p50*1e3, p99*1e3)
	}
}
