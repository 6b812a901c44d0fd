package cmd

import (
	"os"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mclock-sched/mclock-sched/sched"
	"github.com/mclock-sched/mclock-sched/sched/workload"
)

var (
	// CLI flags for the shard under test
	logLevel    string  // Log verbosity level
	optionsFile string  // Optional YAML option file
	profile     string  // mclock profile selection
	numShards   uint32  // Number of shards the node's capacity is split across
	rotational  bool    // Device type: rotational selects the HDD capacity pair
	seed        int64   // Seed for workload generation
	numOps      int     // Number of operations to generate
	numClients  int     // Number of distinct external client identities
	costMean    float64 // Mean abstract op cost
	mixClient   float64 // Relative share of client ops
	mixRecovery float64 // Relative share of background recovery ops
	mixBest     float64 // Relative share of background best-effort ops
	mixImm      float64 // Relative share of immediate ops
	dumpState   bool    // Print the introspection dump after the run
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "mclock-sched",
	Short: "Per-shard mClock QoS scheduler for storage-node IO",
}

// runCmd drives a synthetic mixed-class workload through one scheduler
// shard and reports per-class dequeue statistics.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a synthetic workload through one scheduler shard",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		conf := sched.DefaultConfig()
		if optionsFile != "" {
			opts, err := sched.LoadOptions(optionsFile)
			if err != nil {
				logrus.Fatalf("unable to read option file: %v", err)
			}
			opts.Apply(conf)
		}
		if profile != "" {
			conf.Set(sched.KeyProfile, profile)
			conf.ApplyChanges()
		}

		s := sched.New(conf, 0, numShards, 0, rotational, nil)
		defer s.Close()

		logrus.Infof("shard capacity: %s/s, cost per io: %.0f bytes, profile: %s",
			humanize.Bytes(uint64(s.BandwidthCapacityPerShard())),
			s.BandwidthCostPerIO(), s.Profile())

		mix := workload.Mix{
			Client:     mixClient,
			Recovery:   mixRecovery,
			BestEffort: mixBest,
			Immediate:  mixImm,
		}
		gen := workload.NewGenerator(seed, mix, costMean, numClients)

		enqueued := make(map[string]time.Time, numOps)
		classOf := make(map[string]sched.SchedulingClass, numOps)
		for i := 0; i < numOps; i++ {
			op := gen.Next()
			enqueued[op.ID] = time.Now()
			classOf[op.ID] = op.Class
			s.Enqueue(op)
		}

		summary := newSummary()
		for !s.Empty() {
			res := s.Dequeue()
			if res.Item == nil {
				// The earliest candidate is reservation- or limit-blocked
				// until NextReady; idle until then.
				time.Sleep(time.Until(res.NextReady))
				continue
			}
			op := res.Item.(*workload.Op)
			summary.record(classOf[op.ID], time.Since(enqueued[op.ID]))
		}
		summary.print()

		if dumpState {
			if err := s.Dump(os.Stdout); err != nil {
				logrus.Fatalf("dump failed: %v", err)
			}
		}
	},
}

func init() {
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "log verbosity (debug, info, warn, error)")
	runCmd.Flags().StringVar(&optionsFile, "options", "", "YAML option file")
	runCmd.Flags().StringVar(&profile, "profile", "", "mclock profile (custom, balanced, high_recovery_ops, high_client_ops)")
	runCmd.Flags().Uint32Var(&numShards, "shards", 1, "number of shards the node capacity is split across")
	runCmd.Flags().BoolVar(&rotational, "rotational", false, "treat the device as rotational (HDD capacity keys)")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "workload generation seed")
	runCmd.Flags().IntVar(&numOps, "ops", 1000, "number of operations")
	runCmd.Flags().IntVar(&numClients, "clients", 4, "distinct external client identities")
	runCmd.Flags().Float64Var(&costMean, "cost-mean", 4096, "mean abstract op cost")
	runCmd.Flags().Float64Var(&mixClient, "mix-client", 0.6, "relative share of client ops")
	runCmd.Flags().Float64Var(&mixRecovery, "mix-recovery", 0.25, "relative share of background recovery ops")
	runCmd.Flags().Float64Var(&mixBest, "mix-best-effort", 0.1, "relative share of background best-effort ops")
	runCmd.Flags().Float64Var(&mixImm, "mix-immediate", 0.05, "relative share of immediate ops")
	runCmd.Flags().BoolVar(&dumpState, "dump", false, "print the introspection dump after the run")

	rootCmd.AddCommand(runCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
