package cmd

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/hybrid-des/internal/config"
	"github.com/inference-sim/hybrid-des/internal/coordinator"
	"github.com/inference-sim/hybrid-des/internal/deserr"
	"github.com/inference-sim/hybrid-des/internal/dispatcher"
	"github.com/inference-sim/hybrid-des/internal/event"
	"github.com/inference-sim/hybrid-des/internal/metrics"
	"github.com/inference-sim/hybrid-des/internal/scheduler"
	"github.com/inference-sim/hybrid-des/internal/transport"
)

var (
	rank          int
	size          int
	topologyPath  string
	maxThreads    int
	minLookahead  int64
	schedulerType string
	logLevel      string
	transportMode string
	peers         []string
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "hybrid-des",
	Short: "Hybrid parallel discrete-event simulation core",
}

// runCmd wires a rank's topology, dispatcher and transport into a
// coordinator.Coordinator and runs it to completion.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run this process's rank of the simulation",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		topo, err := config.LoadTopology(topologyPath)
		if err != nil {
			logrus.Fatalf("unable to load topology %s: %v", topologyPath, err)
		}

		kind := scheduler.KindHeap
		if schedulerType == "map" {
			kind = scheduler.KindMap
		}

		disp := dispatcher.New(maxThreads, kind, minLookahead)

		tr, err := buildTransport()
		if err != nil {
			logrus.Fatalf("unable to start transport: %v", err)
		}

		startTime := time.Now()

		c := &coordinator.Coordinator{
			Topo:          topo,
			Dispatcher:    disp,
			Transport:     tr,
			Rank:          uint16(rank),
			MinLookahead:  minLookahead,
			SchedulerKind: kind,
			DecodePayload: func(data []byte) event.Payload {
				return func() {
					logrus.Debugf("rank %d: delivered %d byte payload", rank, len(data))
				}
			},
		}

		if err := c.Run(); err != nil {
			logrus.Errorf("simulation aborted: %v", err)
			os.Exit(deserr.ExitCode(err))
		}

		report := metrics.Report{
			Rounds:      c.Rounds(),
			Events:      disp.TotalEventCount(),
			RxCount:     tr.RxCount(),
			TxCount:     tr.TxCount(),
			DurationSec: time.Since(startTime).Seconds(),
		}
		report.Print(uint16(rank))

		if err := tr.Close(); err != nil {
			logrus.Warnf("transport close: %v", err)
		}
	},
}

func buildTransport() (transport.Transport, error) {
	switch transportMode {
	case "local":
		fabric := transport.NewLocalFabric(size)
		return transport.NewLocalTransport(fabric, uint16(rank)), nil
	case "tcp":
		return transport.NewTCPTransport(uint16(rank), size, peers)
	default:
		logrus.Fatalf("unknown transport mode %q (want local or tcp)", transportMode)
		return nil, nil
	}
}

// Execute runs the CLI root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	runCmd.Flags().IntVar(&rank, "rank", 0, "this process's rank")
	runCmd.Flags().IntVar(&size, "size", 1, "total number of ranks")
	runCmd.Flags().StringVar(&topologyPath, "topology", "", "path to the topology YAML file")
	runCmd.Flags().IntVar(&maxThreads, "max-threads", 0, "worker pool size (0 = number of CPUs)")
	runCmd.Flags().Int64Var(&minLookahead, "min-lookahead", 1, "minimum cross-LP lookahead in ticks (0 = auto median)")
	runCmd.Flags().StringVar(&schedulerType, "scheduler-type", "heap", "per-LP scheduler backend (heap or map)")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&transportMode, "transport", "local", "cross-rank transport (local or tcp)")
	runCmd.Flags().StringSliceVar(&peers, "peers", nil, "comma-separated host:port list, one per rank, for tcp transport")

	rootCmd.AddCommand(runCmd)
}
