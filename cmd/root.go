package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bambielli/simhelpers/sim/debug"
	"github.com/bambielli/simhelpers/sim/metrics"
	"github.com/bambielli/simhelpers/sim/workload"
)

var (
	scenarioPath    string  // YAML scenario file
	seed            int64   // Overrides the scenario seed
	horizon         float64 // Overrides the scenario horizon
	sampleFrequency float64 // Overrides the scenario sample frequency
	logLevel        string  // Log verbosity level
	debugEnabled    bool    // Entity lifecycle diagnostics
	metricsOut      string  // Where to write the metrics snapshot, "-" for stdout
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "simhelpers",
	Short: "Statistics and bookkeeping for discrete-event queueing simulations",
}

// runCmd executes the scenario named by --scenario
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a queueing scenario and print its statistics",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
		debug.SetEnabled(debugEnabled)

		if scenarioPath == "" {
			logrus.Fatalf("Scenario not provided. Exiting simulation.")
		}
		s, err := workload.LoadScenario(scenarioPath)
		if err != nil {
			logrus.Fatalf("unable to read scenario; %v", err)
		}
		applyOverrides(cmd, s)
		if err := s.Validate(); err != nil {
			logrus.Fatalf("invalid scenario %s: %v", scenarioPath, err)
		}

		var collector *metrics.Collector
		if metricsOut != "" {
			if collector, err = metrics.NewCollector(prometheus.NewRegistry()); err != nil {
				logrus.Fatalf("unable to set up metrics: %v", err)
			}
		}

		logrus.Infof("Running scenario %s (seed=%d, horizon=%v)", scenarioPath, s.Seed, s.Horizon)
		report, err := runScenario(s, collector)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := report.Print(os.Stdout); err != nil {
			logrus.Fatalf("unable to print report: %v", err)
		}
		if collector != nil {
			if err := writeMetrics(collector, metricsOut); err != nil {
				logrus.Fatalf("unable to write metrics: %v", err)
			}
		}
		logrus.Info("Simulation complete.")
	},
}

// applyOverrides replaces scenario settings with the flags set explicitly.
func applyOverrides(cmd *cobra.Command, s *workload.Scenario) {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		s.Seed = seed
	}
	if flags.Changed("horizon") {
		s.Horizon = horizon
	}
	if flags.Changed("sample-frequency") {
		s.SampleFrequency = sampleFrequency
	}
}

func writeMetrics(c *metrics.Collector, path string) error {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}
	return c.WriteSnapshot(w)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Path to the YAML scenario file")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for the random streams (overrides the scenario)")
	runCmd.Flags().Float64Var(&horizon, "horizon", 0, "Simulated time to stop at, 0 to run until idle (overrides the scenario)")
	runCmd.Flags().Float64Var(&sampleFrequency, "sample-frequency", 1, "Time series resolution: 0.01, 0.1 or 1 (overrides the scenario)")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().BoolVar(&debugEnabled, "debug", false, "Log every entity request, start, finish and disposal")
	runCmd.Flags().StringVar(&metricsOut, "metrics", "", "Write a Prometheus metrics snapshot to this file, - for stdout")

	rootCmd.AddCommand(runCmd)
}
