// qgate submits quantum-circuit jobs to a remote gateway and polls for
// their results.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/qgate-dev/qgate/internal/client"
	"github.com/qgate-dev/qgate/internal/config"
	"github.com/qgate-dev/qgate/internal/model"
	"github.com/qgate-dev/qgate/internal/store"
)

const (
	defaultRunAttempts      = 100
	defaultRetrieveAttempts = 3000
	defaultInterval         = time.Second
)

// Flags shared by all subcommands. Per-command flags (attempts,
// interval, circuit) live in the command constructors so one command's
// default cannot clobber another's.
var (
	flagDevice  string
	flagToken   string
	flagVerbose bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "qgate",
		Short: "Submit quantum-circuit jobs to a remote gateway",
		Long: `qgate talks to a remote quantum execution gateway: it lists the known
devices, submits circuits, and polls for measurement samples.

The device catalog is static; a listed device is not guaranteed to be up.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flagDevice, "device", "simulator", "target device name")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "gateway token (falls back to QGATE_TOKEN, then a prompt)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newDevicesCmd(), newRunCmd(), newRetrieveCmd(), newJobsCmd())
	return rootCmd
}

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List known devices and their qubit capacity",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, _ := clientOptions()
			devices, err := client.ListDevices(opts)
			if err != nil {
				return err
			}

			names := make([]string, 0, len(devices))
			for name := range devices {
				names = append(names, name)
			}
			sort.Strings(names)

			fmt.Printf("%-20s %7s  %s\n", "NAME", "QUBITS", "VERSION")
			for _, name := range names {
				d := devices[name]
				fmt.Printf("%-20s %7d  %s\n", d.Name, d.MaxQubits, d.Version)
			}
			fmt.Println("\nnote: the catalog is static and does not reflect live device health")
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	var (
		circuitPath string
		qubits      int
		shots       int
		attempts    int
		interval    time.Duration
	)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Submit a circuit and wait for its samples",
		RunE: func(cmd *cobra.Command, args []string) error {
			circuit, err := readCircuit(circuitPath)
			if err != nil {
				return err
			}

			opts, cfg := clientOptions()
			journal, err := openJournal(cfg)
			if err != nil {
				return err
			}
			if journal != nil {
				defer journal.Close()
			}

			job := model.JobRequest{Circuit: circuit, Qubits: qubits, Shots: shots}
			samples, err := client.RunJob(context.Background(), opts, journal, job,
				flagDevice, token(cfg), attempts, interval)
			if err != nil {
				return err
			}
			if samples == nil {
				fmt.Fprintln(os.Stderr, "no result (see log output above)")
				return nil
			}

			printSamples(samples)
			return nil
		},
	}

	runCmd.Flags().StringVar(&circuitPath, "circuit", "-", "circuit file, or - for stdin")
	runCmd.Flags().IntVar(&qubits, "qubits", 0, "number of qubits the circuit needs")
	runCmd.Flags().IntVar(&shots, "shots", 100, "number of repetitions to request")
	runCmd.Flags().IntVar(&attempts, "attempts", defaultRunAttempts, "maximum poll attempts")
	runCmd.Flags().DurationVar(&interval, "interval", defaultInterval, "delay between poll attempts")
	runCmd.MarkFlagRequired("qubits")
	return runCmd
}

func newRetrieveCmd() *cobra.Command {
	var (
		attempts int
		interval time.Duration
	)

	retrieveCmd := &cobra.Command{
		Use:   "retrieve <execution-id>",
		Short: "Poll an existing execution id for its samples",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, cfg := clientOptions()
			samples, err := client.RetrieveJob(context.Background(), opts,
				flagDevice, token(cfg), args[0], attempts, interval)
			if err != nil {
				return err
			}
			printSamples(samples)
			return nil
		},
	}

	retrieveCmd.Flags().IntVar(&attempts, "attempts", defaultRetrieveAttempts, "maximum poll attempts")
	retrieveCmd.Flags().DurationVar(&interval, "interval", defaultInterval, "delay between poll attempts")
	return retrieveCmd
}

func newJobsCmd() *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "List locally journaled submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			journal, err := openJournal(cfg)
			if err != nil {
				return err
			}
			if journal == nil {
				return fmt.Errorf("journal is disabled (QGATE_JOURNAL_PATH=off)")
			}
			defer journal.Close()

			jobs, total, err := journal.ListJobs(context.Background(), 50, 0)
			if err != nil {
				return err
			}

			fmt.Printf("%-26s %-16s %-12s %6s %6s  %s\n", "EXECUTION ID", "DEVICE", "STATUS", "QUBITS", "SHOTS", "SUBMITTED")
			for _, j := range jobs {
				fmt.Printf("%-26s %-16s %-12s %6d %6d  %s\n",
					j.ID, j.Device, j.Status, j.Qubits, j.Shots,
					j.CreatedAt.Local().Format(time.RFC3339))
			}
			if total > len(jobs) {
				fmt.Printf("\n(%d of %d shown)\n", len(jobs), total)
			}
			return nil
		},
	}
	return jobsCmd
}

// clientOptions builds client options from the environment config and
// the verbose flag.
func clientOptions() (client.Options, config.Config) {
	cfg := config.Load()
	level := cfg.LogLevel
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger := config.NewLogger(os.Stderr, level)

	return client.Options{
		BaseURL: cfg.GatewayURL,
		Timeout: cfg.HTTPTimeout,
		Logger:  logger,
	}, cfg
}

// token resolves the gateway token: flag first, then environment. An
// empty result makes the client prompt interactively.
func token(cfg config.Config) string {
	if flagToken != "" {
		return flagToken
	}
	return cfg.Token
}

// openJournal opens the local submission journal, or returns nil when
// it is disabled.
func openJournal(cfg config.Config) (store.Store, error) {
	if cfg.JournalPath == "" {
		return nil, nil
	}
	s, err := store.NewSQLiteStore(cfg.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return s, nil
}

// readCircuit loads the circuit representation from a file or stdin.
// The contents are opaque to this tool.
func readCircuit(path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read circuit from stdin: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read circuit file: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func printSamples(samples []int) {
	out := make([]string, len(samples))
	for i, s := range samples {
		out[i] = fmt.Sprintf("%d", s)
	}
	fmt.Println(strings.Join(out, " "))
}
