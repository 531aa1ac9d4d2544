package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mercator-hq/relay/pkg/cli"
	"mercator-hq/relay/pkg/providerfactory"
)

var providersFlags struct {
	timeout time.Duration
	format  string
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Inspect upstream providers",
}

var providersCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe every pooled provider",
	Long: `Run one health check against every provider in the primary and
fallback pools and print the result. The command fails when any provider
is unreachable.

Examples:
  relay providers check
  relay providers check --timeout 5s --format json`,
	RunE: checkProviders,
}

func init() {
	rootCmd.AddCommand(providersCmd)
	providersCmd.AddCommand(providersCheckCmd)

	providersCheckCmd.Flags().DurationVar(&providersFlags.timeout, "timeout", 10*time.Second, "timeout per provider")
	providersCheckCmd.Flags().StringVar(&providersFlags.format, "format", "text", "output format: text, json, csv")
}

// checkResult is the outcome of one provider probe.
type checkResult struct {
	Provider string        `json:"provider"`
	Type     string        `json:"type"`
	Healthy  bool          `json:"healthy"`
	Latency  time.Duration `json:"latency"`
	Error    string        `json:"error,omitempty"`
}

type checkTable []checkResult

func (t checkTable) Headers() []string {
	return []string{"PROVIDER", "TYPE", "STATUS", "LATENCY", "ERROR"}
}

func (t checkTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, r := range t {
		status := "healthy"
		if !r.Healthy {
			status = "unhealthy"
		}
		rows = append(rows, []string{r.Provider, r.Type, status, r.Latency.Round(time.Millisecond).String(), r.Error})
	}
	return rows
}

func (t checkTable) unhealthy() int {
	n := 0
	for _, r := range t {
		if !r.Healthy {
			n++
		}
	}
	return n
}

func checkProviders(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(providersFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	names := cfg.Routing.PoolMembers()
	results := make(checkTable, len(names))
	progress := cli.NewProgressReporter(cmd.ErrOrStderr(), "Checking providers")
	progress.Start(int64(len(names)))

	var done atomicCounter
	g, ctx := errgroup.WithContext(cmd.Context())
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			results[i] = probe(ctx, name, providerfactory.FromConfig(name, cfg.Providers[name]))
			progress.Update(done.inc())
			return nil
		})
	}
	_ = g.Wait()
	progress.Finish()

	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), results); err != nil {
		return err
	}
	if n := results.unhealthy(); n > 0 {
		return cli.NewCommandError("providers check", fmt.Errorf("%d of %d providers unhealthy", n, len(results)))
	}
	return nil
}
