package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/relay/pkg/audit"
	"mercator-hq/relay/pkg/audit/storage"
	"mercator-hq/relay/pkg/cli"
)

var attemptsFlags struct {
	requestID string
	provider  string
	outcome   string
	since     string
	until     string
	limit     int
	offset    int
	format    string
}

var attemptsCmd = &cobra.Command{
	Use:   "attempts",
	Short: "Query recorded orchestrations",
	Long: `Query the audit store written by a running gateway.

Only persistent backends can be queried from the command line; the memory
backend lives inside the gateway process and is served on /api/attempts.`,
}

var attemptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded orchestrations, newest first",
	Long: `List recorded orchestrations, newest first.

--since and --until accept RFC 3339 timestamps or a duration relative to
now such as 24h.

Examples:
  relay attempts list --outcome failure
  relay attempts list --provider blackbox --since 1h --format json
  relay attempts list --request-id 550e8400-e29b-41d4-a716-446655440000`,
	RunE: listAttempts,
}

var attemptsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize attempt outcomes per provider",
	Long: `Summarize attempt outcomes per provider.

Examples:
  relay attempts summary --since 24h
  relay attempts summary --format csv`,
	RunE: summarizeAttempts,
}

func init() {
	rootCmd.AddCommand(attemptsCmd)
	attemptsCmd.AddCommand(attemptsListCmd, attemptsSummaryCmd)

	attemptsCmd.PersistentFlags().StringVar(&attemptsFlags.since, "since", "", "only records at or after this time (RFC 3339 or duration)")
	attemptsCmd.PersistentFlags().StringVar(&attemptsFlags.format, "format", "text", "output format: text, json, csv")

	attemptsListCmd.Flags().StringVar(&attemptsFlags.requestID, "request-id", "", "filter by request ID")
	attemptsListCmd.Flags().StringVar(&attemptsFlags.provider, "provider", "", "filter by provider")
	attemptsListCmd.Flags().StringVar(&attemptsFlags.outcome, "outcome", "", "filter by outcome: success, failure")
	attemptsListCmd.Flags().StringVar(&attemptsFlags.until, "until", "", "only records at or before this time (RFC 3339 or duration)")
	attemptsListCmd.Flags().IntVar(&attemptsFlags.limit, "limit", audit.DefaultQueryLimit, "maximum number of records")
	attemptsListCmd.Flags().IntVar(&attemptsFlags.offset, "offset", 0, "number of records to skip")
}

// parseTime accepts an RFC 3339 timestamp or a duration back from now.
// An empty value yields nil.
func parseTime(value string, now time.Time) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		t := now.Add(-d)
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid time %q: want RFC 3339 or a duration such as 24h", value)
	}
	return &t, nil
}

func openAuditStore() (audit.Storage, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Audit.Backend == storage.BackendMemory {
		return nil, cli.NewConfigError("audit.backend", "the memory backend cannot be queried from the command line")
	}
	store, err := storage.New(cfg.Audit)
	if err != nil {
		return nil, cli.NewCommandError("attempts", err)
	}
	return store, nil
}

// recordTable renders records one row each.
type recordTable []*audit.Record

func (t recordTable) Headers() []string {
	return []string{"STARTED", "REQUEST ID", "OUTCOME", "SERVED BY", "PHASE", "MODEL", "DURATION", "ATTEMPTS"}
}

func (t recordTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, r := range t {
		servedBy := r.ServedBy
		if servedBy == "" {
			servedBy = "-"
		}
		rows = append(rows, []string{
			r.StartedAt.UTC().Format(time.RFC3339),
			r.RequestID,
			r.Outcome,
			servedBy,
			r.Phase,
			r.Model,
			r.Duration.Round(time.Millisecond).String(),
			attemptChain(r.Attempts),
		})
	}
	return rows
}

// attemptChain renders attempts as "a:failure>b:success".
func attemptChain(attempts []audit.AttemptRecord) string {
	parts := make([]string, len(attempts))
	for i, a := range attempts {
		parts[i] = a.Provider + ":" + a.Outcome
	}
	return strings.Join(parts, ">")
}

type summaryTable []audit.ProviderSummary

func (t summaryTable) Headers() []string {
	return []string{"PROVIDER", "SUCCESSES", "FAILURES", "LAST ATTEMPT"}
}

func (t summaryTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, s := range t {
		rows = append(rows, []string{
			s.Provider,
			strconv.FormatInt(s.Successes, 10),
			strconv.FormatInt(s.Failures, 10),
			s.LastAttempt.UTC().Format(time.RFC3339),
		})
	}
	return rows
}

func listAttempts(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(attemptsFlags.format)
	if err != nil {
		return err
	}

	now := time.Now()
	q := &audit.Query{
		RequestID: attemptsFlags.requestID,
		Provider:  attemptsFlags.provider,
		Outcome:   attemptsFlags.outcome,
		Limit:     attemptsFlags.limit,
		Offset:    attemptsFlags.offset,
	}
	if q.Since, err = parseTime(attemptsFlags.since, now); err != nil {
		return err
	}
	if q.Until, err = parseTime(attemptsFlags.until, now); err != nil {
		return err
	}
	if _, err := audit.Normalize(q); err != nil {
		return err
	}

	store, err := openAuditStore()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Query(cmd.Context(), q)
	if err != nil {
		return cli.NewCommandError("attempts list", err)
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), recordTable(records))
}

func summarizeAttempts(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(attemptsFlags.format)
	if err != nil {
		return err
	}

	since, err := parseTime(attemptsFlags.since, time.Now())
	if err != nil {
		return err
	}
	var from time.Time
	if since != nil {
		from = *since
	}

	store, err := openAuditStore()
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.ProviderSummary(cmd.Context(), from)
	if err != nil {
		return cli.NewCommandError("attempts summary", err)
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), summaryTable(summary))
}
