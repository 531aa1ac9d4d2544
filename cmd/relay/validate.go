package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/relay/pkg/cli"
	"mercator-hq/relay/pkg/config"
)

var validateFlags struct {
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load a configuration file, apply environment overrides and report
every validation error. On success the provider pools are printed.

Examples:
  relay validate --config config.yaml
  relay validate --format json`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json, csv")
}

// poolTable lists every configured provider with its pool membership.
type poolTable struct {
	TargetModel string           `json:"target_model,omitempty"`
	Providers   []providerRecord `json:"providers"`
}

type providerRecord struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Pools   string `json:"pools"`
	BaseURL string `json:"base_url"`
}

func (t *poolTable) Headers() []string {
	return []string{"PROVIDER", "TYPE", "POOLS", "BASE URL"}
}

func (t *poolTable) Rows() [][]string {
	rows := make([][]string, 0, len(t.Providers))
	for _, p := range t.Providers {
		rows = append(rows, []string{p.Name, p.Type, p.Pools, p.BaseURL})
	}
	return rows
}

func newPoolTable(cfg *config.Config) *poolTable {
	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	slices.Sort(names)

	t := &poolTable{TargetModel: cfg.Routing.TargetModel}
	for _, name := range names {
		var pools []string
		if slices.Contains(cfg.Routing.Primary, name) {
			pools = append(pools, "primary")
		}
		if slices.Contains(cfg.Routing.Fallback, name) {
			pools = append(pools, "fallback")
		}
		if len(pools) == 0 {
			pools = append(pools, "-")
		}
		pc := cfg.Providers[name]
		t.Providers = append(t.Providers, providerRecord{
			Name:    name,
			Type:    pc.Type,
			Pools:   strings.Join(pools, ","),
			BaseURL: pc.BaseURL,
		})
	}
	return t
}

func validateConfig(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(validateFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == cli.FormatText {
		fmt.Fprintf(out, "✓ Configuration valid: %s\n\n", cfgFile)
	}
	return cli.NewFormatter(format).FormatTo(out, newPoolTable(cfg))
}
