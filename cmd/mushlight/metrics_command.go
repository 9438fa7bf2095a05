package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"mushlight/internal/config"
	"mushlight/internal/pipeline"
)

func newMetricsCommand(configFlag *string) *cobra.Command {
	var fileFlag string

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show the last exported metrics snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fileFlag
			if path == "" {
				cfg, err := config.Load(*configFlag)
				if err != nil {
					return err
				}
				path = cfg.Metrics.ExportPath
			}
			if path == "" {
				return fmt.Errorf("metrics export is not configured; pass --file or set metrics.export_path")
			}
			return showMetrics(cmd, path)
		},
	}

	cmd.Flags().StringVarP(&fileFlag, "file", "f", "",
		"Metrics snapshot file (defaults to the configured export path)")

	return cmd
}

func showMetrics(cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read metrics snapshot: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse metrics snapshot: %w", err)
	}

	var timestamp int64
	if ts, ok := raw["timestamp"]; ok {
		if err := json.Unmarshal(ts, &timestamp); err != nil {
			return fmt.Errorf("parse snapshot timestamp: %w", err)
		}
	}

	patterns := make(map[string]string)
	if p, ok := raw["patterns"]; ok {
		if err := json.Unmarshal(p, &patterns); err != nil {
			return fmt.Errorf("parse snapshot patterns: %w", err)
		}
	}

	strips := make(map[string]map[string]pipeline.Stat)
	for key, value := range raw {
		if key == "timestamp" || key == "patterns" {
			continue
		}
		var stats map[string]pipeline.Stat
		if err := json.Unmarshal(value, &stats); err != nil {
			return fmt.Errorf("parse metrics for strip %q: %w", key, err)
		}
		strips[key] = stats
	}

	out := cmd.OutOrStdout()
	if timestamp > 0 {
		age := time.Since(time.Unix(timestamp, 0)).Round(time.Second)
		fmt.Fprintf(out, "Snapshot from %s (%s ago)\n\n",
			time.Unix(timestamp, 0).Format(time.RFC3339), age)
	}

	names := make([]string, 0, len(strips))
	for name := range strips {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names)*len(pipeline.MetricNames))
	for _, strip := range names {
		stats := strips[strip]
		for _, metric := range pipeline.MetricNames {
			s := stats[metric]
			rows = append(rows, []string{
				strip,
				patterns[strip],
				metric,
				fmt.Sprintf("%.2f", s.Avg),
				fmt.Sprintf("%.2f", s.Min),
				fmt.Sprintf("%.2f", s.Max),
				fmt.Sprintf("%.2f", s.Last),
				fmt.Sprintf("%d", s.Samples),
			})
		}
	}

	fmt.Fprintln(out, renderMetricsTable(
		[]string{"Strip", "Pattern", "Metric", "Avg ms", "Min ms", "Max ms", "Last ms", "Samples"},
		rows, 3))
	return nil
}
