package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/storageopt/app/plugins"
	"github.com/kilianp07/storageopt/core/runlog"
)

var (
	runsScenario string
	runsStatus   string
	runsSince    string
	runsJSON     bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Query the run history",
	Args:  cobra.NoArgs,
	RunE:  queryRuns,
}

func init() {
	runsCmd.Flags().StringVar(&runsScenario, "scenario", "", "only runs of this scenario")
	runsCmd.Flags().StringVar(&runsStatus, "status", "", "only runs with this status (ok, failed, infeasible)")
	runsCmd.Flags().StringVar(&runsSince, "since", "", "only runs after a duration ago (24h) or an RFC 3339 time")
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "print records as JSON lines")
	rootCmd.AddCommand(runsCmd)
}

// parseSince accepts a duration before now or an absolute RFC 3339 time.
func parseSince(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--since %q: want a duration or RFC 3339 time", s)
	}
	return t, nil
}

func queryRuns(cmd *cobra.Command, _ []string) error {
	q := runlog.Query{Scenario: runsScenario, Status: runlog.Status(strings.ToLower(runsStatus))}
	switch q.Status {
	case "", runlog.StatusOK, runlog.StatusFailed, runlog.StatusInfeasible:
	default:
		return fmt.Errorf("--status %q: want ok, failed or infeasible", runsStatus)
	}
	var err error
	if q.Start, err = parseSince(runsSince, time.Now()); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := plugins.NewRunLog(cfg.RunLog)
	if err != nil {
		return err
	}
	defer store.Close()
	recs, err := store.Query(cmd.Context(), q)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if runsJSON {
		enc := json.NewEncoder(w)
		for _, r := range recs {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSCENARIO\tVARIANT\tENGINE\tSTATUS\tOBJECTIVE\tSOLVE_MS\tID")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.6g\t%.1f\t%s\n",
			r.Timestamp.Format(time.RFC3339), r.Scenario, r.Variant, r.Engine, r.Status, r.Objective, r.SolveMillis, r.ID)
	}
	return tw.Flush()
}
