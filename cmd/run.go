package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/storageopt/app"
	"github.com/kilianp07/storageopt/core/events"
	"github.com/kilianp07/storageopt/infra/logger"
)

var (
	runOut      string
	runFormats  []string
	runParallel int
)

var runCmd = &cobra.Command{
	Use:   "run [scenario...]",
	Short: "Optimise one or more scenario files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScenarios,
}

func init() {
	runCmd.Flags().StringVarP(&runOut, "out", "o", "", "output directory (overrides runner.output_dir)")
	runCmd.Flags().StringSliceVarP(&runFormats, "format", "f", nil, "export formats: csv,json,html")
	runCmd.Flags().IntVarP(&runParallel, "parallel", "p", 0, "scenarios optimised at once")
	rootCmd.AddCommand(runCmd)
}

func runScenarios(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runOut != "" {
		cfg.Runner.OutputDir = runOut
	}
	if len(runFormats) > 0 {
		cfg.Runner.Formats = runFormats
	}
	if runParallel > 0 {
		cfg.Runner.Parallelism = runParallel
	}

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	progress := svc.Events()
	done := make(chan struct{})
	go func() {
		defer close(done)
		printProgress(cmd.ErrOrStderr(), progress)
	}()

	outs, runErr := svc.Run(ctx, args)
	if err := svc.Close(); err != nil {
		logger.New("cli").Errorf("service close: %v", err)
	}
	<-done
	if err := printOutcomes(cmd.OutOrStdout(), outs); err != nil {
		return err
	}
	return runErr
}

func printProgress(w io.Writer, ch <-chan any) {
	for e := range ch {
		switch ev := e.(type) {
		case events.RunStarted:
			fmt.Fprintf(w, "started  %s %s\n", ev.Scenario, ev.RunID)
		case events.RunFinished:
			fmt.Fprintf(w, "finished %s %s %s\n", ev.Run.Scenario, ev.Run.RunID, ev.Run.Status)
		}
	}
}

func printOutcomes(w io.Writer, outs []app.Outcome) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENARIO\tSTATUS\tOBJECTIVE\tIMPORT\tEXPORT\tCOST\tSELF_SUFFICIENCY\tFILES\tERROR")
	for _, o := range outs {
		obj, imp, exp, cost, suff := "-", "-", "-", "-", "-"
		if o.Result != nil {
			obj = fmt.Sprintf("%.6g", o.Result.Objective)
			m := o.Result.Merit()
			imp, exp = fmt.Sprintf("%.4g", m.Import), fmt.Sprintf("%.4g", m.Export)
			cost, suff = optional(m.Cost), optional(m.SelfSufficiency)
		}
		errMsg := ""
		if o.Err != nil {
			errMsg = o.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			o.Scenario, o.Status, obj, imp, exp, cost, suff, len(o.Files), errMsg)
	}
	return tw.Flush()
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4g", *v)
}
