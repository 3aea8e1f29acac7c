package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/storageopt/app/plugins"
	coremetrics "github.com/kilianp07/storageopt/core/metrics"
	"github.com/kilianp07/storageopt/core/solver"
)

var enginesCmd = &cobra.Command{
	Use:   "engines",
	Short: "List solver engines, metrics sinks and run log backends",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "engines: %v (default %s)\n", solver.Engines(), solver.DefaultEngine)
		for _, name := range solver.Engines() {
			s, err := solver.New(solver.Config{Engine: name})
			if err != nil {
				continue
			}
			if d, ok := s.(solver.Describer); ok {
				fmt.Fprintf(w, "  %s: %s\n", name, d.Describe())
			}
		}
		fmt.Fprintf(w, "metrics sinks: %v\n", coremetrics.Sinks())
		fmt.Fprintf(w, "run log backends: %v\n", plugins.RunLogBackends())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enginesCmd)
}
