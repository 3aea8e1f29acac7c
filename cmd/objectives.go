package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/storageopt/core/optimiser"
)

var objectivesCmd = &cobra.Command{
	Use:   "objectives",
	Short: "List objective terms per variant and the named objective sets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := cmd.OutOrStdout()
		for _, v := range []optimiser.Variant{optimiser.BTM, optimiser.Local} {
			fmt.Fprintf(w, "%s:\n", v)
			for _, k := range optimiser.Objectives(v) {
				fmt.Fprintf(w, "  %s\n", k)
			}
		}
		fmt.Fprintln(w, "sets:")
		for _, name := range optimiser.ObjectiveSets() {
			set, err := optimiser.ObjectiveSet(name)
			if err != nil {
				return err
			}
			kinds := make([]string, len(set))
			for i, k := range set {
				kinds[i] = string(k)
			}
			fmt.Fprintf(w, "  %s: %s\n", name, strings.Join(kinds, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(objectivesCmd)
}
