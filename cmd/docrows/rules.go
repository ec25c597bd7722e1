package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the mapping rule table as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadRules(rulesPathFlag(cmd))
		if err != nil {
			return err
		}
		b, err := table.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(b)
		return err
	},
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check <column>...",
	Short: "Show which rule each column name would use",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadRules(rulesPathFlag(cmd))
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "COLUMN\tRULE")
		for _, col := range args {
			name := "-"
			if table.IsSourceFileColumn(col) {
				name = "(source file)"
			} else if r, ok := table.Match(col); ok {
				name = r.Name
			}
			fmt.Fprintf(w, "%s\t%s\n", col, name)
		}
		return w.Flush()
	},
}

func rulesPathFlag(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("rules"); p != "" {
		return p
	}
	return cfg.Mapping.RulesPath
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesCheckCmd)
	rulesCmd.PersistentFlags().String("rules", "", "YAML rule table to use instead of the built-in one")
}
