package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docrows/internal/common"
	"github.com/joseph-ayodele/docrows/internal/schemasource"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <workbook>",
	Short: "List the sheets of a workbook and the columns of one sheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sheet, _ := cmd.Flags().GetString("sheet")
		reader := schemasource.NewReader(logger)

		f, err := os.Open(args[0])
		if err != nil {
			return common.UploadError("open workbook %q: %v", args[0], err)
		}
		sheets, err := reader.Sheets(f)
		_ = f.Close()
		if err != nil {
			return err
		}

		src, err := reader.ReadFile(cmd.Context(), args[0], sheet)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Sheets: %s\n", strings.Join(sheets, ", "))
		fmt.Fprintf(w, "Columns (%d):\n", len(src.Columns))
		for i, c := range src.Columns {
			fmt.Fprintf(w, "  %2d. %s\n", i+1, c)
		}
		fmt.Fprintf(w, "Data rows: %d\n", len(src.Rows))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().String("sheet", "", "sheet to read (default first sheet)")
}
