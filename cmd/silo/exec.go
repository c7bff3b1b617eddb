// Exec command: the escape-hatch pass-through query path, driven from
// the CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukaforge/silo/pkg/value"
)

var execStatement bool

var execCmd = &cobra.Command{
	Use:   "exec <db-path> <sql> [params...]",
	Short: "Run arbitrary SQL against a store via the pass-through path",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sql := args[1]
		params := make([]value.Value, len(args)-2)
		for i, raw := range args[2:] {
			params[i] = value.NewText(raw)
		}

		dbPath, err := resolveDBPath(args[0])
		if err != nil {
			fail("exec", err, exitSysError)
		}

		s, err := openStore(dbPath)
		if err != nil {
			fail("exec", err, exitCodeFor(err))
		}
		defer s.Close()

		if execStatement {
			n, err := s.ExecuteStatement(sql, params)
			if err != nil {
				fail("exec", err, exitCodeFor(err))
			}
			fmt.Println("rows_affected:", n)
			return nil
		}

		rows, err := s.Execute(sql, params)
		if err != nil {
			fail("exec", err, exitCodeFor(err))
		}
		printRows(rows)
		return nil
	},
}

func printRows(rows *value.Rows) {
	if flagJSON {
		out := make([]map[string]string, 0, rows.RowCount())
		for i := 0; i < rows.RowCount(); i++ {
			row, _ := rows.Row(i)
			rec := make(map[string]string, len(row.Columns))
			for j, c := range row.Columns {
				rec[c] = row.Values[j].String()
			}
			out = append(out, rec)
		}
		_ = printJSON(out)
		return
	}
	for i := 0; i < rows.RowCount(); i++ {
		row, _ := rows.Row(i)
		for j, c := range row.Columns {
			if j > 0 {
				fmt.Print("\t")
			}
			fmt.Printf("%s=%s", c, row.Values[j].String())
		}
		fmt.Println()
	}
}

func init() {
	execCmd.Flags().BoolVar(&execStatement, "statement", false, "run as a mutation-only statement (ExecuteStatement) instead of a query")
}
