// Diff command: structural comparison of two stores, printed line by
// line.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukaforge/silo/pkg/diff"
)

var diffCmd = &cobra.Command{
	Use:   "diff <db-path-1> <db-path-2>",
	Short: "Print every structural difference between two stores",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path1, err := resolveDBPath(args[0])
		if err != nil {
			fail("diff", err, exitSysError)
		}
		path2, err := resolveDBPath(args[1])
		if err != nil {
			fail("diff", err, exitSysError)
		}

		a, err := openStore(path1)
		if err != nil {
			fail("diff", err, exitCodeFor(err))
		}
		defer a.Close()

		b, err := openStore(path2)
		if err != nil {
			fail("diff", err, exitCodeFor(err))
		}
		defer b.Close()

		lines, err := diff.CompareDatabases(a, b)
		if err != nil {
			fail("diff", err, exitCodeFor(err))
		}

		if flagJSON {
			return printJSON(lines)
		}
		for _, l := range lines {
			fmt.Println(l)
		}
		if len(lines) == 0 {
			fmt.Println("no differences")
		}
		return nil
	},
}
