// Get command: reads an element's scalar attributes by label.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <db-path> <collection> <label>",
	Short: "Print an element's scalar attributes by label",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		collection, label := args[1], args[2]

		dbPath, err := resolveDBPath(args[0])
		if err != nil {
			fail("get", err, exitSysError)
		}

		s, err := openStore(dbPath)
		if err != nil {
			fail("get", err, exitCodeFor(err))
		}
		defer s.Close()

		id, err := s.GetElementID(collection, label)
		if err != nil {
			fail("get", err, exitCodeFor(err))
		}

		attrs, err := s.ReadElementScalarAttributes(collection, id)
		if err != nil {
			fail("get", err, exitCodeFor(err))
		}

		if flagJSON {
			out := make(map[string]string, len(attrs))
			for _, a := range attrs {
				out[a.Name] = a.Value.String()
			}
			return printJSON(out)
		}
		for _, a := range attrs {
			fmt.Printf("%s: %s\n", a.Name, a.Value.String())
		}
		return nil
	},
}
