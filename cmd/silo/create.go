// Create command: builds an Element from a JSON object of scalar
// attributes and calls CreateElement.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukaforge/silo/pkg/element"
	"github.com/dukaforge/silo/pkg/value"
)

var createCmd = &cobra.Command{
	Use:   "create <db-path> <collection> <json-element>",
	Short: "Create an element from a JSON object of scalar attributes",
	Long: `Create reads a JSON object mapping attribute name to scalar value
and writes it as a new element of collection. The object must include
"label". Numbers decode as Real, strings as Text, null as Null.

Example:
  silo create store.db Plant '{"label":"P1","capacity":50}'`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		collection, jsonElement := args[1], args[2]

		var fields map[string]any
		if err := json.Unmarshal([]byte(jsonElement), &fields); err != nil {
			fail("create", err, exitUserError)
		}

		dbPath, err := resolveDBPath(args[0])
		if err != nil {
			fail("create", err, exitSysError)
		}

		s, err := openStore(dbPath)
		if err != nil {
			fail("create", err, exitCodeFor(err))
		}
		defer s.Close()

		e := element.New()
		for name, raw := range fields {
			e.Set(name, jsonToValue(raw))
		}

		id, err := s.CreateElement(collection, e)
		if err != nil {
			fail("create", err, exitCodeFor(err))
		}

		if flagJSON {
			return printJSON(map[string]any{"id": id, "collection": collection})
		}
		fmt.Println("created:", id)
		return nil
	},
}

// jsonToValue maps a decoded JSON scalar onto the narrowest Value variant:
// json.Unmarshal into any always produces float64 for numbers, so there is
// no int/real distinction to preserve here beyond what JSON itself carries.
func jsonToValue(raw any) value.Value {
	switch t := raw.(type) {
	case nil:
		return value.NewNull()
	case float64:
		return value.NewReal(t)
	case string:
		return value.NewText(t)
	case bool:
		if t {
			return value.NewInt64(1)
		}
		return value.NewInt64(0)
	default:
		fmt.Fprintf(os.Stderr, "create: unsupported JSON value %v, treating as text\n", t)
		return value.NewText(fmt.Sprintf("%v", t))
	}
}
