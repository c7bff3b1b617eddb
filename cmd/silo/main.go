// Package main provides the silo CLI: a same-language adapter over
// pkg/store, exercising init/open/migrate/create/get/diff/exec/version.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitSysError)
	}
}
