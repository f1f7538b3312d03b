// Package main is the entry point for the scry-capture host process.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "scry-capture:", err)
		os.Exit(1)
	}
}
