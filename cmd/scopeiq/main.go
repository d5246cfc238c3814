// Command scopeiq ingests construction documents into partitioned vector
// storage and answers hybrid project/common queries over them, either from
// the command line or as an MCP server on stdio.
package main

import (
	"fmt"
	"os"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
