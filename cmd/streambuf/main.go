// Command streambuf exercises the stream buffers from the shell.
//
// Usage:
//
//	streambuf [flags] <command> [args]
//
// Commands:
//
//	replay   - Replay a file to stdout in paced chunks through a Source
//	collect  - Collect stdin into a Sink and print it decoded
package main

import (
	"fmt"
	"os"

	"github.com/akmistry/go-streambuf/cmd/streambuf/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
