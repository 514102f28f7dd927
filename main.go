// The main package for the intel-agent executable.
package main

import (
	"github.com/agent-007-kali/intel-agent/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
