// The main package for the jobtracker executable.
package main

import (
	"github.com/jobsight/jobtracker/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
