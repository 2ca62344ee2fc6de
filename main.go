// The main package for the scrapper executable.
package main

import (
	"github.com/JakeFAU/scrapper/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
