// Command lumen is a course-material tutor that answers questions with a
// tool-calling reasoning service over an in-memory embedding index.
package main

import "github.com/custodia-labs/lumen/internal/adapters/driving/cli"

func main() {
	cli.Execute()
}
