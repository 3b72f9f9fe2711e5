// main.go
//
// Entry point; the `run` command lives in cmd/root.go.

package main

import (
	"github.com/bambielli/simhelpers/cmd"
)

func main() {
	cmd.Execute()
}
