// Command pufsim enrolls, queries and evaluates simulated SRAM PUFs.
package main

import (
	"github.com/tebeka/atexit"

	"github.com/sarchlab/pufsim/pufsim/cmd"
)

func main() {
	cmd.Execute()
	atexit.Exit(0)
}
