package main

import (
	"fmt"
	"os"
	"time"

	"github.com/kilianp07/storageopt/cmd"
	"github.com/kilianp07/storageopt/core/monitoring"
)

func main() {
	defer monitoring.Recover()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		monitoring.Flush(2 * time.Second)
		os.Exit(1)
	}
}
