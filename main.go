package main

import (
	"os"

	"github.com/dataqualityagent/data-quality-agent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
