package main

import (
	"github.com/davrell/brood/internal/cli"
	"github.com/davrell/brood/internal/metrics"
)

func main() {
	metrics.EmitBuildInfo()
	cli.Execute()
}
