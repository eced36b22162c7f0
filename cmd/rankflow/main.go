// Package main is the single-binary entrypoint for RankFlow.
package main

import "github.com/rankflow/rankflow/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
