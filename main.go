package main

import (
	"context"
	"os"

	"crystal/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	return cli.Execute(context.Background(), os.Args[1:])
}
