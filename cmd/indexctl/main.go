package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jonesrussell/north-cloud/index-lifecycle/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "indexctl: %v\n", err)
		os.Exit(1)
	}
}
