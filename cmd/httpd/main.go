package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jonesrussell/north-cloud/index-lifecycle/internal/bootstrap"
)

func main() {
	if err := bootstrap.Start(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "index-lifecycle: %v\n", err)
		os.Exit(1)
	}
}
