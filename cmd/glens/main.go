package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gatherlens/gatherlens/pkg/cli"
)

func main() {
	if err := cli.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
