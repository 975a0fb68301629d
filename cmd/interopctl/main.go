package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/km-arc/go-interop/framework/console"
)

func main() {
	cli := console.New(os.Stdout, os.Stderr)
	if err := cli.Exec(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}
