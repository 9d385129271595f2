package main

import (
	"context"
	"fmt"
	"os"

	"github.com/adeilh/marketcache/internal/command"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	app := command.New(os.Stdout, os.Stderr)
	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
