package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Ramsey-B/clover/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		if !commands.IsReported(err) {
			fmt.Fprintf(os.Stderr, "%s\n", err.Error())
		}
		os.Exit(1)
	}
}
