package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"geneagrapher/internal/cliapp"
)

func main() {
	cmd := cliapp.NewCommand()
	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		var invErr *cliapp.InvocationError
		if errors.As(err, &invErr) {
			fmt.Fprintln(os.Stderr, invErr.Message)
			os.Exit(invErr.ExitCode)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cliapp.ExitCodeFor(err))
	}
}
