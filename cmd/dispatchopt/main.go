// Command dispatchopt is the field-service dispatch optimizer's CLI
// entrypoint: run, inspect, and serve, with the process exit codes
// spec.md §6 specifies.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fieldforce/dispatchopt/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	root.SetContext(context.Background())

	_, err := root.ExecuteC()
	if err != nil {
		fmt.Fprintln(os.Stderr, "dispatchopt:", err)
	}
	os.Exit(cli.ExitCode(err))
}
