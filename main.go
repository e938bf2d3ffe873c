// Command assistdesk is an operator console for remote voice assistants.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/xiaot623/assistdesk/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
