package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, RootCmd(), os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs root and prints its error, returning the exit code.
func execute(ctx context.Context, root *cobra.Command, stderr io.Writer) int {
	if err := root.ExecuteContext(ctx); err != nil {
		errorColor.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
