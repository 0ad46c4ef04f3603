// Command redmine reads and updates Redmine issues from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	clierrors "github.com/randalmurphal/redmine/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(os.Stdout, os.Stderr)
	if err := a.run(ctx, os.Args[1:]); err != nil {
		var opts []clierrors.Option
		if u := a.serverURL(); u != "" {
			opts = append(opts, clierrors.WithServerURL(u))
		}
		err = clierrors.Wrap(err, opts...)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(clierrors.ExitCode(err))
	}
}
