package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dfandrich/testclutch-curl-web/pkg/cli"
	"github.com/dfandrich/testclutch-curl-web/pkg/console"
)

// Build-time variables set by the release build
var (
	version = "dev"
)

func main() {
	cli.SetVersionInfo(version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		errMsg := err.Error()
		// Errors already formatted by console start with the error marker.
		if strings.HasPrefix(errMsg, "✗") {
			fmt.Fprintln(os.Stderr, errMsg)
		} else {
			fmt.Fprintln(os.Stderr, console.FormatErrorMessage(errMsg))
		}
		stop()
		os.Exit(1)
	}
}
