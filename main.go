// ./main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/muhilia/unity-backup/cmd"
)

// main is the entry point for the unity-backup application. Interrupt and
// termination signals cancel the run context so the session controller can
// tear the browser down cleanly.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Execute(ctx)
}
