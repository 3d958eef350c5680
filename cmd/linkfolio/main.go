package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/linkfolio/linkfolio/pkg/linkfolio"
)

func main() {
	// Cancelling the context shuts the server down and flushes pending section saves.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := linkfolio.Main(ctx, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
