package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	hubtest "github.com/michaelmahersoftware/experimental-hub-test"
)

func main() {
	flow, err := hubtest.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := flow.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("latency test exited: %v", err)
	}
}
