package main

import (
	"context"
	"fmt"
	"log"
	"time"

	hubtest "github.com/michaelmahersoftware/experimental-hub-test"
)

func main() {
	flow, err := hubtest.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sink, reports, closeReports := hubtest.NewChannelSink("fanout", 4)
	defer closeReports()

	go reportWorker("ingest", reports)

	if err := flow.Run(ctx, hubtest.ReportSink(sink)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

func reportWorker(name string, reports <-chan hubtest.RunReport) {
	for report := range reports {
		fmt.Printf("[%s] run %s finished with %d samples at %s\n",
			name, report.Result.RunID, len(report.Samples), time.Now().Format(time.RFC3339))
	}
}
