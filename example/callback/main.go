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

	callback := func(result *hubtest.RunResult, samples []hubtest.Sample) error {
		fmt.Printf("run %s: %d samples, mean latency %.2fms, %d decode failures\n",
			result.RunID,
			result.SampleCount,
			result.LatencyMeanMs,
			result.InvalidCount,
		)
		for _, s := range samples {
			if s.LatencyMs == hubtest.InvalidLatency {
				fmt.Printf("frame %d: decode failed\n", s.FrameIndex)
				continue
			}
			fmt.Printf("frame %d: latency=%.2fms decode=%.2fms fps=%.1f\n",
				s.FrameIndex, s.LatencyMs, s.DecodeCostMs, s.FPS)
		}
		return nil
	}

	if err := flow.Run(ctx, hubtest.ReportCallback("stdout", callback)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
