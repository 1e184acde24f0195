package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	hubtest "github.com/michaelmahersoftware/experimental-hub-test"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "eval":
		err = evalCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("conntest %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to test configuration file")
	duration := fs.Duration("duration", 0, "Stop the run after this long (0 runs until interrupted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	flow, err := hubtest.Conf(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	rt, err := flow.Report()
	if err != nil {
		return err
	}
	if err := rt.Run(ctx); err != nil {
		return err
	}
	return printResult(rt)
}

func printResult(rt *hubtest.Runtime) error {
	result, err := rt.Result()
	if err != nil {
		if errors.Is(err, hubtest.ErrEmptyInput) {
			fmt.Println("no samples recorded")
			return nil
		}
		return err
	}
	return writeResultJSON(result)
}

func writeResultJSON(result *hubtest.RunResult) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := hubtest.LoadConfig(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

func evalCommand(args []string) error {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	journalPath := fs.String("journal", "", "Path to a recorded samples-<run>.ndjson journal")
	width := fs.Int("width", 640, "Configured target width of the recorded run")
	height := fs.Int("height", 480, "Configured target height of the recorded run")
	from := fs.Int("from", 0, "Window start frame index (inclusive)")
	to := fs.Int("to", 0, "Window end frame index (exclusive, 0 means end of run)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *journalPath == "" {
		return fmt.Errorf("-journal is required")
	}

	replay, err := hubtest.LoadJournal(*journalPath, *width, *height)
	if err != nil {
		return err
	}
	summary, err := replay.Evaluate(hubtest.Window{From: *from, To: *to})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	url := fs.String("url", "http://localhost:8080/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	targets := map[string]float64{
		"hub_frames_pumped_total":    0,
		"hub_samples_recorded_total": 0,
		"hub_decode_failures_total":  0,
		"hub_sample_buffer_length":   0,
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for key := range targets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %f", &value); err == nil {
					targets[key] = value
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Printf("[%s] frames=%.0f samples=%.0f decode_failures=%.0f buffer=%.0f\n",
		time.Now().Format(time.RFC3339),
		targets["hub_frames_pumped_total"],
		targets["hub_samples_recorded_total"],
		targets["hub_decode_failures_total"],
		targets["hub_sample_buffer_length"],
	)
	return nil
}

func printUsage() {
	fmt.Printf(`Connection Latency Test CLI

Usage:
  conntest <command> [flags]

Commands:
  run        Start a latency test run using the provided config
  validate   Load and validate a config file without starting a run
  eval       Re-evaluate a recorded sample journal offline
  stats      Poll the Prometheus metrics endpoint and print live counters

Examples:
  conntest run -config ./data/config.yaml -duration 30s
  conntest validate -config ./data/config.yaml
  conntest eval -journal ./data/journal/samples-<run>.ndjson -from 30
  conntest stats -url http://localhost:8080/metrics -interval 1s
`)
}
