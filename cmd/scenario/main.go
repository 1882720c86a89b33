// CLI for running dialogue scenarios against the engine.
//
// Usage:
//
//	scenario -f scenarios/donkey.yaml
//	scenario -f scenarios/anaphora.yaml -v --stop-on-error
//	scenario --list scenarios/
//
// Backends are configured through the CRYSTAL_* environment variables.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"crystal/internal/cli"
	"crystal/internal/config"
	"crystal/internal/logging"
	"crystal/internal/parse"
	"crystal/internal/scenario"
	"crystal/internal/session"
)

func main() {
	scenarioFile := flag.String("f", "", "Scenario YAML file to run")
	scenarioDir := flag.String("list", "", "List scenarios in directory")
	verbose := flag.Bool("v", false, "Verbose output")
	noColor := flag.Bool("no-color", false, "Disable color output")
	stopOnError := flag.Bool("stop-on-error", false, "Stop if a step fails")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: scenario [options]\n\n")
		fmt.Fprintf(os.Stderr, "Run a scripted dialogue and check every reply.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  scenario -f scenarios/donkey.yaml\n")
		fmt.Fprintf(os.Stderr, "  scenario -f scenarios/anaphora.yaml --no-color\n")
		fmt.Fprintf(os.Stderr, "  scenario --list scenarios/\n")
	}

	flag.Parse()

	if *scenarioDir != "" {
		if err := listScenarios(*scenarioDir); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *scenarioFile == "" {
		fmt.Fprintf(os.Stderr, "Error: -f <scenario.yaml> is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*scenarioFile, scenario.RunConfig{
		Verbose:     *verbose,
		NoColor:     *noColor,
		StopOnError: *stopOnError,
	}))
}

func run(path string, runConfig scenario.RunConfig) int {
	s, err := scenario.LoadScenario(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading scenario: %v\n", err)
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cleanups []func()
	defer func() {
		for _, c := range cleanups {
			c()
		}
	}()
	runner := scenario.NewRunner(runConfig, func(oracle parse.Oracle) (session.Processor, error) {
		engine, cleanup, err := cli.NewEngine(ctx, cfg, oracle, logger)
		if err != nil {
			return nil, err
		}
		cleanups = append(cleanups, cleanup)
		return engine, nil
	})

	result, err := runner.Run(ctx, s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if !result.Success {
		return 1
	}
	return 0
}

func listScenarios(dir string) error {
	scenarios, err := scenario.LoadAllScenarios(dir)
	if err != nil {
		return err
	}

	if len(scenarios) == 0 {
		fmt.Println("No scenarios found in", dir)
		return nil
	}

	fmt.Printf("Scenarios in %s:\n\n", dir)
	for _, s := range scenarios {
		fmt.Printf("  %-30s %d steps\n", s.Name, len(s.Steps))
		if s.Description != "" {
			fmt.Printf("    %s\n", s.Description)
		}
	}
	fmt.Println()

	return nil
}
