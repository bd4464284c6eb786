package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/logging"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/replay"
)

// #region main

func main() {
	verbose := flag.Bool("v", false, "print every turn, not only failures")
	logLevel := flag.String("log-level", "error", "engine log level")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: replay [-v] [--log-level level] fixture.yaml [fixture.yaml ...]")
		os.Exit(2)
	}

	logger, err := logging.New(*logLevel, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}

	exitCode := 0
	for _, path := range flag.Args() {
		if code := runFixture(path, *verbose, logger); code > exitCode {
			exitCode = code
		}
	}
	_ = logger.Sync()
	os.Exit(exitCode)
}

// #endregion main

// #region output

func runFixture(path string, verbose bool, logger *zap.Logger) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	results, err := replay.Run(context.Background(), f, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		return 2
	}

	fmt.Printf("== %s\n", path)
	if f.Description != "" {
		fmt.Printf("   %s\n", f.Description)
	}
	fmt.Printf("%-14s| %-4s| %-15s| %-30s| %s\n", "Session", "Turn", "Stage", "Caller", "Match")
	fmt.Printf("%-14s+%-5s+%-16s+%-31s+%s\n",
		"--------------", "-----", "----------------", "-------------------------------", "------")

	for _, r := range results {
		if !verbose && r.Passed() {
			continue
		}
		match := "OK"
		if !r.Passed() {
			match = "DIFF"
		}
		fmt.Printf("%-14s| %-4d| %-15s| %-30s| %s\n",
			clip(r.SessionID, 14), r.Index, r.Response.Stage, clip(fmt.Sprintf("%q", r.Say), 30), match)
		for _, msg := range r.Failures {
			fmt.Printf("    - %s\n", msg)
		}
	}

	s := replay.Summarize(results)
	fmt.Printf("\nSummary: %d total, %d match, %d diverge\n\n", s.TotalTurns, s.Passed, s.Failed)
	if s.Failed > 0 {
		return 1
	}
	return 0
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// #endregion output
