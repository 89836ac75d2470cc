// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/traylinx/integrationhub/internal/config"
	"github.com/traylinx/integrationhub/internal/heartbeat"
	"github.com/traylinx/integrationhub/internal/registry"
	"github.com/traylinx/integrationhub/internal/util"
)

// HeartbeatCommand represents the available heartbeat subcommands
type HeartbeatCommand string

const (
	HeartbeatStatus HeartbeatCommand = "status"
	HeartbeatCheck  HeartbeatCommand = "check"
)

// HeartbeatOptions holds the command-line options for heartbeat commands
type HeartbeatOptions struct {
	Command HeartbeatCommand
	APIID   string
	Timeout time.Duration
}

// ParseHeartbeatCommand parses command arguments
func ParseHeartbeatCommand(args []string) (*HeartbeatOptions, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("missing subcommand")
	}

	opts := &HeartbeatOptions{Command: HeartbeatCommand(args[0])}
	flagSet := flag.NewFlagSet("heartbeat", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "overall timeout")

	rest := args[1:]
	switch opts.Command {
	case HeartbeatCheck:
		if len(rest) == 0 {
			return nil, fmt.Errorf("check command requires an integration id")
		}
		opts.APIID = rest[0]
		rest = rest[1:]
	case HeartbeatStatus:
	default:
		return nil, fmt.Errorf("unknown command: %s", opts.Command)
	}

	if err := flagSet.Parse(rest); err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive")
	}
	return opts, nil
}

func printHeartbeatUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: integrationhub heartbeat <command> [options]")
	fmt.Fprintln(w, "\nCommands:")
	fmt.Fprintln(w, "  status        Check every integration and record the results")
	fmt.Fprintln(w, "  check <id>    Check one integration")
	fmt.Fprintln(w, "\nOptions:")
	fmt.Fprintln(w, "  -timeout      Overall timeout (default 30s)")
}

// handleHeartbeatCommand runs checks against the configured store without a
// running server and returns the process exit code.
func handleHeartbeatCommand(cfg *config.Config, sb *util.StateBox, args []string, out io.Writer) int {
	opts, err := ParseHeartbeatCommand(args)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		printHeartbeatUsage(out)
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	h, err := openHub(ctx, cfg, sb)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return 1
	}
	defer h.Close()

	return runHeartbeat(ctx, h.registry, h.monitor, opts, out)
}

func runHeartbeat(ctx context.Context, reg *registry.Registry, monitor *heartbeat.Monitor, opts *HeartbeatOptions, out io.Writer) int {
	var results []heartbeat.Result
	switch opts.Command {
	case HeartbeatStatus:
		results = monitor.CheckAll(ctx)
		if len(results) == 0 {
			fmt.Fprintln(out, "No integrations registered.")
			return 0
		}
	case HeartbeatCheck:
		entry, err := reg.Get(ctx, opts.APIID)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return 1
		}
		results = []heartbeat.Result{monitor.CheckEntry(ctx, entry)}
	}

	names := make(map[string]string)
	for _, e := range reg.LoadAll(ctx) {
		names[e.ID] = e.Name
	}
	printResults(out, results, names)

	for _, r := range results {
		if r.Status != registry.StatusHealthy {
			return 1
		}
	}
	return 0
}

func printResults(out io.Writer, results []heartbeat.Result, names map[string]string) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tLATENCY\tMESSAGE")
	fmt.Fprintln(w, "--\t----\t------\t-------\t-------")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%dms\t%s\n", r.APIID, names[r.APIID], r.Status, r.LatencyMs, r.Error)
	}
	_ = w.Flush()
}
