// ringlogctl is a small command-line harness around a ringlog.Logger: it
// allocates a ring, wires a clock.Source and an optional sink.Sink, and
// lets an operator write, drain, or inspect stats from the shell. Folded
// into one always-built binary in place of the teacher's loose examples/
// tree of standalone demo programs.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/agilira/ringlog"
	"github.com/agilira/ringlog/clock"
	"github.com/agilira/ringlog/sink"
)

func main() {
	var (
		capacity = flag.Uint("capacity", 65536, "ring capacity in bytes, must be a power of two")
		level    = flag.String("level", "trace", "minimum level admitted: trace|debug|info|warn|error|fatal|none")
		out      = flag.String("out", "", "path to a rotating file sink; empty disables the sink")
		maxSize  = flag.String("max-size", "", "sink rotation size threshold, e.g. 10MB")
		maxAge   = flag.String("max-age", "", "sink rotation age threshold, e.g. 24h or 7d")
		backups  = flag.Int("max-backups", 0, "sink backups to retain, 0 means unlimited")
		compress = flag.Bool("compress", false, "gzip rotated sink files")
		checksum = flag.Bool("checksum", false, "write a SHA-256 sidecar for each rotated sink file")
	)
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	lvl, err := parseLevel(*level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	buf := make([]byte, *capacity)
	logger, err := ringlog.Init(buf, uint32(*capacity))
	if err != nil {
		fmt.Fprintln(os.Stderr, "ringlogctl: init:", err)
		os.Exit(1)
	}
	logger.SetLevel(lvl)
	logger.DiagnosticCallback = func(event, detail string) {
		fmt.Fprintf(os.Stderr, "ringlogctl: %s: %s\n", event, detail)
	}

	clk := clock.New()
	defer clk.Stop()

	var sk *sink.Sink
	if *out != "" {
		sk, err = sink.Open(logger, *out, sink.Config{
			MaxSizeStr: *maxSize,
			MaxAgeStr:  *maxAge,
			MaxBackups: *backups,
			Compress:   *compress,
			Checksum:   *checksum,
			ErrorCallback: func(operation string, err error) {
				fmt.Fprintf(os.Stderr, "ringlogctl: sink %s: %v\n", operation, err)
			},
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "ringlogctl: sink:", err)
			os.Exit(1)
		}
		defer sk.Close()
	}

	switch cmd := flag.Arg(0); cmd {
	case "write":
		runWrite(logger, clk)
	case "drain":
		runDrain(logger)
	case "stats":
		runStats(logger, sk)
	default:
		fmt.Fprintf(os.Stderr, "ringlogctl: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}
}

// runWrite reads lines from stdin as "level message" pairs (level
// defaults to info when omitted) and writes each to the ring.
func runWrite(logger *ringlog.Logger, clk *clock.Source) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		lvl, msg := ringlog.Info, scanner.Text()
		if parts := strings.SplitN(msg, " ", 2); len(parts) == 2 {
			if parsed, err := parseLevel(parts[0]); err == nil {
				lvl, msg = parsed, parts[1]
			}
		}

		if err := logger.Write(lvl, clk.Now(), msg); err != nil {
			fmt.Fprintln(os.Stderr, "ringlogctl: write:", err)
		}
	}
}

// runDrain reads every currently-available record and prints it, then
// exits; it does not block waiting for more.
func runDrain(logger *ringlog.Logger) {
	out := make([]byte, 64*1024)
	for {
		n, lvl, ts, err := logger.Read(out)
		switch err {
		case nil:
			fmt.Printf("%d %s %s\n", ts, lvl, out[:n])
		case ringlog.ErrBusy:
			continue
		default:
			return
		}
	}
}

func runStats(logger *ringlog.Logger, sk *sink.Sink) {
	fmt.Printf("level=%s available=%d empty=%v\n", logger.GetLevel(), logger.Available(), logger.IsEmpty())
	if sk != nil {
		stats := sk.Stats()
		fmt.Printf("sink records=%d bytes=%d rotations=%d\n", stats.RecordsWritten, stats.BytesWritten, stats.Rotations)
	}
}

func parseLevel(s string) (ringlog.Level, error) {
	switch strings.ToLower(s) {
	case "trace":
		return ringlog.Trace, nil
	case "debug":
		return ringlog.Debug, nil
	case "info":
		return ringlog.Info, nil
	case "warn":
		return ringlog.Warn, nil
	case "error":
		return ringlog.Error, nil
	case "fatal":
		return ringlog.Fatal, nil
	case "none":
		return ringlog.None, nil
	default:
		return 0, fmt.Errorf("ringlogctl: unknown level %q", s)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: ringlogctl [flags] write|drain|stats")
	flag.PrintDefaults()
}
