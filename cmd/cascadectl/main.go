// Command cascadectl administers a layered cache from its YAML config:
// refresh re-pulls keys from the relational source, clear drops cached
// state after confirmation, stats reports where each key currently lives.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

var errUsage = errors.New("usage")

const usage = `usage: cascadectl -config <file> [-yes] <command> [args]

commands:
  refresh [key ...]  re-pull keys (default: every bound key) from the source
  clear [key ...]    drop cached state for keys (default: everything)
  stats              report layer presence per key and accessor counters

flags:
  -config <file>  YAML config (default "cascade.yaml")
  -yes            skip confirmation prompts
`

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	err := run(os.Args[1:], os.Stdin, os.Stdout, log)
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		os.Exit(2)
	default:
		log.Error("cascadectl failed", "err", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer, log *slog.Logger) error {
	fs := flag.NewFlagSet("cascadectl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "cascade.yaml", "path to the YAML config")
	yes := fs.Bool("yes", false, "skip confirmation prompts")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprint(stdout, usage)
		return errUsage
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}
	a, err := buildApp(cfg, log)
	if err != nil {
		return err
	}
	ctx := context.Background()
	defer func() {
		if cerr := a.close(ctx); cerr != nil {
			log.Warn("close failed", "err", cerr)
		}
	}()

	switch rest[0] {
	case "refresh":
		return a.refresh(ctx, rest[1:], stdout)
	case "clear":
		return a.clear(ctx, rest[1:], stdin, stdout, *yes)
	case "stats":
		return a.statsReport(ctx, stdout)
	default:
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("%w: unknown command %q", errUsage, rest[0])
	}
}

func confirm(stdin io.Reader, w io.Writer, prompt string) bool {
	fmt.Fprint(w, prompt)
	sc := bufio.NewScanner(stdin)
	if !sc.Scan() {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(sc.Text())) {
	case "y", "yes":
		return true
	}
	return false
}
