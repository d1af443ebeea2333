package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/redhat-data-and-ai/smokecheck/internal/errors"
	"github.com/redhat-data-and-ai/smokecheck/internal/smoke"
)

// version is stamped by the release build via -ldflags
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run parses flags, executes one validation, and returns the process exit
// code. Split from main so tests can drive it.
func run(args []string, out io.Writer) int {
	flags := flag.NewFlagSet("smokecheck", flag.ContinueOnError)
	flags.SetOutput(out)
	configPath := flags.String("config", "", "path to an optional YAML config file (environment variables take precedence)")
	showVersion := flags.Bool("version", false, "print the version and exit")

	if err := flags.Parse(args); err != nil {
		return errors.ExitConnectionFailure
	}
	if *showVersion {
		fmt.Fprintf(out, "smokecheck %s\n", version)
		return errors.ExitSuccess
	}

	// A .env file in the working directory is a convenience for local runs;
	// real environment variables always win
	_ = godotenv.Load()

	// An interrupt cancels the run: the in-flight statement is cancelled,
	// the session closed, and the process exits through the normal mapping
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := smoke.Run(ctx, *configPath)
	fmt.Fprintln(out, result.Summary())
	return result.ExitCode()
}
