// grocery is a command-line front end for the grocery item service.
//
// Usage:
//
//	grocery [--server URL] <command> [flags] [args]
//
// The server defaults to $GROCERY_SERVER, then http://localhost:8080.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/pflag"

	"github.com/dukerupert/grocerylist/internal/client"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	serverURL := os.Getenv("GROCERY_SERVER")
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}
	var timeout time.Duration
	var verbose bool

	flagSet := pflag.NewFlagSet("grocery", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&serverURL, "server", serverURL, "grocery service base URL")
	flagSet.DurationVar(&timeout, "timeout", 10*time.Second, "per-request timeout")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log failed requests to stderr")
	flagSet.Usage = func() { printUsage(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	rest := flagSet.Args()
	if len(rest) == 0 {
		printUsage(stderr, flagSet)
		return pflag.ErrHelp
	}

	level := slog.LevelError + 1
	if verbose {
		level = slog.LevelDebug
	}
	app := &app{
		client: client.New(client.Config{
			BaseURL:    serverURL,
			HTTPClient: newHTTPClient(timeout),
			Logger:     slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
		}),
		out:    stdout,
		errOut: stderr,
		now:    time.Now,
	}

	cmd, ok := commands[rest[0]]
	if !ok {
		printUsage(stderr, flagSet)
		return fmt.Errorf("unknown command %q", rest[0])
	}
	return cmd.run(ctx, app, rest[1:])
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintln(w, "Usage: grocery [--server URL] <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, name := range commandOrder {
		fmt.Fprintf(w, "  %-12s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global flags:")
	fmt.Fprint(w, flagSet.FlagUsages())
}
