package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/vk/runflowgo/internal/app"
	"github.com/vk/runflowgo/internal/cli"
	"github.com/vk/runflowgo/internal/hcl"
)

func main() {
	// Minimal logger until Parse hands over the real configuration.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// run holds the real program logic so tests and main share one entrypoint.
func run(outW io.Writer, args []string) error {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil || shouldExit {
		return err
	}

	// Startup failures inside NewApp panic; surface them as an ordinary
	// error instead of a stack trace.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(outW, "A critical startup error occurred: %v\n", r)
			os.Exit(1)
		}
	}()

	host := app.NewApp(outW, appConfig, hcl.NewLoader())
	return host.Run(context.Background())
}
