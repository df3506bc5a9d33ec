package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gantryci/gantry/internal/app"
	"github.com/gantryci/gantry/internal/cli"
	"github.com/gantryci/gantry/internal/config"
	"github.com/gantryci/gantry/internal/hcl"
	"github.com/gantryci/gantry/internal/yamlcfg"
)

// main is the entrypoint for the gantry application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		var confErr *config.ConfigurationError
		if errors.As(err, &confErr) {
			fmt.Fprintln(os.Stderr, confErr.Error())
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling.
func run(outW io.Writer, args []string) error {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	gantryApp, err := app.NewApp(outW, appConfig, loaderFor(appConfig.PipelinePath), nil)
	if err != nil {
		return err
	}

	// A SIGINT/SIGTERM cancels the run: running jobs are terminated
	// best-effort and pending jobs are skipped.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return gantryApp.Run(ctx)
}

// loaderFor selects the configuration loader from the pipeline path's
// extension. Directories default to the HCL loader.
func loaderFor(path string) config.Loader {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
		return yamlcfg.NewLoader()
	}
	return hcl.NewLoader()
}
