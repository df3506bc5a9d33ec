package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/gantryci/gantry/internal/config"
	"github.com/gantryci/gantry/internal/ctxlog"
	"github.com/gantryci/gantry/internal/envbuild"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	loader     config.Loader
	engine     envbuild.Engine
	model      *config.Model
	httpServer *http.Server
}

// NewApp constructs the application: it configures the logger, ingests the
// optional dotenv file, and loads the pipeline definition into the unified
// model. A configuration problem is returned, not deferred to run time.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, engine envbuild.Engine) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if appConfig.EnvFile != "" {
		if err := godotenv.Load(appConfig.EnvFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", appConfig.EnvFile, err)
		}
		logger.Debug("Loaded environment file.", "path", appConfig.EnvFile)
	} else if _, err := os.Stat(".env"); err == nil {
		// A .env in the working directory is picked up when present.
		_ = godotenv.Load()
		logger.Debug("Loaded .env from working directory.")
	}

	model, err := loader.Load(ctx, appConfig.PipelinePath)
	if err != nil {
		return nil, err
	}
	logger.Debug("Configuration loaded and translated into unified model.",
		"environments", len(model.Pipeline.Environments), "jobs", len(model.Pipeline.Jobs))

	if engine == nil {
		engine = envbuild.LocalEngine{}
	}

	return &App{
		outW:   outW,
		logger: logger,
		config: appConfig,
		loader: loader,
		engine: engine,
		model:  model,
	}, nil
}

// Model returns the loaded pipeline model. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}
