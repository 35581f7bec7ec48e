package di

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"github.com/bucketry/bucketry"
	"github.com/bucketry/bucketry/config"
	"github.com/bucketry/bucketry/internal/logging"
)

// Service wrapper types for DI registration.

// ConfigService wraps the loaded client configuration.
type ConfigService struct {
	Config *config.Config
}

// LoggerService wraps the zerolog logger.
type LoggerService struct {
	Logger *zerolog.Logger
}

// EngineService wraps the resolution engine.
type EngineService struct {
	Engine *bucketry.Engine
}

// Shutdown implements do.Shutdowner for graceful engine teardown.
func (e *EngineService) Shutdown() error {
	if e.Engine != nil {
		return e.Engine.Close()
	}
	return nil
}

// RegisterSingletons registers all service providers as singletons.
// Services are registered in dependency order:
// 1. Config (no dependencies)
// 2. Logger (depends on Config)
// 3. Engine (depends on Config, Logger).
func RegisterSingletons(i do.Injector) {
	do.Provide(i, NewConfig)
	do.Provide(i, NewLogger)
	do.Provide(i, NewEngine)
}

// NewConfig loads the client configuration from the named config path.
// An empty path yields defaults: an inert engine.
func NewConfig(i do.Injector) (*ConfigService, error) {
	path := do.MustInvokeNamed[string](i, ConfigPathKey)
	if path == "" {
		return &ConfigService{Config: &config.Config{}}, nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &ConfigService{Config: cfg}, nil
}

// NewLogger creates the zerolog logger from configuration.
func NewLogger(i do.Injector) (*LoggerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)

	logger, err := logging.New(cfgSvc.Config.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return &LoggerService{Logger: &logger}, nil
}

// NewEngine creates the resolution engine.
func NewEngine(i do.Injector) (*EngineService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	logSvc := do.MustInvoke[*LoggerService](i)

	engine, err := bucketry.New(cfgSvc.Config, bucketry.WithLogger(*logSvc.Logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	return &EngineService{Engine: engine}, nil
}
