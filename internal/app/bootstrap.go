package app

import (
	"fmt"
	"log/slog"

	"bitex_go/internal/infra"
	"bitex_go/pkg/bitex"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config *infra.Config
	Logger *slog.Logger
	Client bitex.Api
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Override adjusts the loaded configuration, e.g. from command line flags.
type Override func(cfg *infra.Config)

// Initialize loads the configuration, applies overrides, installs the logger
// and builds the Bitex client. explicitConfig may be empty.
func (b *Bootstrap) Initialize(explicitConfig string, overrides ...Override) error {
	// 1. Load Config (Dynamic Path Resolution)
	path := infra.ResolveConfigPath(explicitConfig)
	cfg, err := infra.LoadConfig(path)
	if err != nil {
		return err // Let main handle the error
	}
	if len(overrides) > 0 {
		for _, o := range overrides {
			o(cfg)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}
	b.Config = cfg

	// 2. Setup Logger
	b.Logger = infra.NewLogger(cfg)
	slog.SetDefault(b.Logger)
	if path == "" {
		slog.Debug("No config file found, running on defaults")
	}

	// 3. Client
	b.Client = NewClient(cfg, b.Logger)
	slog.Info("✅ Bitex client ready",
		slog.String("mode", cfg.Mode()),
		slog.String("base_url", b.Client.BaseURL()),
		slog.Bool("authenticated", b.Client.Key() != ""),
	)
	return nil
}

// NewClient builds a Bitex client for cfg behind the guarded transport.
func NewClient(cfg *infra.Config, logger *slog.Logger) bitex.Api {
	return bitex.New(cfg.BaseURL()).
		WithKey(cfg.API.Bitex.APIKey).
		WithHTTPClient(infra.NewHTTPClient(cfg, logger))
}
