package infra

import (
	"fmt"
	"io"

	"bitex_go/pkg/bitex"
)

// ANSI Color Codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
)

// Mode names the exchange environment a configuration points at.
func (c *Config) Mode() string {
	switch c.BaseURL() {
	case bitex.ProductionURL:
		return "PRODUCTION"
	case bitex.SandboxURL:
		return "SANDBOX"
	default:
		return "CUSTOM"
	}
}

// PrintBanner writes the startup banner with mode-specific warnings to w.
func PrintBanner(w io.Writer, cfg *Config) {
	mode := cfg.Mode()

	color := ColorGreen
	switch mode {
	case "PRODUCTION":
		color = ColorRed
	case "CUSTOM":
		color = ColorCyan
	}

	auth := "anonymous"
	if cfg.API.Bitex.APIKey != "" {
		auth = "api key set"
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s###########################################################%s\n", color, ColorReset)
	fmt.Fprintf(w, "%s#   MODE:    %-44s #%s\n", color, mode, ColorReset)
	fmt.Fprintf(w, "%s#   URL:     %-44s #%s\n", color, cfg.BaseURL(), ColorReset)
	fmt.Fprintf(w, "%s#   AUTH:    %-44s #%s\n", color, auth, ColorReset)
	fmt.Fprintf(w, "%s#   VERSION: %-44s #%s\n", color, cfg.App.Version, ColorReset)

	if mode == "PRODUCTION" {
		fmt.Fprintf(w, "%s#   WARNING: ORDERS USE REAL MONEY                        #%s\n", ColorYellow, ColorReset)
	}

	fmt.Fprintf(w, "%s###########################################################%s\n", color, ColorReset)
	fmt.Fprintln(w)
}
