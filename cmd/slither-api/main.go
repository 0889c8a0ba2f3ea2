// Slither API - HTTP wrapper around the Slither Solidity static analyzer.
//
// Usage:
//
//	slither-api -addr :8000
//	slither-api -config config.yaml
//
// The service accepts Solidity source over POST /analyze, runs Slither in
// an isolated temp directory, and returns normalized findings.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/auditdapps/slither-api/pkg/analyzer/slither"
	"github.com/auditdapps/slither-api/pkg/core"
	"github.com/auditdapps/slither-api/pkg/health"
	"github.com/auditdapps/slither-api/pkg/metrics"
	"github.com/auditdapps/slither-api/pkg/server"
)

const (
	appName    = "slither-api"
	appVersion = "1.0.0"
)

// Config represents the service configuration.
type Config struct {
	Server struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
		MaxBodyBytes   int64    `yaml:"max_body_bytes"`
		RateLimit      float64  `yaml:"rate_limit"`
		RateBurst      int      `yaml:"rate_burst"`
		Verbose        bool     `yaml:"verbose"`
	} `yaml:"server"`

	Analyzer struct {
		Binary         string        `yaml:"binary"`
		Timeout        time.Duration `yaml:"timeout"`
		MaxSourceBytes int           `yaml:"max_source_bytes"`
	} `yaml:"analyzer"`
}

func main() {
	configPath := flag.String("config", "", "Path to config file")
	addr := flag.String("addr", ":8000", "Listen address")
	binary := flag.String("binary", "", "Path to the slither binary (or SLITHER_BINARY env)")
	verbose := flag.Bool("verbose", false, "Verbose output")
	showVersion := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", appName, appVersion)
		os.Exit(0)
	}

	var cfg Config
	if *configPath != "" {
		if err := loadConfig(*configPath, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	applyDefaults(&cfg, *addr, *binary, *verbose)

	logger := core.LoggerFromVerbose(appName, cfg.Server.Verbose)

	scanner := slither.NewScanner()
	scanner.Binary = cfg.Analyzer.Binary
	scanner.Logger = logger
	if cfg.Analyzer.Timeout > 0 {
		scanner.Timeout = cfg.Analyzer.Timeout
	}
	if cfg.Analyzer.MaxSourceBytes > 0 {
		scanner.MaxSourceBytes = cfg.Analyzer.MaxSourceBytes
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	installed, version, err := scanner.IsInstalled(startCtx)
	cancelStart()
	switch {
	case err != nil:
		logger.Warn("slither version probe failed: %v", err)
	case installed:
		logger.Info("slither %s found at %s", version, scanner.Binary)
	default:
		logger.Warn("slither binary %q not found; /analyze will fail until installed", scanner.Binary)
	}

	collector := metrics.NewPrometheusCollector(&metrics.PrometheusConfig{
		RegisterServiceMetrics: true,
	})

	probes := health.NewHandler(health.WithVersion(appVersion))
	probes.Register("slither", &health.BinaryCheck{
		Tool:  scanner.Name(),
		Probe: scanner.IsInstalled,
	})
	probes.Register("disk", &health.DiskCheck{
		Path:           os.TempDir(),
		MinFreePercent: 2,
	})

	srvCfg := server.DefaultConfig()
	srvCfg.AllowedOrigins = cfg.Server.AllowedOrigins
	srvCfg.MaxBodyBytes = cfg.Server.MaxBodyBytes
	srvCfg.RateLimit = cfg.Server.RateLimit
	srvCfg.RateBurst = cfg.Server.RateBurst

	srv := server.New(srvCfg, scanner,
		server.WithLogger(logger),
		server.WithCollector(collector),
		server.WithHealth(probes),
	)

	httpServer := server.NewHTTPServer(cfg.Server.Addr, srv.Routes(), scanner.Timeout)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening on %s", cfg.Server.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error: %v", err)
			os.Exit(1)
		}
		return
	}

	probes.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error: %v", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func loadConfig(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables in config
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	return nil
}

// applyDefaults fills unset config fields from flags, environment, and
// the built-in defaults.
func applyDefaults(cfg *Config, addr, binary string, verbose bool) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = addr
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = server.DefaultConfig().AllowedOrigins
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = server.DefaultConfig().MaxBodyBytes
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = server.DefaultConfig().RateLimit
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = server.DefaultConfig().RateBurst
	}
	if verbose {
		cfg.Server.Verbose = true
	}

	if cfg.Analyzer.Binary == "" {
		cfg.Analyzer.Binary = binary
	}
	if cfg.Analyzer.Binary == "" {
		cfg.Analyzer.Binary = os.Getenv("SLITHER_BINARY")
	}
	if cfg.Analyzer.Binary == "" {
		cfg.Analyzer.Binary = slither.DefaultBinary
	}
}
