package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-apk-analyzer/internal/cache"
	"github.com/deploymenttheory/go-apk-analyzer/internal/classifier"
	"github.com/deploymenttheory/go-apk-analyzer/internal/config"
	"github.com/deploymenttheory/go-apk-analyzer/internal/inspector"
	"github.com/deploymenttheory/go-apk-analyzer/internal/logger"
	"github.com/deploymenttheory/go-apk-analyzer/internal/pipeline"
	"github.com/deploymenttheory/go-apk-analyzer/internal/reputation"
	"github.com/deploymenttheory/go-apk-analyzer/internal/server"
	"github.com/deploymenttheory/go-apk-analyzer/internal/trust"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "apk-analyzer [files...]",
		Short: "Static malware analysis for Android packages",
		Long: `Scans Android application packages: extracts permissions, components,
code patterns and signer certificates, classifies them with a trained model
(or a deterministic heuristic fallback), cross-checks the content hash
against an external reputation source, and fuses everything into one risk
verdict.`,
		Args:             cobra.MinimumNArgs(1),
		PersistentPreRun: setupLogging,
		RunE:             runScan,
	}

	// Logging flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose debugging output")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().String("log-file", "", "log to file instead of stdout")

	// Pipeline flags
	rootCmd.PersistentFlags().String("model", "", "path to classifier model artifact (overrides MODEL_PATH)")
	rootCmd.PersistentFlags().String("cache", "", "path to the JSON result cache (overrides CACHE_PATH)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scan HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serveCmd.Flags().String("listen", "", "listen address (overrides LISTEN_ADDR)")
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Errorf("Error executing command: %v", err)
		os.Exit(1)
	}
}

// setupLogging configures the logger based on command line flags
func setupLogging(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		logger.SetLevel(logger.LevelDebug)
	} else {
		logger.SetLevel(logger.LevelInfo)
	}

	noColor, _ := cmd.Flags().GetBool("no-color")
	if noColor {
		logger.DisableColors()
	}

	logFile, _ := cmd.Flags().GetString("log-file")
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			logger.Errorf("Failed to open log file: %v", err)
		} else {
			logger.DisableColors()
			logger.Initialize(file, file, file, file)
		}
	}
}

// buildPipeline wires the pipeline from configuration.
func buildPipeline(cmd *cobra.Command, cfg config.Config) (*pipeline.Pipeline, error) {
	if v, _ := cmd.Flags().GetString("model"); v != "" {
		cfg.ModelPath = v
	}
	if v, _ := cmd.Flags().GetString("cache"); v != "" {
		cfg.CachePath = v
	}

	var store cache.Store
	var err error
	if cfg.RedisAddr != "" {
		store, err = cache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	} else {
		store, err = cache.NewJSONStore(cfg.CachePath)
	}
	if err != nil {
		return nil, fmt.Errorf("opening result store: %w", err)
	}

	checker := reputation.NewVirusTotal(cfg.VirusTotalAPIKey,
		reputation.WithTimeout(time.Duration(cfg.ReputationTimeout)*time.Second))

	return pipeline.New(
		inspector.New(),
		classifier.New(cfg.ModelPath),
		trust.NewEvaluator(trust.DefaultTables(), nil),
		checker,
		cache.New(store),
	), nil
}

func runScan(cmd *cobra.Command, args []string) error {
	p, err := buildPipeline(cmd, config.Load())
	if err != nil {
		return err
	}
	defer p.Cache().Close()

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		report, cached, err := p.Scan(context.Background(), data, path)
		if err != nil {
			return fmt.Errorf("scanning %s: %w", path, err)
		}
		if cached {
			logger.Infof("Returning cached result for %s", path)
		}
		if err := encoder.Encode(report); err != nil {
			return err
		}
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if v, _ := cmd.Flags().GetString("listen"); v != "" {
		cfg.ListenAddr = v
	}

	p, err := buildPipeline(cmd, cfg)
	if err != nil {
		return err
	}
	defer p.Cache().Close()

	return server.New(p, cfg.MaxUploadBytes).Run(cfg.ListenAddr)
}
