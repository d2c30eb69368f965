package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/fitcheck/internal/ai"
	"github.com/spigell/fitcheck/internal/ai/gemini"
	"github.com/spigell/fitcheck/internal/evaluator"
	"github.com/spigell/fitcheck/internal/extractor"
	"github.com/spigell/fitcheck/internal/logger"
	"github.com/spigell/fitcheck/internal/secrets"
)

// bootstrap builds the logger and loads the config. Both failures are fatal.
func bootstrap() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return logger, config
}

// redacted returns a copy of config that is safe to log.
func redacted(config *Config) *Config {
	clone := *config
	if config.Extraction != nil && config.Extraction.AI != nil && config.Extraction.AI.APIKey != "" {
		extraction := *config.Extraction
		aiConfig := *config.Extraction.AI
		aiConfig.APIKey = "<redacted>"
		extraction.AI = &aiConfig
		clone.Extraction = &extraction
	}
	return &clone
}

func newClient(config *Config, logger *zap.Logger) *evaluator.Client {
	return evaluator.New(&evaluator.Config{
		BaseURL:            config.Backend.URL,
		EvaluatePath:       config.Backend.EvaluatePath,
		HealthPath:         config.Backend.HealthPath,
		Timeout:            config.Backend.Timeout,
		HealthTimeout:      config.Backend.HealthTimeout,
		UserAgent:          config.Backend.UserAgent,
		LearningPathFields: config.Response.LearningPathFields,
		MaxLogLength:       config.Output.MaxLogLength,
	}, logger)
}

// newExtractor builds the extractor. An AI transcriber that cannot be set up
// only disables the gemini strategy.
func newExtractor(ctx context.Context, config *Config, logger *zap.Logger) (*extractor.Extractor, error) {
	transcriber, err := newTranscriber(ctx, config.Extraction.AI, config.Output.MaxLogLength, logger)
	if err != nil {
		logger.Warn("skipping ai transcription", zap.Error(err))
	}

	ex, err := extractor.New(&extractor.Config{
		PDFStrategies:   config.Extraction.PDFStrategies,
		StrategyTimeout: config.Extraction.StrategyTimeout,
		MaxFileSize:     config.Extraction.MaxFileSize,
	}, transcriber, logger)
	if err != nil {
		return nil, fmt.Errorf("building extractor: %w", err)
	}

	disableStrategies(ex, config.Extraction.Disabled, logger)

	return ex, nil
}

// disableStrategies turns off the named strategies in every format. They stay
// listed so --list-strategies can show why they were skipped.
func disableStrategies(ex *extractor.Extractor, names []string, logger *zap.Logger) {
	known := make(map[string]bool)
	for _, format := range []extractor.Format{extractor.FormatPDF, extractor.FormatDOCX} {
		for _, step := range ex.Strategies(format) {
			known[step.Name()] = true
		}
	}

	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if !known[name] {
			logger.Warn("cannot disable unknown strategy", zap.String("strategy", name))
			continue
		}
		for _, format := range []extractor.Format{extractor.FormatPDF, extractor.FormatDOCX} {
			extractor.DisableByName(ex.Strategies(format), name, "disabled in config")
		}
	}
}

func newTranscriber(ctx context.Context, cfg *AIConfig, maxLogLength int, logger *zap.Logger) (ai.Transcriber, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set GEMINI_API_KEY, extraction.ai.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	transcriber, err := gemini.NewTranscriber(ctx, apiKey, cfg.Model, maxLogLength, logger)
	if err != nil {
		return nil, err
	}

	return transcriber, nil
}
