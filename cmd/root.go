package cmd

import (
	"errors"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/fitcheck/internal/evaluator"
	"github.com/spigell/fitcheck/internal/extractor"
	"github.com/spigell/fitcheck/internal/report"
)

const (
	app       = "fitcheck"
	envPrefix = "FITCHECK"
	dotEnv    = ".env"
)

type Config struct {
	Backend    *BackendConfig    `mapstructure:"backend"`
	Response   *ResponseConfig   `mapstructure:"response"`
	Extraction *ExtractionConfig `mapstructure:"extraction"`
	Output     *OutputConfig     `mapstructure:"output"`
}

type BackendConfig struct {
	URL           string        `mapstructure:"url"`
	EvaluatePath  string        `mapstructure:"evaluate-path"`
	HealthPath    string        `mapstructure:"health-path"`
	Timeout       time.Duration `mapstructure:"timeout"`
	HealthTimeout time.Duration `mapstructure:"health-timeout"`
	UserAgent     string        `mapstructure:"user-agent"`
}

type ResponseConfig struct {
	LearningPathFields []string `mapstructure:"learning-path-fields"`
}

type ExtractionConfig struct {
	PDFStrategies   []string      `mapstructure:"pdf-strategies"`
	Disabled        []string      `mapstructure:"disabled-strategies"`
	StrategyTimeout time.Duration `mapstructure:"strategy-timeout"`
	MaxFileSize     int64         `mapstructure:"max-file-size"`
	AI              *AIConfig     `mapstructure:"ai"`
}

type AIConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
}

type OutputConfig struct {
	Format       string `mapstructure:"format"`
	Wrap         int    `mapstructure:"wrap"`
	Raw          bool   `mapstructure:"raw"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "fitcheck sends a resume and a job description to a fit evaluator and prints the verdict",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	setDefaults()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindings := map[string][]string{
		"backend.url":                {"BACKEND_URL", envPrefix + "_BACKEND_URL"},
		"extraction.ai.api-key-file": {"GEMINI_API_KEY_FILE"},
	}
	for key, envs := range bindings {
		if err := viper.BindEnv(append([]string{key}, envs...)...); err != nil {
			log.Fatalf("binding %s environment variables: %v", strings.Join(envs, ", "), err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is fitcheck.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("backend-url", "", "base URL of the evaluation backend")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("backend.url", rootCmd.PersistentFlags().Lookup("backend-url"))
}

func setDefaults() {
	viper.SetDefault("backend.url", evaluator.DefaultBaseURL)
	viper.SetDefault("backend.evaluate-path", evaluator.DefaultEvaluatePath)
	viper.SetDefault("backend.health-path", evaluator.DefaultHealthPath)
	viper.SetDefault("backend.timeout", 30*time.Second)
	viper.SetDefault("backend.health-timeout", 5*time.Second)
	viper.SetDefault("backend.user-agent", "")

	viper.SetDefault("response.learning-path-fields", evaluator.DefaultLearningPathFields)

	viper.SetDefault("extraction.pdf-strategies", extractor.DefaultPDFStrategies)
	viper.SetDefault("extraction.disabled-strategies", []string{})
	viper.SetDefault("extraction.strategy-timeout", 20*time.Second)
	viper.SetDefault("extraction.max-file-size", 10<<20)
	viper.SetDefault("extraction.ai.enabled", false)
	viper.SetDefault("extraction.ai.provider", "gemini")
	viper.SetDefault("extraction.ai.model", "gemini-2.5-flash")
	viper.SetDefault("extraction.ai.api-key", "")
	viper.SetDefault("extraction.ai.api-key-file", "")

	viper.SetDefault("output.format", report.FormatText)
	viper.SetDefault("output.wrap", report.DefaultWrap)
	viper.SetDefault("output.raw", false)
	viper.SetDefault("output.max-log-length", 200)
}

func initConfig() {
	// A missing .env is normal; a broken one is not.
	if err := godotenv.Load(dotEnv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading %s: %v", dotEnv, err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional unless given explicitly, every key has a default.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.Backend == nil {
		config.Backend = &BackendConfig{}
	}
	config.Backend.URL = strings.TrimRight(strings.TrimSpace(config.Backend.URL), "/")

	if config.Response == nil {
		config.Response = &ResponseConfig{}
	}
	if config.Extraction == nil {
		config.Extraction = &ExtractionConfig{}
	}
	if config.Output == nil {
		config.Output = &OutputConfig{}
	}

	return config, nil
}
