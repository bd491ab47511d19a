package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "LOGCLS"

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Security   SecurityConfig   `yaml:"security" envconfig:"SECURITY"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Paths      PathsConfig      `yaml:"paths" envconfig:"PATHS"`
	WebSocket  WebSocketConfig  `yaml:"websocket" envconfig:"WEBSOCKET"`
	Classifier ClassifierConfig `yaml:"classifier" envconfig:"CLASSIFIER"`
	LLM        LLMConfig        `yaml:"llm" envconfig:"LLM"`
	Jobs       JobsConfig       `yaml:"jobs" envconfig:"JOBS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port             int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout      time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"10m"`
	IdleTimeout      time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout   time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ClassifyTimeout  time.Duration `yaml:"classify_timeout" envconfig:"CLASSIFY_TIMEOUT" default:"10m"`
	MaxUploadBytes   int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" default:"33554432"`
	MaxUploadsCached int           `yaml:"max_uploads_cached" envconfig:"MAX_UPLOADS_CACHED" default:"32"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"50"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"25"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// PathsConfig contains file system paths configuration.
// Relative entries are resolved against BaseDir.
type PathsConfig struct {
	BaseDir      string `yaml:"base_dir" envconfig:"BASE_DIR" default:"."`
	ResourcesDir string `yaml:"resources_dir" envconfig:"RESOURCES_DIR" default:"resources"`
	DataDir      string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	LogsDir      string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
	Database     string `yaml:"database" envconfig:"DATABASE" default:"data/runs.db"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// ClassifierConfig controls the routing and the local model
type ClassifierConfig struct {
	Workers             int      `yaml:"workers" envconfig:"WORKERS" default:"4"`
	ConfidenceThreshold float64  `yaml:"confidence_threshold" envconfig:"CONFIDENCE_THRESHOLD" default:"0.5"`
	LLMSources          []string `yaml:"llm_sources" envconfig:"LLM_SOURCES" default:"LegacyCRM"`
	RulesFile           string   `yaml:"rules_file" envconfig:"RULES_FILE"`
	TrainingFile        string   `yaml:"training_file" envconfig:"TRAINING_FILE"`
	ModelFile           string   `yaml:"model_file" envconfig:"MODEL_FILE"`
	FeatureDim          int      `yaml:"feature_dim" envconfig:"FEATURE_DIM" default:"4096"`
	Epochs              int      `yaml:"epochs" envconfig:"EPOCHS" default:"200"`
}

// LLMConfig points at an OpenAI-compatible chat completion endpoint
type LLMConfig struct {
	BaseURL     string        `yaml:"base_url" envconfig:"BASE_URL" default:"https://api.groq.com/openai/v1/chat/completions"`
	APIKey      string        `yaml:"api_key" envconfig:"API_KEY"`
	Model       string        `yaml:"model" envconfig:"MODEL" default:"deepseek-r1-distill-llama-70b"`
	Temperature float64       `yaml:"temperature" envconfig:"TEMPERATURE" default:"0.5"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"45s"`
	MaxRetries  int           `yaml:"max_retries" envconfig:"MAX_RETRIES" default:"3"`
	RPS         float64       `yaml:"rps" envconfig:"RPS" default:"2"`
	Burst       int           `yaml:"burst" envconfig:"BURST" default:"4"`
}

// JobsConfig sizes the async classification queue
type JobsConfig struct {
	Workers     int           `yaml:"workers" envconfig:"WORKERS" default:"2"`
	StopTimeout time.Duration `yaml:"stop_timeout" envconfig:"STOP_TIMEOUT" default:"30s"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Load from config file if exists
	if configFile := getConfigFilePath(); configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	// GROQ_API_KEY is what the hosted model's docs tell people to export
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = strings.TrimSpace(os.Getenv("GROQ_API_KEY"))
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs overlays the file config on the env config. Env values win
// unless they are still the struct-tag defaults and the file sets something.
func mergeConfigs(fileConfig, envConfig Config) Config {
	defaults := Default()

	if fileConfig.Server.Port != 0 && envConfig.Server.Port == defaults.Server.Port {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	if fileConfig.Logging.Level != "" && envConfig.Logging.Level == defaults.Logging.Level {
		envConfig.Logging.Level = fileConfig.Logging.Level
	}
	if fileConfig.Paths.BaseDir != "" && envConfig.Paths.BaseDir == defaults.Paths.BaseDir {
		envConfig.Paths.BaseDir = fileConfig.Paths.BaseDir
	}
	if fileConfig.Classifier.RulesFile != "" && envConfig.Classifier.RulesFile == "" {
		envConfig.Classifier.RulesFile = fileConfig.Classifier.RulesFile
	}
	if fileConfig.Classifier.TrainingFile != "" && envConfig.Classifier.TrainingFile == "" {
		envConfig.Classifier.TrainingFile = fileConfig.Classifier.TrainingFile
	}
	if fileConfig.Classifier.ModelFile != "" && envConfig.Classifier.ModelFile == "" {
		envConfig.Classifier.ModelFile = fileConfig.Classifier.ModelFile
	}
	if len(fileConfig.Classifier.LLMSources) > 0 && equalStrings(envConfig.Classifier.LLMSources, defaults.Classifier.LLMSources) {
		envConfig.Classifier.LLMSources = fileConfig.Classifier.LLMSources
	}
	if fileConfig.LLM.Model != "" && envConfig.LLM.Model == defaults.LLM.Model {
		envConfig.LLM.Model = fileConfig.LLM.Model
	}
	if fileConfig.LLM.BaseURL != "" && envConfig.LLM.BaseURL == defaults.LLM.BaseURL {
		envConfig.LLM.BaseURL = fileConfig.LLM.BaseURL
	}
	if fileConfig.LLM.APIKey != "" && envConfig.LLM.APIKey == "" {
		envConfig.LLM.APIKey = fileConfig.LLM.APIKey
	}

	return envConfig
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}

	if c.Classifier.Workers <= 0 {
		return fmt.Errorf("classifier workers must be positive, got %d", c.Classifier.Workers)
	}

	if c.Classifier.ConfidenceThreshold < 0 || c.Classifier.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold must be within [0,1], got %v", c.Classifier.ConfidenceThreshold)
	}

	if c.Classifier.FeatureDim < 16 {
		return fmt.Errorf("feature dimension too small: %d", c.Classifier.FeatureDim)
	}

	if c.LLM.RPS <= 0 {
		return fmt.Errorf("llm rps must be positive")
	}

	if c.Logging.Output != "both" && c.Logging.Output != "file" && c.Logging.Output != "console" {
		c.Logging.Output = "both"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG_FILE"); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             8080,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     10 * time.Minute,
			IdleTimeout:      60 * time.Second,
			ShutdownTimeout:  30 * time.Second,
			RequestTimeout:   30 * time.Second,
			ClassifyTimeout:  10 * time.Minute,
			MaxUploadBytes:   32 << 20,
			MaxUploadsCached: 32,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     50,
				Burst:   25,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "both",
			FilePath: "logs/app.log",
		},
		Paths: PathsConfig{
			BaseDir:      ".",
			ResourcesDir: "resources",
			DataDir:      "data",
			LogsDir:      "logs",
			Database:     "data/runs.db",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
		Classifier: ClassifierConfig{
			Workers:             4,
			ConfidenceThreshold: 0.5,
			LLMSources:          []string{"LegacyCRM"},
			FeatureDim:          4096,
			Epochs:              200,
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.groq.com/openai/v1/chat/completions",
			Model:       "deepseek-r1-distill-llama-70b",
			Temperature: 0.5,
			Timeout:     45 * time.Second,
			MaxRetries:  3,
			RPS:         2,
			Burst:       4,
		},
		Jobs: JobsConfig{
			Workers:     2,
			StopTimeout: 30 * time.Second,
		},
	}
}
