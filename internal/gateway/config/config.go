package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"archigen/internal/llm"
	"archigen/internal/pipeline"
	t "archigen/internal/types"
)

type Config struct {
	Port    string
	Env     string
	LLM     LLMConfig
	Session SessionConfig
	Archive ArchiveConfig

	StageTimeout time.Duration
	Countries    []string
	OTelStdout   bool
}

type LLMConfig struct {
	APIKey        string
	AnalysisModel string
	ImageModel    string
	VisionModel   string

	RetryAttempts int
	RetryBase     time.Duration
	// RPS <= 0 disables rate limiting.
	RPS   float64
	Burst int
}

type SessionConfig struct {
	MaxSessions int
	TTL         time.Duration
}

type ArchiveConfig struct {
	// Backend is one of memory, s3 or postgres.
	Backend     string
	Endpoint    string
	Region      string
	AccessKey   string
	SecretKey   string
	Bucket      string
	UseSSL      bool
	DatabaseURL string
}

// fileConfig is the optional YAML overlay named by ARCHIGEN_CONFIG.
type fileConfig struct {
	Models struct {
		Analysis string `yaml:"analysis"`
		Image    string `yaml:"image"`
		Vision   string `yaml:"vision"`
	} `yaml:"models"`
	StageTimeout string `yaml:"stageTimeout"`
	Retry        struct {
		Attempts int    `yaml:"attempts"`
		Base     string `yaml:"base"`
	} `yaml:"retry"`
	Countries []string `yaml:"countries"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(os.Args[1:], os.Getenv)
}

// LoadEnv reads the same settings without touching command-line flags.
func LoadEnv() (*Config, error) {
	_ = godotenv.Load()
	return load(nil, os.Getenv)
}

func load(args []string, getenv func(string) string) (*Config, error) {
	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	port := fs.String("port", ":8081", "server port")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	env := func(key string) string { return strings.TrimSpace(getenv(key)) }

	if envPort := env("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	appEnv := firstNonEmpty(env("APP_ENV"), "local")

	cfg := &Config{
		Port: *port,
		Env:  appEnv,
		LLM: LLMConfig{
			APIKey:        firstNonEmpty(env("GEMINI_API_KEY"), env("API_KEY")),
			AnalysisModel: firstNonEmpty(env("ARCHIGEN_ANALYSIS_MODEL"), llm.DefaultAnalysisModel),
			ImageModel:    firstNonEmpty(env("ARCHIGEN_IMAGE_MODEL"), llm.DefaultImageModel),
			VisionModel:   firstNonEmpty(env("ARCHIGEN_VISION_MODEL"), llm.DefaultVisionModel),
			RetryAttempts: parseInt(env("LLM_RETRY_ATTEMPTS"), 3),
			RetryBase:     parseDuration(env("LLM_RETRY_BASE"), 300*time.Millisecond),
			RPS:           parseFloat(env("LLM_RPS"), 0),
			Burst:         parseInt(env("LLM_BURST"), 1),
		},
		Session: SessionConfig{
			MaxSessions: parseInt(env("ARCHIGEN_SESSION_MAX"), 256),
			TTL:         parseDuration(env("ARCHIGEN_SESSION_TTL"), 30*time.Minute),
		},
		Archive:      loadArchiveConfig(appEnv, env),
		StageTimeout: parseDuration(env("ARCHIGEN_STAGE_TIMEOUT"), pipeline.DefaultStageTimeout),
		Countries:    append([]string(nil), t.Countries...),
		OTelStdout:   parseBool(env("OTEL_STDOUT"), false),
	}

	if path := env("ARCHIGEN_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	c.LLM.AnalysisModel = firstNonEmpty(fc.Models.Analysis, c.LLM.AnalysisModel)
	c.LLM.ImageModel = firstNonEmpty(fc.Models.Image, c.LLM.ImageModel)
	c.LLM.VisionModel = firstNonEmpty(fc.Models.Vision, c.LLM.VisionModel)
	if fc.StageTimeout != "" {
		d, err := time.ParseDuration(fc.StageTimeout)
		if err != nil {
			return fmt.Errorf("config %s: stageTimeout: %w", path, err)
		}
		c.StageTimeout = d
	}
	if fc.Retry.Attempts > 0 {
		c.LLM.RetryAttempts = fc.Retry.Attempts
	}
	if fc.Retry.Base != "" {
		d, err := time.ParseDuration(fc.Retry.Base)
		if err != nil {
			return fmt.Errorf("config %s: retry.base: %w", path, err)
		}
		c.LLM.RetryBase = d
	}
	if len(fc.Countries) > 0 {
		c.Countries = fc.Countries
	}
	return nil
}

func parseInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func parseFloat(raw string, def float64) float64 {
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func parseBool(raw string, def bool) bool {
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func parseDuration(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
