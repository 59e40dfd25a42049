package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Result store
	DBPath string

	// Entity tagger
	Tagger          string // "python" or "http"
	TaggerURL       string
	TaggerPython    string
	TaggerModel     string
	TaggerScriptDir string
	TaggerMaxBytes  int // Longer text units are tagged in pieces.

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool

	// Layout and quiz tuning
	BlankLinePolicy     string
	RepairHyphenation   bool
	EntityBlacklist     []string
	DisjointDistractors bool

	// HTTP
	AllowedOrigins []string

	LogLevel string
}

var defaults = map[string]any{
	"port":                   "8090",
	"db_path":                "data/docquiz.db",
	"tagger":                 "python",
	"tagger_url":             "http://localhost:8000",
	"tagger_python":          "python3",
	"tagger_model":           "en_core_web_sm",
	"tagger_max_bytes":       100000,
	"worker_count":           2,
	"max_queue_size":         100,
	"max_upload_bytes":       52428800, // 50MB
	"job_ttl":                time.Hour,
	"pdf_fallback_pdftotext": true,
	"blank_line_policy":      "discard",
	"repair_hyphenation":     true,
	"entity_blacklist":       "vs",
	"disjoint_distractors":   false,
	"allowed_origins":        "*",
	"log_level":              "info",
}

// Load reads .env, then an optional YAML file, then the environment.
// configFile may be empty, in which case docquiz.yaml is looked up in the
// working directory and ~/.config/docquiz.
func Load(configFile string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("docquiz")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "docquiz"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		Port: v.GetString("port"),

		APIKey: v.GetString("docquiz_api_key"),

		DBPath: v.GetString("db_path"),

		Tagger:          strings.ToLower(v.GetString("tagger")),
		TaggerURL:       v.GetString("tagger_url"),
		TaggerPython:    v.GetString("tagger_python"),
		TaggerModel:     v.GetString("tagger_model"),
		TaggerScriptDir: v.GetString("tagger_script_dir"),
		TaggerMaxBytes:  v.GetInt("tagger_max_bytes"),

		WorkerCount:  v.GetInt("worker_count"),
		MaxQueueSize: v.GetInt("max_queue_size"),

		MaxUploadBytes: v.GetInt64("max_upload_bytes"),

		JobTTL: v.GetDuration("job_ttl"),

		PDFFallbackPdftotext: v.GetBool("pdf_fallback_pdftotext"),

		BlankLinePolicy:     v.GetString("blank_line_policy"),
		RepairHyphenation:   v.GetBool("repair_hyphenation"),
		EntityBlacklist:     stringList(v, "entity_blacklist"),
		DisjointDistractors: v.GetBool("disjoint_distractors"),

		AllowedOrigins: stringList(v, "allowed_origins"),

		LogLevel: v.GetString("log_level"),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg, nil
}

// Validate checks what the HTTP server needs. The CLI only needs a
// working tagger and skips the API key check.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("DOCQUIZ_API_KEY is required")
	}
	return c.ValidateTagger()
}

// ValidateTagger checks the tagger settings.
func (c Config) ValidateTagger() error {
	switch c.Tagger {
	case "python":
		if c.TaggerPython == "" {
			return fmt.Errorf("TAGGER_PYTHON is required for the python tagger")
		}
	case "http":
		if c.TaggerURL == "" {
			return fmt.Errorf("TAGGER_URL is required for the http tagger")
		}
	default:
		return fmt.Errorf("TAGGER must be python or http, got %q", c.Tagger)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// stringList accepts either a YAML list or a comma-separated string.
func stringList(v *viper.Viper, key string) []string {
	var parts []string
	if s, ok := v.Get(key).(string); ok {
		parts = strings.Split(s, ",")
	} else {
		parts = v.GetStringSlice(key)
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
