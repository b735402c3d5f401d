// Package config loads herald's runtime configuration from an optional file
// plus HERALD_* environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig configures the inbound webhook HTTP server.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	EnableCORS   bool          `mapstructure:"enable_cors"`
	Debug        bool          `mapstructure:"debug"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// WebhookConfig configures inbound signature verification.
type WebhookConfig struct {
	AuthToken   string `mapstructure:"auth_token"`
	CallbackURL string `mapstructure:"callback_url"`
}

// LLMConfig configures the language-model service used by the fallback
// classifier.
type LLMConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RetrievalConfig carries the combiner's calibration thresholds.
type RetrievalConfig struct {
	ContentThreshold float64 `mapstructure:"content_threshold"`
	EnclaveThreshold float64 `mapstructure:"enclave_threshold"`
	AnswerFloor      float64 `mapstructure:"answer_floor"`
	AgreementBonus   float64 `mapstructure:"agreement_bonus"`
	TopK             int     `mapstructure:"top_k"`
}

// SessionConfig selects and locates the session store backend.
type SessionConfig struct {
	Backend       string `mapstructure:"backend"` // memory, file
	Path          string `mapstructure:"path"`
	HistoryWindow int    `mapstructure:"history_window"`
}

// TransportConfig configures the outbound message transport.
type TransportConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	AuthToken   string `mapstructure:"auth_token"`
	MaxChunkLen int    `mapstructure:"max_chunk_len"`
}

// ContentConfig configures the document retrieval layer.
type ContentConfig struct {
	PersistPath string `mapstructure:"persist_path"`
	Collection  string `mapstructure:"collection"`
}

// EnclaveConfig locates the product-help corpus.
type EnclaveConfig struct {
	CorpusPath string `mapstructure:"corpus_path"`
}

// LogConfig configures the application logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Config is the full runtime configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Session   SessionConfig   `mapstructure:"session"`
	Transport TransportConfig `mapstructure:"transport"`
	Content   ContentConfig   `mapstructure:"content"`
	Enclave   EnclaveConfig   `mapstructure:"enclave"`
	Log       LogConfig       `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.enable_cors", true)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("webhook.auth_token", "")
	v.SetDefault("webhook.callback_url", "")

	v.SetDefault("llm.base_url", "http://localhost:11434/v1")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.timeout", 5*time.Second)

	v.SetDefault("retrieval.content_threshold", 0.6)
	v.SetDefault("retrieval.enclave_threshold", 0.4)
	v.SetDefault("retrieval.answer_floor", 0.35)
	v.SetDefault("retrieval.agreement_bonus", 0.15)
	v.SetDefault("retrieval.top_k", 5)

	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.path", "")
	v.SetDefault("session.history_window", 10)

	v.SetDefault("transport.endpoint", "")
	v.SetDefault("transport.max_chunk_len", 1600)

	v.SetDefault("content.persist_path", "")
	v.SetDefault("content.collection", "herald")

	v.SetDefault("enclave.corpus_path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration from the optional file at path and the
// environment. A missing file is not an error; defaults cover everything.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("HERALD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Transport.MaxChunkLen <= 0 {
		return fmt.Errorf("invalid max chunk length %d", c.Transport.MaxChunkLen)
	}
	switch c.Session.Backend {
	case "memory", "file":
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	if c.Session.Backend == "file" && c.Session.Path == "" {
		return fmt.Errorf("session backend file requires session.path")
	}
	return nil
}
