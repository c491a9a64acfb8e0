package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Config holds everything chaintipd needs at startup.
type Config struct {
	Transport TransportConfig `json:"transport"`
	Storage   StorageConfig   `json:"storage"`
	Ledger    LedgerConfig    `json:"ledger"`
	Cache     CacheConfig     `json:"balance_cache"`
	Audit     AuditConfig     `json:"audit"`
	Bot       BotConfig       `json:"bot"`
	Logging   LoggingConfig   `json:"logging"`
}

// TransportConfig carries the Telegram credentials and polling knobs.
type TransportConfig struct {
	Token              string `json:"token"`
	TokenEnv           string `json:"token_env"`
	PollTimeoutSeconds int    `json:"poll_timeout_seconds"`
}

// StorageConfig selects the account store backend.
type StorageConfig struct {
	AccountStore AccountStoreConfig `json:"account_store"`
}

// AccountStoreConfig supports the in-memory driver for development
// and MySQL for real deployments.
type AccountStoreConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// LedgerConfig points at the blockchain node and sets transfer parameters.
type LedgerConfig struct {
	RPCURL     string `json:"rpc_url"`
	ChainID    int64  `json:"chain_id"`
	GasLimit   uint64 `json:"gas_limit"`
	CoinSymbol string `json:"coin_symbol"`
}

// CacheConfig configures the optional Redis balance cache.
type CacheConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Password   string `json:"password"`
	DB         int    `json:"db"`
	TTLSeconds int    `json:"ttl_seconds"`
}

// AuditConfig configures the optional RabbitMQ transfer event publisher.
type AuditConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Queue   string `json:"queue"`
}

// BotConfig carries bot-level behavior that is not tied to a backend.
type BotConfig struct {
	DonationAddress string `json:"donation_address"`
	DryRun          bool   `json:"dry_run"`
	TemplatesPath   string `json:"templates_path"`
	// OperatorChatID receives alert messages for severe failures.
	// Zero disables the chat alert channel.
	OperatorChatID int64 `json:"operator_chat_id"`
}

// LoggingConfig mirrors pkg/logger.Config in JSON form.
type LoggingConfig struct {
	Level       string   `json:"level"`
	Format      string   `json:"format"`
	OutputPaths []string `json:"output_paths"`
	AuditFile   string   `json:"audit_file"`
}

// Load parses the JSON configuration at path.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))

	return &cfg, nil
}

// applyDefaults fills sensible values for fields the user left blank.
func (c *Config) applyDefaults(baseDir string) {
	if c.Transport.TokenEnv == "" {
		c.Transport.TokenEnv = "CHAINTIP_BOT_TOKEN"
	}
	if c.Transport.PollTimeoutSeconds <= 0 {
		c.Transport.PollTimeoutSeconds = 10
	}

	if c.Storage.AccountStore.Driver == "" {
		c.Storage.AccountStore.Driver = "memory"
	}

	if c.Ledger.RPCURL == "" {
		c.Ledger.RPCURL = "http://127.0.0.1:8545"
	}
	if c.Ledger.CoinSymbol == "" {
		c.Ledger.CoinSymbol = "ETH"
	}

	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = 30
	}

	if c.Audit.Queue == "" {
		c.Audit.Queue = "chaintip.transfers"
	}

	if c.Bot.TemplatesPath != "" && !filepath.IsAbs(c.Bot.TemplatesPath) {
		c.Bot.TemplatesPath = filepath.Join(baseDir, c.Bot.TemplatesPath)
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if len(c.Logging.OutputPaths) == 0 {
		c.Logging.OutputPaths = []string{"stdout"}
	}
}

// BotToken resolves the Telegram token, preferring the literal value and
// falling back to the configured environment variable.
func (c *Config) BotToken() (string, error) {
	if c.Transport.Token != "" {
		return c.Transport.Token, nil
	}
	if c.Transport.TokenEnv != "" {
		if v := os.Getenv(c.Transport.TokenEnv); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("bot token missing: set transport.token or %s", c.Transport.TokenEnv)
}
