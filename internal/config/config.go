// Package config loads static operator settings from YAML and layers
// environment variables on top: YAML-first, env-overridden for
// secrets/runtime knobs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	wtypes "github.com/scoundrel-labs/warchest/pkg/types"
)

// WalletYAMLData is one entry under the `wallets` key of config.yml.
type WalletYAMLData struct {
	Alias  string `yaml:"alias"`
	Pubkey string `yaml:"pubkey"`
	Color  string `yaml:"color"`
}

// Config is the entire static configuration structure from config.yml.
type Config struct {
	Wallets         []WalletYAMLData `yaml:"wallets"`
	StableMints     []string         `yaml:"stableMints"`
	PayloadFileDir  string           `yaml:"payloadFileDir"`
	HubEventLogPath string           `yaml:"hubEventLogPath"`
	DatabaseDSN     string           `yaml:"databaseDsn"`
	StatusFilePath  string           `yaml:"statusFilePath"`
	PidFilePath     string           `yaml:"pidFilePath"`
}

// Runtime holds the environment-derived knobs applied on top of a loaded
// Config.
type Runtime struct {
	SolRefreshInterval    time.Duration
	TokensRefreshInterval time.Duration
	RefreshDebounce       time.Duration
	LogLevel              string
	RpcHttpUrl            string
	RpcWsUrl              string
	DataApiEndpoint       string
	KeychainService       string
	KeychainAccount       string
	NodeEnv               string
}

// LoadConfig reads and parses config.yml into a Config struct.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse config yaml: %w", err)
	}
	return &cfg, nil
}

// LoadDotEnv loads a .env file into the process environment if present;
// a missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// LoadRuntime reads the runtime environment variables, applying the documented
// defaults for anything unset.
func LoadRuntime() Runtime {
	return Runtime{
		SolRefreshInterval:    envSeconds("HUD_SOL_REFRESH_SEC", 15),
		TokensRefreshInterval: envSeconds("HUD_TOKENS_REFRESH_SEC", 30),
		RefreshDebounce:       envMillis("WARCHEST_LOG_REFRESH_DEBOUNCE_MS", 5),
		LogLevel:              envOr("LOG_LEVEL", "info"),
		RpcHttpUrl:            os.Getenv("SOLANATRACKER_RPC_HTTP_URL"),
		RpcWsUrl:              os.Getenv("SOLANATRACKER_RPC_WS_URL"),
		DataApiEndpoint:       os.Getenv("SOLANATRACKER_DATA_ENDPOINT"),
		KeychainService:       envOr("SC_KEYCHAIN_SERVICE", "scoundrel"),
		KeychainAccount:       envOr("SC_KEYCHAIN_ACCOUNT", "wallet-master-key"),
		NodeEnv:               os.Getenv("NODE_ENV"),
	}
}

// WalletSpecs converts the YAML wallet entries into the runtime wire type,
// assigning a stable per-process WalletID by position.
func (c *Config) WalletSpecs() []wtypes.WalletSpec {
	specs := make([]wtypes.WalletSpec, 0, len(c.Wallets))
	for i, w := range c.Wallets {
		specs = append(specs, wtypes.WalletSpec{
			Alias:    w.Alias,
			Pubkey:   w.Pubkey,
			Color:    w.Color,
			WalletID: int64(i + 1),
		})
	}
	return specs
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envSeconds(key string, def int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(def) * time.Second
}

func envMillis(key string, def int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Millisecond
		}
	}
	return time.Duration(def) * time.Millisecond
}
