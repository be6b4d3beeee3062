package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Listen       string
	GraphURL     string
	VaultAPIURL  string
	PriceAPIURL  string
	PriceAPIKey  string
	RPCURLs      map[string]string
	CacheTTL     time.Duration
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
	PageSize     int
	LogLevel     string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VAULTSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen", ":4000")
	v.SetDefault("cache-ttl", 30*time.Second)
	v.SetDefault("http-timeout", 30*time.Second)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-delay", time.Second)
	v.SetDefault("page-size", 100)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		Listen:      v.GetString("listen"),
		GraphURL:    v.GetString("graph-url"),
		VaultAPIURL: v.GetString("vault-api-url"),
		PriceAPIURL: v.GetString("price-api-url"),
		PriceAPIKey: v.GetString("price-api-key"),
		RPCURLs:     getStringMap(v, "rpc-urls"),
		CacheTTL:    v.GetDuration("cache-ttl"),
		HTTPTimeout: v.GetDuration("http-timeout"),
		MaxRetries:  v.GetInt("max-retries"),
		RetryDelay:  v.GetDuration("retry-delay"),
		PageSize:    v.GetInt("page-size"),
		LogLevel:    v.GetString("log-level"),
	}

	if cfg.GraphURL == "" {
		return Config{}, fmt.Errorf("graph-url is required")
	}
	if cfg.VaultAPIURL == "" {
		return Config{}, fmt.Errorf("vault-api-url is required")
	}

	return cfg, nil
}

func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case string:
		return parseStringMap(typed)
	default:
		return map[string]string{}
	}
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}
