// Package config loads process-level configuration: provider API keys, ARI
// connection parameters, the speech credential file path, and listen
// addresses. Per-call configuration (orchestrator.CallConfig) is separate
// and validated in pkg/orchestrator instead.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the process-wide configuration this bridge needs to start.
type Config struct {
	AriBaseURL      string `mapstructure:"ari_base_url"`
	AriAppName      string `mapstructure:"ari_app_name"`
	AriUsername     string `mapstructure:"ari_username"`
	AriPassword     string `mapstructure:"ari_password"`

	GoogleCredentialsFile string `mapstructure:"google_credentials_file"`

	OpenAIAPIKey    string `mapstructure:"openai_api_key"`
	OpenAIModel     string `mapstructure:"openai_realtime_model"`

	OperatorListenAddr string `mapstructure:"operator_listen_addr"`
	MetricsListenAddr  string `mapstructure:"metrics_listen_addr"`

	LogLevel string `mapstructure:"log_level"`
}

// Load reads an optional .env file (a missing file is not fatal), then
// binds environment variables and an optional YAML config file on top via
// viper.
func Load(yamlConfigPath string) (Config, error) {
	if err := godotenv.Load(); err != nil {
		// Note: no .env file found; environment variables and defaults still apply.
		_ = err
	}

	v := viper.New()
	v.SetDefault("ari_base_url", "http://localhost:8088")
	v.SetDefault("ari_app_name", "voicebridge")
	v.SetDefault("ari_username", "")
	v.SetDefault("ari_password", "")
	v.SetDefault("google_credentials_file", "")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_realtime_model", "gpt-realtime")
	v.SetDefault("operator_listen_addr", ":8090")
	v.SetDefault("metrics_listen_addr", ":9090")
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("VOICEBRIDGE")
	v.AutomaticEnv()

	if yamlConfigPath != "" {
		v.SetConfigFile(yamlConfigPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", yamlConfigPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}
