// Package config loads service configuration from the environment through
// viper, with a co-located .env file as fallback for unset keys.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Environment keys.
const (
	envPrefix = "BRAINDRIVE"

	keyLibraryPath       = "library.path"
	keyRequireUserHeader = "library.require_user_header"
	keyServiceToken      = "library.service_token"
	keyBaseTemplatePath  = "library.base_template_path"
	keyServerAddr        = "server.addr"
	keyLogLevel          = "log.level"
	keyLogJSON           = "log.json"
)

// Defaults.
const (
	defaultServerAddr = ":8000"
	defaultLogLevel   = "info"
)

// Sentinel configuration errors.
var (
	// ErrLibraryPathRequired indicates BRAINDRIVE_LIBRARY_PATH is unset.
	ErrLibraryPathRequired = errors.New("BRAINDRIVE_LIBRARY_PATH is required; set it to the library root path")

	// ErrInvalidBool indicates a boolean key holds an unrecognized value.
	ErrInvalidBool = errors.New("must be a boolean value")
)

// Config holds the full service configuration.
type Config struct {
	Library LibraryConfig `mapstructure:"library"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
}

// LibraryConfig configures the multi-tenant library tree.
type LibraryConfig struct {
	// Path is the base directory holding per-user libraries.
	Path string `mapstructure:"path"`

	// RequireUserHeader enforces the user identity header on every request.
	RequireUserHeader bool `mapstructure:"require_user_header"`

	// ServiceToken, when set, must match the service token header.
	ServiceToken string `mapstructure:"service_token"`

	// BaseTemplatePath optionally seeds new libraries from a template tree.
	BaseTemplatePath string `mapstructure:"base_template_path"`
}

// ServerConfig configures the HTTP facade.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Load reads configuration from the environment, falling back to a .env
// file at dotenvPath (usually "./.env") for unset keys.
func Load(dotenvPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	dotenv := readDotenv(dotenvPath)
	applyDotenvFallback(v, dotenv)

	cfg := &Config{}

	err := v.Unmarshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Library.Path = strings.TrimSpace(cfg.Library.Path)
	cfg.Library.ServiceToken = strings.TrimSpace(cfg.Library.ServiceToken)

	err = validate(cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyRequireUserHeader, true)
	v.SetDefault(keyServiceToken, "")
	v.SetDefault(keyBaseTemplatePath, "")
	v.SetDefault(keyServerAddr, defaultServerAddr)
	v.SetDefault(keyLogLevel, defaultLogLevel)
	v.SetDefault(keyLogJSON, true)
}

// readDotenv loads the .env file into its own viper instance. A missing or
// unreadable file yields an empty fallback.
func readDotenv(dotenvPath string) *viper.Viper {
	dotenv := viper.New()
	dotenv.SetConfigFile(dotenvPath)
	dotenv.SetConfigType("env")

	err := dotenv.ReadInConfig()
	if err != nil {
		return viper.New()
	}

	return dotenv
}

// applyDotenvFallback copies .env values into unset config keys. Real
// environment variables always win.
func applyDotenvFallback(v *viper.Viper, dotenv *viper.Viper) {
	keys := []string{
		keyLibraryPath,
		keyRequireUserHeader,
		keyServiceToken,
		keyBaseTemplatePath,
		keyServerAddr,
		keyLogLevel,
		keyLogJSON,
	}

	for _, key := range keys {
		envKey := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if v.IsSet(key) && v.GetString(key) != "" {
			continue
		}

		fallback := dotenv.GetString(envKey)
		if fallback != "" {
			v.Set(key, fallback)
		}
	}
}

func validate(cfg *Config) error {
	if cfg.Library.Path == "" {
		return ErrLibraryPathRequired
	}

	return nil
}
