package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvVarPrefix is the prefix recognized on environment variable overrides.
	// CONDUIT_TRANSPORT__CLEANUP__INTERVAL=30s sets transport.cleanup.interval;
	// a double underscore separates key segments so client names may contain
	// single underscores.
	EnvVarPrefix = "CONDUIT_"

	baseConfigFile = "conduit.yaml"
)

// Load reads configuration for the current process. Later layers override
// earlier ones: built-in defaults, then conduit.yaml, then the
// environment-specific conduit.<environment>.yaml, then CONDUIT_ environment
// variables. Both YAML files are optional, but one that exists and fails to
// parse is an error.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := layerDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to layer defaults: %w", err)
	}

	if err := layerFile(k, baseConfigFile); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", baseConfigFile, err)
	}

	if envName := k.String("environment"); envName != "" {
		envFile := fmt.Sprintf("conduit.%s.yaml", envName)
		if err := layerFile(k, envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := layerEnvOverrides(k); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return finalize(k)
}

// LoadBytes builds configuration from raw YAML content layered over defaults,
// with environment variables still applied on top. It is intended for tests
// and setups that embed their configuration.
func LoadBytes(data []byte) (*Config, error) {
	k := koanf.New(".")

	if err := layerDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to layer defaults: %w", err)
	}

	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse config bytes: %w", err)
	}

	if err := layerEnvOverrides(k); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return finalize(k)
}

func layerDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"environment": EnvDevelopment,

		"log.level":  "info",
		"log.pretty": false,

		"metrics.enabled": false,

		"transport.cleanup.interval": "10s",
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}

// layerFile merges one YAML file into k. A file that does not exist is
// skipped, not an error.
func layerFile(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return k.Load(file.Provider(path), yaml.Parser())
}

func layerEnvOverrides(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: EnvVarPrefix,
		TransformFunc: func(key, value string) (string, any) {
			// CONDUIT_UPPER__CASE becomes upper.case.
			key = strings.TrimPrefix(key, EnvVarPrefix)
			key = strings.ReplaceAll(strings.ToLower(key), "__", ".")
			return key, value
		},
	}), nil)
}

// finalize unmarshals the merged layers, keeps the koanf instance around for
// the custom-key accessors, and validates the result.
func finalize(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.k = k

	// The root environment drives metrics resource attribution unless the
	// metrics section pins its own.
	if cfg.Metrics.Environment == "" {
		cfg.Metrics.Environment = cfg.Environment
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
