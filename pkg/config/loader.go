package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rhuss/strom/pkg/debug"
)

// EnvConfig names the config file when no explicit path is given.
const EnvConfig = "STROM_CONFIG"

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, STROM_CONFIG env, ./config.yaml, /etc/strom/config.yaml)
//  3. STROM_* environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
		debug.Log("config", "config file loaded", "path", filePath)
	}

	if err := applyEnvOverrides(&cfg, os.Getenv); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. STROM_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/strom/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv(EnvConfig); envPath != "" {
		return envPath
	}
	for _, path := range []string{"config.yaml", "/etc/strom/config.yaml"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadYAMLFile parses a YAML file over cfg. Fields absent from the file keep
// their current values; unknown keys are an error so typos do not go
// unnoticed.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnvOverrides maps STROM_* environment variables onto cfg. Malformed
// values are reported together.
func applyEnvOverrides(cfg *Config, getenv func(string) string) error {
	var errs []error

	str := func(name string, dst *string) {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}
	integer := func(name string, dst *int) {
		if v := getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v := getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(name string, dst *bool) {
		if v := getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = b
		}
	}

	integer("STROM_PORT", &cfg.Server.Port)
	duration("STROM_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)

	str("STROM_AGENT_TYPE", &cfg.Agent.Type)
	str("STROM_AGENT_BASE_URL", &cfg.Agent.BaseURL)
	str("STROM_AGENT_API_KEY", &cfg.Agent.APIKey)
	str("STROM_AGENT_API_KEY_FILE", &cfg.Agent.APIKeyFile)
	str("STROM_MODEL", &cfg.Agent.DefaultModel)
	duration("STROM_AGENT_TIMEOUT", &cfg.Agent.Timeout)
	if v := getenv("STROM_TEMPERATURE"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("STROM_TEMPERATURE: %w", err))
		} else {
			cfg.Agent.Temperature = t
		}
	}

	str("STROM_AUTH_TYPE", &cfg.Auth.Type)
	str("STROM_JWKS_URL", &cfg.Auth.JWT.JWKSURL)
	integer("STROM_RATE_LIMIT_RPM", &cfg.Auth.RateLimit.DefaultRPM)
	if v := getenv("STROM_API_KEYS"); v != "" {
		keys, err := parseAPIKeysJSON(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("STROM_API_KEYS: %w", err))
		} else {
			cfg.Auth.APIKeys = keys
		}
	}

	boolean("STROM_METRICS_ENABLED", &cfg.Observability.Metrics.Enabled)

	return errors.Join(errs...)
}

// parseAPIKeysJSON parses a JSON array of API key configurations.
func parseAPIKeysJSON(jsonStr string) ([]APIKeyConfig, error) {
	var keys []APIKeyConfig
	if err := json.Unmarshal([]byte(jsonStr), &keys); err != nil {
		return nil, fmt.Errorf("parsing API keys JSON: %w", err)
	}
	return keys, nil
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	if cfg.Agent.APIKeyFile != "" && cfg.Agent.APIKey == "" {
		val, err := readSecretFile(cfg.Agent.APIKeyFile)
		if err != nil {
			return fmt.Errorf("agent.api_key_file: %w", err)
		}
		cfg.Agent.APIKey = val
	}

	for i := range cfg.Auth.APIKeys {
		k := &cfg.Auth.APIKeys[i]
		if k.KeyFile != "" && k.Key == "" {
			val, err := readSecretFile(k.KeyFile)
			if err != nil {
				return fmt.Errorf("auth.api_keys[%d].key_file: %w", i, err)
			}
			k.Key = val
		}
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
