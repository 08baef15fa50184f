package errorsdk

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by [LoadOptions].
const EnvPrefix = "ERRORSDK_"

// LoadOptions reads client options with priority:
// 1. ERRORSDK_* environment variables (highest priority)
// 2. the YAML file at path, when it exists
// 3. default values (lowest priority)
//
// An empty path skips the file. The returned options are meant for [New]; options
// passed after them still win.
func LoadOptions(path string) ([]Option, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			// ERRORSDK_MAX_RETRIES -> max_retries
			return strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	return optionsFromKoanf(k)
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"transport":      string(TransportTask),
		"task_id":        DefaultTaskID,
		"api_url":        DefaultAPIURL,
		"max_retries":    DefaultMaxRetries,
		"retry_delay_ms": DefaultRetryDelay.Milliseconds(),
		"timeout_ms":     DefaultTimeout.Milliseconds(),
		"environment":    string(EnvironmentProduction),
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}

func optionsFromKoanf(k *koanf.Koanf) ([]Option, error) {
	transport := Transport(k.String("transport"))
	if !transport.valid() {
		return nil, invalidFileField("transport", "must be one of [task http]")
	}

	environment := Environment(k.String("environment"))
	if !environment.valid() {
		return nil, invalidFileField("environment", "must be one of [development staging production]")
	}

	maxRetries := k.Int("max_retries")
	if maxRetries < 1 {
		return nil, invalidFileField("max_retries", "must be at least 1")
	}

	retryDelay := k.Int64("retry_delay_ms")
	if retryDelay < 0 {
		return nil, invalidFileField("retry_delay_ms", "must be at least 0")
	}

	timeout := k.Int64("timeout_ms")
	if timeout < 1 {
		return nil, invalidFileField("timeout_ms", "must be at least 1")
	}

	opts := []Option{
		WithTransport(transport),
		WithTaskID(k.String("task_id")),
		WithAPIURL(k.String("api_url")),
		WithMaxRetries(maxRetries),
		WithRetryDelay(time.Duration(retryDelay) * time.Millisecond),
		WithTimeout(time.Duration(timeout) * time.Millisecond),
		WithEnvironment(environment),
	}

	if secret := k.String("secret"); secret != "" {
		opts = append(opts, WithSecret(secret))
	}

	if baseURL := k.String("base_url"); baseURL != "" {
		opts = append(opts, WithBaseURL(baseURL))
	}

	if k.Exists("default_context") {
		opts = append(opts, WithDefaultContext(k.Cut("default_context").Raw()))
	}

	return opts, nil
}

func invalidFileField(field, message string) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: message, Err: ErrInvalidOption}
}
