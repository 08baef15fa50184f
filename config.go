package errorsdk

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// SecretEnvVar is consulted for the task-queue secret when none is passed explicitly.
const SecretEnvVar = "TRIGGER_SECRET_KEY"

// Config is the resolved, immutable configuration of a [Client].
type Config struct {
	transport      Transport
	secret         string
	taskID         string
	apiURL         string
	baseURL        string
	maxRetries     int
	retryDelay     time.Duration
	timeout        time.Duration
	environment    Environment
	defaultContext map[string]any
}

func (c Config) Transport() Transport { return c.transport }
func (c Config) TaskID() string       { return c.taskID }
func (c Config) APIURL() string       { return c.apiURL }
func (c Config) BaseURL() string      { return c.baseURL }

// MaxRetries is the total number of attempts per report call, including the first.
func (c Config) MaxRetries() int { return c.maxRetries }

// RetryDelay is the backoff base: failed attempt k waits RetryDelay*2^(k-1).
func (c Config) RetryDelay() time.Duration { return c.retryDelay }

// Timeout bounds each attempt separately, not the whole report call.
func (c Config) Timeout() time.Duration { return c.timeout }

func (c Config) Environment() Environment { return c.environment }

// DefaultContext returns a copy of the context merged under every report.
func (c Config) DefaultContext() map[string]any { return cloneMap(c.defaultContext) }

// maxBackoff is returned once doubling the delay would overflow.
const maxBackoff = time.Duration(math.MaxInt64)

// backoff is the wait after the given failed attempt (1-based).
func (c Config) backoff(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}

	if c.retryDelay <= 0 {
		return 0
	}

	if attempt > 63 {
		return maxBackoff
	}

	factor := time.Duration(1) << (attempt - 1)
	if c.retryDelay > maxBackoff/factor {
		return maxBackoff
	}

	return c.retryDelay * factor
}

func resolveConfig(o *Options) (*Config, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	secret, err := resolveSecret(o)
	if err != nil {
		return nil, err
	}

	if o.transport == TransportHTTP && o.baseURL == "" {
		return nil, &ConfigurationError{
			Field:   "baseURL",
			Message: "is required for the http transport",
			Action:  "pass WithBaseURL",
			Err:     ErrMissingBaseURL,
		}
	}

	return &Config{
		transport:      o.transport,
		secret:         secret,
		taskID:         o.taskID,
		apiURL:         o.apiURL,
		baseURL:        o.baseURL,
		maxRetries:     o.maxRetries,
		retryDelay:     o.retryDelay,
		timeout:        o.timeout,
		environment:    o.environment,
		defaultContext: cloneMap(o.defaultContext),
	}, nil
}

// resolveSecret applies explicit option, then process environment, then the dotenv
// file. The environment fallbacks only apply to the task transport.
func resolveSecret(o *Options) (string, error) {
	if o.secret != "" {
		return o.secret, nil
	}

	if o.transport != TransportTask {
		return "", newMissingSecretError(o.transport)
	}

	if v := strings.TrimSpace(os.Getenv(SecretEnvVar)); v != "" {
		return v, nil
	}

	if o.envFile != "" {
		vars, err := godotenv.Read(o.envFile)
		if err != nil {
			return "", &ConfigurationError{
				Field:   "envFile",
				Message: fmt.Sprintf("could not be read: %v", err),
				Err:     ErrInvalidOption,
			}
		}

		if v := strings.TrimSpace(vars[SecretEnvVar]); v != "" {
			return v, nil
		}
	}

	return "", newMissingSecretError(o.transport)
}
