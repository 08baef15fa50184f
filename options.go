package errorsdk

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	DefaultTaskID     = "ingest-error"
	DefaultAPIURL     = "https://api.trigger.dev"
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1000 * time.Millisecond
	DefaultTimeout    = 10000 * time.Millisecond
)

type Option func(*Options)

type Options struct {
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
	requestLogger  RequestLogger
	retryPolicy    func(*resty.Response, error) bool
	requestHeaders map[string]string
	envFile        string
	rateLimit      rate.Limit
	rateBurst      int
	tracerProvider trace.TracerProvider
}

func newClientOptions() *Options {
	return &Options{
		transport:     TransportTask,
		taskID:        DefaultTaskID,
		apiURL:        DefaultAPIURL,
		maxRetries:    DefaultMaxRetries,
		retryDelay:    DefaultRetryDelay,
		timeout:       DefaultTimeout,
		environment:   EnvironmentProduction,
		requestLogger: &NoopLogger{},
		retryPolicy:   DefaultRetryPolicy,
		requestHeaders: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
	}
}

func WithTransport(transport Transport) Option {
	return func(o *Options) {
		if transport.valid() {
			o.transport = transport
		}
	}
}

func WithSecret(secret string) Option {
	return func(o *Options) {
		o.secret = strings.TrimSpace(secret)
	}
}

func WithTaskID(taskID string) Option {
	return func(o *Options) {
		if taskID = strings.TrimSpace(taskID); taskID != "" {
			o.taskID = taskID
		}
	}
}

// WithAPIURL overrides the task-queue API host. Mostly useful for self-hosted
// deployments and tests.
func WithAPIURL(apiURL string) Option {
	return func(o *Options) {
		if apiURL = strings.TrimSpace(apiURL); apiURL != "" {
			o.apiURL = strings.TrimRight(apiURL, "/")
		}
	}
}

func WithBaseURL(baseURL string) Option {
	return func(o *Options) {
		o.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

// WithMaxRetries sets the total number of attempts per report, including the first.
func WithMaxRetries(maxRetries int) Option {
	return func(o *Options) {
		if maxRetries >= 1 {
			o.maxRetries = maxRetries
		}
	}
}

// WithRetryDelay sets the base of the exponential backoff. Attempt k waits
// delay*2^(k-1) after failing.
func WithRetryDelay(delay time.Duration) Option {
	return func(o *Options) {
		if delay >= 0 {
			o.retryDelay = delay
		}
	}
}

// WithTimeout bounds each attempt separately.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

func WithEnvironment(env Environment) Option {
	return func(o *Options) {
		if env.valid() {
			o.environment = env
		}
	}
}

// WithDefaultContext sets context merged into every report. Report keys win on conflict.
func WithDefaultContext(ctx map[string]any) Option {
	return func(o *Options) {
		o.defaultContext = cloneMap(ctx)
	}
}

func WithRequestLogger(logger RequestLogger) Option {
	return func(o *Options) {
		if logger != nil {
			o.requestLogger = logger
		}
	}
}

func WithRetryPolicy(policy func(*resty.Response, error) bool) Option {
	return func(o *Options) {
		if policy != nil {
			o.retryPolicy = policy
		}
	}
}

func WithRequestHeader(header, value string) Option {
	return func(o *Options) {
		header = strings.TrimSpace(header)

		if header == "" || isProtectedHeader(header) {
			return
		}

		o.requestHeaders[header] = value
	}
}

// WithEnvFile names a dotenv file consulted for the task-queue secret when neither
// WithSecret nor the process environment supplies one.
func WithEnvFile(path string) Option {
	return func(o *Options) {
		o.envFile = strings.TrimSpace(path)
	}
}

// WithRateLimit caps attempts per second across all calls on the client.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(o *Options) {
		if limit > 0 && burst >= 1 {
			o.rateLimit = limit
			o.rateBurst = burst
		}
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Options) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

func isProtectedHeader(header string) bool {
	for _, h := range []string{"Content-Type", "Accept", "Authorization", headerRequestID} {
		if strings.EqualFold(header, h) {
			return true
		}
	}

	return false
}

type optionsView struct {
	Transport     Transport                         `name:"transport" validate:"oneof=task http"`
	MaxRetries    int                               `name:"maxRetries" validate:"gte=1"`
	RetryDelay    time.Duration                     `name:"retryDelay" validate:"gte=0s"`
	Timeout       time.Duration                     `name:"timeout" validate:"gt=0s"`
	Environment   Environment                       `name:"environment" validate:"oneof=development staging production"`
	RequestLogger RequestLogger                     `name:"requestLogger" validate:"required"`
	RetryPolicy   func(*resty.Response, error) bool `name:"retryPolicy" validate:"required"`
}

var optionsValidator = newOptionsValidator()

func newOptionsValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("name")
	})

	return v
}

// Validate reports the first out-of-range option as a [*ConfigurationError].
// Credential checks happen later, when [New] resolves the configuration.
func (o *Options) Validate() error {
	view := optionsView{
		Transport:     o.transport,
		MaxRetries:    o.maxRetries,
		RetryDelay:    o.retryDelay,
		Timeout:       o.timeout,
		Environment:   o.environment,
		RequestLogger: o.requestLogger,
		RetryPolicy:   o.retryPolicy,
	}

	err := optionsValidator.Struct(view)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ConfigurationError{Message: err.Error(), Err: ErrInvalidOption}
	}

	fe := verrs[0]

	return &ConfigurationError{
		Field:   fe.Field(),
		Message: describeViolation(fe),
		Err:     ErrInvalidOption,
	}
}

func describeViolation(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "required":
		return "must not be nil"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
