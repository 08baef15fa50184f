package errorsdk

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	instrumentationName = "github.com/railblocksco/error-sdk-go"
	headerRequestID     = "X-Request-ID"
)

// Client reports errors to the ingestion service. It holds only immutable
// configuration and is safe for concurrent use.
type Client struct {
	cfg         *Config
	http        *resty.Client
	envelope    envelope
	logger      RequestLogger
	retryPolicy func(*resty.Response, error) bool
	limiter     *rate.Limiter
	tracer      trace.Tracer

	wait func(ctx context.Context, d time.Duration) error
	now  func() time.Time
}

// New builds a client from opts. It fails with a [*ConfigurationError] when an
// option is out of range or no secret can be resolved; no request is made.
func New(opts ...Option) (*Client, error) {
	options := newClientOptions()
	for _, opt := range opts {
		opt(options)
	}

	cfg, err := resolveConfig(options)
	if err != nil {
		return nil, err
	}

	httpClient := resty.New().
		SetRetryCount(0).
		SetTimeout(cfg.timeout).
		SetHeaders(options.requestHeaders).
		SetAuthToken(cfg.secret).
		SetLogger(options.requestLogger)

	tp := options.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	c := &Client{
		cfg:         cfg,
		http:        httpClient,
		envelope:    newEnvelope(cfg),
		logger:      options.requestLogger,
		retryPolicy: options.retryPolicy,
		tracer:      tp.Tracer(instrumentationName),
		wait:        sleepContext,
		now:         time.Now,
	}

	if options.rateLimit > 0 {
		c.limiter = rate.NewLimiter(options.rateLimit, options.rateBurst)
	}

	return c, nil
}

// NewTaskClient builds a client for the task-queue transport. The secret falls back
// to the TRIGGER_SECRET_KEY environment variable.
func NewTaskClient(opts ...Option) (*Client, error) {
	return New(append([]Option{WithTransport(TransportTask)}, opts...)...)
}

// NewHTTPClient builds a client that posts directly to the ingestion service at baseURL.
func NewHTTPClient(baseURL, secret string, opts ...Option) (*Client, error) {
	return New(append([]Option{
		WithTransport(TransportHTTP),
		WithBaseURL(baseURL),
		WithSecret(secret),
	}, opts...)...)
}

// Config returns a copy of the resolved configuration.
func (c *Client) Config() Config {
	cfg := *c.cfg
	cfg.secret = ""
	cfg.defaultContext = cloneMap(c.cfg.defaultContext)

	return cfg
}

// ReportKnownError reports an error under a code the service already knows. The
// group is created if it does not exist yet.
func (c *Client) ReportKnownError(ctx context.Context, companyCode, errorCode, message string, fields map[string]any) ReportResult {
	return c.report(ctx, opReportKnownError, ErrorReport{
		CompanyCode: companyCode,
		ErrorCode:   Some(errorCode),
		Message:     message,
		Context:     fields,
	})
}

// ReportServiceError reports an error by service name and leaves classification to
// the service.
func (c *Client) ReportServiceError(ctx context.Context, companyCode, service, message string, fields map[string]any) ReportResult {
	return c.report(ctx, opReportServiceError, ErrorReport{
		CompanyCode: companyCode,
		Service:     Some(service),
		Message:     message,
		Context:     fields,
	})
}

// ReportError reports an error with every field the caller supplied.
func (c *Client) ReportError(ctx context.Context, report ErrorReport) ReportResult {
	return c.report(ctx, opReportError, report)
}

func (c *Client) report(ctx context.Context, op operation, report ErrorReport) ReportResult {
	if c == nil {
		return ReportResult{Success: false, Error: ErrorKindNetwork, Message: "error reporting client is nil"}
	}

	if ctx == nil {
		ctx = context.Background()
	}

	return c.send(ctx, op, composePayload(report, c.cfg))
}
