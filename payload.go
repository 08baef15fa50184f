package errorsdk

type Environment string

const (
	EnvironmentDevelopment Environment = "development"
	EnvironmentStaging     Environment = "staging"
	EnvironmentProduction  Environment = "production"
)

func (e Environment) valid() bool {
	switch e {
	case EnvironmentDevelopment, EnvironmentStaging, EnvironmentProduction:
		return true
	default:
		return false
	}
}

// Severity overrides the ingestion service's own classification.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Category is the classification vocabulary used by the ingestion service. It is
// not part of the wire payload; callers commonly attach it under a context key.
type Category string

const (
	CategoryAuth        Category = "auth"
	CategoryAPI         Category = "api"
	CategoryNetwork     Category = "network"
	CategoryDatabase    Category = "database"
	CategoryPayment     Category = "payment"
	CategoryIntegration Category = "integration"
	CategoryValidation  Category = "validation"
	CategorySystem      Category = "system"
	CategoryOther       Category = "other"
)

// Optional tracks whether a report field was supplied. The zero value is absent,
// so an explicitly empty string is still sent.
type Optional[T any] struct {
	value T
	set   bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

func (o Optional[T]) IsSet() bool {
	return o.set
}

// ErrorReport is a single error occurrence. CompanyCode and Message are required;
// either ErrorCode or Service identifies the error.
type ErrorReport struct {
	CompanyCode string
	Message     string

	ErrorCode Optional[string]
	Service   Optional[string]

	// Context is merged over the client's default context. Nil means absent.
	Context     map[string]any
	StackTrace  Optional[string]
	URL         Optional[string]
	UserAgent   Optional[string]
	UserID      Optional[string]
	SessionID   Optional[string]
	Environment Optional[Environment]

	Severity Optional[Severity]
	Tags     Optional[[]string]

	Location Optional[string]
}

// WirePayload is the JSON object sent to the ingestion service. Absent fields are
// left out rather than sent as null.
type WirePayload map[string]any

func composePayload(report ErrorReport, cfg *Config) WirePayload {
	p := WirePayload{
		"companyCode": report.CompanyCode,
		"message":     report.Message,
	}

	putOptional(p, "errorCode", report.ErrorCode)
	putOptional(p, "service", report.Service)

	if merged := mergeContext(cfg.defaultContext, report.Context); len(merged) > 0 {
		p["context"] = merged
	}

	if env, ok := report.Environment.Get(); ok {
		p["environment"] = string(env)
	} else {
		p["environment"] = string(cfg.environment)
	}

	putOptional(p, "stackTrace", report.StackTrace)
	putOptional(p, "url", report.URL)
	putOptional(p, "userAgent", report.UserAgent)
	putOptional(p, "userId", report.UserID)
	putOptional(p, "sessionId", report.SessionID)

	if sev, ok := report.Severity.Get(); ok {
		p["severity"] = string(sev)
	}

	if tags, ok := report.Tags.Get(); ok {
		p["tags"] = append([]string{}, tags...)
	}

	putOptional(p, "location", report.Location)

	return p
}

func putOptional(p WirePayload, key string, field Optional[string]) {
	if v, ok := field.Get(); ok {
		p[key] = v
	}
}

// identity is the errorCode, falling back to service, that keys a report for
// deduplication and concurrency on the task queue.
func (p WirePayload) identity() string {
	if v, ok := p["errorCode"].(string); ok {
		return v
	}

	if v, ok := p["service"].(string); ok {
		return v
	}

	return ""
}

func mergeContext(defaults, overrides map[string]any) map[string]any {
	if len(defaults) == 0 && len(overrides) == 0 {
		return nil
	}

	out := make(map[string]any, len(defaults)+len(overrides))

	for k, v := range cloneMap(defaults) {
		out[k] = v
	}

	for k, v := range overrides {
		out[k] = v
	}

	return out
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}

	out := make(map[string]any, len(in))

	for k, v := range in {
		if mv, ok := v.(map[string]any); ok {
			out[k] = cloneMap(mv)
			continue
		}

		out[k] = v
	}

	return out
}
