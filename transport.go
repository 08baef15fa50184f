package errorsdk

import (
	"fmt"
	"net/url"
	"time"
)

// Transport selects how reports reach the ingestion service.
type Transport string

const (
	// TransportTask triggers a task on the task-queue API.
	TransportTask Transport = "task"
	// TransportHTTP posts directly to the ingestion service's HTTP endpoints.
	TransportHTTP Transport = "http"
)

func (t Transport) valid() bool {
	return t == TransportTask || t == TransportHTTP
}

const (
	taskQueueName        = "error-ingestion"
	taskConcurrencyLimit = 10
)

type operation int

const (
	opReportKnownError operation = iota
	opReportServiceError
	opReportError
)

func (op operation) path() string {
	switch op {
	case opReportKnownError:
		return "/report-known-error"
	case opReportServiceError:
		return "/report-service-error"
	default:
		return "/report-error"
	}
}

func (op operation) String() string {
	switch op {
	case opReportKnownError:
		return "reportKnownError"
	case opReportServiceError:
		return "reportServiceError"
	default:
		return "reportError"
	}
}

// envelope builds the request target and body for one transport and translates the
// parsed response. It is chosen once, when the client is built.
type envelope interface {
	url(op operation) string
	wrap(p WirePayload, callTime time.Time) any
	translate(body map[string]any) ReportResult
}

func newEnvelope(cfg *Config) envelope {
	if cfg.transport == TransportHTTP {
		return &httpEnvelope{baseURL: cfg.baseURL}
	}

	return &taskEnvelope{apiURL: cfg.apiURL, taskID: cfg.taskID}
}

type taskEnvelope struct {
	apiURL string
	taskID string
}

type taskTrigger struct {
	Payload WirePayload `json:"payload"`
	Context taskContext `json:"context"`
	Options taskOptions `json:"options"`
}

type taskContext struct {
	Environment any   `json:"environment"`
	Timestamp   int64 `json:"timestamp"`
}

type taskOptions struct {
	IdempotencyKey string    `json:"idempotencyKey"`
	ConcurrencyKey string    `json:"concurrencyKey"`
	Queue          taskQueue `json:"queue"`
}

type taskQueue struct {
	Name             string `json:"name"`
	ConcurrencyLimit int    `json:"concurrencyLimit"`
}

func (e *taskEnvelope) url(operation) string {
	return fmt.Sprintf("%s/api/v1/tasks/%s/trigger", e.apiURL, url.PathEscape(e.taskID))
}

// wrap is called once per report call, so every attempt carries the same
// idempotency key.
func (e *taskEnvelope) wrap(p WirePayload, callTime time.Time) any {
	company, _ := p["companyCode"].(string)
	concurrencyKey := company + "-" + p.identity()
	ts := callTime.UnixMilli()

	return taskTrigger{
		Payload: p,
		Context: taskContext{
			Environment: p["environment"],
			Timestamp:   ts,
		},
		Options: taskOptions{
			IdempotencyKey: fmt.Sprintf("%s-%d", concurrencyKey, ts),
			ConcurrencyKey: concurrencyKey,
			Queue: taskQueue{
				Name:             taskQueueName,
				ConcurrencyLimit: taskConcurrencyLimit,
			},
		},
	}
}

func (e *taskEnvelope) translate(body map[string]any) ReportResult {
	id := stringField(body, "id")

	res := ReportResult{
		Success:      true,
		ID:           id,
		GroupID:      id,
		OccurrenceID: id,
		Action:       ActionCreatedNew,
		Message:      "Error reported successfully",
	}
	if id != "" {
		res.GroupCode = "trigger-" + id
	}

	return res
}

type httpEnvelope struct {
	baseURL string
}

func (e *httpEnvelope) url(op operation) string {
	return e.baseURL + op.path()
}

func (e *httpEnvelope) wrap(p WirePayload, _ time.Time) any {
	return p
}

// translate passes the service's own verdict through. A success=false body is an
// answered request, not a failed attempt.
func (e *httpEnvelope) translate(body map[string]any) ReportResult {
	success, _ := body["success"].(bool)

	return ReportResult{
		Success: success,
		ID:      stringField(body, "triggerId"),
		Message: stringField(body, "message"),
		Error:   ErrorKind(stringField(body, "error")),
	}
}

func stringField(body map[string]any, key string) string {
	v, _ := body[key].(string)
	return v
}
