package errorsdk

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const testSecret = "tr_test_secret"

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		t.Errorf("failed to read request body: %v", err)
		return nil
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Errorf("request body is not JSON: %v (%s)", err, raw)
	}

	return body
}

func TestNewTaskClient_Defaults(t *testing.T) {
	t.Parallel()

	client, err := NewTaskClient(WithSecret(testSecret))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := client.Config()

	if cfg.Transport() != TransportTask {
		t.Errorf("expected transport=task, got %s", cfg.Transport())
	}

	if cfg.TaskID() != "ingest-error" {
		t.Errorf("expected taskID=ingest-error, got %s", cfg.TaskID())
	}

	if cfg.APIURL() != "https://api.trigger.dev" {
		t.Errorf("expected default API URL, got %s", cfg.APIURL())
	}

	if cfg.MaxRetries() != 3 || cfg.RetryDelay() != time.Second || cfg.Timeout() != 10*time.Second {
		t.Errorf("unexpected retry defaults: %d %v %v", cfg.MaxRetries(), cfg.RetryDelay(), cfg.Timeout())
	}

	if cfg.Environment() != EnvironmentProduction {
		t.Errorf("expected environment=production, got %s", cfg.Environment())
	}

	if cfg.secret != "" {
		t.Error("Config() must not expose the secret")
	}
}

func TestNewTaskClient_MissingSecret(t *testing.T) {
	t.Setenv(SecretEnvVar, "")

	client, err := NewTaskClient()

	if client != nil {
		t.Error("expected no client")
	}

	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigurationError, got %v", err)
	}

	if !errors.Is(err, ErrMissingSecret) {
		t.Errorf("expected ErrMissingSecret, got %v", err)
	}

	if !strings.Contains(err.Error(), SecretEnvVar) {
		t.Errorf("expected error to mention %s, got %v", SecretEnvVar, err)
	}
}

func TestNewTaskClient_SecretFromEnvironment(t *testing.T) {
	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"id":"run_1"}`))
	}))
	defer server.Close()

	t.Setenv(SecretEnvVar, "tr_from_env")

	client, err := NewTaskClient(WithAPIURL(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res := client.ReportServiceError(context.Background(), "lh", "payment", "declined", nil)
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}

	if authHeader != "Bearer tr_from_env" {
		t.Errorf("expected 'Bearer tr_from_env', got %s", authHeader)
	}
}

func TestNewTaskClient_SecretFromEnvFile(t *testing.T) {
	t.Setenv(SecretEnvVar, "")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(SecretEnvVar+"=tr_from_file\n"), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	client, err := NewTaskClient(WithEnvFile(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if client.cfg.secret != "tr_from_file" {
		t.Errorf("expected secret from env file, got %q", client.cfg.secret)
	}
}

func TestNewTaskClient_UnreadableEnvFile(t *testing.T) {
	t.Setenv(SecretEnvVar, "")

	_, err := NewTaskClient(WithEnvFile(filepath.Join(t.TempDir(), "missing.env")))

	if !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("expected ErrInvalidOption, got %v", err)
	}
}

func TestNewTaskClient_ExplicitSecretWins(t *testing.T) {
	t.Setenv(SecretEnvVar, "tr_from_env")

	client, err := NewTaskClient(WithSecret(testSecret))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if client.cfg.secret != testSecret {
		t.Errorf("expected explicit secret, got %q", client.cfg.secret)
	}
}

func TestNewHTTPClient_IgnoresEnvironmentSecret(t *testing.T) {
	t.Setenv(SecretEnvVar, "tr_from_env")

	_, err := NewHTTPClient("https://example.convex.site", "")

	if !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}

func TestNewHTTPClient_MissingBaseURL(t *testing.T) {
	t.Parallel()

	_, err := NewHTTPClient("", testSecret)

	if !errors.Is(err, ErrMissingBaseURL) {
		t.Fatalf("expected ErrMissingBaseURL, got %v", err)
	}
}

func TestNew_InvalidOptionsMakeNoRequest(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := NewHTTPClient(server.URL, "", WithMaxRetries(2))
	if err == nil {
		t.Fatal("expected configuration error")
	}

	if calls.Load() != 0 {
		t.Errorf("expected no requests, got %d", calls.Load())
	}
}

func TestReportKnownError_HTTP(t *testing.T) {
	t.Parallel()

	var path, authHeader, contentType string
	var body map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		authHeader = r.Header.Get("Authorization")
		contentType = r.Header.Get("Content-Type")
		body = decodeBody(t, r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"triggerId":"trg_42","message":"queued"}`))
	}))
	defer server.Close()

	client, err := NewHTTPClient(server.URL+"/", testSecret,
		WithDefaultContext(map[string]any{"app": "billing"}),
		WithEnvironment(EnvironmentStaging),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res := client.ReportKnownError(context.Background(), "lh", "STRIPE-001", "Payment failed",
		map[string]any{"order_id": "order_456"})

	if !res.Success || res.ID != "trg_42" || res.Message != "queued" {
		t.Errorf("unexpected result: %+v", res)
	}

	if path != "/report-known-error" {
		t.Errorf("expected path=/report-known-error, got %s", path)
	}

	if authHeader != "Bearer "+testSecret {
		t.Errorf("expected bearer auth, got %s", authHeader)
	}

	if contentType != "application/json" {
		t.Errorf("expected Content-Type=application/json, got %s", contentType)
	}

	if body["companyCode"] != "lh" || body["errorCode"] != "STRIPE-001" || body["message"] != "Payment failed" {
		t.Errorf("unexpected body: %v", body)
	}

	if body["environment"] != "staging" {
		t.Errorf("expected environment=staging, got %v", body["environment"])
	}

	ctx, _ := body["context"].(map[string]any)
	if ctx["app"] != "billing" || ctx["order_id"] != "order_456" {
		t.Errorf("expected merged context, got %v", body["context"])
	}

	if _, ok := body["service"]; ok {
		t.Error("service should be omitted")
	}
}

func TestReportServiceError_HTTP(t *testing.T) {
	t.Parallel()

	var path string
	var body map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		body = decodeBody(t, r)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client, err := NewHTTPClient(server.URL, testSecret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res := client.ReportServiceError(context.Background(), "lh", "payment", "Payment method declined", nil)

	if !res.Success {
		t.Errorf("expected success, got %+v", res)
	}

	if path != "/report-service-error" {
		t.Errorf("expected path=/report-service-error, got %s", path)
	}

	if body["service"] != "payment" {
		t.Errorf("expected service=payment, got %v", body["service"])
	}

	if _, ok := body["context"]; ok {
		t.Errorf("context should be omitted when empty, got %v", body["context"])
	}
}

func TestReportError_HTTP(t *testing.T) {
	t.Parallel()

	var path string
	var body map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		body = decodeBody(t, r)
		_, _ = w.Write([]byte(`{"success":true,"triggerId":"trg_7"}`))
	}))
	defer server.Close()

	client, err := NewHTTPClient(server.URL, testSecret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res := client.ReportError(context.Background(), ErrorReport{
		CompanyCode: "lh",
		Message:     "Database connection timeout",
		Service:     Some("database"),
		Environment: Some(EnvironmentDevelopment),
		Severity:    Some(SeverityHigh),
		Tags:        Some([]string{"database", "timeout"}),
		Context:     map[string]any{"query": "SELECT 1"},
	})

	if !res.Success || res.ID != "trg_7" {
		t.Errorf("unexpected result: %+v", res)
	}

	if path != "/report-error" {
		t.Errorf("expected path=/report-error, got %s", path)
	}

	if body["environment"] != "development" || body["severity"] != "high" {
		t.Errorf("unexpected body: %v", body)
	}

	for _, absent := range []string{"errorCode", "stackTrace", "url", "userAgent", "userId", "sessionId", "location"} {
		if _, ok := body[absent]; ok {
			t.Errorf("%s should be omitted, got %v", absent, body[absent])
		}
	}
}

func TestReportError_HTTPUnsuccessfulBodyIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"success":false,"error":"VALIDATION_ERROR","message":"companyCode unknown"}`))
	}))
	defer server.Close()

	client, err := NewHTTPClient(server.URL, testSecret, WithMaxRetries(3), WithRetryDelay(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res := client.ReportError(context.Background(), ErrorReport{CompanyCode: "zz", Message: "x"})

	if res.Success {
		t.Error("expected unsuccessful result")
	}

	if res.Error != ErrorKindValidation || res.Message != "companyCode unknown" {
		t.Errorf("expected remote error passed through, got %+v", res)
	}

	if calls.Load() != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", calls.Load())
	}
}

func TestReportError_Task(t *testing.T) {
	t.Parallel()

	var path, authHeader string
	var body map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		authHeader = r.Header.Get("Authorization")
		body = decodeBody(t, r)
		_, _ = w.Write([]byte(`{"id":"run_123"}`))
	}))
	defer server.Close()

	client, err := NewTaskClient(WithSecret(testSecret), WithAPIURL(server.URL), WithTaskID("ingest-error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res := client.ReportKnownError(context.Background(), "lh", "STRIPE-001", "Payment failed", nil)

	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}

	if res.ID != "run_123" || res.GroupCode != "trigger-run_123" || res.Action != ActionCreatedNew {
		t.Errorf("unexpected result: %+v", res)
	}

	if res.Message != "Error reported successfully" {
		t.Errorf("unexpected message: %s", res.Message)
	}

	if path != "/api/v1/tasks/ingest-error/trigger" {
		t.Errorf("unexpected path: %s", path)
	}

	if authHeader != "Bearer "+testSecret {
		t.Errorf("expected bearer auth, got %s", authHeader)
	}

	payload, _ := body["payload"].(map[string]any)
	if payload["companyCode"] != "lh" || payload["errorCode"] != "STRIPE-001" {
		t.Errorf("unexpected payload: %v", body["payload"])
	}

	options, _ := body["options"].(map[string]any)
	if options["concurrencyKey"] != "lh-STRIPE-001" {
		t.Errorf("unexpected concurrencyKey: %v", options["concurrencyKey"])
	}

	if key, _ := options["idempotencyKey"].(string); !strings.HasPrefix(key, "lh-STRIPE-001-") {
		t.Errorf("unexpected idempotencyKey: %v", options["idempotencyKey"])
	}

	queue, _ := options["queue"].(map[string]any)
	if queue["name"] != "error-ingestion" || queue["concurrencyLimit"] != float64(10) {
		t.Errorf("unexpected queue: %v", options["queue"])
	}

	ctx, _ := body["context"].(map[string]any)
	if ctx["environment"] != "production" {
		t.Errorf("unexpected envelope context: %v", body["context"])
	}
}

func TestReport_HTTPError_JSONMessage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"message":"companyCode is required"}`))
	}))
	defer server.Close()

	client, err := NewHTTPClient(server.URL, testSecret, WithMaxRetries(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res := client.ReportError(context.Background(), ErrorReport{Message: "x"})

	if res.Success || res.Error != ErrorKindNetwork {
		t.Errorf("expected NETWORK_ERROR, got %+v", res)
	}

	if res.Message != "HTTP 400: companyCode is required" {
		t.Errorf("unexpected message: %s", res.Message)
	}
}

func TestReport_HTTPError_PlainTextResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("Bad Gateway"))
	}))
	defer server.Close()

	client, err := NewTaskClient(WithSecret(testSecret), WithAPIURL(server.URL), WithMaxRetries(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res := client.ReportServiceError(context.Background(), "lh", "payment", "x", nil)

	if res.Message != "HTTP 502: Bad Gateway" {
		t.Errorf("unexpected message: %s", res.Message)
	}
}

func TestReport_HTTPError_EmptyResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewHTTPClient(server.URL, testSecret, WithMaxRetries(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res := client.ReportError(context.Background(), ErrorReport{CompanyCode: "lh", Message: "x"})

	if !strings.Contains(res.Message, "(empty error body)") {
		t.Errorf("expected message to contain '(empty error body)', got: %s", res.Message)
	}
}

func TestReport_RequestError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	client, err := NewHTTPClient(server.URL, testSecret, WithMaxRetries(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Close server to cause connection error on report
	server.Close()

	res := client.ReportError(context.Background(), ErrorReport{CompanyCode: "lh", Message: "x"})

	if res.Success || res.Error != ErrorKindNetwork {
		t.Fatalf("expected NETWORK_ERROR, got %+v", res)
	}

	if !strings.Contains(res.Message, "Post ") {
		t.Errorf("expected message to mention the failed Post, got: %s", res.Message)
	}
}

func TestReport_NilClient(t *testing.T) {
	t.Parallel()

	var client *Client

	res := client.ReportError(context.Background(), ErrorReport{CompanyCode: "lh", Message: "x"})

	if res.Success || res.Error != ErrorKindNetwork {
		t.Errorf("expected NETWORK_ERROR, got %+v", res)
	}

	if res.Message != "error reporting client is nil" {
		t.Errorf("unexpected message: %s", res.Message)
	}
}

func TestReport_CustomHeader(t *testing.T) {
	t.Parallel()

	var custom, accept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		custom = r.Header.Get("X-Custom")
		accept = r.Header.Get("Accept")
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client, err := NewHTTPClient(server.URL, testSecret, WithRequestHeader("X-Custom", "custom-value"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_ = client.ReportError(context.Background(), ErrorReport{CompanyCode: "lh", Message: "x"})

	if custom != "custom-value" {
		t.Errorf("expected X-Custom=custom-value, got %s", custom)
	}

	if accept != "application/json" {
		t.Errorf("expected Accept=application/json, got %s", accept)
	}
}
