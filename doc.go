// Package errorsdk reports application errors to the Railblocks error-ingestion
// service.
//
// Two transports are supported: triggering the ingestion task on the task-queue
// API, and posting directly to the service's HTTP endpoints. Both share the same
// payload composition and the same retrying request core built on
// [github.com/go-resty/resty/v2].
//
// # Basic Usage
//
//	c, err := errorsdk.NewTaskClient(
//	    errorsdk.WithEnvironment(errorsdk.EnvironmentStaging),
//	    errorsdk.WithDefaultContext(map[string]any{"app": "billing"}),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res := c.ReportKnownError(ctx, "lh", "STRIPE-001", "Payment failed", map[string]any{
//	    "order_id": "order_456",
//	})
//	if !res.Success {
//	    log.Printf("report not delivered: %s: %s", res.Error, res.Message)
//	}
//
// The HTTP transport needs a base URL and a secret:
//
//	c, err := errorsdk.NewHTTPClient("https://example.convex.site", secret)
//
// # Configuration
//
// All configuration is supplied as [Option] functions passed to [New]. Invalid
// values are silently ignored and the default is retained. [LoadOptions] builds
// options from a YAML file and ERRORSDK_* environment variables.
//
// The task-queue secret is resolved from [WithSecret], then the TRIGGER_SECRET_KEY
// environment variable, then the dotenv file named by [WithEnvFile]. [New] fails
// with a [*ConfigurationError] when none supplies it.
//
// # Retry Behaviour
//
// Each report call makes at most [WithMaxRetries] attempts in total, each bounded
// by [WithTimeout]. After failed attempt k the client waits retryDelay*2^(k-1)
// before the next one, without jitter. Transport errors, non-2xx statuses and 2xx
// responses that are not JSON objects all count as failures. [DefaultRetryPolicy]
// retries all of them; [ServerErrorRetryPolicy] stops on 4xx and parse failures.
//
// Report calls never return an error. When every attempt fails the result carries
// error NETWORK_ERROR and the last failure's description. Any other error tag
// comes from the ingestion service itself.
//
// # Payloads
//
// Optional [ErrorReport] fields use [Optional] so that absent fields are left out
// of the payload instead of being sent as null. The client's default context is
// merged under every report's context.
//
// # Logging
//
// Implement [RequestLogger] and supply it via [WithRequestLogger], or wrap a
// zerolog logger with [NewZerologLogger]. The default [NoopLogger] discards all
// log output. The secret is never logged.
package errorsdk
