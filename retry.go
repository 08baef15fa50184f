package errorsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// send runs the attempt loop for one report call. Attempts are sequential and
// share the encoded body, request id and idempotency key. Every exit path yields
// a terminal ReportResult.
func (c *Client) send(ctx context.Context, op operation, p WirePayload) ReportResult {
	requestID := uuid.NewString()

	ctx, span := c.tracer.Start(ctx, "errorsdk.report",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("errorsdk.transport", string(c.cfg.transport)),
			attribute.String("errorsdk.operation", op.String()),
			attribute.String("errorsdk.request_id", requestID),
		),
	)
	defer span.End()

	body, err := json.Marshal(c.envelope.wrap(p, c.now()))
	if err != nil {
		c.logger.Errorf("%s %s: encoding payload: %v", op, requestID, err)
		span.SetStatus(codes.Error, err.Error())

		return ReportResult{
			Success: false,
			Error:   ErrorKindValidation,
			Message: fmt.Sprintf("Failed to encode payload: %v", err),
		}
	}

	target := c.envelope.url(op)

	var lastFailure error

	for attempt := 1; attempt <= c.cfg.maxRetries; attempt++ {
		resp, parsed, failure := c.attempt(ctx, target, requestID, body)
		if failure == nil {
			span.SetAttributes(attribute.Int("errorsdk.attempts", attempt))
			c.logger.Debugf("%s %s: delivered on attempt %d", op, requestID, attempt)

			res := c.envelope.translate(parsed)
			if !res.Success {
				span.SetAttributes(attribute.String("errorsdk.remote_error", string(res.Error)))
			}

			return res
		}

		lastFailure = failure
		span.AddEvent("attempt failed", trace.WithAttributes(
			attribute.Int("attempt", attempt),
			attribute.String("reason", failure.Error()),
		))

		// Don't sleep after the last attempt
		if attempt == c.cfg.maxRetries {
			break
		}

		if !c.retryPolicy(resp, failure) {
			c.logger.Debugf("%s %s: retry policy declined after attempt %d: %v", op, requestID, attempt, failure)
			break
		}

		if ctx.Err() != nil {
			break
		}

		delay := c.cfg.backoff(attempt)
		c.logger.Warnf("%s %s: attempt %d/%d failed, retrying in %s: %v",
			op, requestID, attempt, c.cfg.maxRetries, delay, failure)

		if err := c.wait(ctx, delay); err != nil {
			break
		}
	}

	c.logger.Errorf("%s %s: giving up: %v", op, requestID, lastFailure)
	span.SetStatus(codes.Error, lastFailure.Error())

	return networkErrorResult(lastFailure)
}

// attempt performs one POST bounded by the per-attempt timeout. resp is nil when
// no response was received.
func (c *Client) attempt(ctx context.Context, target, requestID string, body []byte) (*resty.Response, map[string]any, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, &TransportFailure{Err: err}
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.timeout)
	defer cancel()

	resp, err := c.http.R().
		SetContext(attemptCtx).
		SetHeader(headerRequestID, requestID).
		SetBody(body).
		Post(target)

	parsed, failure := classifyAttempt(resp, err)
	if err != nil {
		resp = nil
	}

	return resp, parsed, failure
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
