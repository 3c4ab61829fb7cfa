// Package clients implements the registration service's gateways to the user
// and event services over HTTP.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aura-events/registration-service/internal/registrations"
)

const (
	tracerName = "github.com/aura-events/registration-service/internal/clients"
	// HeaderUserID carries the account id on user service calls.
	HeaderUserID = "X-User-Id"
	// maxErrorBody caps how much of an error response is kept in RemoteError.
	maxErrorBody = 512
)

var requestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "registration_gateway_request_duration_seconds",
		Help:    "Time spent in calls to the user and event services",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"service", "operation", "outcome"},
)

// RemoteError is a non-2xx, non-404 answer from a remote service.
type RemoteError struct {
	Service string
	Method  string
	Path    string
	Status  int
	Body    string
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("%s %s %s: status %d", e.Service, e.Method, e.Path, e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// request describes one call to a remote service.
type request struct {
	operation string
	method    string
	path      string
	userID    *int64
	body      any
	out       any
}

type baseClient struct {
	service string
	baseURL string
	http    *http.Client
	tracer  trace.Tracer
}

func newBaseClient(service, baseURL string, httpClient *http.Client) baseClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return baseClient{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		tracer:  otel.Tracer(tracerName),
	}
}

// do sends req. A 404 wraps registrations.ErrRemoteNotFound.
func (b *baseClient) do(ctx context.Context, req request) (err error) {
	ctx, span := b.tracer.Start(ctx, b.service+"."+req.operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.method),
			attribute.String("http.path", req.path),
		))
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "failure"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		requestDuration.WithLabelValues(b.service, req.operation, outcome).Observe(time.Since(start).Seconds())
		span.End()
	}()

	var body io.Reader
	if req.body != nil {
		raw, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", req.operation, err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, b.baseURL+req.path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.userID != nil {
		httpReq.Header.Set(HeaderUserID, strconv.FormatInt(*req.userID, 10))
	}

	resp, err := b.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s %s: %w", b.service, req.method, req.path, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s %s: %w", b.service, req.method, req.path, registrations.ErrRemoteNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &RemoteError{
			Service: b.service,
			Method:  req.method,
			Path:    req.path,
			Status:  resp.StatusCode,
			Body:    strings.TrimSpace(string(raw)),
		}
	}
	if req.out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(req.out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.operation, err)
	}
	return nil
}
