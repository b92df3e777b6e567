// Package httpeval exposes an evaluation engine over HTTP, normally on a
// Unix domain socket.
package httpeval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bpcreech/http-eval/engines/types"
	"github.com/bpcreech/http-eval/internal/helpers"
	"github.com/bpcreech/http-eval/internal/observability"
	"github.com/bpcreech/http-eval/platform"
	"github.com/bpcreech/http-eval/platform/constants"
	"github.com/bpcreech/http-eval/platform/data"
	"github.com/bpcreech/http-eval/platform/script"
	"github.com/bpcreech/http-eval/platform/script/loader"
)

// RequestIDHeader carries the per-request ID on every response.
const RequestIDHeader = "X-Request-Id"

// Runner compiles and evaluates source text against the execution context.
// engines.Machine is the production implementation.
type Runner interface {
	Eval(ctx context.Context, source string, mode script.Mode) (platform.EvaluatorResponse, error)
}

// Handler serves evaluation requests.
type Handler struct {
	runner         Runner
	engine         string
	guard          *Guard
	evalPath       string
	maxRequestSize int64
	ignoreInsecure bool

	metrics *observability.MetricsCollector
	tracer  trace.Tracer

	logHandler slog.Handler
	logger     *slog.Logger
}

type evalRequest struct {
	Code string `json:"code"`
}

type evalResponse struct {
	Result any `json:"result"`
}

// NewHandler creates a Handler that evaluates requests with runner.
func NewHandler(runner Runner, opts ...Option) (*Handler, error) {
	if runner == nil {
		return nil, ErrMissingRunner
	}
	h := &Handler{runner: runner}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, fmt.Errorf("error applying option: %w", err)
		}
	}
	h.applyDefaults()
	return h, nil
}

func (h *Handler) applyDefaults() {
	if h.logger != nil {
		h.logHandler = h.logger.Handler()
	} else {
		h.logHandler, h.logger = helpers.SetupLogger(h.logHandler, "httpeval", "Handler")
	}
	if h.evalPath == "" {
		h.evalPath = DefaultEvalPath
	}
	if h.maxRequestSize == 0 {
		h.maxRequestSize = DefaultMaxRequestSize
	}
	if h.tracer == nil {
		h.tracer = (*observability.TracerSetup)(nil).Tracer()
	}
	if h.engine == "" {
		h.engine = "unknown"
		if e, ok := h.runner.(interface{ Engine() types.Type }); ok {
			h.engine = e.Engine().String()
		}
	}
	if h.guard == nil {
		h.guard = NewGuard(h.logHandler, h.ignoreInsecure, h.metrics)
	}
}

func (h *Handler) String() string {
	return fmt.Sprintf("httpeval.Handler{path: %s, engine: %s}", h.evalPath, h.engine)
}

// Guard returns the socket permission guard.
func (h *Handler) Guard() *Guard {
	return h.guard
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer h.metrics.RequestStarted()()

	id := uuid.NewString()
	ctx := context.WithValue(r.Context(), constants.RequestID, id)
	ctx, span := h.tracer.Start(ctx, "http.request",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.path", r.URL.Path),
			attribute.String("request.id", id),
		))
	defer span.End()

	logger := h.logger.With("request_id", id)
	w.Header().Set(RequestIDHeader, id)

	status := http.StatusOK
	result, err := h.handle(ctx, w, r.WithContext(ctx), logger)
	if err != nil {
		he := asError(err)
		status = he.StatusCode
		h.logFailure(logger, he)
		span.RecordError(err)
		span.SetStatus(codes.Error, he.Kind.String())
		result = he.render()
	}
	span.SetAttributes(attribute.Int("http.status_code", status))

	status = writeJSON(w, status, result, logger)
	h.metrics.RecordRequest(r.Method, status, time.Since(start))
}

func (h *Handler) handle(
	ctx context.Context,
	w http.ResponseWriter,
	r *http.Request,
	logger *slog.Logger,
) (any, error) {
	if err := h.guard.CheckOnce(localAddr(r)); err != nil {
		return nil, err
	}
	if r.URL.Path != h.evalPath || r.Method != http.MethodPost {
		return nil, NewValidationError(http.StatusNotFound, fmt.Sprintf("Cannot %s %s", r.Method, r.URL.Path))
	}
	if !acceptsJSON(r.Header.Values("Accept-Encoding")) {
		return nil, NewValidationError(http.StatusBadRequest, msgJSONOnly)
	}

	req, err := h.decode(w, r)
	if err != nil {
		return nil, err
	}

	query := r.URL.Query()
	mode := script.Sync
	if query.Get("async") == "true" {
		mode = script.Async
	}
	skipResult := query.Get("skipResult") == "true"

	logger.Debug("Evaluating", "mode", mode, "skipResult", skipResult, "size", len(req.Code))
	resp, err := h.eval(ctx, req.Code, mode)
	if err != nil {
		if errors.Is(err, loader.ErrScriptNotAvailable) {
			return nil, NewValidationError(http.StatusBadRequest, msgNoCode)
		}
		return nil, err
	}

	if skipResult {
		return struct{}{}, nil
	}
	switch resp.Type() {
	case data.UNDEFINED, data.FUNCTION:
		return struct{}{}, nil
	}
	return evalResponse{Result: resp.Interface()}, nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*evalRequest, error) {
	body := http.MaxBytesReader(w, r.Body, h.maxRequestSize)
	defer func() { _ = body.Close() }()

	var req evalRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return nil, NewValidationError(http.StatusBadRequest,
				fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
		case errors.Is(err, io.EOF):
			return nil, NewValidationError(http.StatusBadRequest, msgNoCode)
		default:
			return nil, NewValidationError(http.StatusBadRequest,
				fmt.Sprintf("Request body is not a valid JSON object: %v", err))
		}
	}
	if strings.TrimSpace(req.Code) == "" {
		return nil, NewValidationError(http.StatusBadRequest, msgNoCode)
	}
	return &req, nil
}

func (h *Handler) eval(ctx context.Context, source string, mode script.Mode) (platform.EvaluatorResponse, error) {
	ctx, span := h.tracer.Start(ctx, "eval",
		trace.WithAttributes(
			attribute.String("eval.engine", h.engine),
			attribute.String("eval.mode", mode.String()),
		))
	defer span.End()

	start := time.Now()
	resp, err := h.runner.Eval(ctx, source, mode)

	var failure *platform.EvalFailure
	outcome := "ok"
	switch {
	case errors.As(err, &failure):
		outcome = "failure"
		span.SetAttributes(attribute.Int("eval.failure_depth", failure.Depth()))
	case err != nil:
		outcome = "error"
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	h.metrics.RecordEvaluation(h.engine, mode.String(), outcome, time.Since(start))
	return resp, err
}

func (h *Handler) logFailure(logger *slog.Logger, he *Error) {
	switch he.Kind {
	case KindValidation:
		logger.Debug("Rejected request", "status", he.StatusCode, "error", he.Message)
	case KindEvaluation:
		logger.Info("Evaluation failed", "error", he.Cause)
	default:
		logger.Error("Request failed", "kind", he.Kind, "status", he.StatusCode, "error", he)
	}
}

// writeJSON writes v with status and returns the status actually sent.
func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) int {
	body, err := json.Marshal(v)
	if err != nil {
		logger.Error("Failed to encode response", "error", err)
		status = http.StatusInternalServerError
		body, _ = json.Marshal(&errorBody{Error: msgInternal + ": failed to encode result"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logger.Debug("Failed to write response", "error", err)
	}
	return status
}

// acceptsJSON reports whether any Accept-Encoding value lists application/json.
func acceptsJSON(values []string) bool {
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			name, _, _ := strings.Cut(part, ";")
			if strings.EqualFold(strings.TrimSpace(name), "application/json") {
				return true
			}
		}
	}
	return false
}

func localAddr(r *http.Request) net.Addr {
	addr, _ := r.Context().Value(http.LocalAddrContextKey).(net.Addr)
	return addr
}
