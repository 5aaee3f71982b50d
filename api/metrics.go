package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName             = "coaching-api/api"
	observabilityEventName = "observability.event"
	eventDomain            = "coaching"
	attrPrefix             = "coaching."
)

// requestMetrics records stage timings for one request and reports them as a
// span plus a structured log entry.
type requestMetrics struct {
	logger     *log.Logger
	route      string
	name       string
	span       trace.Span
	start      time.Time
	stages     map[string]time.Duration
	attrs      map[string]any
	errorStage string
	err        error
}

func newRequestMetrics(ctx context.Context, logger *log.Logger, route, name string) (*requestMetrics, context.Context) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "api."+name,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("http.route", route)),
	)
	return &requestMetrics{
		logger: logger,
		route:  route,
		name:   name,
		span:   span,
		start:  time.Now(),
		stages: map[string]time.Duration{},
		attrs:  map[string]any{},
	}, ctx
}

// ObserveStage records how long a named stage took.
func (m *requestMetrics) ObserveStage(stage string, duration time.Duration) {
	if m == nil || duration <= 0 {
		return
	}
	m.stages[stage] += duration
}

// Set attaches a request-specific attribute such as a result count.
func (m *requestMetrics) Set(key string, value any) {
	if m == nil {
		return
	}
	m.attrs[key] = value
}

func (m *requestMetrics) SetErrorStage(stage string) {
	if m == nil || stage == "" {
		return
	}
	m.errorStage = stage
}

// Fail records the stage and cause of an error the handler already answered.
func (m *requestMetrics) Fail(stage string, err error) {
	if m == nil {
		return
	}
	m.SetErrorStage(stage)
	m.err = err
}

func (m *requestMetrics) key(suffix string) string {
	return attrPrefix + m.name + "." + suffix
}

// Log ends the span and writes the observability event.
func (m *requestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	if err == nil {
		err = m.err
	}

	attrs := map[string]any{
		"http.route":       m.route,
		"http.status_code": status,
		m.key("total_ms"):  durationToMillis(time.Since(m.start)),
	}
	for stage, d := range m.stages {
		attrs[m.key(stage+"_ms")] = durationToMillis(d)
	}
	for k, v := range m.attrs {
		attrs[m.key(k)] = v
	}
	if m.errorStage != "" {
		attrs[m.key("error_stage")] = m.errorStage
	}
	if err != nil {
		attrs["error.message"] = err.Error()
	}

	severityText, severityNumber := severityForStatus(status, err)
	eventName := attrPrefix + m.name
	kvs := toKeyValues(attrs)

	m.span.SetAttributes(kvs...)
	m.span.AddEvent(observabilityEventName, trace.WithAttributes(append(kvs,
		attribute.String("event.name", eventName),
		attribute.String("event.domain", eventDomain),
		attribute.String("severity_text", severityText),
	)...))
	switch {
	case err != nil:
		m.span.RecordError(err)
		m.span.SetStatus(codes.Error, err.Error())
	case status >= http.StatusInternalServerError:
		m.span.SetStatus(codes.Error, http.StatusText(status))
	default:
		m.span.SetStatus(codes.Ok, "")
	}
	sc := m.span.SpanContext()
	m.span.End()

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"event.name":      eventName,
		"event.domain":    eventDomain,
		"attributes":      attrs,
		"severity_text":   severityText,
		"severity_number": severityNumber,
	}
	if sc.HasTraceID() {
		fields["trace_id"] = sc.TraceID().String()
	}
	if sc.HasSpanID() {
		fields["span_id"] = sc.SpanID().String()
	}
	entry := m.logger.WithFields(fields)
	switch severityText {
	case "ERROR":
		entry.Error(observabilityEventName)
	case "WARN":
		entry.Warn(observabilityEventName)
	default:
		entry.Info(observabilityEventName)
	}
}

// severityForStatus maps a response to OpenTelemetry log severity.
func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func toKeyValues(attrs map[string]any) []attribute.KeyValue {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, k := range keys {
		switch v := attrs[k].(type) {
		case string:
			out = append(out, attribute.String(k, v))
		case bool:
			out = append(out, attribute.Bool(k, v))
		case int:
			out = append(out, attribute.Int(k, v))
		case int64:
			out = append(out, attribute.Int64(k, v))
		case float64:
			out = append(out, attribute.Float64(k, v))
		}
	}
	return out
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
