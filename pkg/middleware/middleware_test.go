package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
	"go.opentelemetry.io/otel/trace/noop"
)

func newRouter(mw ...func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(mw...)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("item " + chi.URLParam(r, "id")))
	})
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	return r
}

func serve(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func gather(t *testing.T, reg *prometheus.Registry, name string) []*dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return f.GetMetric()
		}
	}
	return nil
}

func TestPrometheusRecordsRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := newRouter(Prometheus(WithRegistry(reg), WithNamespace("test")))

	serve(h, "/items/1")
	serve(h, "/items/2")
	serve(h, "/boom")
	serve(h, "/missing")

	got := map[string]float64{}
	for _, m := range gather(t, reg, "test_http_requests_total") {
		var labels []string
		for _, l := range m.GetLabel() {
			labels = append(labels, l.GetValue())
		}
		got[strings.Join(labels, " ")] = m.GetCounter().GetValue()
	}

	// Label values are ordered by label name: code, method, route.
	want := map[string]float64{
		"200 GET /items/{id}": 2,
		"500 GET /boom":       1,
		"404 GET other":       1,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("requests_total{%s} = %v, want %v (all: %v)", k, got[k], v, got)
		}
	}
}

func TestPrometheusObservesDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := newRouter(Prometheus(WithRegistry(reg)))

	serve(h, "/items/1")

	hist := gather(t, reg, "domsync_http_request_duration_seconds")
	if len(hist) != 1 || hist[0].GetHistogram().GetSampleCount() != 1 {
		t.Fatalf("duration = %v, want one sample", hist)
	}
	inFlight := gather(t, reg, "domsync_http_requests_in_flight")
	if len(inFlight) != 1 || inFlight[0].GetGauge().GetValue() != 0 {
		t.Fatalf("in flight = %v, want 0", inFlight)
	}
}

type recordingTracer struct {
	embedded.Tracer
	spans []*recordingSpan
}

type recordingSpan struct {
	trace.Span
	name string
	code int
}

func (s *recordingSpan) SetName(name string) { s.name = name }

func (r *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	ctx, span := noop.NewTracerProvider().Tracer("").Start(ctx, name, opts...)
	rs := &recordingSpan{Span: span, name: name}
	r.spans = append(r.spans, rs)
	return trace.ContextWithSpan(ctx, rs), rs
}

func TestOpenTelemetryNamesSpansByRoute(t *testing.T) {
	tracer := &recordingTracer{}
	var inHandler trace.Span
	r := chi.NewRouter()
	r.Use(OpenTelemetry(WithTracer(tracer)))
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		inHandler = trace.SpanFromContext(r.Context())
	})

	serve(r, "/items/3")

	if len(tracer.spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(tracer.spans))
	}
	if got := tracer.spans[0].name; got != "HTTP GET /items/{id}" {
		t.Errorf("span name = %q", got)
	}
	if inHandler != trace.Span(tracer.spans[0]) {
		t.Error("handler context does not carry the request span")
	}
}

func TestOpenTelemetryFilter(t *testing.T) {
	tracer := &recordingTracer{}
	h := newRouter(OpenTelemetry(WithTracer(tracer), WithFilter(func(r *http.Request) bool {
		return r.URL.Path != "/boom"
	})))

	serve(h, "/boom")
	serve(h, "/items/1")

	if len(tracer.spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(tracer.spans))
	}
}

func TestLoggerLogsRequests(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := newRouter(Logger(logger))

	serve(h, "/items/9")
	serve(h, "/boom")

	out := buf.String()
	for _, want := range []string{
		"level=DEBUG msg=request component=http method=GET path=/items/9 status=200",
		"level=WARN msg=request component=http method=GET path=/boom status=500",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}
