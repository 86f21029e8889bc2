package fulfillment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"topup-gateway/internal/logger"
)

func TestFunctionClientDispatchSuccess(t *testing.T) {
	var got Request
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/process-topup", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := NewFunctionClient(srv.URL, "service-key", time.Second, logger.Discard())
	require.NoError(t, c.Dispatch(context.Background(), "ord_1"))

	assert.Equal(t, Request{OrderID: "ord_1", Action: "fulfill"}, got)
	assert.Equal(t, "Bearer service-key", auth)
}

func TestFunctionClientDispatchErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"G2Bulk balance too low"}`))
	}))
	defer srv.Close()

	c := NewFunctionClient(srv.URL, "", time.Second, logger.Discard())
	err := c.Dispatch(context.Background(), "ord_1")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDispatchFailed)
	assert.Contains(t, err.Error(), "G2Bulk balance too low")
}

func TestFunctionClientDispatchNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewFunctionClient(srv.URL, "", time.Second, logger.Discard())
	err := c.Dispatch(context.Background(), "ord_1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestFunctionClientDispatchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewFunctionClient(srv.URL, "", 50*time.Millisecond, logger.Discard())
	err := c.Dispatch(context.Background(), "ord_1")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDispatchFailed)
}

func TestFunctionClientPropagatesTraceContext(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})

	var traceparent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("traceparent")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, parent := tp.Tracer("test").Start(context.Background(), "webhook")
	c := NewFunctionClient(srv.URL, "", time.Second, logger.Discard())
	require.NoError(t, c.Dispatch(ctx, "ord_trace"))
	parent.End()

	assert.Contains(t, traceparent, parent.SpanContext().TraceID().String())

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	assert.Contains(t, names, "invoke-process-topup")
}
