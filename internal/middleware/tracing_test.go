package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestTracingSpanPerRequest(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)).Tracer("test")

	r := gin.New()
	r.Use(Tracing(tracer))
	r.GET("/jobposts/:id", func(c *gin.Context) {
		_, child := tracer.Start(c.Request.Context(), "jobpost.get")
		child.End()
		c.Status(http.StatusOK)
	})
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/jobposts/123", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	spans := sr.Ended()
	require.Len(t, spans, 3)
	child, server, failed := spans[0], spans[1], spans[2]

	assert.Equal(t, "GET /jobposts/:id", server.Name())
	assert.Equal(t, trace.SpanKindServer, server.SpanKind())
	assert.Contains(t, server.Attributes(), attribute.Int("http.response.status_code", http.StatusOK))
	assert.Equal(t, server.SpanContext().SpanID(), child.Parent().SpanID())

	assert.Equal(t, "GET /boom", failed.Name())
	assert.Equal(t, codes.Error, failed.Status().Code)
}
