package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIsIdempotentAndCountersMove(t *testing.T) {
	Register()
	Register()

	before := testutil.ToFloat64(messagesRead)
	MessagesRead(3)
	MessagesRead(0)
	MessagesRead(-2)
	if got := testutil.ToFloat64(messagesRead) - before; got != 3 {
		t.Fatalf("expected read counter to move by 3, moved %v", got)
	}

	sent := testutil.ToFloat64(messagesSent)
	MessageSent()
	if testutil.ToFloat64(messagesSent) != sent+1 {
		t.Fatalf("expected sent counter to increment")
	}

	RecordHTTPRequest("GET", "/health", 200, 5*time.Millisecond)
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	Register()

	router := gin.New()
	router.Use(Middleware())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	router.GET("/metrics", Handler())

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `chat_http_requests_total{method="GET",path="/ping",status="200"}`) {
		t.Fatalf("expected /ping sample in metrics output")
	}
}
