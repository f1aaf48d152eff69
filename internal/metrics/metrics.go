package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chat",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	messagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "messages_sent_total",
		Help:      "Messages created.",
	})
	messagesDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "messages_deleted_total",
		Help:      "Messages soft-deleted by their sender.",
	})
	messagesRead = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "messages_marked_read_total",
		Help:      "Messages transitioned to read.",
	})
)

// Register installs the collectors on the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, messagesSent, messagesDeleted, messagesRead)
	})
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	httpRequests.With(labels).Inc()
	httpDuration.With(labels).Observe(duration.Seconds())
}

func MessageSent() { messagesSent.Inc() }

func MessageDeleted() { messagesDeleted.Inc() }

// MessagesRead adds n read transitions; non-positive n is ignored.
func MessagesRead(n int64) {
	if n > 0 {
		messagesRead.Add(float64(n))
	}
}

// Middleware records request counts and latency by route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
