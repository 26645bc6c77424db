package api

import (
	"log/slog"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/thereceipt/receipt-renderer/internal/apperr"
)

const (
	headerRequestID = "X-Request-ID"
	requestIDKey    = "request_id"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			if v7, err := uuid.NewV7(); err == nil {
				id = v7.String()
			} else {
				id = uuid.NewString()
			}
		}
		c.Set(requestIDKey, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		} else if status >= http.StatusBadRequest {
			level = slog.LevelWarn
		}

		logger.Log(c.Request.Context(), level, "http_request_finished",
			slog.String("request_id", c.GetString(requestIDKey)),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Int64("latency_ms", time.Since(start).Milliseconds()),
			slog.String("ip", c.ClientIP()),
		)
	}
}

func recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				stack := make([]byte, 2048)
				n := runtime.Stack(stack, false)
				logger.Error("panic_recovered",
					slog.String("request_id", c.GetString(requestIDKey)),
					slog.Any("error", err),
					slog.String("stack", string(stack[:n])),
				)
				ae := apperr.Internal(nil)
				c.AbortWithStatusJSON(ae.HTTPStatus, ae)
			}
		}()
		c.Next()
	}
}

// tenantLimiter keeps one token bucket per tenant.
type tenantLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*limiterEntry
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const limiterTTL = 30 * time.Minute

func newTenantLimiter(perMinute int) *tenantLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &tenantLimiter{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		limiters: make(map[string]*limiterEntry),
	}
}

// Allow reports whether tenant may proceed now. A nil limiter allows all.
func (l *tenantLimiter) Allow(tenant string) bool {
	if l == nil {
		return true
	}
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.limiters[tenant]
	if !ok {
		for k, old := range l.limiters {
			if now.Sub(old.lastSeen) > limiterTTL {
				delete(l.limiters, k)
			}
		}
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[tenant] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}
