package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/usecase"
)

const peekBodyLimit = 1 << 20

// ThrottleRule configures a fixed-window budget for one throttle type.
type ThrottleRule struct {
	Type   string
	Limit  int
	Window time.Duration
	// PeekEmail derives the key from the request body's email field, so
	// attempts against one account share a budget across source addresses.
	PeekEmail bool
}

// Throttle gates requests on the shared fixed-window limiter. Every response
// carries X-RateLimit-Limit and X-RateLimit-Remaining; denials additionally
// carry Retry-After and emit one audit entry plus a denial metric.
type Throttle struct {
	limiter *usecase.RateLimiter
	audit   *usecase.AuditLogger
	denials *prometheus.CounterVec
	logger  *zap.Logger
}

// NewThrottle builds the throttle middleware helper.
func NewThrottle(limiter *usecase.RateLimiter, audit *usecase.AuditLogger, denials *prometheus.CounterVec, logger *zap.Logger) *Throttle {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Throttle{
		limiter: limiter,
		audit:   audit,
		denials: denials,
		logger:  logger,
	}
}

// Gate returns a Gin middleware enforcing the rule.
func (t *Throttle) Gate(rule ThrottleRule) gin.HandlerFunc {
	return func(c *gin.Context) {
		if t.limiter == nil || rule.Limit <= 0 || rule.Window <= 0 {
			c.Next()
			return
		}

		email := ""
		if rule.PeekEmail {
			peeked, ok := t.peekEmail(c)
			if !ok {
				return
			}
			email = peeked
		}

		key := t.deriveKey(c, rule, email)

		decision := t.limiter.Attempt(c.Request.Context(), key, rule.Limit, rule.Window)

		headers := c.Writer.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if decision.Allowed {
			c.Next()
			return
		}

		retrySeconds := int(math.Ceil(decision.RetryAfter.Seconds()))
		if retrySeconds < 0 {
			retrySeconds = 0
		}
		headers.Set("Retry-After", strconv.Itoa(retrySeconds))

		if t.denials != nil {
			t.denials.WithLabelValues(rule.Type).Inc()
		}

		if t.audit != nil {
			req := usecase.RequestInfo{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
			path := c.FullPath()
			if path == "" {
				path = c.Request.URL.Path
			}
			t.audit.LogRateLimited(c.Request.Context(), email, req, map[string]any{
				"type":   rule.Type,
				"path":   path,
				"method": c.Request.Method,
			})
		}

		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"message":             "too many requests",
			"retry_after":         decision.RetryAfter.String(),
			"seconds_until_retry": retrySeconds,
		})
	}
}

// deriveKey picks the narrowest available identity for the budget: the email
// under attack, then the authenticated identity, then the source address.
func (t *Throttle) deriveKey(c *gin.Context, rule ThrottleRule, email string) string {
	ip := c.ClientIP()

	if email != "" {
		return fmt.Sprintf("%s|%s|%s", rule.Type, email, ip)
	}

	if identity, ok := GetAuthenticatedIdentity(c); ok {
		return fmt.Sprintf("%s|%s|%s", rule.Type, identity.ID, ip)
	}

	return fmt.Sprintf("%s|%s", rule.Type, ip)
}

// peekEmail reads the JSON body for an email field and restores the body so
// the handler can bind it again. A body over peekBodyLimit aborts the request
// with 413; the second return value reports whether the request may proceed.
func (t *Throttle) peekEmail(c *gin.Context) (string, bool) {
	if c.Request.Body == nil {
		return "", true
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, peekBodyLimit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"message": "request body too large",
			})
			return "", false
		}
		t.logger.Debug("throttle body peek failed", zap.Error(err))
		return "", true
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", true
	}

	return strings.TrimSpace(strings.ToLower(payload.Email)), true
}
