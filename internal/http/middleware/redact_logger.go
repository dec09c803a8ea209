// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the structured access logger. It
// attaches a request-scoped zerolog.Logger (see LoggerFrom) and, once the
// request completes, emits one access log line with credentials scrubbed.
//
// Design goals:
//   - Default-safe: never logs request or response bodies (webhook updates
//     carry user messages)
//   - Masks credential headers: Authorization (admin bearer token), Cookie,
//     the webhook secret header, plus any configured extras
//   - Redacts bot tokens and secret-looking query parameters
//
// Usage:
//
//	r := gin.New()
//	r.Use(middleware.RequestID())
//	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
//	    MaskHeaders: []string{"X-Api-Key"},
//	}))
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// HeaderWebhookSecret is the header the chat platform echoes the webhook
// secret in.
const HeaderWebhookSecret = "X-Telegram-Bot-Api-Secret-Token"

var (
	// botTokenRE matches "<digits>:<35ish url-safe chars>" bot API tokens,
	// including the "bot" prefix used in API paths.
	botTokenRE = regexp.MustCompile(`(?i)\b(?:bot)?\d{5,12}:[A-Za-z0-9_-]{30,}\b`)
	// secretParamRE matches query parameters whose names suggest a credential.
	secretParamRE = regexp.MustCompile(`(?i)\b([a-z_]*(?:token|secret|password|key))=[^&]*`)
)

// Redact scrubs bot tokens and credential-looking query parameters from s.
func Redact(s string) string {
	if s == "" {
		return s
	}
	s = botTokenRE.ReplaceAllString(s, "[REDACTED:token]")
	return secretParamRE.ReplaceAllString(s, "$1=[REDACTED]")
}

// RedactOptions configures additional scrub behavior for RedactingLogger.
//
// MaskHeaders specifies extra HTTP header names whose values will be fully
// replaced with "[REDACTED]". Matching is case-insensitive and merged with
// the built-in sensitive headers.
type RedactOptions struct {
	MaskHeaders []string
}

// RedactingLogger returns a Gin middleware that logs HTTP requests and
// responses with sensitive values scrubbed.
//
// Behavior:
//   - Before the handler runs, stores a request-scoped logger carrying the
//     request id, method, route and remote IP under the "logger" key.
//   - After the handler, logs status, response size, latency and the
//     scrubbed request headers.
//   - Level is error for 5xx or when handlers attached gin errors, warn for
//     4xx and info otherwise.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := map[string]struct{}{
		"authorization":                      {},
		"cookie":                             {},
		"set-cookie":                         {},
		strings.ToLower(HeaderWebhookSecret): {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = Redact(c.Request.URL.Path)
		}

		l := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("remote_ip", c.ClientIP()).
			Logger()
		c.Set(loggerKey, &l)

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := maskHeaders[strings.ToLower(k)]; ok {
				safeHeaders[k] = "[REDACTED]"
				continue
			}
			safeHeaders[k] = Redact(strings.Join(vv, ", "))
		}
		safeQuery := truncate(Redact(c.Request.URL.RawQuery), maxQueryLogLength)

		c.Next()

		status := c.Writer.Status()
		lvl := zerolog.InfoLevel
		switch {
		case len(c.Errors) > 0 || status >= 500:
			lvl = zerolog.ErrorLevel
		case status >= 400:
			lvl = zerolog.WarnLevel
		}

		ev := l.WithLevel(lvl)
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.
			Str("query", safeQuery).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}
