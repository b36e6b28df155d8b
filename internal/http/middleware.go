package http

import (
	"context"
	"fmt"
	"net"
	stdhttp "net/http"
	"slices"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

const (
	rateLimitMessage  = "Too many requests. Please wait a moment and try again."
	rateLimitRetryIn  = "1"
	sentryFlushWindow = 2 * time.Second
)

type middleware = func(huma.Context, func(huma.Context))

func (s *Server) sentryMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.sentry == nil {
			next(ctx)
			return
		}

		hub := s.sentry.Clone()
		hub.Scope().SetTag("http.method", ctx.Method())
		if op := ctx.Operation(); op != nil {
			hub.Scope().SetTag("http.route", op.Path)
			hub.Scope().SetTag("operation", op.OperationID)
		}

		defer hub.Flush(sentryFlushWindow)
		next(huma.WithContext(ctx, sentry.SetHubOnContext(ctx.Context(), hub)))
	}
}

// recoveryMiddleware turns a handler panic into a 500 in the format the route speaks.
func (s *Server) recoveryMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", rec)
			}
			s.recordError(ctx.Context(), err, "panic recovered", logrus.Fields{"route": routeOf(ctx)})

			if hub := sentry.GetHubFromContext(ctx.Context()); hub != nil {
				hub.RecoverWithContext(ctx.Context(), rec)
				hub.Flush(sentryFlushWindow)
			}

			s.writeFailure(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
		}()

		next(ctx)
	}
}

func (s *Server) requestIDMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		reqID := uuid.NewString()
		ctx.SetHeader("X-Request-ID", reqID)

		goCtx := context.WithValue(ctx.Context(), requestIDContextKey, reqID)
		if hub := sentry.GetHubFromContext(goCtx); hub != nil {
			hub.Scope().SetTag("request_id", reqID)
		}

		next(huma.WithContext(ctx, goCtx))
	}
}

// rateLimitMiddleware rejects clients that spent their token budget. JSON
// operations get a problem document, wiki pages get the HTML error page.
func (s *Server) rateLimitMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		req, _ := humago.Unwrap(ctx)
		if s.rateLimiter == nil || req == nil {
			next(ctx)
			return
		}

		ip := clientIPFromRequest(req)
		if s.rateLimiter.Allow(ip) {
			next(ctx)
			return
		}

		if s.logger != nil {
			s.logger.WithError(eris.New("rate limit exceeded")).
				WithFields(requestFields(ctx, req)).
				WithField("ip", ip).
				Warn("request rate limited")
		}

		ctx.SetHeader("Retry-After", rateLimitRetryIn)
		s.writeFailure(ctx, stdhttp.StatusTooManyRequests, rateLimitMessage)
	}
}

func (s *Server) loggingMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.logger == nil {
			next(ctx)
			return
		}

		start := time.Now()
		next(ctx)

		status := ctx.Status()
		if status == 0 {
			status = stdhttp.StatusOK
		}

		req, _ := humago.Unwrap(ctx)
		entry := s.logger.WithFields(requestFields(ctx, req)).WithFields(logrus.Fields{
			"method":      ctx.Method(),
			"status":      status,
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
		})
		if req != nil {
			entry = entry.WithField("remote_addr", req.RemoteAddr)
		}

		if status >= stdhttp.StatusInternalServerError {
			entry.Error("request failed")
			return
		}
		entry.Info("request completed")
	}
}

// writeFailure answers a request the handler never saw.
func (s *Server) writeFailure(ctx huma.Context, status int, message string) {
	if !servesHTML(ctx.Operation()) {
		if err := huma.WriteErr(s.api, ctx, status, message); err != nil {
			s.recordError(ctx.Context(), err, "writing error response", logrus.Fields{"status": status})
		}
		return
	}

	resp, err := s.renderErrorResponse(ctx.Context(), status, message)
	if err != nil {
		s.recordError(ctx.Context(), err, "rendering error response", logrus.Fields{"status": status})
	}

	ctx.SetHeader("Content-Type", htmlContentType)
	ctx.SetStatus(status)
	if resp != nil && len(resp.Body) > 0 {
		_, _ = ctx.BodyWriter().Write(resp.Body)
	}
}

func servesHTML(op *huma.Operation) bool {
	return op != nil && slices.Contains(op.Tags, siteTag)
}

func routeOf(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil {
		return op.Path
	}
	return ""
}

func requestFields(ctx huma.Context, req *stdhttp.Request) logrus.Fields {
	fields := logrus.Fields{}
	if route := routeOf(ctx); route != "" {
		fields["route"] = route
	}
	if req != nil {
		fields["path"] = req.URL.Path
	}
	if requestID := RequestIDFromContext(ctx.Context()); requestID != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func clientIPFromRequest(req *stdhttp.Request) string {
	if req == nil {
		return ""
	}

	if forwarded := req.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if candidate := strings.TrimSpace(first); candidate != "" {
			return candidate
		}
	}

	if realIP := strings.TrimSpace(req.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}
