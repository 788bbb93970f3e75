package server

import (
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader = "X-Request-Id"
	requestIDKey    = "requestID"
)

// withRequestID keeps the caller's X-Request-Id or assigns a new one and echoes it back.
func withRequestID(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id := string(ctx.Request.Header.Peek(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		ctx.SetUserValue(requestIDKey, id)
		ctx.Response.Header.Set(requestIDHeader, id)
		next(ctx)
	}
}

// withRateLimit answers 429 once the limiter runs out of tokens. A nil limiter disables it.
func withRateLimit(limiter *rate.Limiter, next fasthttp.RequestHandler) fasthttp.RequestHandler {
	if limiter == nil {
		return next
	}
	return func(ctx *fasthttp.RequestCtx) {
		if !limiter.Allow() {
			writeJSON(ctx, fasthttp.StatusTooManyRequests, errorResponse{Error: errorMessage{Message: "rate limit exceeded"}})
			return
		}
		next(ctx)
	}
}

func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func requestID(ctx *fasthttp.RequestCtx) string {
	id, _ := ctx.UserValue(requestIDKey).(string)
	return id
}
