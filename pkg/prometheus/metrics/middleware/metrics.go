package middleware

import (
	"runtime"
	"time"

	"github.com/Borislavv/count-min-sketch/pkg/prometheus/metrics"
	"github.com/savsgio/gotils/strconv"
	"github.com/valyala/fasthttp"
)

var emptyStr = ""

// RouteLabel resolves the label used for the path of a request. Returning the matched route
// pattern instead of the raw path keeps element names out of metric labels.
type RouteLabel func(ctx *fasthttp.RequestCtx) string

type PrometheusMetrics struct {
	meter metrics.Meter
	route RouteLabel
}

func NewPrometheusMetrics(meter metrics.Meter, route RouteLabel) *PrometheusMetrics {
	return &PrometheusMetrics{
		meter: meter,
		route: route,
	}
}

func (m *PrometheusMetrics) Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()

		next(ctx)

		// the route is known only once the router has dispatched the request
		pathStr := m.route(ctx)
		methodStr := strconv.B2S(ctx.Method())

		timer := m.meter.NewResponseTimeTimer(pathStr, methodStr, start)
		m.meter.IncTotal(pathStr, methodStr, emptyStr) // total requests (no status)

		status := metrics.Status(ctx.Response.StatusCode())
		m.meter.IncStatus(pathStr, methodStr, status)
		m.meter.IncTotal(pathStr, methodStr, status)
		m.meter.FlushResponseTimeTimer(timer)

		runtime.Gosched()
	}
}
