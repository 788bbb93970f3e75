package metrics

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Borislavv/count-min-sketch/pkg/prometheus/metrics/keyword"
	"github.com/VictoriaMetrics/metrics"
)

// Meter defines methods for recording application metrics.
type Meter interface {
	IncTotal(path, method, status string)
	IncStatus(path, method, status string)
	NewResponseTimeTimer(path, method string, start time.Time) *Timer
	FlushResponseTimeTimer(t *Timer)
	IncUpdates(sketch string)
	IncEstimates(sketch string)
	IncErrors(sketch, kind string)
	SetSketchesLength(count int64)
	SetSketchesMemory(bytes int64)
}

// Metrics implements Meter using VictoriaMetrics metrics.
type Metrics struct{}

// New creates a new Metrics instance.
func New() *Metrics {
	return &Metrics{}
}

// Precompute status code strings for performance.
var statuses [600]string

func init() {
	for i := 100; i < len(statuses); i++ {
		statuses[i] = strconv.Itoa(i)
	}
}

// Status returns the precomputed label value for an HTTP status code.
func Status(code int) string {
	if code >= 100 && code < len(statuses) {
		return statuses[code]
	}
	return strconv.Itoa(code)
}

// IncTotal increments total requests or responses depending on status.
func (m *Metrics) IncTotal(path, method, status string) {
	name := keyword.TotalHttpRequestsMetricName
	if status != "" {
		name = keyword.TotalHttpResponsesMetricName
	}
	buf := make([]byte, 0, 48)

	buf = append(buf, name...)
	buf = append(buf, `{path="`...)
	buf = append(buf, path...)
	buf = append(buf, `",method="`...)
	buf = append(buf, method...)
	buf = append(buf, `"`...)

	if status != "" {
		buf = append(buf, `,status="`...)
		buf = append(buf, status...)
		buf = append(buf, `"`...)
	}
	buf = append(buf, `}`...)

	metrics.GetOrCreateCounter(string(buf)).Inc()
}

// IncStatus increments a counter for HTTP response statuses.
func (m *Metrics) IncStatus(path, method, status string) {
	buf := make([]byte, 0, 48)

	buf = append(buf, keyword.HttpResponseStatusesMetricName...)
	buf = append(buf, `{path="`...)
	buf = append(buf, path...)
	buf = append(buf, `",method="`...)
	buf = append(buf, method...)
	buf = append(buf, `",status="`...)
	buf = append(buf, status...)
	buf = append(buf, `"}`...)

	metrics.GetOrCreateCounter(string(buf)).Inc()
}

func (m *Metrics) IncUpdates(sketch string) {
	metrics.GetOrCreateCounter(sketchMetricName(keyword.SketchUpdatesMetricName, sketch)).Inc()
}

func (m *Metrics) IncEstimates(sketch string) {
	metrics.GetOrCreateCounter(sketchMetricName(keyword.SketchEstimatesMetricName, sketch)).Inc()
}

// IncErrors counts a failed sketch call; kind is a short error class such as "overflow".
func (m *Metrics) IncErrors(sketch, kind string) {
	buf := make([]byte, 0, 48)

	buf = append(buf, keyword.SketchErrorsMetricName...)
	buf = append(buf, `{sketch="`...)
	buf = append(buf, labelValue(sketch)...)
	buf = append(buf, `",kind="`...)
	buf = append(buf, kind...)
	buf = append(buf, `"}`...)

	metrics.GetOrCreateCounter(string(buf)).Inc()
}

// SetSketchesLength updates the gauge for the number of registered sketches.
func (m *Metrics) SetSketchesLength(count int64) {
	metrics.GetOrCreateCounter(keyword.SketchesLength).Set(uint64(count))
}

// SetSketchesMemory updates the gauge for total counter memory in bytes.
func (m *Metrics) SetSketchesMemory(bytes int64) {
	metrics.GetOrCreateCounter(keyword.SketchesMemoryUsageMetricName).Set(uint64(bytes))
}

// Timer tracks start of an operation for timing metrics.
type Timer struct {
	name  string
	start time.Time
}

// NewResponseTimeTimer creates a Timer for measuring response time of given path and method from start.
func (m *Metrics) NewResponseTimeTimer(path, method string, start time.Time) *Timer {
	buf := make([]byte, 0, 48)

	buf = append(buf, keyword.HttpResponseTimeMsMetricName...)
	buf = append(buf, `{path="`...)
	buf = append(buf, path...)
	buf = append(buf, `",method="`...)
	buf = append(buf, method...)
	buf = append(buf, `"}`...)

	return &Timer{name: string(buf), start: start}
}

// FlushResponseTimeTimer records the elapsed time since Timer creation into a histogram.
func (m *Metrics) FlushResponseTimeTimer(t *Timer) {
	metrics.GetOrCreateHistogram(t.name).Update(float64(time.Since(t.start).Milliseconds()))
}

// WritePrometheus writes every registered metric in Prometheus text format.
func WritePrometheus(w io.Writer) {
	metrics.WritePrometheus(w, true)
}

func sketchMetricName(name, sketch string) string {
	buf := make([]byte, 0, 48)

	buf = append(buf, name...)
	buf = append(buf, `{sketch="`...)
	buf = append(buf, labelValue(sketch)...)
	buf = append(buf, `"}`...)

	return string(buf)
}

// labelValue replaces characters which would break the quoted label value.
func labelValue(v string) string {
	if !strings.ContainsAny(v, "\\\"\n") {
		return v
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '\\', '"', '\n':
			return '_'
		}
		return r
	}, v)
}
