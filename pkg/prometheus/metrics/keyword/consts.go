package keyword

const (
	TotalHttpRequestsMetricName    = "http_requests_total"
	TotalHttpResponsesMetricName   = "http_responses_total"
	HttpResponseStatusesMetricName = "http_response_statuses_total"
	HttpResponseTimeMsMetricName   = "http_response_duration_ms"
	SketchUpdatesMetricName        = "cms_updates_total"
	SketchEstimatesMetricName      = "cms_estimates_total"
	SketchErrorsMetricName         = "cms_errors_total"
	SketchesLength                 = "cms_sketches"
	SketchesMemoryUsageMetricName  = "cms_counters_memory_bytes"
)
