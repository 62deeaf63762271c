package telemetry

// Span attribute keys set on pipeline spans.
const (
	AttrStage       = "parkpass.stage"
	AttrWalkTime    = "parkpass.walk_time_seconds"
	AttrCandidates  = "parkpass.candidates"
	AttrResultCode  = "parkpass.result_code"
	AttrLegMode     = "parkpass.leg_mode"
	AttrLegFallback = "parkpass.leg_fallback"
)

// Span attribute keys set on HTTP server spans.
const (
	AttrRequestID  = "parkpass.request_id"
	AttrHTTPRoute  = "http.route"
	AttrHTTPStatus = "http.status_code"
)
