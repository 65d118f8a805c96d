package metrics

// catalog describes the series the stockwatch components emit.
var catalog = map[string]string{
	"cache_operations_total":             "Cache operations by operation and result (hit, miss, expired, corrupt, error).",
	"cache_operation_duration_seconds":   "Latency of cache operations.",
	"cache_swept_entries_total":          "Expired cache entries removed by the periodic sweep.",
	"storage_operations_total":           "Key/value storage operations by backend, operation and result.",
	"storage_operation_duration_seconds": "Latency of key/value storage operations.",
	"provider_requests_total":            "Quote provider requests by function and result.",
	"provider_request_duration_seconds":  "Latency of quote provider requests, retries included.",
	"market_requests_total":              "Market lookups by operation and the source that answered them.",
	"market_request_duration_seconds":    "Latency of market lookups.",
	"watchlists_total":                   "Watchlists in the persisted document.",
	"cron_job_executions_total":          "Scheduled job runs by job and result.",
	"cron_job_duration_seconds":          "Duration of scheduled job runs.",
	"cron_scheduler_running":             "1 while the job scheduler is running.",
}

func describe(name, kind string) string {
	if help, ok := catalog[name]; ok {
		return help
	}
	return kind + " " + name
}
