package collectors

// limitDescriptions maps /limits entry names to human-readable text for the
// limit_description label. Unknown limits fall back via limitDescription.
var limitDescriptions = map[string]string{
	"ActiveScratchOrgs":                           "Number of active scratch orgs in use.",
	"AnalyticsExternalDataSizeMB":                 "Storage size used by external analytics data in MB.",
	"ConcurrentAsyncGetReportInstances":           "Number of concurrent asynchronous report instances.",
	"ConcurrentSyncReportRuns":                    "Number of concurrent synchronous report runs.",
	"DailyAnalyticsDataflowJobExecutions":         "Daily limit for executing analytics dataflow jobs.",
	"DailyApiRequests":                            "Daily limit on API requests.",
	"DailyAsyncApexExecutions":                    "Daily limit for asynchronous Apex executions.",
	"DailyAsyncApexTests":                         "Daily limit for asynchronous Apex test executions.",
	"DailyBulkApiBatches":                         "Daily limit on bulk API batches.",
	"DailyBulkV2QueryFileStorageMB":               "Daily limit on storage size for Bulk API v2 query files in MB.",
	"DailyBulkV2QueryJobs":                        "Daily limit on Bulk API v2 query jobs.",
	"DailyDeliveredPlatformEvents":                "Daily limit for delivered platform events.",
	"DailyDurableGenericStreamingApiEvents":       "Daily limit for durable generic streaming API events.",
	"DailyDurableStreamingApiEvents":              "Daily limit for durable streaming API events.",
	"DailyGenericStreamingApiEvents":              "Daily limit for generic streaming API events.",
	"DailyScratchOrgs":                            "Daily limit for scratch org creation.",
	"DailyStandardVolumePlatformEvents":           "Daily limit for standard volume platform events.",
	"DailyStreamingApiEvents":                     "Daily limit for streaming API events.",
	"DailyWorkflowEmails":                         "Daily limit on workflow emails sent.",
	"DataStorageMB":                               "Data storage limit in MB.",
	"DurableStreamingApiConcurrentClients":        "Concurrent clients limit for durable streaming API.",
	"FileStorageMB":                               "File storage limit in MB.",
	"HourlyAsyncReportRuns":                       "Hourly limit for asynchronous report runs.",
	"HourlyDashboardRefreshes":                    "Hourly limit for dashboard refreshes.",
	"HourlyDashboardResults":                      "Hourly limit for dashboard result retrievals.",
	"HourlyDashboardStatuses":                     "Hourly limit for dashboard status checks.",
	"HourlyLongTermIdMapping":                     "Hourly limit for long-term external ID mappings.",
	"HourlyManagedContentPublicRequests":          "Hourly limit for managed content public requests.",
	"HourlyODataCallout":                          "Hourly limit for OData callouts.",
	"HourlyPublishedPlatformEvents":               "Hourly limit for published platform events.",
	"HourlyPublishedStandardVolumePlatformEvents": "Hourly limit for published standard volume platform events.",
	"HourlyShortTermIdMapping":                    "Hourly limit for short-term external ID mappings.",
	"HourlySyncReportRuns":                        "Hourly limit for synchronous report runs.",
	"HourlyTimeBasedWorkflow":                     "Hourly limit for time-based workflow actions.",
	"MassEmail":                                   "Daily limit on mass emails sent.",
	"MonthlyPlatformEventsUsageEntitlement":       "Monthly entitlement for platform event usage.",
	"Package2VersionCreates":                      "Daily limit for package version creation.",
	"PermissionSets":                              "Maximum number of permission sets.",
	"PrivateConnectOutboundCalloutHourlyLimitMB":  "Hourly outbound callout limit for Private Connect in MB.",
	"SingleEmail":                                 "Daily limit on single emails sent via the API.",
	"StreamingApiConcurrentClients":               "Concurrent clients limit for the streaming API.",
}

func limitDescription(name string) string {
	if desc, ok := limitDescriptions[name]; ok {
		return desc
	}
	return "Description not available"
}
