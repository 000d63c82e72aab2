package metrics

import "github.com/prometheus/client_golang/prometheus"

// Help-string constants shared by the license gauges.
const (
	totalLicensesHelp   = "Total Salesforce licenses"
	usedLicensesHelp    = "Used Salesforce licenses"
	percentLicensesHelp = "Percentage of Salesforce licenses used"
)

// Metrics declares every gauge the collectors own. Created once at startup
// against an injected registry; collectors mutate values, never schemas.
//
// Gauges whose collector emits a sentinel on empty results do so with every
// label set to SentinelValue and value 0.
type Metrics struct {
	registry *Registry

	// API and limits
	APIUsagePercentage *Gauge

	// Bulk API
	DailyBatchCount       *Gauge
	DailyEntityTypeCount  *Gauge
	HourlyBatchCount      *Gauge
	HourlyEntityTypeCount *Gauge

	// Licenses
	TotalUserLicenses          *Gauge
	UsedUserLicenses           *Gauge
	PercentUserLicensesUsed    *Gauge
	TotalPermSetLicenses       *Gauge
	UsedPermSetLicenses        *Gauge
	PercentPermSetLicensesUsed *Gauge
	TotalEntitlements          *Gauge
	UsedEntitlements           *Gauge
	PercentEntitlementsUsed    *Gauge

	// Incidents and maintenance
	Incidents    *Gauge
	Maintenances *Gauge

	// User activity
	LoginSuccess                      *Gauge
	LoginFailure                      *Gauge
	UniqueLoginAttempts               *Gauge
	Geolocation                       *Gauge
	IntegrationUserPasswordExpiration *Gauge

	// Deployments
	DeploymentDetails     *Gauge
	DeploymentPendingTime *Gauge
	DeploymentTime        *Gauge
	ValidationDetails     *Gauge
	ValidationPendingTime *Gauge
	ValidationTime        *Gauge

	// Performance
	EPT *Gauge
	APT *Gauge

	// Apex jobs and execution
	ApexFlexQueue          *Gauge
	AsyncJobStatus         *Gauge
	ApexRunTime            *Gauge
	ApexCPUTime            *Gauge
	ApexExecTime           *Gauge
	ApexDBTotalTime        *Gauge
	ApexCalloutTime        *Gauge
	ApexEntryPointCount    *Gauge
	ApexAvgRuntime         *Gauge
	ApexMaxRuntime         *Gauge
	ApexTotalRuntime       *Gauge
	ApexAvgCPUTime         *Gauge
	ApexMaxCPUTime         *Gauge
	ApexRuntimeGt5sCount   *Gauge
	ApexRuntimeGt10sCount  *Gauge
	ApexRuntimeGt5sPercent *Gauge

	TopConcurrentErrorsByRuntime *Gauge
	TopConcurrentErrorsByCount   *Gauge
	ConcurrentErrorsCount        *Gauge
	ApexExceptionDetails         *Gauge
	ApexExceptionCategoryCount   *Gauge

	// Compliance
	HourlyLargeQueries          *Gauge
	SuspiciousRecords           *Gauge
	OrgWideSharingChanges       *Gauge
	ForbiddenProfileUsers       *Gauge
	CommunityLoginErrors        *Gauge
	CommunityRegistrationErrors *Gauge

	// Report exports
	HourlyReportExports *Gauge

	// Tech debt
	UnusedPermissionSets        *Gauge
	LimitedPermissionSets       *Gauge
	FiveOrLessProfileAssignees  *Gauge
	UnassignedProfiles          *Gauge
	DeprecatedApexClasses       *Gauge
	DeprecatedApexTriggers      *Gauge
	WorkflowRules               *Gauge
	SecurityHealthCheckScore    *Gauge
	SecurityHealthRisks         *Gauge
	DormantUsers                *Gauge
	DormantPortalUsers          *Gauge
	QueuesPerObject             *Gauge
	QueuesWithNoMembers         *Gauge
	QueuesWithZeroOpenCases     *Gauge
	PublicGroupsWithNoMembers   *Gauge
	DashboardsWithInactiveUsers *Gauge
	ScheduledApexJobs           *Gauge
}

// New declares the full gauge set on a fresh prometheus registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry declares the full gauge set on the given registry.
func NewWithRegistry(prom *prometheus.Registry) *Metrics {
	reg := &Registry{prom: prom}
	m := &Metrics{registry: reg}

	m.APIUsagePercentage = newGauge(prom, "salesforce_api_usage_percentage",
		"Salesforce API Usage Percentage",
		[]string{"limit_name", "limit_description", "limit_utilized", "max_limit"})

	m.DailyBatchCount = newGauge(prom, "daily_bulk_api_batch_count",
		"Count of batches by job_id, user_id, and entity_type",
		[]string{"job_id", "user_id", "entity_type", "total_records_failed", "total_records_processed"})
	m.DailyEntityTypeCount = newGauge(prom, "daily_entity_type_count",
		"Counts of ENTITY_TYPE by user_id and OPERATION_TYPE",
		[]string{"user_id", "operation_type", "entity_type"})
	m.HourlyBatchCount = newGauge(prom, "hourly_bulk_api_batch_count",
		"Count of batches by job_id, user_id, and entity_type",
		[]string{"job_id", "user_id", "entity_type", "total_records_failed", "total_records_processed"})
	m.HourlyEntityTypeCount = newGauge(prom, "hourly_entity_type_count",
		"Counts of ENTITY_TYPE by user_id and OPERATION_TYPE",
		[]string{"user_id", "operation_type", "entity_type"})

	m.TotalUserLicenses = newGauge(prom, "salesforce_total_user_licenses",
		totalLicensesHelp, []string{"license_name", "status"})
	m.UsedUserLicenses = newGauge(prom, "salesforce_used_user_licenses",
		usedLicensesHelp, []string{"license_name", "status"})
	m.PercentUserLicensesUsed = newGauge(prom, "salesforce_user_licenses_usage_percentage",
		percentLicensesHelp,
		[]string{"license_name", "status", "used_licenses", "total_licenses"})
	m.TotalPermSetLicenses = newGauge(prom, "salesforce_total_permissionset_licenses",
		totalLicensesHelp, []string{"license_name", "status"})
	m.UsedPermSetLicenses = newGauge(prom, "salesforce_used_permissionset_licenses",
		usedLicensesHelp, []string{"license_name", "status"})
	m.PercentPermSetLicensesUsed = newGauge(prom, "salesforce_permissionset_license_usage_percentage",
		percentLicensesHelp,
		[]string{"license_name", "status", "used_licenses", "total_licenses", "expiration_date"})
	m.TotalEntitlements = newGauge(prom, "salesforce_total_licenses_usage_based_entitlements",
		totalLicensesHelp, []string{"license_name"})
	m.UsedEntitlements = newGauge(prom, "salesforce_used_licenses_usage_based_entitlements",
		usedLicensesHelp, []string{"license_name"})
	m.PercentEntitlementsUsed = newGauge(prom, "salesforce_percent_used_usage_based_entitlements",
		percentLicensesHelp,
		[]string{"license_name", "used_licenses", "total_licenses", "expiration_date"})

	m.Incidents = newGauge(prom, "salesforce_incidents",
		"Number of active Salesforce incidents",
		[]string{"environment", "pod", "severity", "incident_id"})
	m.Maintenances = newGauge(prom, "salesforce_maintenance",
		"Ongoing or Planned Salesforce Maintenance",
		[]string{"environment", "maintenance_id", "status", "planned_start_time", "planned_end_time"})

	m.LoginSuccess = newGauge(prom, "salesforce_login_success_total",
		"Total number of successful Salesforce logins", nil)
	m.LoginFailure = newGauge(prom, "salesforce_login_failure_total",
		"Total number of failed Salesforce logins", nil)
	m.UniqueLoginAttempts = newGauge(prom, "unique_login_count_total",
		"Total number of Unique Salesforce logins", nil)
	m.Geolocation = newGauge(prom, "user_location",
		"Longitude and Latitude of user location",
		[]string{"user", "longitude", "latitude", "browser", "status"})
	m.IntegrationUserPasswordExpiration = newGauge(prom, "integration_user_password_expiration_days",
		"Days until integration user password expires",
		[]string{"user_id", "name", "username", "last_password_change_date"})

	m.DeploymentDetails = newGauge(prom, "deployment_details",
		"Salesforce Deployment details",
		[]string{"pending_time", "deployment_time", "deployed_by", "status", "deployment_id"})
	m.DeploymentPendingTime = newGauge(prom, "deployment_pending_time",
		"Pending time before starting the deployment",
		[]string{"deployment_id", "deployed_by", "status"})
	m.DeploymentTime = newGauge(prom, "deployment_time",
		"Time taken for the deployment",
		[]string{"deployment_id", "deployed_by", "status"})
	m.ValidationDetails = newGauge(prom, "validation_details",
		"Salesforce Validation Deployment details",
		[]string{"pending_time", "deployment_time", "deployed_by", "status", "deployment_id"})
	m.ValidationPendingTime = newGauge(prom, "validation_pending_time",
		"Pending time before starting the validation",
		[]string{"deployment_id", "deployed_by", "status"})
	m.ValidationTime = newGauge(prom, "validation_time",
		"Time taken for the validation",
		[]string{"deployment_id", "deployed_by", "status"})

	m.EPT = newGauge(prom, "salesforce_experienced_page_time",
		"Experienced Page Time (EPT) in seconds",
		[]string{"deviation_reason", "deviation_error_type", "prevpage_entity_type",
			"prevpage_app_name", "page_entity_type", "page_app_name", "browser_name"})
	m.APT = newGauge(prom, "salesforce_average_page_time",
		"Average Page Time (APT) in seconds", []string{"page_name"})

	m.ApexFlexQueue = newGauge(prom, "apex_flex_queue",
		"Jobs in holding status flex queue", []string{"id", "apex_class_id"})
	m.AsyncJobStatus = newGauge(prom, "salesforce_async_job_status_count",
		"Total count of Salesforce Async Jobs by Status",
		[]string{"status", "method", "job_type", "number_of_errors"})

	m.ApexRunTime = newGauge(prom, "salesforce_apex_run_time_seconds",
		"Total Apex execution time", []string{"entry_point", "quiddity"})
	m.ApexCPUTime = newGauge(prom, "salesforce_apex_cpu_time_seconds",
		"CPU time used by Apex execution", []string{"entry_point", "quiddity"})
	m.ApexExecTime = newGauge(prom, "salesforce_apex_execution_time_seconds",
		"Total execution time", []string{"entry_point", "quiddity"})
	m.ApexDBTotalTime = newGauge(prom, "salesforce_apex_db_total_time_seconds",
		"Total database execution time", []string{"entry_point", "quiddity"})
	m.ApexCalloutTime = newGauge(prom, "salesforce_apex_callout_time_seconds",
		"Total callout time", []string{"entry_point", "quiddity"})

	m.ApexEntryPointCount = newGauge(prom, "apex_entry_point_count",
		"Count of apex executions by entry point", []string{"entry_point", "quiddity"})
	m.ApexAvgRuntime = newGauge(prom, "apex_avg_runtime",
		"Average runtime by entry point", []string{"entry_point", "quiddity"})
	m.ApexMaxRuntime = newGauge(prom, "apex_max_runtime",
		"Maximum runtime by entry point", []string{"entry_point", "quiddity"})
	m.ApexTotalRuntime = newGauge(prom, "apex_total_runtime",
		"Total runtime by entry point", []string{"entry_point", "quiddity"})
	m.ApexAvgCPUTime = newGauge(prom, "apex_avg_cputime",
		"Average CPU time by entry point", []string{"entry_point", "quiddity"})
	m.ApexMaxCPUTime = newGauge(prom, "apex_max_cputime",
		"Maximum CPU time by entry point", []string{"entry_point", "quiddity"})
	m.ApexRuntimeGt5sCount = newGauge(prom, "apex_runtime_gt_5s_count",
		"Count of apex executions with runtime > 5s", []string{"entry_point", "quiddity"})
	m.ApexRuntimeGt10sCount = newGauge(prom, "apex_runtime_gt_10s_count",
		"Count of apex executions with runtime > 10s", []string{"entry_point", "quiddity"})
	m.ApexRuntimeGt5sPercent = newGauge(prom, "apex_runtime_gt_5s_percentage",
		"Percentage of apex executions with runtime > 5s", []string{"entry_point", "quiddity"})

	m.TopConcurrentErrorsByRuntime = newGauge(prom, "most_apex_concurrent_errors_sorted_by_runtime",
		"Top Long Running Requests by Average Runtime with Runtime > 5 seconds",
		[]string{"entry_point", "count", "avg_exec_time", "avg_db_time"})
	m.TopConcurrentErrorsByCount = newGauge(prom, "most_apex_concurrent_errors_sorted_by_count",
		"Top Long Running Requests by Count with Runtime > 5 seconds",
		[]string{"entry_point", "avg_run_time", "avg_exec_time", "avg_db_time"})
	m.ConcurrentErrorsCount = newGauge(prom, "concurrent_request_error_count",
		"Count of non-blank REQUEST_ID entries in the long-running Apex limit log",
		[]string{"event_type"})
	m.ApexExceptionDetails = newGauge(prom, "apex_exception_details",
		"Details of each Apex exception",
		[]string{"request_id", "exception_category", "timestamp", "exception_type",
			"exception_message", "stack_trace"})
	m.ApexExceptionCategoryCount = newGauge(prom, "apex_exception_category_count",
		"Total count of Apex exceptions by category", []string{"exception_category"})

	m.HourlyLargeQueries = newGauge(prom, "hourly_user_querying_large_records",
		"Number of large queries by user",
		[]string{"user_id", "user_name", "method", "entity_name", "rows_processed"})
	m.SuspiciousRecords = newGauge(prom, "suspicious_records",
		"Suspicious records from Audit Trail logs",
		[]string{"action", "section", "user", "created_date", "display", "delegate_user"})
	m.OrgWideSharingChanges = newGauge(prom, "org_wide_sharing_changes",
		"Track changes in Org-Wide Sharing Settings",
		[]string{"date", "user", "action", "display"})
	m.ForbiddenProfileUsers = newGauge(prom, "forbidden_profile_users",
		"Active users with forbidden profile assignments",
		[]string{"user_id", "user_name", "username", "profile_name"})
	m.CommunityLoginErrors = newGauge(prom, "community_login_error_details",
		"Details of SFDC logger entries",
		[]string{"id", "name", "log_level", "log_message", "record_id", "created_date"})
	m.CommunityRegistrationErrors = newGauge(prom, "community_registration_error_details",
		"Details of SFDC logger entries",
		[]string{"id", "name", "source_name", "log_level", "log_message",
			"callout_response", "record_id", "created_date"})

	m.HourlyReportExports = newGauge(prom, "hourly_report_export",
		"Report export details",
		[]string{"user_name", "timestamp", "report_name", "report_type_api_name"})

	m.UnusedPermissionSets = newGauge(prom, "unused_permissionsets",
		"Permission sets with no active assignments", []string{"name", "id"})
	m.LimitedPermissionSets = newGauge(prom, "limited_permissionsets",
		"Permission sets assigned to 10 or less active users", []string{"name", "id"})
	m.FiveOrLessProfileAssignees = newGauge(prom, "five_or_less_profile_assignees",
		"Profiles with fewer than five active assignees", []string{"profile_id", "profile_name"})
	m.UnassignedProfiles = newGauge(prom, "unassigned_profiles",
		"Profiles with no active users", []string{"profile_id", "profile_name"})
	m.DeprecatedApexClasses = newGauge(prom, "deprecated_apex_classes",
		"Apex classes running on deprecated API versions", []string{"id", "name"})
	m.DeprecatedApexTriggers = newGauge(prom, "deprecated_apex_triggers",
		"Apex triggers running on deprecated API versions", []string{"id", "name"})
	m.WorkflowRules = newGauge(prom, "workflow_rules",
		"Workflow rules in the org", []string{"id", "created_date", "namespace_prefix"})
	m.SecurityHealthCheckScore = newGauge(prom, "security_health_check_score",
		"Salesforce Security Health Check Score", []string{"grade"})
	m.SecurityHealthRisks = newGauge(prom, "salesforce_health_risks",
		"Salesforce Security Health Check Risks",
		[]string{"org_value", "risk_type", "setting", "setting_group",
			"setting_risk_category", "standard_value", "compliance_status"})
	m.DormantUsers = newGauge(prom, "dormant_salesforce_users",
		"Dormant Salesforce users",
		[]string{"user_id", "username", "email", "profile_name", "created_date", "last_login_date"})
	m.DormantPortalUsers = newGauge(prom, "dormant_portal_users",
		"Dormant Portal users",
		[]string{"user_id", "username", "email", "profile_name", "created_date", "last_login_date"})
	m.QueuesPerObject = newGauge(prom, "total_queues_per_object",
		"Total queues per Salesforce object", []string{"sobject_type"})
	m.QueuesWithNoMembers = newGauge(prom, "queues_with_no_members",
		"Queues with no members", []string{"queue_id", "queue_name"})
	m.QueuesWithZeroOpenCases = newGauge(prom, "queues_with_zero_open_cases",
		"Queues that can own Cases but have zero open Cases", []string{"queue_id", "queue_name"})
	m.PublicGroupsWithNoMembers = newGauge(prom, "public_groups_with_no_members",
		"Public Groups with no members", []string{"group_id", "group_name"})
	m.DashboardsWithInactiveUsers = newGauge(prom, "dashboards_with_inactive_users",
		"Dashboards owned by inactive users",
		[]string{"dashboard_id", "dashboard_title", "running_user_name", "created_date", "last_referenced_date"})
	m.ScheduledApexJobs = newGauge(prom, "scheduled_apex_jobs",
		"Scheduled Apex jobs in the org",
		[]string{"job_id", "job_name", "cron_expression", "state",
			"next_fire_time", "previous_fire_time", "created_by", "created_date"})

	return m
}

// Registry returns the injectable registry object.
func (m *Metrics) Registry() *Registry {
	return m.registry
}
