// Package collectors holds the refresh jobs that turn Salesforce query
// results and event log files into gauge values. Every collector follows the
// same cycle: fetch first, clear and repopulate its gauges only after the
// fetch succeeded, and emit a sentinel series when the result set is empty.
package collectors

import (
	"context"

	"sfmon_exporter/internal/config"
	"sfmon_exporter/internal/logger"
	"sfmon_exporter/internal/metrics"
	"sfmon_exporter/internal/salesforce"
	"sfmon_exporter/internal/scheduler"
	"sfmon_exporter/internal/trust"

	"github.com/phuslu/log"
)

// API is the org query surface the collectors consume. Satisfied by
// *salesforce.Client; tests substitute a fake.
type API interface {
	Query(ctx context.Context, soql string, dest any) error
	ToolingQuery(ctx context.Context, soql string, dest any) error
	Limits(ctx context.Context) (map[string]salesforce.Limit, error)
	LatestEventLog(ctx context.Context, eventType, interval string) ([]salesforce.Row, error)
}

// TrustAPI is the Salesforce Trust status surface.
type TrustAPI interface {
	ActiveIncidents(ctx context.Context) ([]trust.Incident, error)
	Maintenances(ctx context.Context) ([]trust.Maintenance, error)
}

// Deps bundles everything a collector needs.
type Deps struct {
	API     API
	Trust   TrustAPI
	Metrics *metrics.Metrics
	Config  config.CollectorConfig
}

// Spec pairs one collector with its job identity and default trigger. The
// job ID doubles as the override key (SCHEDULE_<ID> env var, override file).
type Spec struct {
	ID      string
	Default scheduler.Trigger
	Run     func(ctx context.Context) error
}

// Collectors carries the shared dependencies for all refresh jobs.
type Collectors struct {
	api     API
	trust   TrustAPI
	metrics *metrics.Metrics
	cfg     config.CollectorConfig
	log     log.Logger
}

// New builds the collector set.
func New(deps Deps) *Collectors {
	return &Collectors{
		api:     deps.API,
		trust:   deps.Trust,
		metrics: deps.Metrics,
		cfg:     deps.Config,
		log:     logger.NewLoggerWithContext("collectors"),
	}
}

// All returns every collector in schedule-declaration order. The order is
// load-bearing: the scheduler's startup pass runs the specs front to back,
// so the 5-minute criticals come first and the daily inventories last.
//
// Hourly jobs are staggered across the hour (:00 bulk API, :10/:50
// licenses, :20 large queries, :30 forbidden profiles, :40 report
// exports) and daily jobs across
// 06:00-13:15 so no two expensive refreshes pile onto the same slot.
func (c *Collectors) All() []Spec {
	return []Spec{
		// Criticals, every 5 minutes.
		{ID: "monitor_salesforce_limits", Default: scheduler.Every(5), Run: c.OrgLimits},
		{ID: "get_salesforce_instance", Default: scheduler.Every(5), Run: c.InstanceStatus},
		{ID: "monitor_apex_flex_queue", Default: scheduler.Every(5), Run: c.ApexFlexQueue},

		// Hourly, staggered.
		{ID: "hourly_analyse_bulk_api", Default: scheduler.HourlyAt(0), Run: c.HourlyBulkAPI},
		{ID: "get_salesforce_licenses", Default: scheduler.HourlyAt(10, 50), Run: c.OrgLicenses},
		{ID: "hourly_observe_user_querying_large_records", Default: scheduler.HourlyAt(20), Run: c.LargeQueries},
		{ID: "monitor_forbidden_profile_assignments", Default: scheduler.HourlyAt(30), Run: c.ForbiddenProfileAssignments},
		{ID: "hourly_report_export_records", Default: scheduler.HourlyAt(40), Run: c.ReportExports},

		// Performance and Apex block, 06:00-07:30.
		{ID: "get_salesforce_ept_and_apt", Default: scheduler.DailyAt(6, 0), Run: c.PageTimes},
		{ID: "monitor_login_events", Default: scheduler.DailyAt(6, 15), Run: c.LoginEvents},
		{ID: "async_apex_job_status", Default: scheduler.DailyAt(6, 30), Run: c.AsyncJobStatus},
		{ID: "monitor_apex_execution_time", Default: scheduler.DailyAt(6, 45), Run: c.ApexExecutionTimes},
		{ID: "async_apex_execution_summary", Default: scheduler.DailyAt(7, 0), Run: c.ApexExecutionSummary},
		{ID: "concurrent_apex_errors", Default: scheduler.DailyAt(7, 15), Run: c.ConcurrentApexErrors},
		{ID: "expose_concurrent_long_running_apex_errors", Default: scheduler.DailyAt(7, 20), Run: c.ConcurrentLimitErrors},
		{ID: "expose_apex_exception_metrics", Default: scheduler.DailyAt(7, 30), Run: c.ApexExceptions},

		// Daily business block, 07:30-09:00.
		{ID: "daily_analyse_bulk_api", Default: scheduler.DailyAt(7, 30), Run: c.DailyBulkAPI},
		{ID: "get_deployment_status", Default: scheduler.DailyAt(7, 45), Run: c.DeploymentStatus},
		{ID: "geolocation", Default: scheduler.DailyAt(8, 0), Run: c.Geolocation},
		{ID: "monitor_community_login_errors", Default: scheduler.DailyAt(8, 10), Run: c.CommunityLoginErrors},
		{ID: "monitor_community_registration_errors", Default: scheduler.DailyAt(8, 20), Run: c.CommunityRegistrationErrors},
		{ID: "expose_suspicious_records", Default: scheduler.DailyAt(8, 30), Run: c.SuspiciousRecords},
		{ID: "monitor_org_wide_sharing_settings", Default: scheduler.DailyAt(8, 45), Run: c.SharingChanges},
		{ID: "monitor_integration_user_passwords", Default: scheduler.DailyAt(9, 0), Run: c.IntegrationUserPasswords},

		// Tech debt block, 09:15-13:15.
		{ID: "unassigned_permission_sets", Default: scheduler.DailyAt(9, 15), Run: c.UnassignedPermissionSets},
		{ID: "perm_sets_limited_users", Default: scheduler.DailyAt(9, 30), Run: c.LimitedPermissionSets},
		{ID: "profile_assignment_under5", Default: scheduler.DailyAt(9, 45), Run: c.ProfilesWithFewAssignees},
		{ID: "profile_no_active_users", Default: scheduler.DailyAt(10, 0), Run: c.ProfilesWithNoActiveUsers},
		{ID: "apex_classes_api_version", Default: scheduler.DailyAt(10, 15), Run: c.DeprecatedApexClasses},
		{ID: "apex_triggers_api_version", Default: scheduler.DailyAt(10, 30), Run: c.DeprecatedApexTriggers},
		{ID: "security_health_check", Default: scheduler.DailyAt(10, 45), Run: c.SecurityHealthCheck},
		{ID: "salesforce_health_risks", Default: scheduler.DailyAt(11, 0), Run: c.SecurityHealthRisks},
		{ID: "workflow_rules_monitoring", Default: scheduler.DailyAt(11, 15), Run: c.WorkflowRules},
		{ID: "dormant_salesforce_users", Default: scheduler.DailyAt(11, 30), Run: c.DormantUsers},
		{ID: "dormant_portal_users", Default: scheduler.DailyAt(11, 45), Run: c.DormantPortalUsers},
		{ID: "total_queues_per_object", Default: scheduler.DailyAt(12, 0), Run: c.QueuesPerObject},
		{ID: "queues_with_no_members", Default: scheduler.DailyAt(12, 15), Run: c.QueuesWithNoMembers},
		{ID: "queues_with_zero_open_cases", Default: scheduler.DailyAt(12, 30), Run: c.QueuesWithZeroOpenCases},
		{ID: "public_groups_with_no_members", Default: scheduler.DailyAt(12, 45), Run: c.PublicGroupsWithNoMembers},
		{ID: "dashboards_with_inactive_users", Default: scheduler.DailyAt(13, 0), Run: c.DashboardsWithInactiveUsers},
		{ID: "scheduled_apex_jobs_monitoring", Default: scheduler.DailyAt(13, 15), Run: c.ScheduledApexJobs},
	}
}

// userName resolves a user ID to its display name, falling back to
// "Unknown User" so a lookup failure never fails the whole cycle.
func (c *Collectors) userName(ctx context.Context, userID string) string {
	var users []struct {
		Name string `json:"Name"`
	}
	soql := "SELECT Name FROM User WHERE Id = '" + userID + "'"
	if err := c.api.Query(ctx, soql, &users); err != nil || len(users) == 0 {
		if err != nil {
			c.log.Warn().Err(err).Str("user_id", userID).Msg("User name lookup failed")
		}
		return "Unknown User"
	}
	return users[0].Name
}
