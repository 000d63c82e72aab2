package collectors

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"sfmon_exporter/internal/config"
	"sfmon_exporter/internal/metrics"
	"sfmon_exporter/internal/salesforce"
	"sfmon_exporter/internal/trust"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeAPI struct {
	queryFn   func(soql string, dest any) error
	toolingFn func(soql string, dest any) error
	limitsFn  func() (map[string]salesforce.Limit, error)
	logFn     func(eventType, interval string) ([]salesforce.Row, error)
}

func (f *fakeAPI) Query(ctx context.Context, soql string, dest any) error {
	if f.queryFn == nil {
		return errors.New("unexpected Query call: " + soql)
	}
	return f.queryFn(soql, dest)
}

func (f *fakeAPI) ToolingQuery(ctx context.Context, soql string, dest any) error {
	if f.toolingFn == nil {
		return errors.New("unexpected ToolingQuery call: " + soql)
	}
	return f.toolingFn(soql, dest)
}

func (f *fakeAPI) Limits(ctx context.Context) (map[string]salesforce.Limit, error) {
	if f.limitsFn == nil {
		return nil, errors.New("unexpected Limits call")
	}
	return f.limitsFn()
}

func (f *fakeAPI) LatestEventLog(ctx context.Context, eventType, interval string) ([]salesforce.Row, error) {
	if f.logFn == nil {
		return nil, errors.New("unexpected LatestEventLog call")
	}
	return f.logFn(eventType, interval)
}

type fakeTrust struct {
	incidents    []trust.Incident
	maintenances []trust.Maintenance
	err          error
}

func (f *fakeTrust) ActiveIncidents(ctx context.Context) ([]trust.Incident, error) {
	return f.incidents, f.err
}

func (f *fakeTrust) Maintenances(ctx context.Context) ([]trust.Maintenance, error) {
	return f.maintenances, f.err
}

// fillDest decodes a JSON fixture into a query destination, standing in for
// the record decoding the real client performs.
func fillDest(t *testing.T, dest any, payload string) {
	t.Helper()
	if err := json.Unmarshal([]byte(payload), dest); err != nil {
		t.Fatalf("fixture decode: %v", err)
	}
}

func newTestCollectors(t *testing.T, api API, trustAPI TrustAPI, cfg config.CollectorConfig) (*Collectors, *prometheus.Registry) {
	t.Helper()
	prom := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(prom)
	c := New(Deps{API: api, Trust: trustAPI, Metrics: m, Config: cfg})
	return c, prom
}

func TestLargeQueries(t *testing.T) {
	api := &fakeAPI{
		logFn: func(eventType, interval string) ([]salesforce.Row, error) {
			if eventType != "API" || interval != "Hourly" {
				t.Errorf("requested %s/%s log", eventType, interval)
			}
			return []salesforce.Row{
				{"USER_ID": "005A", "METHOD_NAME": "query", "ENTITY_NAME": "Account", "ROWS_PROCESSED": "5000"},
				{"USER_ID": "005A", "METHOD_NAME": "query", "ENTITY_NAME": "Account", "ROWS_PROCESSED": "15000"},
				{"USER_ID": "005B", "METHOD_NAME": "queryMore", "ENTITY_NAME": "Case", "ROWS_PROCESSED": "20000"},
			}, nil
		},
		queryFn: func(soql string, dest any) error {
			switch {
			case strings.Contains(soql, "'005A'"):
				fillDest(t, dest, `[{"Name": "Ada Admin"}]`)
			case strings.Contains(soql, "'005B'"):
				fillDest(t, dest, `[{"Name": "Bo Batch"}]`)
			default:
				return errors.New("unexpected query: " + soql)
			}
			return nil
		},
	}
	cfg := config.CollectorConfig{}
	cfg.Compliance.LargeQueryRowThreshold = 10000
	c, prom := newTestCollectors(t, api, &fakeTrust{}, cfg)

	if err := c.LargeQueries(context.Background()); err != nil {
		t.Fatalf("LargeQueries: %v", err)
	}

	expected := `
# HELP hourly_user_querying_large_records Number of large queries by user
# TYPE hourly_user_querying_large_records gauge
hourly_user_querying_large_records{entity_name="Account",method="query",rows_processed="15000",user_id="005A",user_name="Ada Admin"} 1
hourly_user_querying_large_records{entity_name="Case",method="queryMore",rows_processed="20000",user_id="005B",user_name="Bo Batch"} 1
`
	if err := testutil.GatherAndCompare(prom, strings.NewReader(expected), "hourly_user_querying_large_records"); err != nil {
		t.Error(err)
	}
}

func TestLargeQueriesNoLogEmitsSentinel(t *testing.T) {
	api := &fakeAPI{
		logFn: func(eventType, interval string) ([]salesforce.Row, error) {
			return nil, nil
		},
	}
	c, prom := newTestCollectors(t, api, &fakeTrust{}, config.CollectorConfig{})

	if err := c.LargeQueries(context.Background()); err != nil {
		t.Fatalf("LargeQueries: %v", err)
	}

	expected := `
# HELP hourly_user_querying_large_records Number of large queries by user
# TYPE hourly_user_querying_large_records gauge
hourly_user_querying_large_records{entity_name="none",method="none",rows_processed="none",user_id="none",user_name="none"} 0
`
	if err := testutil.GatherAndCompare(prom, strings.NewReader(expected), "hourly_user_querying_large_records"); err != nil {
		t.Error(err)
	}
}

func TestApexFlexQueue(t *testing.T) {
	api := &fakeAPI{
		queryFn: func(soql string, dest any) error {
			fillDest(t, dest, `[
				{"Id": "707A", "ApexClassId": "01pA"},
				{"Id": "707B", "ApexClassId": "01pB"}
			]`)
			return nil
		},
	}
	c, prom := newTestCollectors(t, api, &fakeTrust{}, config.CollectorConfig{})

	if err := c.ApexFlexQueue(context.Background()); err != nil {
		t.Fatalf("ApexFlexQueue: %v", err)
	}

	expected := `
# HELP apex_flex_queue Jobs in holding status flex queue
# TYPE apex_flex_queue gauge
apex_flex_queue{apex_class_id="01pA",id="707A"} 1
apex_flex_queue{apex_class_id="01pB",id="707B"} 1
`
	if err := testutil.GatherAndCompare(prom, strings.NewReader(expected), "apex_flex_queue"); err != nil {
		t.Error(err)
	}
}

func TestFailedFetchKeepsPreviousSnapshot(t *testing.T) {
	fail := false
	api := &fakeAPI{
		queryFn: func(soql string, dest any) error {
			if fail {
				return errors.New("query timed out")
			}
			fillDest(t, dest, `[{"Id": "707A", "ApexClassId": "01pA"}]`)
			return nil
		},
	}
	c, prom := newTestCollectors(t, api, &fakeTrust{}, config.CollectorConfig{})

	if err := c.ApexFlexQueue(context.Background()); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	fail = true
	if err := c.ApexFlexQueue(context.Background()); err == nil {
		t.Fatal("expected error from failed fetch")
	}

	expected := `
# HELP apex_flex_queue Jobs in holding status flex queue
# TYPE apex_flex_queue gauge
apex_flex_queue{apex_class_id="01pA",id="707A"} 1
`
	if err := testutil.GatherAndCompare(prom, strings.NewReader(expected), "apex_flex_queue"); err != nil {
		t.Error(err)
	}
}

func TestOrgLimits(t *testing.T) {
	api := &fakeAPI{
		limitsFn: func() (map[string]salesforce.Limit, error) {
			return map[string]salesforce.Limit{
				"DailyApiRequests": {Max: 15000, Remaining: 12000},
				"UnusedQuota":      {Max: 0, Remaining: 0},
			}, nil
		},
	}
	c, prom := newTestCollectors(t, api, &fakeTrust{}, config.CollectorConfig{})

	if err := c.OrgLimits(context.Background()); err != nil {
		t.Fatalf("OrgLimits: %v", err)
	}

	expected := `
# HELP salesforce_api_usage_percentage Salesforce API Usage Percentage
# TYPE salesforce_api_usage_percentage gauge
salesforce_api_usage_percentage{limit_description="Daily limit on API requests.",limit_name="DailyApiRequests",limit_utilized="3000",max_limit="15000"} 20
`
	if err := testutil.GatherAndCompare(prom, strings.NewReader(expected), "salesforce_api_usage_percentage"); err != nil {
		t.Error(err)
	}
}

func TestInstanceStatus(t *testing.T) {
	api := &fakeAPI{
		queryFn: func(soql string, dest any) error {
			fillDest(t, dest, `[{"InstanceName": "NA172"}]`)
			return nil
		},
	}

	var incidents []trust.Incident
	fillDest(t, &incidents, `[
		{"id": "9001", "instanceKeys": ["NA172"], "IncidentImpacts": [{"severity": "major"}]},
		{"id": "9002", "instanceKeys": ["EU45"], "IncidentImpacts": [{"severity": "minor"}]}
	]`)
	c, prom := newTestCollectors(t, api, &fakeTrust{incidents: incidents}, config.CollectorConfig{})

	if err := c.InstanceStatus(context.Background()); err != nil {
		t.Fatalf("InstanceStatus: %v", err)
	}

	expected := `
# HELP salesforce_incidents Number of active Salesforce incidents
# TYPE salesforce_incidents gauge
salesforce_incidents{environment="Production",incident_id="9001",pod="NA172",severity="major"} 1
`
	if err := testutil.GatherAndCompare(prom, strings.NewReader(expected), "salesforce_incidents"); err != nil {
		t.Error(err)
	}
}

func TestInstanceStatusNoIncidents(t *testing.T) {
	api := &fakeAPI{
		queryFn: func(soql string, dest any) error {
			fillDest(t, dest, `[{"InstanceName": "NA172"}]`)
			return nil
		},
	}
	c, prom := newTestCollectors(t, api, &fakeTrust{}, config.CollectorConfig{})

	if err := c.InstanceStatus(context.Background()); err != nil {
		t.Fatalf("InstanceStatus: %v", err)
	}

	expected := `
# HELP salesforce_incidents Number of active Salesforce incidents
# TYPE salesforce_incidents gauge
salesforce_incidents{environment="Production",incident_id="none",pod="NA172",severity="ok"} 0
`
	if err := testutil.GatherAndCompare(prom, strings.NewReader(expected), "salesforce_incidents"); err != nil {
		t.Error(err)
	}
}

func TestSuspiciousRecordsFiltersAllowedActions(t *testing.T) {
	api := &fakeAPI{
		queryFn: func(soql string, dest any) error {
			if !strings.Contains(soql, "SetupAuditTrail") {
				return errors.New("unexpected query: " + soql)
			}
			fillDest(t, dest, `[
				{"Action": "createduser", "Section": "Manage Users",
				 "CreatedDate": "2026-08-25T10:00:00.000+0000",
				 "Display": "Created user Bo Batch",
				 "CreatedBy": {"Name": "Ada Admin"}},
				{"Action": "changedApexClass", "Section": "Apex Class",
				 "CreatedDate": "2026-08-25T11:00:00.000+0000",
				 "Display": "Changed class PaymentHandler",
				 "CreatedBy": {"Name": "Bo Batch"}}
			]`)
			return nil
		},
	}
	c, prom := newTestCollectors(t, api, &fakeTrust{}, config.CollectorConfig{})

	if err := c.SuspiciousRecords(context.Background()); err != nil {
		t.Fatalf("SuspiciousRecords: %v", err)
	}

	n, err := testutil.GatherAndCount(prom, "suspicious_records")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("suspicious_records series = %d, want 1", n)
	}
}

func TestForbiddenProfileAssignments(t *testing.T) {
	api := &fakeAPI{
		queryFn: func(soql string, dest any) error {
			if !strings.Contains(soql, "Profile.Name IN ('System Administrator')") {
				return errors.New("unexpected query: " + soql)
			}
			fillDest(t, dest, `[
				{"Id": "005A", "Name": "Bo Batch", "Username": "bo@example.com",
				 "Profile": {"Name": "System Administrator"}}
			]`)
			return nil
		},
	}
	cfg := config.CollectorConfig{}
	cfg.Compliance.ForbiddenProfiles = []string{"System Administrator"}
	c, prom := newTestCollectors(t, api, &fakeTrust{}, cfg)

	if err := c.ForbiddenProfileAssignments(context.Background()); err != nil {
		t.Fatalf("ForbiddenProfileAssignments: %v", err)
	}

	expected := `
# HELP forbidden_profile_users Active users with forbidden profile assignments
# TYPE forbidden_profile_users gauge
forbidden_profile_users{profile_name="System Administrator",user_id="005A",user_name="Bo Batch",username="bo@example.com"} 1
`
	if err := testutil.GatherAndCompare(prom, strings.NewReader(expected), "forbidden_profile_users"); err != nil {
		t.Error(err)
	}
}

func TestForbiddenProfileAssignmentsNotConfigured(t *testing.T) {
	// No profiles configured means no query at all, just the sentinel.
	c, prom := newTestCollectors(t, &fakeAPI{}, &fakeTrust{}, config.CollectorConfig{})

	if err := c.ForbiddenProfileAssignments(context.Background()); err != nil {
		t.Fatalf("ForbiddenProfileAssignments: %v", err)
	}

	expected := `
# HELP forbidden_profile_users Active users with forbidden profile assignments
# TYPE forbidden_profile_users gauge
forbidden_profile_users{profile_name="none",user_id="none",user_name="none",username="none"} 0
`
	if err := testutil.GatherAndCompare(prom, strings.NewReader(expected), "forbidden_profile_users"); err != nil {
		t.Error(err)
	}
}

func TestCommunityRegistrationErrors(t *testing.T) {
	api := &fakeAPI{
		queryFn: func(soql string, dest any) error {
			if !strings.Contains(soql, "SFDC_Logger__c") {
				return errors.New("unexpected query: " + soql)
			}
			fillDest(t, dest, `[
				{"Id": "a0X1", "Name": "LOG-0001",
				 "Source_Name__c": "Community - Registration",
				 "CreatedDate": "2026-08-25T09:00:00.000+0000",
				 "Log_Message__c": "Duplicate contact found",
				 "Record_Id__c": "0031",
				 "Log_Level__c": "Error",
				 "Log_Callout_Response_Payload__c": "HTTP 409"}
			]`)
			return nil
		},
	}
	c, prom := newTestCollectors(t, api, &fakeTrust{}, config.CollectorConfig{})

	if err := c.CommunityRegistrationErrors(context.Background()); err != nil {
		t.Fatalf("CommunityRegistrationErrors: %v", err)
	}

	expected := `
# HELP community_registration_error_details Details of SFDC logger entries
# TYPE community_registration_error_details gauge
community_registration_error_details{callout_response="HTTP 409",created_date="2026-08-25T09:00:00.000+0000",id="a0X1",log_level="Error",log_message="Duplicate contact found",name="LOG-0001",record_id="0031",source_name="Community - Registration"} 1
`
	if err := testutil.GatherAndCompare(prom, strings.NewReader(expected), "community_registration_error_details"); err != nil {
		t.Error(err)
	}
}

func TestCommunityLoginErrors(t *testing.T) {
	api := &fakeAPI{
		queryFn: func(soql string, dest any) error {
			if !strings.Contains(soql, "'Community - Login'") {
				return errors.New("unexpected query: " + soql)
			}
			fillDest(t, dest, `[
				{"Id": "a0X2", "Name": "LOG-0002",
				 "Source_Name__c": "Community - Login",
				 "CreatedDate": "2026-08-25T10:30:00.000+0000",
				 "Log_Message__c": "Invalid credentials",
				 "Record_Id__c": "0032",
				 "Log_Level__c": "Fatal"}
			]`)
			return nil
		},
	}
	c, prom := newTestCollectors(t, api, &fakeTrust{}, config.CollectorConfig{})

	if err := c.CommunityLoginErrors(context.Background()); err != nil {
		t.Fatalf("CommunityLoginErrors: %v", err)
	}

	expected := `
# HELP community_login_error_details Details of SFDC logger entries
# TYPE community_login_error_details gauge
community_login_error_details{created_date="2026-08-25T10:30:00.000+0000",id="a0X2",log_level="Fatal",log_message="Invalid credentials",name="LOG-0002",record_id="0032"} 1
`
	if err := testutil.GatherAndCompare(prom, strings.NewReader(expected), "community_login_error_details"); err != nil {
		t.Error(err)
	}
}

func TestAllJobs(t *testing.T) {
	c, _ := newTestCollectors(t, &fakeAPI{}, &fakeTrust{}, config.CollectorConfig{})
	specs := c.All()

	if len(specs) != 41 {
		t.Fatalf("got %d jobs, want 41", len(specs))
	}
	if specs[0].ID != "monitor_salesforce_limits" {
		t.Errorf("first job = %q", specs[0].ID)
	}
	if specs[len(specs)-1].ID != "scheduled_apex_jobs_monitoring" {
		t.Errorf("last job = %q", specs[len(specs)-1].ID)
	}

	seen := make(map[string]bool)
	for _, spec := range specs {
		if spec.ID == "" {
			t.Error("job with empty ID")
		}
		if seen[spec.ID] {
			t.Errorf("duplicate job ID %q", spec.ID)
		}
		seen[spec.ID] = true
		if spec.Default == nil {
			t.Errorf("job %q has no default trigger", spec.ID)
		}
		if spec.Run == nil {
			t.Errorf("job %q has no run function", spec.ID)
		}
	}
}
