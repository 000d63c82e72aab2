package collectors

import (
	"context"
	"fmt"

	"sfmon_exporter/internal/metrics"
)

// idNameRecord covers the many inventory queries that return Id/Name pairs.
type idNameRecord struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

// UnassignedPermissionSets refreshes the inventory of locally built
// permission sets with no assignments at all.
func (c *Collectors) UnassignedPermissionSets(ctx context.Context) error {
	c.log.Info().Msg("Querying unassigned permission sets")

	soql := `SELECT Id, Name FROM PermissionSet
		WHERE Id NOT IN (SELECT PermissionSetId FROM PermissionSetAssignment)
		AND Id NOT IN (SELECT PermissionSetId FROM PermissionSetGroupComponent)
		AND NamespacePrefix = NULL AND IsOwnedByProfile = FALSE`

	var permSets []idNameRecord
	if err := c.api.Query(ctx, soql, &permSets); err != nil {
		return err
	}

	rows := make([]metrics.SeriesValue, 0, len(permSets))
	for _, ps := range permSets {
		rows = append(rows, metrics.SeriesValue{Labels: []string{ps.Name, ps.ID}, Value: 0})
	}
	c.metrics.UnusedPermissionSets.Replace(rows)
	return nil
}

// LimitedPermissionSets refreshes the inventory of permission sets assigned
// to ten or fewer users.
func (c *Collectors) LimitedPermissionSets(ctx context.Context) error {
	c.log.Info().Msg("Querying permission sets with ten or fewer assignees")

	soql := `SELECT PermissionSet.Id, PermissionSet.Name, COUNT(Id)
		FROM PermissionSetAssignment
		WHERE PermissionSetId NOT IN (SELECT PermissionSetId FROM PermissionSetGroupComponent)
		AND PermissionSet.NamespacePrefix = NULL
		GROUP BY PermissionSet.Id, PermissionSet.Name
		HAVING COUNT(Id) <= 10`

	// Aggregate queries flatten relationship fields and name the count expr0.
	var permSets []struct {
		ID    string `json:"Id"`
		Name  string `json:"Name"`
		Count int    `json:"expr0"`
	}
	if err := c.api.Query(ctx, soql, &permSets); err != nil {
		return err
	}

	rows := make([]metrics.SeriesValue, 0, len(permSets))
	for _, ps := range permSets {
		rows = append(rows, metrics.SeriesValue{
			Labels: []string{ps.Name, ps.ID}, Value: float64(ps.Count)})
	}
	c.metrics.LimitedPermissionSets.Replace(rows)
	return nil
}

// ProfilesWithFewAssignees refreshes the inventory of profiles carrying five
// or fewer active users.
func (c *Collectors) ProfilesWithFewAssignees(ctx context.Context) error {
	c.log.Info().Msg("Querying profiles with five or fewer active assignees")

	soql := `SELECT ProfileId, Profile.Name, COUNT(Id) userCount
		FROM User WHERE IsActive = TRUE
		GROUP BY ProfileId, Profile.Name
		HAVING COUNT(Id) <= 5`

	var profiles []struct {
		ProfileID string `json:"ProfileId"`
		Name      string `json:"Name"`
		UserCount int    `json:"userCount"`
	}
	if err := c.api.Query(ctx, soql, &profiles); err != nil {
		return err
	}

	rows := make([]metrics.SeriesValue, 0, len(profiles))
	for _, p := range profiles {
		rows = append(rows, metrics.SeriesValue{
			Labels: []string{p.ProfileID, p.Name}, Value: float64(p.UserCount)})
	}
	c.metrics.FiveOrLessProfileAssignees.Replace(rows)
	return nil
}

// ProfilesWithNoActiveUsers refreshes the inventory of profiles no active
// user is assigned to.
func (c *Collectors) ProfilesWithNoActiveUsers(ctx context.Context) error {
	c.log.Info().Msg("Querying profiles with no active users")

	soql := `SELECT Name, Id FROM Profile
		WHERE Id NOT IN (SELECT ProfileId FROM User WHERE IsActive = TRUE)`

	var profiles []idNameRecord
	if err := c.api.Query(ctx, soql, &profiles); err != nil {
		return err
	}

	rows := make([]metrics.SeriesValue, 0, len(profiles))
	for _, p := range profiles {
		rows = append(rows, metrics.SeriesValue{Labels: []string{p.ID, p.Name}, Value: 0})
	}
	c.metrics.UnassignedProfiles.Replace(rows)
	return nil
}

type apexComponentRecord struct {
	ID         string  `json:"Id"`
	Name       string  `json:"Name"`
	APIVersion float64 `json:"ApiVersion"`
}

func (c *Collectors) deprecatedApexComponents(ctx context.Context, sobject string, gauge *metrics.Gauge) error {
	soql := fmt.Sprintf(
		"SELECT Id, Name, ApiVersion FROM %s WHERE NamespacePrefix = null AND ApiVersion <= %g",
		sobject, c.apiVersionFloor())

	var components []apexComponentRecord
	if err := c.api.Query(ctx, soql, &components); err != nil {
		return err
	}

	rows := make([]metrics.SeriesValue, 0, len(components))
	for _, comp := range components {
		rows = append(rows, metrics.SeriesValue{
			Labels: []string{comp.ID, comp.Name}, Value: comp.APIVersion})
	}
	gauge.Replace(rows)
	return nil
}

func (c *Collectors) apiVersionFloor() float64 {
	if c.cfg.TechDebt.APIVersionFloor > 0 {
		return c.cfg.TechDebt.APIVersionFloor
	}
	return 50
}

// DeprecatedApexClasses refreshes the inventory of local Apex classes on
// outdated API versions.
func (c *Collectors) DeprecatedApexClasses(ctx context.Context) error {
	c.log.Info().Msg("Querying Apex classes on outdated API versions")
	return c.deprecatedApexComponents(ctx, "ApexClass", c.metrics.DeprecatedApexClasses)
}

// DeprecatedApexTriggers refreshes the inventory of local Apex triggers on
// outdated API versions.
func (c *Collectors) DeprecatedApexTriggers(ctx context.Context) error {
	c.log.Info().Msg("Querying Apex triggers on outdated API versions")
	return c.deprecatedApexComponents(ctx, "ApexTrigger", c.metrics.DeprecatedApexTriggers)
}

// healthCheckGrade buckets a Security Health Check score the way the Trust
// site presents it.
func healthCheckGrade(score int) string {
	switch {
	case score >= 90:
		return "Excellent"
	case score >= 80:
		return "Very Good"
	case score >= 70:
		return "Good"
	case score >= 55:
		return "Poor"
	}
	return "Very Poor"
}

// SecurityHealthCheck refreshes the org's Security Health Check score.
func (c *Collectors) SecurityHealthCheck(ctx context.Context) error {
	c.log.Info().Msg("Querying security health check score")

	var checks []struct {
		Score int `json:"Score"`
	}
	if err := c.api.ToolingQuery(ctx, "SELECT Score, Id FROM SecurityHealthCheck", &checks); err != nil {
		return err
	}

	rows := make([]metrics.SeriesValue, 0, len(checks))
	for _, check := range checks {
		rows = append(rows, metrics.SeriesValue{
			Labels: []string{healthCheckGrade(check.Score)}, Value: float64(check.Score)})
	}
	c.metrics.SecurityHealthCheckScore.Replace(rows)
	return nil
}

// SecurityHealthRisks refreshes the per-setting Security Health Check risk
// inventory, marking each setting as matching or deviating from the
// Salesforce standard value.
func (c *Collectors) SecurityHealthRisks(ctx context.Context) error {
	c.log.Info().Msg("Querying security health check risks")

	var risks []struct {
		OrgValue            string `json:"OrgValue"`
		RiskType            string `json:"RiskType"`
		Setting             string `json:"Setting"`
		SettingGroup        string `json:"SettingGroup"`
		SettingRiskCategory string `json:"SettingRiskCategory"`
		StandardValue       string `json:"StandardValue"`
	}
	if err := c.api.ToolingQuery(ctx,
		"SELECT Id, OrgValue, RiskType, Setting, SettingGroup, SettingRiskCategory, StandardValue, StandardValueRaw FROM SecurityHealthCheckRisks",
		&risks); err != nil {
		return err
	}

	rows := make([]metrics.SeriesValue, 0, len(risks))
	for _, risk := range risks {
		compliance := "mismatch"
		if risk.OrgValue == risk.StandardValue {
			compliance = "match"
		}
		rows = append(rows, metrics.SeriesValue{
			Labels: []string{risk.OrgValue, risk.RiskType, risk.Setting,
				risk.SettingGroup, risk.SettingRiskCategory, risk.StandardValue, compliance},
			Value: 1,
		})
	}
	c.metrics.SecurityHealthRisks.Replace(rows)
	return nil
}

// WorkflowRules refreshes the legacy workflow rule inventory.
func (c *Collectors) WorkflowRules(ctx context.Context) error {
	c.log.Info().Msg("Querying workflow rules")

	var rules []struct {
		ID              string `json:"Id"`
		CreatedDate     string `json:"CreatedDate"`
		NamespacePrefix string `json:"NamespacePrefix"`
	}
	if err := c.api.ToolingQuery(ctx,
		"SELECT Id, CreatedDate, NamespacePrefix FROM WorkflowRule", &rules); err != nil {
		return err
	}

	rows := make([]metrics.SeriesValue, 0, len(rules))
	for _, rule := range rules {
		namespace := rule.NamespacePrefix
		if namespace == "" {
			namespace = "None"
		}
		rows = append(rows, metrics.SeriesValue{
			Labels: []string{rule.ID, rule.CreatedDate, namespace}, Value: 1})
	}
	c.metrics.WorkflowRules.Replace(rows)
	return nil
}

type dormantUserRecord struct {
	ID            string `json:"Id"`
	Username      string `json:"Username"`
	Email         string `json:"Email"`
	CreatedDate   string `json:"CreatedDate"`
	LastLoginDate string `json:"LastLoginDate"`
	Profile       *struct {
		Name string `json:"Name"`
	} `json:"Profile"`
}

func (c *Collectors) dormantUsers(ctx context.Context, licenseFilter string, gauge *metrics.Gauge) error {
	days := c.cfg.TechDebt.DormancyDays
	if days <= 0 {
		days = 90
	}
	soql := fmt.Sprintf(`SELECT Id, Name, CreatedDate, Username, Email, IsActive, LastLoginDate, Profile.Name
		FROM User WHERE IsActive = true
		AND Profile.UserLicense.Name %s 'Salesforce'
		AND (LastLoginDate < LAST_N_DAYS:%d OR LastLoginDate = Null)
		AND CreatedDate < LAST_N_DAYS:%d
		ORDER BY LastLoginDate ASC`, licenseFilter, days, days)

	var users []dormantUserRecord
	if err := c.api.Query(ctx, soql, &users); err != nil {
		return err
	}

	rows := make([]metrics.SeriesValue, 0, len(users))
	for _, user := range users {
		profileName := "Unknown"
		if user.Profile != nil {
			profileName = user.Profile.Name
		}
		lastLogin := user.LastLoginDate
		if lastLogin == "" {
			lastLogin = "Never"
		}
		rows = append(rows, metrics.SeriesValue{
			Labels: []string{user.ID, user.Username, user.Email,
				profileName, user.CreatedDate, lastLogin},
			Value: 1,
		})
	}
	gauge.Replace(rows)
	return nil
}

// DormantUsers refreshes the inventory of Salesforce-licensed users who are
// active but have not logged in within the dormancy window.
func (c *Collectors) DormantUsers(ctx context.Context) error {
	c.log.Info().Msg("Querying dormant Salesforce users")
	return c.dormantUsers(ctx, "=", c.metrics.DormantUsers)
}

// DormantPortalUsers refreshes the same inventory for portal and community
// licenses.
func (c *Collectors) DormantPortalUsers(ctx context.Context) error {
	c.log.Info().Msg("Querying dormant portal users")
	return c.dormantUsers(ctx, "!=", c.metrics.DormantPortalUsers)
}

// QueuesPerObject refreshes the distribution of queues across objects.
func (c *Collectors) QueuesPerObject(ctx context.Context) error {
	c.log.Info().Msg("Querying total queues per object")

	soql := `SELECT SobjectType, COUNT_DISTINCT(QueueId)
		FROM QueueSobject GROUP BY SobjectType
		ORDER BY COUNT_DISTINCT(QueueId) DESC`

	var queues []struct {
		SobjectType string `json:"SobjectType"`
		Count       int    `json:"expr0"`
	}
	if err := c.api.Query(ctx, soql, &queues); err != nil {
		return err
	}

	rows := make([]metrics.SeriesValue, 0, len(queues))
	for _, q := range queues {
		rows = append(rows, metrics.SeriesValue{
			Labels: []string{q.SobjectType}, Value: float64(q.Count)})
	}
	c.metrics.QueuesPerObject.Replace(rows)
	return nil
}

func (c *Collectors) groupInventory(ctx context.Context, soql string, gauge *metrics.Gauge) error {
	var groups []idNameRecord
	if err := c.api.Query(ctx, soql, &groups); err != nil {
		return err
	}

	rows := make([]metrics.SeriesValue, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, metrics.SeriesValue{Labels: []string{g.ID, g.Name}, Value: 1})
	}
	gauge.Replace(rows)
	return nil
}

// QueuesWithNoMembers refreshes the inventory of queues with no members.
func (c *Collectors) QueuesWithNoMembers(ctx context.Context) error {
	c.log.Info().Msg("Querying queues with no members")
	return c.groupInventory(ctx,
		`SELECT Id, Name FROM Group WHERE Type = 'Queue'
		AND Id NOT IN (SELECT GroupId FROM GroupMember)`,
		c.metrics.QueuesWithNoMembers)
}

// QueuesWithZeroOpenCases refreshes the inventory of case queues that own no
// open cases.
func (c *Collectors) QueuesWithZeroOpenCases(ctx context.Context) error {
	c.log.Info().Msg("Querying queues with zero open cases")
	return c.groupInventory(ctx,
		`SELECT Id, Name FROM Group WHERE Type = 'Queue'
		AND Id IN (SELECT QueueId FROM QueueSobject WHERE SobjectType = 'Case')
		AND Id NOT IN (SELECT OwnerId FROM Case WHERE IsClosed = false)`,
		c.metrics.QueuesWithZeroOpenCases)
}

// PublicGroupsWithNoMembers refreshes the inventory of empty public groups.
func (c *Collectors) PublicGroupsWithNoMembers(ctx context.Context) error {
	c.log.Info().Msg("Querying public groups with no members")
	return c.groupInventory(ctx,
		`SELECT Id, Name FROM Group WHERE Type = 'Regular'
		AND Id NOT IN (SELECT GroupId FROM GroupMember)
		ORDER BY Name`,
		c.metrics.PublicGroupsWithNoMembers)
}

// DashboardsWithInactiveUsers refreshes the inventory of dashboards whose
// running user is deactivated. Those dashboards fail or show stale data
// until re-pointed.
func (c *Collectors) DashboardsWithInactiveUsers(ctx context.Context) error {
	c.log.Info().Msg("Querying dashboards with inactive running users")

	var dashboards []struct {
		ID                 string `json:"Id"`
		Title              string `json:"Title"`
		CreatedDate        string `json:"CreatedDate"`
		LastReferencedDate string `json:"LastReferencedDate"`
		RunningUser        *struct {
			Name string `json:"Name"`
		} `json:"RunningUser"`
	}
	if err := c.api.Query(ctx,
		"SELECT Id, Title, RunningUser.Name, LastReferencedDate, RunningUser.IsActive, CreatedDate FROM Dashboard WHERE RunningUser.IsActive = false",
		&dashboards); err != nil {
		return err
	}

	rows := make([]metrics.SeriesValue, 0, len(dashboards))
	for _, d := range dashboards {
		runningUser := "Unknown"
		if d.RunningUser != nil {
			runningUser = d.RunningUser.Name
		}
		lastReferenced := d.LastReferencedDate
		if lastReferenced == "" {
			lastReferenced = "Never"
		}
		rows = append(rows, metrics.SeriesValue{
			Labels: []string{d.ID, d.Title, runningUser, d.CreatedDate, lastReferenced},
			Value:  1,
		})
	}
	c.metrics.DashboardsWithInactiveUsers.Replace(rows)
	return nil
}

// ScheduledApexJobs refreshes the inventory of scheduled Apex jobs.
// CronJobDetail.JobType '7' identifies scheduled Apex specifically.
func (c *Collectors) ScheduledApexJobs(ctx context.Context) error {
	c.log.Info().Msg("Querying scheduled Apex jobs")

	soql := `SELECT Id, CronJobDetail.Name, CronJobDetail.JobType, CronExpression, State,
		NextFireTime, PreviousFireTime, TimesTriggered, CreatedBy.Name, CreatedDate
		FROM CronTrigger
		WHERE CronJobDetail.JobType = '7' AND State != 'Deleted'
		ORDER BY NextFireTime`

	var triggers []struct {
		ID               string `json:"Id"`
		CronExpression   string `json:"CronExpression"`
		State            string `json:"State"`
		NextFireTime     string `json:"NextFireTime"`
		PreviousFireTime string `json:"PreviousFireTime"`
		TimesTriggered   int    `json:"TimesTriggered"`
		CreatedDate      string `json:"CreatedDate"`
		CronJobDetail    *struct {
			Name string `json:"Name"`
		} `json:"CronJobDetail"`
		CreatedBy *struct {
			Name string `json:"Name"`
		} `json:"CreatedBy"`
	}
	if err := c.api.Query(ctx, soql, &triggers); err != nil {
		return err
	}

	rows := make([]metrics.SeriesValue, 0, len(triggers))
	for _, trigger := range triggers {
		jobName, createdBy := "Unknown", "Unknown"
		if trigger.CronJobDetail != nil {
			jobName = trigger.CronJobDetail.Name
		}
		if trigger.CreatedBy != nil {
			createdBy = trigger.CreatedBy.Name
		}
		nextFire := trigger.NextFireTime
		if nextFire == "" {
			nextFire = "None"
		}
		prevFire := trigger.PreviousFireTime
		if prevFire == "" {
			prevFire = "None"
		}
		rows = append(rows, metrics.SeriesValue{
			Labels: []string{trigger.ID, jobName, trigger.CronExpression, trigger.State,
				nextFire, prevFire, createdBy, trigger.CreatedDate},
			Value: float64(trigger.TimesTriggered),
		})
	}
	c.metrics.ScheduledApexJobs.Replace(rows)
	return nil
}
