package collectors

import (
	"context"
	"fmt"
	"strconv"

	"sfmon_exporter/internal/metrics"
)

// OrgLimits refreshes the API usage gauge from the org /limits endpoint.
// Limits with Max == 0 carry no usable percentage and are skipped.
func (c *Collectors) OrgLimits(ctx context.Context) error {
	c.log.Info().Msg("Getting Salesforce API limits")

	limits, err := c.api.Limits(ctx)
	if err != nil {
		return err
	}

	rows := make([]metrics.SeriesValue, 0, len(limits))
	for name, limit := range limits {
		if limit.Max == 0 {
			continue
		}
		used := limit.Max - limit.Remaining
		rows = append(rows, metrics.SeriesValue{
			Labels: []string{
				name,
				limitDescription(name),
				strconv.Itoa(used),
				strconv.Itoa(limit.Max),
			},
			Value: float64(used*100) / float64(limit.Max),
		})
	}
	c.metrics.APIUsagePercentage.Replace(rows)
	return nil
}

type userLicenseRecord struct {
	Name          string `json:"Name"`
	Status        string `json:"Status"`
	TotalLicenses int    `json:"TotalLicenses"`
	UsedLicenses  int    `json:"UsedLicenses"`
}

type permSetLicenseRecord struct {
	MasterLabel    string `json:"MasterLabel"`
	Status         string `json:"Status"`
	ExpirationDate string `json:"ExpirationDate"`
	TotalLicenses  int    `json:"TotalLicenses"`
	UsedLicenses   int    `json:"UsedLicenses"`
}

type entitlementRecord struct {
	MasterLabel          string   `json:"MasterLabel"`
	AmountUsed           *float64 `json:"AmountUsed"`
	CurrentAmountAllowed float64  `json:"CurrentAmountAllowed"`
	EndDate              string   `json:"EndDate"`
}

// OrgLicenses refreshes the three license families: user licenses,
// permission set licenses and usage-based entitlements. All queries run
// before any gauge is touched so a partial failure leaves the previous
// snapshot intact across the whole family.
func (c *Collectors) OrgLicenses(ctx context.Context) error {
	c.log.Info().Msg("Getting Salesforce licenses")

	var userLicenses []userLicenseRecord
	if err := c.api.Query(ctx,
		"SELECT Name, Status, UsedLicenses, TotalLicenses FROM UserLicense",
		&userLicenses); err != nil {
		return err
	}

	var permSetLicenses []permSetLicenseRecord
	if err := c.api.Query(ctx,
		"SELECT MasterLabel, Status, ExpirationDate, TotalLicenses, UsedLicenses FROM PermissionSetLicense",
		&permSetLicenses); err != nil {
		return err
	}

	var entitlements []entitlementRecord
	if err := c.api.Query(ctx,
		"SELECT MasterLabel, AmountUsed, CurrentAmountAllowed, EndDate FROM TenantUsageEntitlement",
		&entitlements); err != nil {
		return err
	}

	var totals, used, percents []metrics.SeriesValue
	for _, lic := range userLicenses {
		totals = append(totals, metrics.SeriesValue{
			Labels: []string{lic.Name, lic.Status}, Value: float64(lic.TotalLicenses)})
		used = append(used, metrics.SeriesValue{
			Labels: []string{lic.Name, lic.Status}, Value: float64(lic.UsedLicenses)})
		if lic.TotalLicenses != 0 {
			percents = append(percents, metrics.SeriesValue{
				Labels: []string{lic.Name, lic.Status,
					strconv.Itoa(lic.UsedLicenses), strconv.Itoa(lic.TotalLicenses)},
				Value: float64(lic.UsedLicenses) / float64(lic.TotalLicenses) * 100,
			})
		}
	}
	c.metrics.TotalUserLicenses.Replace(totals)
	c.metrics.UsedUserLicenses.Replace(used)
	c.metrics.PercentUserLicensesUsed.Replace(percents)

	totals, used, percents = nil, nil, nil
	for _, lic := range permSetLicenses {
		totals = append(totals, metrics.SeriesValue{
			Labels: []string{lic.MasterLabel, lic.Status}, Value: float64(lic.TotalLicenses)})
		used = append(used, metrics.SeriesValue{
			Labels: []string{lic.MasterLabel, lic.Status}, Value: float64(lic.UsedLicenses)})
		if lic.TotalLicenses != 0 {
			percents = append(percents, metrics.SeriesValue{
				Labels: []string{lic.MasterLabel, lic.Status,
					strconv.Itoa(lic.UsedLicenses), strconv.Itoa(lic.TotalLicenses),
					lic.ExpirationDate},
				Value: float64(lic.UsedLicenses) / float64(lic.TotalLicenses) * 100,
			})
		}
	}
	c.metrics.TotalPermSetLicenses.Replace(totals)
	c.metrics.UsedPermSetLicenses.Replace(used)
	c.metrics.PercentPermSetLicensesUsed.Replace(percents)

	totals, used, percents = nil, nil, nil
	for _, ent := range entitlements {
		totals = append(totals, metrics.SeriesValue{
			Labels: []string{ent.MasterLabel}, Value: ent.CurrentAmountAllowed})
		if ent.AmountUsed == nil {
			continue
		}
		used = append(used, metrics.SeriesValue{
			Labels: []string{ent.MasterLabel}, Value: *ent.AmountUsed})
		if ent.CurrentAmountAllowed != 0 {
			percents = append(percents, metrics.SeriesValue{
				Labels: []string{ent.MasterLabel,
					strconv.FormatFloat(*ent.AmountUsed, 'f', -1, 64),
					strconv.FormatFloat(ent.CurrentAmountAllowed, 'f', -1, 64),
					ent.EndDate},
				Value: *ent.AmountUsed / ent.CurrentAmountAllowed * 100,
			})
		}
	}
	c.metrics.TotalEntitlements.Replace(totals)
	c.metrics.UsedEntitlements.Replace(used)
	c.metrics.PercentEntitlementsUsed.Replace(percents)

	return nil
}

const productionEnvironment = "Production"

// InstanceStatus resolves the org's pod and refreshes the Trust incident and
// maintenance gauges against it. With no active incidents the gauge reports a
// single zero series with severity "ok" so the absence of incidents stays
// scrapeable.
func (c *Collectors) InstanceStatus(ctx context.Context) error {
	c.log.Info().Msg("Getting Salesforce instance status")

	pod, err := c.fetchPod(ctx)
	if err != nil {
		return err
	}

	incidents, err := c.trust.ActiveIncidents(ctx)
	if err != nil {
		return err
	}
	maintenances, err := c.trust.Maintenances(ctx)
	if err != nil {
		return err
	}

	var incidentRows []metrics.SeriesValue
	for _, incident := range incidents {
		if !incident.AffectsPod(pod) {
			continue
		}
		incidentRows = append(incidentRows, metrics.SeriesValue{
			Labels: []string{productionEnvironment, pod, incident.Severity(), incident.ID},
			Value:  1,
		})
	}
	if len(incidentRows) == 0 {
		incidentRows = []metrics.SeriesValue{{
			Labels: []string{productionEnvironment, pod, "ok", "none"},
			Value:  0,
		}}
	}
	c.metrics.Incidents.Replace(incidentRows)

	var maintenanceRows []metrics.SeriesValue
	for _, m := range maintenances {
		if !m.AffectsPod(pod) || !m.Upcoming() {
			continue
		}
		maintenanceRows = append(maintenanceRows, metrics.SeriesValue{
			Labels: []string{productionEnvironment, m.ID, m.Status(),
				m.PlannedStartTime, m.PlannedEndTime},
			Value: 1,
		})
	}
	c.metrics.Maintenances.Replace(maintenanceRows)

	return nil
}

func (c *Collectors) fetchPod(ctx context.Context) (string, error) {
	var orgs []struct {
		InstanceName string `json:"InstanceName"`
	}
	if err := c.api.Query(ctx, "SELECT InstanceName FROM Organization LIMIT 1", &orgs); err != nil {
		return "", err
	}
	if len(orgs) == 0 || orgs[0].InstanceName == "" {
		return "", fmt.Errorf("organization query returned no instance name")
	}
	return orgs[0].InstanceName, nil
}
