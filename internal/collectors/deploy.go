package collectors

import (
	"context"

	"sfmon_exporter/internal/metrics"
)

// deployStatusValue maps a DeployRequest status onto a gauge value.
// In-progress requests are skipped entirely and never reach this mapping.
func deployStatusValue(status string) float64 {
	switch status {
	case "Succeeded":
		return 1
	case "Failed":
		return 0
	case "Canceled":
		return -1
	}
	return -1
}

type deployRequestRecord struct {
	ID            string `json:"Id"`
	Status        string `json:"Status"`
	StartDate     string `json:"StartDate"`
	CreatedDate   string `json:"CreatedDate"`
	CompletedDate string `json:"CompletedDate"`
	CheckOnly     bool   `json:"CheckOnly"`
	CreatedBy     *struct {
		Name string `json:"Name"`
	} `json:"CreatedBy"`
}

// minutesBetween returns the span between two Salesforce timestamps in
// minutes, or 0 when either side is missing or unparseable.
func minutesBetween(from, to string) float64 {
	if from == "" || to == "" {
		return 0
	}
	start, err := parseSalesforceTime(from)
	if err != nil {
		return 0
	}
	end, err := parseSalesforceTime(to)
	if err != nil {
		return 0
	}
	return end.Sub(start).Minutes()
}

// DeploymentStatus refreshes the deployment and validation gauge families
// from Tooling DeployRequest records. Validation-only requests (CheckOnly)
// feed the validation gauges, real deployments the deployment gauges.
func (c *Collectors) DeploymentStatus(ctx context.Context) error {
	c.log.Info().Msg("Getting deployment status")

	var requests []deployRequestRecord
	if err := c.api.ToolingQuery(ctx,
		"SELECT Id, Status, StartDate, CreatedBy.Name, CreatedDate, CompletedDate, CheckOnly FROM DeployRequest ORDER BY CompletedDate DESC",
		&requests); err != nil {
		return err
	}

	var deployDetails, deployPending, deployTimes []metrics.SeriesValue
	var validateDetails, validatePending, validateTimes []metrics.SeriesValue

	for _, req := range requests {
		if req.Status == "InProgress" {
			continue
		}
		deployedBy := "Unknown"
		if req.CreatedBy != nil && req.CreatedBy.Name != "" {
			deployedBy = req.CreatedBy.Name
		}
		pendingMinutes := minutesBetween(req.CreatedDate, req.StartDate)
		deployMinutes := minutesBetween(req.StartDate, req.CompletedDate)

		details := metrics.SeriesValue{
			Labels: []string{formatFloat(pendingMinutes), formatFloat(deployMinutes),
				deployedBy, req.Status, req.ID},
			Value: deployStatusValue(req.Status),
		}
		pending := metrics.SeriesValue{
			Labels: []string{req.ID, deployedBy, req.Status}, Value: pendingMinutes}
		elapsed := metrics.SeriesValue{
			Labels: []string{req.ID, deployedBy, req.Status}, Value: deployMinutes}

		if req.CheckOnly {
			validateDetails = append(validateDetails, details)
			validatePending = append(validatePending, pending)
			validateTimes = append(validateTimes, elapsed)
		} else {
			deployDetails = append(deployDetails, details)
			deployPending = append(deployPending, pending)
			deployTimes = append(deployTimes, elapsed)
		}
	}

	c.metrics.DeploymentDetails.Replace(deployDetails)
	c.metrics.DeploymentPendingTime.Replace(deployPending)
	c.metrics.DeploymentTime.Replace(deployTimes)
	c.metrics.ValidationDetails.Replace(validateDetails)
	c.metrics.ValidationPendingTime.Replace(validatePending)
	c.metrics.ValidationTime.Replace(validateTimes)
	return nil
}
