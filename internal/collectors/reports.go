package collectors

import (
	"context"
	"strings"

	"sfmon_exporter/internal/metrics"
)

// ReportExports refreshes the report export gauge from the latest hourly
// ReportExport log, joining each export to the Report object for a friendly
// name and type.
func (c *Collectors) ReportExports(ctx context.Context) error {
	c.log.Info().Msg("Getting report export records")

	logRows, err := c.api.LatestEventLog(ctx, "ReportExport", "Hourly")
	if err != nil {
		return err
	}

	nameCache := make(map[string]string)
	var rows []metrics.SeriesValue
	for _, row := range logRows {
		reportID := strings.TrimPrefix(row.Get("URI"), "/")
		// Salesforce record IDs are 15 or 18 characters.
		if len(reportID) < 15 {
			c.log.Warn().Str("uri", row.Get("URI")).Msg("Skipping export with malformed report ID")
			continue
		}

		userID := row.Get("USER_ID")
		userName, ok := nameCache[userID]
		if !ok {
			userName = c.userName(ctx, userID)
			nameCache[userID] = userName
		}

		reportName, reportType := c.reportDetails(ctx, reportID)
		rows = append(rows, metrics.SeriesValue{
			Labels: []string{userName, row.Get("TIMESTAMP_DERIVED"), reportName, reportType},
			Value:  1,
		})
	}
	c.metrics.HourlyReportExports.Replace(rows)
	return nil
}

// reportDetails resolves a report ID to its name and report type API name.
// Lookup failures degrade to "Unknown" labels; the export itself still
// counts.
func (c *Collectors) reportDetails(ctx context.Context, reportID string) (name, reportType string) {
	var reports []struct {
		Name              string `json:"Name"`
		ReportTypeAPIName string `json:"ReportTypeApiName"`
	}
	soql := "SELECT Id, Name, ReportTypeApiName FROM Report WHERE Id = '" + reportID + "'"
	if err := c.api.Query(ctx, soql, &reports); err != nil || len(reports) == 0 {
		if err != nil {
			c.log.Warn().Err(err).Str("report_id", reportID).Msg("Report lookup failed")
		}
		return "Unknown", "Unknown"
	}
	return reports[0].Name, reports[0].ReportTypeAPIName
}
