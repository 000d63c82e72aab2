package collectors

import (
	"context"
	"strconv"
	"strings"

	"sfmon_exporter/internal/metrics"
)

// DailyBulkAPI refreshes the daily bulk API gauges from the latest daily
// BulkAPI log.
func (c *Collectors) DailyBulkAPI(ctx context.Context) error {
	c.log.Info().Msg("Getting daily bulk API details")
	return c.analyseBulkAPI(ctx, "Daily",
		c.metrics.DailyBatchCount, c.metrics.DailyEntityTypeCount)
}

// HourlyBulkAPI refreshes the hourly bulk API gauges from the latest hourly
// BulkAPI log.
func (c *Collectors) HourlyBulkAPI(ctx context.Context) error {
	c.log.Info().Msg("Getting hourly bulk API details")
	return c.analyseBulkAPI(ctx, "Hourly",
		c.metrics.HourlyBatchCount, c.metrics.HourlyEntityTypeCount)
}

// analyseBulkAPI aggregates a BulkAPI log two ways: batch counts with
// failure/processed totals per (job, user, entity), and batch counts per
// (user, operation, entity). Rows without an entity type are noise from
// job-level log lines and are skipped.
func (c *Collectors) analyseBulkAPI(ctx context.Context, interval string, batchGauge, entityGauge *metrics.Gauge) error {
	logRows, err := c.api.LatestEventLog(ctx, "BulkAPI", interval)
	if err != nil {
		return err
	}

	type batchKey struct{ jobID, userID, entityType string }
	type entityKey struct{ userID, operationType, entityType string }
	batchCounts := make(map[batchKey]int)
	recordsFailed := make(map[batchKey]int)
	recordsProcessed := make(map[batchKey]int)
	entityCounts := make(map[entityKey]int)

	for _, row := range logRows {
		entityType := row.Get("ENTITY_TYPE")
		if entityType == "" || strings.EqualFold(entityType, "none") {
			continue
		}
		bk := batchKey{row.Get("JOB_ID"), row.Get("USER_ID"), entityType}
		batchCounts[bk]++
		recordsFailed[bk] += rowInt(row, "NUMBER_FAILURES")
		recordsProcessed[bk] += rowInt(row, "ROWS_PROCESSED")
		entityCounts[entityKey{bk.userID, row.Get("OPERATION_TYPE"), entityType}]++
	}

	batchRows := make([]metrics.SeriesValue, 0, len(batchCounts))
	for bk, count := range batchCounts {
		batchRows = append(batchRows, metrics.SeriesValue{
			Labels: []string{bk.jobID, bk.userID, bk.entityType,
				strconv.Itoa(recordsFailed[bk]), strconv.Itoa(recordsProcessed[bk])},
			Value: float64(count),
		})
	}
	batchGauge.Replace(batchRows)

	entityRows := make([]metrics.SeriesValue, 0, len(entityCounts))
	for ek, count := range entityCounts {
		entityRows = append(entityRows, metrics.SeriesValue{
			Labels: []string{ek.userID, ek.operationType, ek.entityType},
			Value:  float64(count),
		})
	}
	entityGauge.Replace(entityRows)
	return nil
}
