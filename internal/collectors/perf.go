package collectors

import (
	"context"

	"sfmon_exporter/internal/metrics"
)

// PageTimes refreshes the experienced page time (EPT) and average page time
// (APT) gauges from the latest hourly LightningPageView log. EPT series are
// emitted only for rows flagged with a page-time deviation; APT averages the
// duration of every view per page.
func (c *Collectors) PageTimes(ctx context.Context) error {
	c.log.Info().Msg("Getting Salesforce EPT and APT data")

	logRows, err := c.api.LatestEventLog(ctx, "LightningPageView", "Hourly")
	if err != nil {
		return err
	}

	type pageAgg struct {
		totalSeconds float64
		count        int
	}
	pages := make(map[string]*pageAgg)
	var pageOrder []string
	var eptRows []metrics.SeriesValue

	for _, row := range logRows {
		pageName := row.Get("PAGE_APP_NAME")
		if pageName == "" {
			pageName = "Unknown_Page"
		}
		agg, ok := pages[pageName]
		if !ok {
			agg = &pageAgg{}
			pages[pageName] = agg
			pageOrder = append(pageOrder, pageName)
		}
		agg.totalSeconds += rowFloat(row, "DURATION") / 1000
		agg.count++

		if row.Get("EFFECTIVE_PAGE_TIME_DEVIATION") == "" {
			continue
		}
		eptRows = append(eptRows, metrics.SeriesValue{
			Labels: []string{
				row.Get("EFFECTIVE_PAGE_TIME_DEVIATION_REASON"),
				row.Get("EFFECTIVE_PAGE_TIME_DEVIATION_ERROR_TYPE"),
				row.Get("PREVPAGE_ENTITY_TYPE"),
				row.Get("PREVPAGE_APP_NAME"),
				row.Get("PAGE_ENTITY_TYPE"),
				row.Get("PAGE_APP_NAME"),
				row.Get("BROWSER_NAME"),
			},
			Value: rowFloat(row, "EFFECTIVE_PAGE_TIME") / 1000,
		})
	}
	c.metrics.EPT.Replace(eptRows)

	aptRows := make([]metrics.SeriesValue, 0, len(pageOrder))
	for _, pageName := range pageOrder {
		agg := pages[pageName]
		aptRows = append(aptRows, metrics.SeriesValue{
			Labels: []string{pageName},
			Value:  agg.totalSeconds / float64(agg.count),
		})
	}
	c.metrics.APT.Replace(aptRows)
	return nil
}
