package collectors

import (
	"context"
	"sort"
	"strconv"

	"sfmon_exporter/internal/metrics"
)

// ApexFlexQueue refreshes the flex queue gauge with every AsyncApexJob
// currently in Holding status.
func (c *Collectors) ApexFlexQueue(ctx context.Context) error {
	c.log.Info().Msg("Querying Apex flex queue")

	var jobs []struct {
		ID          string `json:"Id"`
		ApexClassID string `json:"ApexClassId"`
	}
	if err := c.api.Query(ctx,
		"SELECT Id, ApexClassId FROM AsyncApexJob WHERE Status = 'Holding'", &jobs); err != nil {
		return err
	}

	rows := make([]metrics.SeriesValue, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, metrics.SeriesValue{
			Labels: []string{job.ID, job.ApexClassID}, Value: 1})
	}
	c.metrics.ApexFlexQueue.Replace(rows)
	return nil
}

// AsyncJobStatus refreshes today's async Apex job counts grouped by status,
// method, job type and error count.
func (c *Collectors) AsyncJobStatus(ctx context.Context) error {
	c.log.Info().Msg("Getting async Apex job status")

	var jobs []struct {
		Status         string `json:"Status"`
		JobType        string `json:"JobType"`
		MethodName     string `json:"MethodName"`
		NumberOfErrors int    `json:"NumberOfErrors"`
	}
	if err := c.api.Query(ctx,
		"SELECT Id, Status, JobType, ApexClassId, MethodName, NumberOfErrors FROM AsyncApexJob WHERE CreatedDate = TODAY",
		&jobs); err != nil {
		return err
	}

	type key struct {
		status, method, jobType string
		errors                  int
	}
	counts := make(map[key]int)
	for _, job := range jobs {
		counts[key{job.Status, job.MethodName, job.JobType, job.NumberOfErrors}]++
	}

	rows := make([]metrics.SeriesValue, 0, len(counts))
	for k, count := range counts {
		rows = append(rows, metrics.SeriesValue{
			Labels: []string{k.status, k.method, k.jobType, strconv.Itoa(k.errors)},
			Value:  float64(count),
		})
	}
	c.metrics.AsyncJobStatus.Replace(rows)
	return nil
}

// ApexExecutionTimes refreshes the per-execution timing gauges from the
// latest hourly ApexExecution log. Each (entry point, quiddity) pair keeps
// the last value seen in the log.
func (c *Collectors) ApexExecutionTimes(ctx context.Context) error {
	c.log.Info().Msg("Getting Apex execution times")

	logRows, err := c.api.LatestEventLog(ctx, "ApexExecution", "Hourly")
	if err != nil {
		return err
	}

	type key struct{ entry, quiddity string }
	type times struct{ run, cpu, exec, db, callout float64 }
	latest := make(map[key]times)
	var order []key
	for _, row := range logRows {
		k := key{row.Get("ENTRY_POINT"), row.Get("QUIDDITY")}
		if _, seen := latest[k]; !seen {
			order = append(order, k)
		}
		latest[k] = times{
			run:     rowFloat(row, "RUN_TIME"),
			cpu:     rowFloat(row, "CPU_TIME"),
			exec:    rowFloat(row, "EXEC_TIME"),
			db:      rowFloat(row, "DB_TOTAL_TIME"),
			callout: rowFloat(row, "CALLOUT_TIME"),
		}
	}

	var run, cpu, exec, db, callout []metrics.SeriesValue
	for _, k := range order {
		labels := []string{k.entry, k.quiddity}
		t := latest[k]
		run = append(run, metrics.SeriesValue{Labels: labels, Value: t.run})
		cpu = append(cpu, metrics.SeriesValue{Labels: labels, Value: t.cpu})
		exec = append(exec, metrics.SeriesValue{Labels: labels, Value: t.exec})
		db = append(db, metrics.SeriesValue{Labels: labels, Value: t.db})
		callout = append(callout, metrics.SeriesValue{Labels: labels, Value: t.callout})
	}
	c.metrics.ApexRunTime.Replace(run)
	c.metrics.ApexCPUTime.Replace(cpu)
	c.metrics.ApexExecTime.Replace(exec)
	c.metrics.ApexDBTotalTime.Replace(db)
	c.metrics.ApexCalloutTime.Replace(callout)
	return nil
}

// validQuiddities are the execution contexts worth summarizing: future
// calls, scheduled jobs, queueables, batch Apex, triggers and the like.
var validQuiddities = map[string]bool{
	"F": true, "S": true, "Q": true, "BA": true,
	"C": true, "K": true, "QTXF": true, "B": true,
}

// ApexExecutionSummary aggregates the latest hourly ApexExecution log per
// (entry point, quiddity): execution counts, runtime and CPU statistics and
// the share of slow executions.
func (c *Collectors) ApexExecutionSummary(ctx context.Context) error {
	c.log.Info().Msg("Getting Apex execution summary")

	logRows, err := c.api.LatestEventLog(ctx, "ApexExecution", "Hourly")
	if err != nil {
		return err
	}

	type key struct{ entry, quiddity string }
	type agg struct {
		count            int
		totalRun, maxRun float64
		totalCPU, maxCPU float64
		gt5s, gt10s      int
	}
	groups := make(map[key]*agg)
	var order []key
	for _, row := range logRows {
		quiddity := row.Get("QUIDDITY")
		if !validQuiddities[quiddity] {
			continue
		}
		k := key{row.Get("ENTRY_POINT"), quiddity}
		g, ok := groups[k]
		if !ok {
			g = &agg{}
			groups[k] = g
			order = append(order, k)
		}
		runTime := rowFloat(row, "RUN_TIME")
		cpuTime := rowFloat(row, "CPU_TIME")
		g.count++
		g.totalRun += runTime
		g.totalCPU += cpuTime
		if runTime > g.maxRun {
			g.maxRun = runTime
		}
		if cpuTime > g.maxCPU {
			g.maxCPU = cpuTime
		}
		if runTime > 5000 {
			g.gt5s++
		}
		if runTime > 10000 {
			g.gt10s++
		}
	}

	var count, avgRun, maxRun, totalRun, avgCPU, maxCPU, gt5s, gt10s, gt5sPct []metrics.SeriesValue
	for _, k := range order {
		labels := []string{k.entry, k.quiddity}
		g := groups[k]
		n := float64(g.count)
		count = append(count, metrics.SeriesValue{Labels: labels, Value: n})
		avgRun = append(avgRun, metrics.SeriesValue{Labels: labels, Value: g.totalRun / n})
		maxRun = append(maxRun, metrics.SeriesValue{Labels: labels, Value: g.maxRun})
		totalRun = append(totalRun, metrics.SeriesValue{Labels: labels, Value: g.totalRun})
		avgCPU = append(avgCPU, metrics.SeriesValue{Labels: labels, Value: g.totalCPU / n})
		maxCPU = append(maxCPU, metrics.SeriesValue{Labels: labels, Value: g.maxCPU})
		gt5s = append(gt5s, metrics.SeriesValue{Labels: labels, Value: float64(g.gt5s)})
		gt10s = append(gt10s, metrics.SeriesValue{Labels: labels, Value: float64(g.gt10s)})
		gt5sPct = append(gt5sPct, metrics.SeriesValue{Labels: labels, Value: float64(g.gt5s) / n * 100})
	}
	c.metrics.ApexEntryPointCount.Replace(count)
	c.metrics.ApexAvgRuntime.Replace(avgRun)
	c.metrics.ApexMaxRuntime.Replace(maxRun)
	c.metrics.ApexTotalRuntime.Replace(totalRun)
	c.metrics.ApexAvgCPUTime.Replace(avgCPU)
	c.metrics.ApexMaxCPUTime.Replace(maxCPU)
	c.metrics.ApexRuntimeGt5sCount.Replace(gt5s)
	c.metrics.ApexRuntimeGt10sCount.Replace(gt10s)
	c.metrics.ApexRuntimeGt5sPercent.Replace(gt5sPct)
	return nil
}

// entryPointStats aggregates long-running request rows per entry point.
type entryPointStats struct {
	entry                        string
	count                        int
	totalRun, totalExec, totalDB float64
}

func (s *entryPointStats) avgRun() float64  { return s.totalRun / float64(s.count) }
func (s *entryPointStats) avgExec() float64 { return s.totalExec / float64(s.count) }
func (s *entryPointStats) avgDB() float64   { return s.totalDB / float64(s.count) }

const topEntryPoints = 5

// ConcurrentApexErrors refreshes the two top-5 views of long-running Apex
// requests (runtime above 5 seconds): entry points ranked by average
// runtime, and ranked by request count.
func (c *Collectors) ConcurrentApexErrors(ctx context.Context) error {
	c.log.Info().Msg("Getting concurrent Apex errors")

	logRows, err := c.api.LatestEventLog(ctx, "ApexExecution", "Hourly")
	if err != nil {
		return err
	}

	grouped := make(map[string]*entryPointStats)
	for _, row := range logRows {
		if rowFloat(row, "IS_LONG_RUNNING_REQUEST") != 1 || rowFloat(row, "RUN_TIME") <= 5000 {
			continue
		}
		entry := row.Get("ENTRY_POINT")
		s, ok := grouped[entry]
		if !ok {
			s = &entryPointStats{entry: entry}
			grouped[entry] = s
		}
		s.count++
		s.totalRun += rowFloat(row, "RUN_TIME")
		s.totalExec += rowFloat(row, "EXEC_TIME")
		s.totalDB += rowFloat(row, "DB_TOTAL_TIME")
	}

	stats := make([]*entryPointStats, 0, len(grouped))
	for _, s := range grouped {
		stats = append(stats, s)
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].avgRun() > stats[j].avgRun() })
	var byRuntime []metrics.SeriesValue
	for i, s := range stats {
		if i == topEntryPoints {
			break
		}
		byRuntime = append(byRuntime, metrics.SeriesValue{
			Labels: []string{s.entry, strconv.Itoa(s.count),
				formatFloat(s.avgExec()), formatFloat(s.avgDB())},
			Value: s.avgRun(),
		})
	}
	c.metrics.TopConcurrentErrorsByRuntime.Replace(byRuntime)

	sort.Slice(stats, func(i, j int) bool { return stats[i].count > stats[j].count })
	var byCount []metrics.SeriesValue
	for i, s := range stats {
		if i == topEntryPoints {
			break
		}
		byCount = append(byCount, metrics.SeriesValue{
			Labels: []string{s.entry, formatFloat(s.avgRun()),
				formatFloat(s.avgExec()), formatFloat(s.avgDB())},
			Value: float64(s.count),
		})
	}
	c.metrics.TopConcurrentErrorsByCount.Replace(byCount)
	return nil
}

// ConcurrentLimitErrors counts requests rejected by the concurrent
// long-running Apex limit, from today's daily limit log.
func (c *Collectors) ConcurrentLimitErrors(ctx context.Context) error {
	c.log.Info().Msg("Getting concurrent long-running Apex limit errors")

	logRows, err := c.api.LatestEventLog(ctx, "ConcurrentLongRunningApexLimit", "Daily")
	if err != nil {
		return err
	}

	requests := 0
	eventType := "ConcurrentLongRunningApexLimit"
	for _, row := range logRows {
		if row.Get("REQUEST_ID") != "" {
			requests++
		}
		if v := row.Get("EVENT_TYPE"); v != "" {
			eventType = v
		}
	}

	if len(logRows) == 0 {
		c.metrics.ConcurrentErrorsCount.Replace(nil)
		return nil
	}
	c.metrics.ConcurrentErrorsCount.Replace([]metrics.SeriesValue{{
		Labels: []string{eventType}, Value: float64(requests)}})
	return nil
}

// ApexExceptions refreshes the per-exception detail series and per-category
// counts from the latest hourly ApexUnexpectedException log.
func (c *Collectors) ApexExceptions(ctx context.Context) error {
	c.log.Info().Msg("Getting Apex unexpected exceptions")

	logRows, err := c.api.LatestEventLog(ctx, "ApexUnexpectedException", "Hourly")
	if err != nil {
		return err
	}

	var details []metrics.SeriesValue
	categoryCounts := make(map[string]int)
	for _, row := range logRows {
		category := row.Get("EXCEPTION_CATEGORY")
		categoryCounts[category]++
		details = append(details, metrics.SeriesValue{
			Labels: []string{
				row.Get("REQUEST_ID"),
				category,
				row.Get("TIMESTAMP_DERIVED"),
				row.Get("EXCEPTION_TYPE"),
				row.Get("EXCEPTION_MESSAGE"),
				row.Get("STACK_TRACE"),
			},
			Value: 1,
		})
	}
	c.metrics.ApexExceptionDetails.Replace(details)

	var counts []metrics.SeriesValue
	for category, count := range categoryCounts {
		counts = append(counts, metrics.SeriesValue{
			Labels: []string{category}, Value: float64(count)})
	}
	c.metrics.ApexExceptionCategoryCount.Replace(counts)
	return nil
}
